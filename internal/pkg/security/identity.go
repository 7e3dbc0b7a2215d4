package security

import (
	"slices"
	"time"
)

const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_SUPER_ADMIN"

	// ExpirySkew is how long past exp a token is still used before refreshing.
	ExpirySkew = 20 * time.Second
)

// Identity is the caller as described by the billing tokens. It is rebuilt
// for every request and never persisted.
type Identity struct {
	Email        string
	Roles        []string
	APIToken     string
	RefreshToken string
	ExpiresAt    time.Time
}

func NewIdentity(claims *Claims, apiToken, refreshToken string) *Identity {
	id := &Identity{
		Email:        claims.Principal(),
		Roles:        normalizeRoles(claims.Roles),
		APIToken:     apiToken,
		RefreshToken: refreshToken,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id
}

// normalizeRoles dedupes roles and guarantees ROLE_USER comes first.
func normalizeRoles(roles []string) []string {
	out := []string{RoleUser}
	for _, r := range roles {
		if r == "" || slices.Contains(out, r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (i *Identity) HasRole(role string) bool {
	return i != nil && slices.Contains(i.Roles, role)
}

func (i *Identity) IsAdmin() bool {
	return i.HasRole(RoleAdmin)
}

// Expired reports whether exp + ExpirySkew <= now.
func (i *Identity) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt.Add(ExpirySkew))
}
