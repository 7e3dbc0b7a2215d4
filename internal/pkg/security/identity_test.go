package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
)

func TestNewIdentityNormalizesRoles(t *testing.T) {
	exp := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	claims := &Claims{
		Email:            "admin@studyon.com",
		Roles:            []string{RoleAdmin, RoleUser, RoleAdmin, ""},
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)},
	}

	id := NewIdentity(claims, "api", "refresh")
	assert.Equal(t, []string{RoleUser, RoleAdmin}, id.Roles)
	assert.True(t, id.IsAdmin())
	assert.Equal(t, exp, id.ExpiresAt.UTC())

	plain := NewIdentity(&Claims{Email: "user@studyon.com"}, "api", "refresh")
	assert.Equal(t, []string{RoleUser}, plain.Roles)
	assert.False(t, plain.IsAdmin())

	var nobody *Identity
	assert.False(t, nobody.HasRole(RoleUser))
}

func TestIdentityExpired(t *testing.T) {
	exp := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	id := &Identity{ExpiresAt: exp}

	assert.False(t, id.Expired(exp))
	assert.False(t, id.Expired(exp.Add(19*time.Second)))
	assert.True(t, id.Expired(exp.Add(20*time.Second)))
	assert.True(t, id.Expired(exp.Add(time.Hour)))
}
