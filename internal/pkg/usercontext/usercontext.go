package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/StudyOn/internal/pkg/security"
)

// UserContext represents the complete user context for a request
type UserContext struct {
	Identity   *security.Identity `json:"-"`
	Email      string             `json:"email"`
	IsLoggedIn bool               `json:"is_logged_in"`
	IsAdmin    bool               `json:"is_admin"`
	RequestID  string             `json:"request_id"`
}

// FromIdentity builds the context for an authenticated caller. A nil identity
// yields an anonymous context.
func FromIdentity(id *security.Identity, requestID string) UserContext {
	if id == nil {
		return UserContext{RequestID: requestID}
	}
	return UserContext{
		Identity:   id,
		Email:      id.Email,
		IsLoggedIn: true,
		IsAdmin:    id.IsAdmin(),
		RequestID:  requestID,
	}
}

// SetUserContext stores uc in the request locals
func SetUserContext(c *fiber.Ctx, uc UserContext) {
	c.Locals(LocalsKey, uc)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if uc, ok := c.Locals(LocalsKey).(UserContext); ok {
		return uc
	}
	return UserContext{IsLoggedIn: false, IsAdmin: false}
}

// IsLoggedIn checks if the current user is logged in
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// IsAdmin checks if the current user is an admin
func IsAdmin(c *fiber.Ctx) bool {
	return GetUserContext(c).IsAdmin
}

// APIToken returns the billing token of the caller, or "" for anonymous users
func APIToken(c *fiber.Ctx) string {
	if id := GetUserContext(c).Identity; id != nil {
		return id.APIToken
	}
	return ""
}
