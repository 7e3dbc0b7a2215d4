package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/StudyOn/internal/pkg/session"
	"github.com/ManuelReschke/StudyOn/internal/pkg/usercontext"
)

// RequireAuth ensures a logged-in web session; redirects to /login if missing.
// GET requests are remembered and resumed after login.
func RequireAuth(c *fiber.Ctx) error {
	if usercontext.IsLoggedIn(c) {
		return c.Next()
	}
	rememberTarget(c)
	return c.Redirect("/login", fiber.StatusSeeOther)
}

// RequireAdmin ensures a logged-in admin. Anonymous users are sent to /login,
// other users get 403.
func RequireAdmin(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		rememberTarget(c)
		return c.Redirect("/login", fiber.StatusSeeOther)
	}
	if !uc.IsAdmin {
		return fiber.ErrForbidden
	}
	return c.Next()
}

// RequireGuest keeps logged-in users away from login and registration.
func RequireGuest(c *fiber.Ctx) error {
	if usercontext.IsLoggedIn(c) {
		return c.Redirect("/profile", fiber.StatusSeeOther)
	}
	return c.Next()
}

func rememberTarget(c *fiber.Ctx) {
	if c.Method() != fiber.MethodGet {
		return
	}
	_ = session.SetSessionValue(c, usercontext.KeyTargetPath, c.OriginalURL())
}
