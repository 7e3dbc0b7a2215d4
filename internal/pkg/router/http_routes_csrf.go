package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"

	"github.com/ManuelReschke/StudyOn/app/controllers"
	"github.com/ManuelReschke/StudyOn/internal/pkg/env"
	"github.com/ManuelReschke/StudyOn/internal/pkg/middleware"
)

func (h HttpRouter) registerCSRFProtectedRoutes(app *fiber.App) {
	csrfConf := csrf.Config{
		KeyLookup:      "form:_csrf",
		ContextKey:     "csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		Expiration:     1 * time.Hour,
		CookieSecure:   !env.IsDev(),
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/") || strings.HasPrefix(c.Path(), "/docs/")
		},
	}

	group := app.Group("", cors.New(), csrf.New(csrfConf))
	group.Get("/", controllers.HandleIndex)

	// Catalog
	group.Get("/courses/", h.courses.HandleIndex)
	h.registerAdminRoutes(group)
	group.Get("/courses/:id", h.courses.HandleShow)
	group.Post("/courses/:id/pay", middleware.RequireAuth, h.courses.HandlePay)
	group.Get("/lessons/:id", h.lessons.HandleShow)

	// Auth
	group.Get("/login", middleware.RequireGuest, h.auth.HandleLogin)
	group.Post("/login", middleware.RequireGuest, h.auth.HandleLogin)
	group.Get("/register", middleware.RequireGuest, h.auth.HandleRegister)
	group.Post("/register", middleware.RequireGuest, h.auth.HandleRegister)
	group.Post("/logout", middleware.RequireAuth, h.auth.HandleLogout)
	group.Get("/profile", middleware.RequireAuth, h.profiles.HandleProfile)
}
