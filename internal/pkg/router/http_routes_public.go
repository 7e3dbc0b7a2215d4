package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/StudyOn/app/controllers"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/health", controllers.NewHealthHandler(h.deps.Health))
}
