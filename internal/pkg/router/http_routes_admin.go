package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/StudyOn/internal/pkg/middleware"
)

// registerAdminRoutes must run before /courses/:id so that /courses/new matches.
func (h HttpRouter) registerAdminRoutes(group fiber.Router) {
	group.Get("/courses/new", middleware.RequireAdmin, h.courses.HandleNew)
	group.Post("/courses/new", middleware.RequireAdmin, h.courses.HandleNew)
	group.Get("/courses/:id/edit", middleware.RequireAdmin, h.courses.HandleEdit)
	group.Post("/courses/:id/edit", middleware.RequireAdmin, h.courses.HandleEdit)
	group.Post("/courses/:id/delete", middleware.RequireAdmin, h.courses.HandleDelete)

	group.Get("/lessons/new", middleware.RequireAdmin, h.lessons.HandleNew)
	group.Post("/lessons/new", middleware.RequireAdmin, h.lessons.HandleNew)
	group.Get("/lessons/:id/edit", middleware.RequireAdmin, h.lessons.HandleEdit)
	group.Post("/lessons/:id/edit", middleware.RequireAdmin, h.lessons.HandleEdit)
	group.Post("/lessons/:id/delete", middleware.RequireAdmin, h.lessons.HandleDelete)
}
