package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/StudyOn/app/controllers"
	"github.com/ManuelReschke/StudyOn/internal/pkg/middleware"
	"github.com/ManuelReschke/StudyOn/internal/pkg/session"
)

type HttpRouter struct {
	deps     Dependencies
	courses  *controllers.CourseController
	lessons  *controllers.LessonController
	auth     *controllers.AuthController
	profiles *controllers.ProfileController
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	if h.deps.Sessions != nil {
		session.UseStore(h.deps.Sessions)
	} else {
		session.NewSessionStore()
	}

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.NewUserContextMiddleware(h.deps.Auth))

	h.registerPublicRoutes(app)
	h.registerCSRFProtectedRoutes(app)
}

func NewHttpRouter(deps Dependencies, courses *controllers.CourseController) *HttpRouter {
	return &HttpRouter{
		deps:     deps,
		courses:  courses,
		lessons:  controllers.NewLessonController(deps.Repos.Course, deps.Repos.Lesson),
		auth:     controllers.NewAuthController(deps.Auth),
		profiles: controllers.NewProfileController(deps.Repos.Course, deps.Billing),
	}
}
