package router

import (
	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"

	"github.com/ManuelReschke/StudyOn/app/controllers"
	"github.com/ManuelReschke/StudyOn/app/repository"
	"github.com/ManuelReschke/StudyOn/internal/pkg/billing"
	"github.com/ManuelReschke/StudyOn/internal/pkg/middleware"
)

// Router installs a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// BillingService is everything the web layer asks of billing.
type BillingService interface {
	controllers.CatalogService
	controllers.AccountService
}

// Dependencies wires the routers to storage, billing and authentication.
type Dependencies struct {
	Repos    *repository.Repositories
	Billing  BillingService
	Auth     Authenticator
	Health   map[string]controllers.Pinger
	Sessions *fibersession.Store // nil creates the redis backed store
}

// Authenticator logs users in and keeps their session tokens fresh.
type Authenticator interface {
	controllers.LoginService
	middleware.IdentityResolver
}

var _ BillingService = (*billing.Client)(nil)

func InstallRouter(app *fiber.App, deps Dependencies) {
	// The HttpRouter goes first: it sets up the session store and the user
	// context middleware the API catalog depends on.
	courses := controllers.NewCourseController(deps.Repos.Course, deps.Billing)
	setup(app, NewHttpRouter(deps, courses), NewApiRouter(courses))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
