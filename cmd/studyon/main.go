package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/favicon"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/ManuelReschke/StudyOn/app/controllers"
	"github.com/ManuelReschke/StudyOn/app/repository"
	"github.com/ManuelReschke/StudyOn/internal/pkg/billing"
	"github.com/ManuelReschke/StudyOn/internal/pkg/cache"
	"github.com/ManuelReschke/StudyOn/internal/pkg/database"
	"github.com/ManuelReschke/StudyOn/internal/pkg/env"
	"github.com/ManuelReschke/StudyOn/internal/pkg/router"
	"github.com/ManuelReschke/StudyOn/internal/pkg/security"
	"github.com/ManuelReschke/StudyOn/views"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	cache.SetupCache()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/studyon to project root
		"../../../", // Fallback
	}

	// Find the correct base path
	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}

	decoder, err := security.NewDecoderFromEnv()
	if err != nil {
		log.Fatalf("[Auth] %v", err)
	}
	billingClient := billing.NewClientFromEnv()

	// init fiber app
	app := fiber.New(fiber.Config{
		Views:        views.Engine(),
		ErrorHandler: controllers.ErrorHandler,
	})

	// ignore favicon requests
	app.Use(favicon.New())

	// recovery, request ids and logging
	app.Use(recover.New(), requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}), logger.New(logger.Config{
		Format: "[${time}] ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New(monitor.Config{Title: "Study-On Metrics"}))

	// static files
	app.Static("/", basePath+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: "/docs/api/",
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, router.Dependencies{
		Repos:   repository.GetGlobalRepositories(),
		Billing: billingClient,
		Auth:    security.NewAuthenticator(billingClient, decoder),
		Health: map[string]controllers.Pinger{
			"database": database.Ping,
			"cache":    cache.Ping,
		},
	})

	return app
}
