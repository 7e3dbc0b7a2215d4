package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Pinger checks a backing service.
type Pinger func(ctx context.Context) error

func HandleIndex(c *fiber.Ctx) error {
	return c.Redirect("/courses/", fiber.StatusFound)
}

// NewHealthHandler reports 200 when every dependency answers, 503 otherwise.
func NewHealthHandler(checks map[string]Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := fiber.StatusOK
		result := fiber.Map{}
		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				fiberlog.Warnf("[Health] %s: %v", name, err)
				result[name] = "down"
				status = fiber.StatusServiceUnavailable
				continue
			}
			result[name] = "up"
		}

		state := "ok"
		if status != fiber.StatusOK {
			state = "degraded"
		}
		return c.Status(status).JSON(fiber.Map{"status": state, "checks": result})
	}
}
