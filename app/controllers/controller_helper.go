package controllers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/StudyOn/internal/pkg/billing"
	"github.com/ManuelReschke/StudyOn/internal/pkg/middleware"
	"github.com/ManuelReschke/StudyOn/internal/pkg/usercontext"
	"github.com/ManuelReschke/StudyOn/internal/pkg/viewmodel"
	"github.com/ManuelReschke/StudyOn/views"
)

const (
	msgPricesUnavailable = "Prices are temporarily unavailable."
	msgBillingFailed     = "Service is temporarily unavailable. Try again later."
	msgCodeExists        = "This code already exists."
)

// newLayout collects the per-request layout data. It consumes pending flash messages.
func newLayout(c *fiber.Ctx, page string) viewmodel.Layout {
	uc := usercontext.GetUserContext(c)
	csrfToken, _ := c.Locals("csrf").(string)
	return viewmodel.Layout{
		Page:       page,
		IsLoggedIn: uc.IsLoggedIn,
		IsAdmin:    uc.IsAdmin,
		Email:      uc.Email,
		CSRF:       csrfToken,
		Msg:        flash.Get(c),
	}
}

func render(c *fiber.Ctx, status int, name string, layout viewmodel.Layout, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["Layout"] = layout
	return c.Status(status).Render(name, data, views.Layout)
}

// requestContext carries the request id to billing calls.
func requestContext(c *fiber.Ctx) context.Context {
	return billing.WithRequestID(c.UserContext(), middleware.RequestID(c))
}

// paramID parses a positive numeric route parameter; anything else is a 404.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fiber.ErrNotFound
	}
	return uint(id), nil
}

func flashRedirect(c *fiber.Ctx, kind, message, location string) error {
	fm := fiber.Map{"type": kind, "message": message}
	switch kind {
	case "success":
		return flash.WithSuccess(c, fm).Redirect(location)
	case "info":
		return flash.WithInfo(c, fm).Redirect(location)
	default:
		return flash.WithError(c, fm).Redirect(location)
	}
}

func mergeErrors(dst, src map[string]string) map[string]string {
	if dst == nil {
		dst = map[string]string{}
	}
	for k, v := range src {
		if _, exists := dst[k]; !exists {
			dst[k] = v
		}
	}
	return dst
}
