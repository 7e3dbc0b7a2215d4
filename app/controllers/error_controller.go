package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/utils"
	"gorm.io/gorm"
)

// ErrorHandler renders errors returned by handlers. API paths get JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Something went wrong."

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		message = fe.Message
	case errors.Is(err, gorm.ErrRecordNotFound):
		code = fiber.StatusNotFound
		message = "Not Found"
	}
	if code >= fiber.StatusInternalServerError {
		fiberlog.Errorf("[HTTP] %s %s: %v", c.Method(), c.Path(), err)
	}

	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(fiber.Map{"error": strings.ToLower(strings.ReplaceAll(utils.StatusMessage(code), " ", "_")), "message": message})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	if rerr := render(c, code, "errors/error", newLayout(c, message), fiber.Map{
		"Code":    code,
		"Message": message,
	}); rerr != nil {
		fiberlog.Errorf("[HTTP] render error page: %v", rerr)
		return c.Status(code).SendString(message)
	}
	return nil
}
