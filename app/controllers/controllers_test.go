package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/StudyOn/internal/pkg/billing"
)

func TestBillingFormErrors(t *testing.T) {
	errs, general := billingFormErrors(&billing.Error{Kind: billing.KindCourseAlreadyExists})
	assert.Equal(t, map[string]string{"code": msgCodeExists}, errs)
	assert.Empty(t, general)

	errs, general = billingFormErrors(&billing.Error{
		Kind:   billing.KindValidationFailed,
		Fields: map[string]string{"title": "Too long.", "price": "Must be positive.", "": "ignored"},
	})
	assert.Equal(t, map[string]string{"name": "Too long.", "price": "Must be positive."}, errs)
	assert.NotEmpty(t, general)

	errs, general = billingFormErrors(&billing.Error{Kind: billing.KindServiceUnavailable})
	assert.Empty(t, errs)
	assert.Equal(t, msgBillingFailed, general)
}

func TestParseCourseForm(t *testing.T) {
	app := fiber.New()
	var got struct {
		input billing.CourseInput
		errs  map[string]string
	}
	app.Post("/", func(c *fiber.Ctx) error {
		_, _, got.input, got.errs = parseCourseForm(c)
		return nil
	})

	post := func(body string) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
		_, err := app.Test(req, -1)
		require.NoError(t, err)
	}

	post("code=go_2&name=Go&type=buy&price=12%2C5")
	assert.Empty(t, got.errs)
	assert.Equal(t, billing.CourseTypeBuy, got.input.Type)
	assert.Equal(t, 12.5, got.input.Price)
	assert.Equal(t, "Go", got.input.Title)

	post("code=go_2&name=Go&type=1&price=3")
	assert.Empty(t, got.errs)
	assert.Equal(t, billing.CourseTypeRent, got.input.Type)

	post("code=go_2&name=Go&type=free&price=99")
	assert.Empty(t, got.errs)
	assert.Zero(t, got.input.Price)

	post("code=&name=Go&type=lease&price=abc")
	assert.Contains(t, got.errs, "code")
	assert.Contains(t, got.errs, "type")
	assert.Contains(t, got.errs, "price")
}

func TestErrorHandlerAPIJSON(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/api/v1/missing", func(c *fiber.Ctx) error { return gorm.ErrRecordNotFound })
	app.Get("/api/v1/teapot", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusTeapot, "short and stout") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/missing", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "not_found", body["error"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/teapot", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	body = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "short and stout", body["message"])
}
