package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/StudyOn/internal/pkg/billing"
	"github.com/ManuelReschke/StudyOn/internal/pkg/billing/billingtest"
	"github.com/ManuelReschke/StudyOn/internal/pkg/security"
	"github.com/ManuelReschke/StudyOn/internal/pkg/session"
	"github.com/ManuelReschke/StudyOn/internal/pkg/usercontext"
)

type whoami struct {
	LoggedIn bool   `json:"logged_in"`
	Admin    bool   `json:"admin"`
	Email    string `json:"email"`
	Token    string `json:"token"`
}

func newTestApp(t *testing.T) (*fiber.App, *billingtest.Server) {
	t.Helper()
	srv := billingtest.NewServer(t)
	session.UseStore(fibersession.New())

	app := fiber.New()
	app.Use(NewUserContextMiddleware(security.NewAuthenticator(srv.BillingClient(), nil)))
	app.Post("/seed", func(c *fiber.Ctx) error {
		var tokens billing.Tokens
		if err := c.BodyParser(&tokens); err != nil {
			return err
		}
		return session.Login(c, &security.Identity{APIToken: tokens.Token, RefreshToken: tokens.RefreshToken})
	})
	app.Get("/whoami", func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)
		out := whoami{LoggedIn: uc.IsLoggedIn, Admin: uc.IsAdmin, Email: uc.Email}
		if uc.Identity != nil {
			out.Token = uc.Identity.APIToken
		}
		return c.JSON(out)
	})
	app.Get("/login", func(c *fiber.Ctx) error { return c.SendString("login") })
	app.Get("/profile", RequireAuth, func(c *fiber.Ctx) error { return c.SendString("profile") })
	app.Get("/admin", RequireAdmin, func(c *fiber.Ctx) error { return c.SendString("admin") })
	app.Get("/guest", RequireGuest, func(c *fiber.Ctx) error { return c.SendString("guest") })
	return app, srv
}

func seed(t *testing.T, app *fiber.App, tokens billing.Tokens) *http.Cookie {
	t.Helper()
	body, err := json.Marshal(tokens)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/seed", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, ck := range resp.Cookies() {
		if ck.Name == "session_id" {
			return ck
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func get(t *testing.T, app *fiber.App, path string, ck *http.Cookie) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if ck != nil {
		req.AddCookie(ck)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeWhoami(t *testing.T, resp *http.Response) whoami {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out whoami
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestUserContextAnonymous(t *testing.T) {
	app, _ := newTestApp(t)

	resp := get(t, app, "/whoami", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeWhoami(t, resp).LoggedIn)
}

func TestUserContextValidSession(t *testing.T) {
	app, srv := newTestApp(t)
	tokens := srv.IssueTokens(billingtest.AdminEmail, time.Hour)
	ck := seed(t, app, tokens)

	me := decodeWhoami(t, get(t, app, "/whoami", ck))
	assert.True(t, me.LoggedIn)
	assert.True(t, me.Admin)
	assert.Equal(t, billingtest.AdminEmail, me.Email)
	assert.Equal(t, tokens.Token, me.Token)
	assert.Zero(t, srv.Calls("POST /token/refresh"))
}

func TestUserContextRefreshesExpiredSession(t *testing.T) {
	app, srv := newTestApp(t)
	tokens := srv.IssueTokens(billingtest.UserEmail, -time.Minute)
	ck := seed(t, app, tokens)

	first := decodeWhoami(t, get(t, app, "/whoami", ck))
	assert.True(t, first.LoggedIn)
	assert.NotEqual(t, tokens.Token, first.Token)
	assert.Equal(t, 1, srv.Calls("POST /token/refresh"))

	second := decodeWhoami(t, get(t, app, "/whoami", ck))
	assert.Equal(t, first.Token, second.Token, "refreshed tokens are kept in the session")
	assert.Equal(t, 1, srv.Calls("POST /token/refresh"))
}

func TestUserContextRefreshFailureEndsSession(t *testing.T) {
	app, srv := newTestApp(t)
	ck := seed(t, app, srv.IssueTokens(billingtest.UserEmail, -time.Minute))
	srv.Fail("POST /token/refresh", http.StatusInternalServerError)

	resp := get(t, app, "/whoami", ck)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	srv.Fail("POST /token/refresh", 0)
	me := decodeWhoami(t, get(t, app, "/whoami", ck))
	assert.False(t, me.LoggedIn)
}

func TestUserContextRefreshFailureOnLoginPage(t *testing.T) {
	app, srv := newTestApp(t)
	ck := seed(t, app, srv.IssueTokens(billingtest.UserEmail, -time.Minute))
	srv.Fail("POST /token/refresh", http.StatusBadGateway)

	resp := get(t, app, "/login", ck)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAccessGuards(t *testing.T) {
	app, srv := newTestApp(t)
	userCookie := seed(t, app, srv.IssueTokens(billingtest.UserEmail, time.Hour))
	adminCookie := seed(t, app, srv.IssueTokens(billingtest.AdminEmail, time.Hour))

	tests := []struct {
		name     string
		path     string
		cookie   *http.Cookie
		status   int
		location string
	}{
		{"profile anonymous", "/profile", nil, http.StatusSeeOther, "/login"},
		{"profile user", "/profile", userCookie, http.StatusOK, ""},
		{"admin anonymous", "/admin", nil, http.StatusSeeOther, "/login"},
		{"admin as user", "/admin", userCookie, http.StatusForbidden, ""},
		{"admin as admin", "/admin", adminCookie, http.StatusOK, ""},
		{"guest anonymous", "/guest", nil, http.StatusOK, ""},
		{"guest as user", "/guest", userCookie, http.StatusSeeOther, "/profile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, app, tt.path, tt.cookie)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.location != "" {
				assert.Equal(t, tt.location, resp.Header.Get("Location"))
			}
		})
	}
}
