package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/StudyOn/internal/pkg/billing"
	"github.com/ManuelReschke/StudyOn/internal/pkg/security"
	"github.com/ManuelReschke/StudyOn/internal/pkg/session"
	"github.com/ManuelReschke/StudyOn/internal/pkg/usercontext"
)

// IdentityResolver rebuilds a caller from session tokens.
type IdentityResolver interface {
	Resolve(ctx context.Context, apiToken, refreshToken string) (*security.Identity, bool, error)
}

// NewUserContextMiddleware sets up the user context for every request. Expired
// tokens are refreshed; a failed refresh ends the session.
func NewUserContextMiddleware(resolver IdentityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := RequestID(c)
		anonymous := usercontext.FromIdentity(nil, requestID)

		apiToken, refreshToken := session.Tokens(c)
		if apiToken == "" {
			usercontext.SetUserContext(c, anonymous)
			return c.Next()
		}

		ctx := billing.WithRequestID(c.UserContext(), requestID)
		id, refreshed, err := resolver.Resolve(ctx, apiToken, refreshToken)
		if err != nil {
			fiberlog.Warnf("[Auth] dropping session: %v", err)
			if err := session.Logout(c); err != nil {
				fiberlog.Errorf("[Auth] destroy session: %v", err)
			}
			usercontext.SetUserContext(c, anonymous)
			if c.Path() == "/login" {
				return c.Next()
			}
			return flash.WithError(c, fiber.Map{
				"type":    "error",
				"message": security.MsgServiceUnavailable,
			}).Redirect("/login")
		}

		if refreshed {
			if err := session.UpdateTokens(c, id); err != nil {
				fiberlog.Errorf("[Auth] store refreshed tokens: %v", err)
			}
		}

		usercontext.SetUserContext(c, usercontext.FromIdentity(id, requestID))
		return c.Next()
	}
}

// RequestID returns the id assigned by the requestid middleware.
func RequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok && id != "" {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
