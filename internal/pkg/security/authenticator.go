package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/singleflight"

	"github.com/ManuelReschke/StudyOn/internal/pkg/billing"
)

const (
	MsgBadCredentials     = "Incorrect login or password."
	MsgServiceUnavailable = "Service is temporarily unavailable. Try to log in later."
	MsgUserExists         = "A user with this email already exists."
)

// TokenService is the part of the billing client the authenticator needs.
type TokenService interface {
	Authenticate(ctx context.Context, creds billing.Credentials) (*billing.Tokens, error)
	Register(ctx context.Context, creds billing.Credentials) (*billing.Tokens, error)
	RefreshToken(ctx context.Context, refreshToken string) (*billing.Tokens, error)
}

// Authenticator exchanges credentials for billing tokens and keeps session
// tokens fresh.
type Authenticator struct {
	tokens  TokenService
	decoder *Decoder
	now     func() time.Time
	group   singleflight.Group
}

type Option func(*Authenticator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

func NewAuthenticator(tokens TokenService, decoder *Decoder, opts ...Option) *Authenticator {
	if decoder == nil {
		decoder = NewDecoder()
	}
	a := &Authenticator{tokens: tokens, decoder: decoder, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Login authenticates against billing and returns the resulting identity.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*Identity, error) {
	tokens, err := a.tokens.Authenticate(ctx, billing.Credentials{Username: email, Password: password})
	if err != nil {
		return nil, err
	}
	return a.identify("authenticate", tokens)
}

// Register creates the user in billing and returns the logged in identity.
func (a *Authenticator) Register(ctx context.Context, email, password string) (*Identity, error) {
	tokens, err := a.tokens.Register(ctx, billing.Credentials{Username: email, Password: password})
	if err != nil {
		return nil, err
	}
	return a.identify("register", tokens)
}

// Resolve rebuilds the identity from session tokens, refreshing them when the
// access token has expired. refreshed is true when new tokens were issued.
func (a *Authenticator) Resolve(ctx context.Context, apiToken, refreshToken string) (*Identity, bool, error) {
	claims, err := a.decoder.Decode(apiToken)
	if err != nil {
		return nil, false, &billing.Error{Kind: billing.KindServiceUnavailable, Op: "decode token", Err: err}
	}
	id := NewIdentity(claims, apiToken, refreshToken)
	if !id.Expired(a.now()) {
		return id, false, nil
	}
	if refreshToken == "" {
		return nil, false, &billing.Error{Kind: billing.KindServiceUnavailable, Op: "refresh token", Err: errors.New("no refresh token in session")}
	}

	v, err, shared := a.group.Do(refreshToken, func() (any, error) {
		tokens, err := a.tokens.RefreshToken(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		return a.identify("refresh token", tokens)
	})
	if err != nil {
		fiberlog.Warnf("[Auth] token refresh for %s failed: %v", id.Email, err)
		return nil, false, &billing.Error{Kind: billing.KindServiceUnavailable, Op: "refresh token", Err: err}
	}
	if shared {
		fiberlog.Debugf("[Auth] shared token refresh for %s", id.Email)
	}
	fresh := *v.(*Identity)
	fresh.Roles = append([]string(nil), fresh.Roles...)
	return &fresh, true, nil
}

func (a *Authenticator) identify(op string, tokens *billing.Tokens) (*Identity, error) {
	claims, err := a.decoder.Decode(tokens.Token)
	if err != nil {
		return nil, &billing.Error{Kind: billing.KindServiceUnavailable, Op: op, Err: fmt.Errorf("decode token: %w", err)}
	}
	return NewIdentity(claims, tokens.Token, tokens.RefreshToken), nil
}

// LoginMessage is the message shown on the login form for err.
func LoginMessage(err error) string {
	if billing.KindOf(err) == billing.KindAuthenticationFailed {
		return MsgBadCredentials
	}
	return MsgServiceUnavailable
}

// RegisterMessage is the general message shown on the register form for err.
// Validation failures return "" because they are shown per field.
func RegisterMessage(err error) string {
	switch billing.KindOf(err) {
	case billing.KindAlreadyExists:
		return MsgUserExists
	case billing.KindValidationFailed:
		return ""
	default:
		return MsgServiceUnavailable
	}
}
