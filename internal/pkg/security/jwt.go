package security

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ManuelReschke/StudyOn/internal/pkg/env"
)

var (
	ErrMalformedToken = errors.New("malformed token")
	ErrMissingExpiry  = errors.New("token has no exp claim")
	ErrMissingEmail   = errors.New("token has no email claim")
)

// Claims are the billing service token claims the app consumes.
type Claims struct {
	Email    string   `json:"email,omitempty"`
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Principal returns the email, falling back to username.
func (c *Claims) Principal() string {
	if e := strings.TrimSpace(c.Email); e != "" {
		return e
	}
	return strings.TrimSpace(c.Username)
}

// Decoder turns an access token into Claims. Without a key it only checks
// structure. Expired tokens still decode so the caller can refresh them.
type Decoder struct {
	key     any
	methods []string
}

type DecoderOption func(*Decoder)

// WithVerificationKey enables signature checks with key for the given algorithms.
func WithVerificationKey(key any, methods ...string) DecoderOption {
	return func(d *Decoder) {
		d.key = key
		d.methods = methods
	}
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// NewDecoderFromEnv verifies signatures when JWT_PUBLIC_KEY_PATH points at a
// PEM encoded RSA or EC public key.
func NewDecoderFromEnv() (*Decoder, error) {
	path := strings.TrimSpace(env.GetEnv("JWT_PUBLIC_KEY_PATH", ""))
	if path == "" {
		return NewDecoder(), nil
	}
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read jwt public key: %w", err)
	}
	if key, err := jwt.ParseRSAPublicKeyFromPEM(pem); err == nil {
		return NewDecoder(WithVerificationKey(key, "RS256", "RS384", "RS512")), nil
	}
	key, err := jwt.ParseECPublicKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("jwt public key is neither RSA nor EC: %w", err)
	}
	return NewDecoder(WithVerificationKey(key, "ES256", "ES384", "ES512")), nil
}

func (d *Decoder) Verifies() bool { return d.key != nil }

func (d *Decoder) Decode(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return nil, ErrMalformedToken
	}

	claims := &Claims{}
	if d.key == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	} else {
		_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
			return d.key, nil
		}, jwt.WithValidMethods(d.methods), jwt.WithoutClaimsValidation())
		if err != nil {
			return nil, fmt.Errorf("verify token: %w", err)
		}
	}

	if claims.ExpiresAt == nil {
		return nil, ErrMissingExpiry
	}
	if claims.Principal() == "" {
		return nil, ErrMissingEmail
	}
	return claims, nil
}
