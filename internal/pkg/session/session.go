package session

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/StudyOn/internal/pkg/cache"
	"github.com/ManuelReschke/StudyOn/internal/pkg/env"
	"github.com/ManuelReschke/StudyOn/internal/pkg/security"
	"github.com/ManuelReschke/StudyOn/internal/pkg/usercontext"
)

var sessionStore *session.Store

func NewSessionStore() *session.Store {
	// Get Redis client configuration from existing cache setup
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	// Create Redis storage for sessions using database 1 (cache uses DB 0)
	storage := redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})

	sessionStore = session.New(session.Config{
		Storage:        storage,
		CookieHTTPOnly: true,
		CookieSecure:   !env.IsDev(),
		CookieSameSite: "Lax",
		Expiration:     24 * time.Hour,
		KeyLookup:      "cookie:session_id",
	})

	return sessionStore
}

// UseStore replaces the shared store. Tests pass an in-memory store.
func UseStore(store *session.Store) {
	sessionStore = store
}

func GetSessionStore() *session.Store {
	return sessionStore
}

func get(c *fiber.Ctx) (*session.Session, error) {
	if sessionStore == nil {
		return nil, fmt.Errorf("session store not initialized")
	}
	sess, err := sessionStore.Get(c)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// SetSessionValue stores a key-value pair in the user's individual session
func SetSessionValue(c *fiber.Ctx, key string, value string) error {
	sess, err := get(c)
	if err != nil {
		return err
	}
	sess.Set(key, value)
	return sess.Save()
}

// GetSessionValue retrieves a value by key from the user's individual session
func GetSessionValue(c *fiber.Ctx, key string) string {
	sess, err := get(c)
	if err != nil {
		return ""
	}
	if v, ok := sess.Get(key).(string); ok {
		return v
	}
	return ""
}

// PopSessionValue returns the value stored under key and removes it.
func PopSessionValue(c *fiber.Ctx, key string) string {
	sess, err := get(c)
	if err != nil {
		return ""
	}
	v, _ := sess.Get(key).(string)
	if v != "" {
		sess.Delete(key)
		_ = sess.Save()
	}
	return v
}

// Tokens returns the billing tokens kept in the session.
func Tokens(c *fiber.Ctx) (apiToken, refreshToken string) {
	sess, err := get(c)
	if err != nil {
		return "", ""
	}
	apiToken, _ = sess.Get(usercontext.KeyAPIToken).(string)
	refreshToken, _ = sess.Get(usercontext.KeyRefreshToken).(string)
	return apiToken, refreshToken
}

// Login stores the identity tokens in a fresh session id.
func Login(c *fiber.Ctx, id *security.Identity) error {
	sess, err := get(c)
	if err != nil {
		return err
	}
	target, _ := sess.Get(usercontext.KeyTargetPath).(string)
	if err := sess.Regenerate(); err != nil {
		return fmt.Errorf("failed to regenerate session: %w", err)
	}
	sess.Set(usercontext.KeyAPIToken, id.APIToken)
	sess.Set(usercontext.KeyRefreshToken, id.RefreshToken)
	sess.Set(usercontext.KeyLastUsername, id.Email)
	if target != "" {
		sess.Set(usercontext.KeyTargetPath, target)
	}
	return sess.Save()
}

// UpdateTokens replaces the tokens after a refresh.
func UpdateTokens(c *fiber.Ctx, id *security.Identity) error {
	sess, err := get(c)
	if err != nil {
		return err
	}
	sess.Set(usercontext.KeyAPIToken, id.APIToken)
	sess.Set(usercontext.KeyRefreshToken, id.RefreshToken)
	return sess.Save()
}

// Logout destroys the session.
func Logout(c *fiber.Ctx) error {
	sess, err := get(c)
	if err != nil {
		return err
	}
	return sess.Destroy()
}
