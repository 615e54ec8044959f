package httpapi

import (
	"errors"
	"strings"
	"time"

	loginpage "github.com/MamBoota/LoginPage"
	"github.com/gofiber/fiber/v2"
)

// RouteSession reports the claims of the caller's session token
const RouteSession = "/session"

// DefaultClaimsKey is the locals key holding the parsed claims
const DefaultClaimsKey = "session_claims"

// ErrTokenMissingOrMalformed is returned when no bearer token can be read
var ErrTokenMissingOrMalformed = errors.New("missing or malformed session token")

// TokenParser validates session tokens
type TokenParser interface {
	Parse(token string) (*loginpage.SessionClaims, error)
}

// SessionConfig configures RequireSession
type SessionConfig struct {
	// Skip bypasses the middleware for matching requests
	Skip func(*fiber.Ctx) bool
	// Parser is required
	Parser TokenParser
	// ContextKey stores the claims in locals
	ContextKey string
	// AuthScheme prefixes the Authorization header value
	AuthScheme string
	// ErrorHandler renders rejected requests
	ErrorHandler fiber.ErrorHandler
}

// SessionResponse describes a live session
type SessionResponse struct {
	UserID    string    `json:"user_id"`
	MFA       string    `json:"mfa"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RequireSession rejects requests without a valid bearer session token
func RequireSession(config SessionConfig) fiber.Handler {
	cfg := sessionConfigDefault(config)

	return func(c *fiber.Ctx) error {
		if cfg.Skip != nil && cfg.Skip(c) {
			return c.Next()
		}

		raw, err := bearerToken(c, cfg.AuthScheme)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.Parser.Parse(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, claims)
		return c.Next()
	}
}

// ClaimsFromContext returns the claims RequireSession stored under
// DefaultClaimsKey
func ClaimsFromContext(c *fiber.Ctx) (*loginpage.SessionClaims, bool) {
	claims, ok := c.Locals(DefaultClaimsKey).(*loginpage.SessionClaims)
	return claims, ok && claims != nil
}

func sessionConfigDefault(cfg SessionConfig) SessionConfig {
	if cfg.Parser == nil {
		panic("LOGIN: session middleware configuration: Parser is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultClaimsKey
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			if errors.Is(err, ErrTokenMissingOrMalformed) {
				return writeError(c, fiber.StatusBadRequest, err.Error(), nil)
			}
			if errors.Is(err, loginpage.ErrTokenExpired) {
				return writeError(c, loginpage.StatusCode(err), loginpage.ErrorMessage(err), nil)
			}
			return writeError(c, fiber.StatusUnauthorized, "Invalid or expired token", nil)
		}
	}

	return cfg
}

func bearerToken(c *fiber.Ctx, scheme string) (string, error) {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	prefix := scheme + " "

	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", ErrTokenMissingOrMalformed
	}

	token := strings.TrimSpace(auth[len(prefix):])
	if token == "" {
		return "", ErrTokenMissingOrMalformed
	}

	return token, nil
}

func (s *Server) session(c *fiber.Ctx) error {
	claims, ok := ClaimsFromContext(c)
	if !ok {
		return writeError(c, fiber.StatusUnauthorized, ErrTokenMissingOrMalformed.Error(), nil)
	}

	res := SessionResponse{
		UserID: claims.Subject,
		MFA:    claims.MFA,
	}
	if claims.ExpiresAt != nil {
		res.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}

	return c.JSON(res)
}
