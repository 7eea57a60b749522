// Package bearer guards fiber routes behind a bearer token. It keeps its own
// small interfaces so the root package can depend on it without a cycle.
package bearer

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// DefaultContextKey is where validated claims are stored on the request.
	DefaultContextKey = "auth_claims"

	authScheme = "Bearer"
)

// TokenVerifier validates a raw bearer token. This mirrors the
// TokenService.VerifyBearerToken method from the accounts package.
type TokenVerifier interface {
	VerifyBearerToken(token string) (AuthClaims, error)
}

// AuthClaims is the validated identity attached to the request context.
// This mirrors the AuthClaims interface from the accounts package.
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	IsVerified() bool
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
}

type Config struct {
	// Verifier is required.
	Verifier TokenVerifier

	// ContextKey overrides where claims land in c.Locals.
	ContextKey string

	// Filter skips the guard for matching requests.
	Filter func(*fiber.Ctx) bool

	// ErrorHandler translates extraction and validation failures into a
	// response. Defaults to returning the error so the app level handler
	// maps it.
	ErrorHandler fiber.ErrorHandler

	// MinimumRole, when set, additionally requires claims at or above this
	// role in the hierarchy.
	MinimumRole string

	// RequireVerified rejects tokens minted before the account was verified.
	RequireVerified bool

	// MissingTokenError and MalformedTokenError let the caller provide
	// domain errors so responses carry the right status and text code.
	MissingTokenError   error
	MalformedTokenError error
	ForbiddenError      error

	// ContextEnricher propagates claims to the request's standard context
	// so code below the handler can read them without fiber.
	ContextEnricher func(ctx context.Context, claims AuthClaims) context.Context
}

// New builds the middleware. The Verifier must be set, everything else has a
// default.
func New(cfg Config) fiber.Handler {
	if cfg.Verifier == nil {
		panic("bearer: Config.Verifier is required")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			return err
		}
	}

	if cfg.MissingTokenError == nil {
		cfg.MissingTokenError = fiber.ErrUnauthorized
	}

	if cfg.MalformedTokenError == nil {
		cfg.MalformedTokenError = fiber.ErrUnauthorized
	}

	if cfg.ForbiddenError == nil {
		cfg.ForbiddenError = fiber.ErrForbidden
	}

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := extractToken(c, cfg)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.Verifier.VerifyBearerToken(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if cfg.RequireVerified && !claims.IsVerified() {
			return cfg.ErrorHandler(c, cfg.MalformedTokenError)
		}

		if cfg.MinimumRole != "" && !claims.IsAtLeast(cfg.MinimumRole) {
			return cfg.ErrorHandler(c, cfg.ForbiddenError)
		}

		c.Locals(cfg.ContextKey, claims)

		if cfg.ContextEnricher != nil {
			c.SetUserContext(cfg.ContextEnricher(c.UserContext(), claims))
		}

		return c.Next()
	}
}

// ClaimsFromContext returns the claims a previous New handler stored, or nil.
func ClaimsFromContext(c *fiber.Ctx, key ...string) AuthClaims {
	k := DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}

	claims, _ := c.Locals(k).(AuthClaims)
	return claims
}

func extractToken(c *fiber.Ctx, cfg Config) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", cfg.MissingTokenError
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], authScheme) {
		return "", cfg.MalformedTokenError
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", cfg.MalformedTokenError
	}

	return token, nil
}
