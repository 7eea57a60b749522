package accounts

import (
	"context"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"

	"github.com/goliatone/go-accounts/middleware/bearer"
)

// ErrorResponse is the JSON body every failed request returns.
type ErrorResponse struct {
	Message  string            `json:"message"`
	TextCode string            `json:"text_code,omitempty"`
	Category string            `json:"category,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

// ErrorHandler maps domain errors to HTTP responses. Wire it into
// fiber.Config so every controller can return errors untranslated.
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		if verr, ok := err.(validation.Errors); ok {
			fields := map[string]string{}
			for name, ferr := range verr {
				fields[name] = ferr.Error()
			}
			return c.Status(http.StatusBadRequest).JSON(ErrorResponse{
				Message: "validation failed",
				Fields:  fields,
			})
		}

		var richErr *errors.Error
		if errors.As(err, &richErr) {
			status := richErr.Code
			if status == 0 {
				status = http.StatusInternalServerError
			}
			return c.Status(status).JSON(ErrorResponse{
				Message:  richErr.Message,
				TextCode: richErr.TextCode,
				Category: string(richErr.Category),
			})
		}

		if ferr, ok := err.(*fiber.Error); ok {
			return c.Status(ferr.Code).JSON(ErrorResponse{
				Message: ferr.Message,
			})
		}

		logger.Error("unhandled error: %s", err)

		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Message: "internal server error",
		})
	}
}

// NewServer builds the fiber app with every route registered. The caller
// owns Listen and Shutdown.
func NewServer(accounts AccountManager, verifier TokenVerifier, categories CategoryStore, users UserStore, logger Logger) *fiber.App {
	if logger == nil {
		logger = defLogger{}
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          ErrorHandler(logger),
		DisableStartupMessage: true,
	})

	guard := bearer.New(bearer.Config{
		Verifier:            verifierAdapter{verifier},
		MissingTokenError:   ErrTokenMissing,
		MalformedTokenError: ErrTokenMalformed,
		ContextEnricher:     enrichContext,
	})

	adminGuard := bearer.New(bearer.Config{
		Verifier:            verifierAdapter{verifier},
		MissingTokenError:   ErrTokenMissing,
		MalformedTokenError: ErrTokenMalformed,
		ContextEnricher:     enrichContext,
		MinimumRole:         string(RoleAdmin),
		ForbiddenError: errors.New("admin role required", errors.CategoryAuthz).
			WithCode(errors.CodeForbidden),
	})

	RegisterAuthRoutes(app, WithAccountManager(accounts), WithControllerLogger(logger), WithGuard(guard))
	RegisterUserRoutes(app, users, logger, adminGuard)
	RegisterCategoryRoutes(app, categories, logger, adminGuard)

	return app
}

// enrichContext mirrors validated claims into the request's context.
func enrichContext(ctx context.Context, claims bearer.AuthClaims) context.Context {
	if authClaims, ok := claims.(AuthClaims); ok {
		return WithClaimsContext(ctx, authClaims)
	}
	return ctx
}

// verifierAdapter narrows TokenVerifier to the middleware's local interface.
type verifierAdapter struct {
	verifier TokenVerifier
}

func (v verifierAdapter) VerifyBearerToken(token string) (bearer.AuthClaims, error) {
	claims, err := v.verifier.VerifyBearerToken(token)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
