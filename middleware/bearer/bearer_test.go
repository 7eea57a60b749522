package bearer_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-accounts/middleware/bearer"
)

type stubClaims struct {
	subject  string
	role     string
	verified bool
}

func (c stubClaims) Subject() string          { return c.subject }
func (c stubClaims) UserID() string           { return c.subject }
func (c stubClaims) Role() string             { return c.role }
func (c stubClaims) IsVerified() bool         { return c.verified }
func (c stubClaims) HasRole(role string) bool { return c.role == role }
func (c stubClaims) IsAtLeast(minRole string) bool {
	levels := map[string]int{"user": 0, "admin": 1}
	return levels[c.role] >= levels[minRole]
}

type stubVerifier struct {
	claims bearer.AuthClaims
	err    error
	seen   string
}

func (v *stubVerifier) VerifyBearerToken(token string) (bearer.AuthClaims, error) {
	v.seen = token
	return v.claims, v.err
}

func newApp(cfg bearer.Config) *fiber.App {
	app := fiber.New()
	app.Get("/protected", bearer.New(cfg), func(c *fiber.Ctx) error {
		claims := bearer.ClaimsFromContext(c)
		if claims == nil {
			return fiber.ErrInternalServerError
		}
		return c.SendString(claims.UserID())
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, authorization string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	res, err := app.Test(req)
	require.NoError(t, err)
	return res
}

func TestBearer_ValidToken(t *testing.T) {
	verifier := &stubVerifier{claims: stubClaims{subject: "user-1", role: "user"}}
	app := newApp(bearer.Config{Verifier: verifier})

	res := doRequest(t, app, "Bearer tok-123")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "tok-123", verifier.seen)
}

func TestBearer_MissingHeader(t *testing.T) {
	app := newApp(bearer.Config{Verifier: &stubVerifier{claims: stubClaims{}}})

	res := doRequest(t, app, "")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestBearer_RejectsOtherSchemes(t *testing.T) {
	verifier := &stubVerifier{claims: stubClaims{subject: "user-1"}}
	app := newApp(bearer.Config{Verifier: verifier})

	for _, header := range []string{
		"Basic dXNlcjpwYXNz",
		"Token tok-123",
		"tok-123",
		"Bearer ",
	} {
		res := doRequest(t, app, header)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode, "header %q", header)
	}
}

func TestBearer_SchemeIsCaseInsensitive(t *testing.T) {
	verifier := &stubVerifier{claims: stubClaims{subject: "user-1"}}
	app := newApp(bearer.Config{Verifier: verifier})

	res := doRequest(t, app, "bearer tok-123")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestBearer_VerifierErrorPropagates(t *testing.T) {
	verifier := &stubVerifier{err: fiber.ErrUnauthorized}
	app := newApp(bearer.Config{Verifier: verifier})

	res := doRequest(t, app, "Bearer expired")
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestBearer_MinimumRole(t *testing.T) {
	verifier := &stubVerifier{claims: stubClaims{subject: "user-1", role: "user"}}
	app := newApp(bearer.Config{Verifier: verifier, MinimumRole: "admin"})

	res := doRequest(t, app, "Bearer tok-123")
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	verifier.claims = stubClaims{subject: "admin-1", role: "admin"}
	res = doRequest(t, app, "Bearer tok-123")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestBearer_FilterSkipsGuard(t *testing.T) {
	app := fiber.New()
	app.Get("/protected", bearer.New(bearer.Config{
		Verifier: &stubVerifier{err: fiber.ErrUnauthorized},
		Filter:   func(c *fiber.Ctx) bool { return true },
	}), func(c *fiber.Ctx) error {
		return c.SendString("open")
	})

	res := doRequest(t, app, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}
