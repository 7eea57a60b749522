package accounts

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"

	"github.com/goliatone/go-accounts/middleware/bearer"
)

// RegisterAuthRoutes mounts the account lifecycle endpoints on the app.
func RegisterAuthRoutes(app *fiber.App, opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	group := app.Group("/auth")

	group.Post("/register", controller.RegistrationCreate).Name("register.post")
	group.Post("/login", controller.LoginPost).Name("sign-in.post")
	group.Post("/request-password-reset", controller.PasswordResetRequest).Name("pwd-reset.post")
	group.Post("/reset-password", controller.PasswordResetExecute).Name("pwd-reset-do.post")
	group.Patch("/verify-account", controller.VerifyAccount).Name("verify-account.patch")

	if controller.Guard != nil {
		group.Get("/me", controller.Guard, controller.Me).Name("me.get")
	}
}

type AuthController struct {
	Debug    bool
	Logger   Logger
	Accounts AccountManager
	Guard    fiber.Handler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Accounts == nil {
		panic("Missing AccountManager in auth controller...")
	}

	return c
}

func WithAccountManager(accounts AccountManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Accounts = accounts
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithGuard(guard fiber.Handler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Guard = guard
		return c
	}
}

func WithDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// RegisterRequest payload
type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(8, 0),
		),
		validation.Field(
			&r.FullName,
			validation.Required,
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx *fiber.Ctx) error {
	payload := new(RegisterRequest)

	if err := ctx.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	if a.Debug {
		a.Logger.Debug("register payload: %s", print.MaybePrettyJSON(fiber.Map{
			"email":     payload.Email,
			"full_name": payload.FullName,
			"username":  payload.Username,
			"role":      payload.Role,
		}))
	}

	token, err := a.Accounts.Register(ctx.UserContext(), RegisterMessage{
		Email:    payload.Email,
		FullName: payload.FullName,
		Username: payload.Username,
		Password: payload.Password,
		Role:     payload.Role,
	})
	if err != nil {
		a.Logger.Error("Registration error: %s", err)
		return err
	}

	return ctx.Status(http.StatusCreated).JSON(fiber.Map{
		"access_token": token,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := ctx.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	token, err := a.Accounts.Login(ctx.UserContext(), payload.Identifier, payload.Password)
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return err
	}

	return ctx.JSON(fiber.Map{
		"access_token": token,
	})
}

// PasswordResetRequestPayload carries the email to send a reset link to.
type PasswordResetRequestPayload struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r PasswordResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AuthController) PasswordResetRequest(ctx *fiber.Ctx) error {
	payload := new(PasswordResetRequestPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	if err := a.Accounts.RequestPasswordReset(ctx.UserContext(), payload.Email); err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"message": "password reset email sent",
	})
}

// PasswordResetExecutePayload carries the replacement password. The grant
// token travels in the query string, matching the emailed link.
type PasswordResetExecutePayload struct {
	NewPassword string `json:"new_password"`
}

// Validate will run validation rules
func (r PasswordResetExecutePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.NewPassword,
			validation.Required,
			validation.Length(8, 0),
		),
	)
}

func (a *AuthController) PasswordResetExecute(ctx *fiber.Ctx) error {
	token := ctx.Query("token")
	if token == "" {
		return ErrTokenMissing
	}

	payload := new(PasswordResetExecutePayload)

	if err := ctx.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	if err := a.Accounts.ResetPassword(ctx.UserContext(), token, payload.NewPassword); err != nil {
		a.Logger.Error("Password reset error: %s", err)
		return err
	}

	return ctx.JSON(fiber.Map{
		"message": "password updated",
	})
}

// VerifyAccountPayload supports two shapes. An operator flips the flag by id,
// the emailed flow presents the email plus verification code.
type VerifyAccountPayload struct {
	ID               string `json:"id"`
	Verified         *bool  `json:"verified"`
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code"`
}

// Validate will run validation rules
func (r VerifyAccountPayload) Validate() error {
	if r.ID != "" || r.Verified != nil {
		return validation.ValidateStruct(&r,
			validation.Field(
				&r.ID,
				validation.Required,
				is.UUID,
			),
			validation.Field(
				&r.Verified,
				validation.NotNil,
			),
		)
	}

	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.VerificationCode,
			validation.Required,
			validation.Length(20, 20),
		),
	)
}

func (a *AuthController) VerifyAccount(ctx *fiber.Ctx) error {
	payload := new(VerifyAccountPayload)

	if err := ctx.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid request body").
			WithCode(errors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	if payload.ID != "" {
		id, err := uuid.Parse(payload.ID)
		if err != nil {
			return errors.Wrap(err, errors.CategoryBadInput, "invalid user id").
				WithCode(errors.CodeBadRequest)
		}

		if err := a.Accounts.UpdateVerificationState(ctx.UserContext(), id, *payload.Verified); err != nil {
			return err
		}

		return ctx.JSON(fiber.Map{
			"message": "verification state updated",
		})
	}

	if err := a.Accounts.VerifyAccountByCode(ctx.UserContext(), payload.Email, payload.VerificationCode); err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"message": "account verified",
	})
}

func (a *AuthController) Me(ctx *fiber.Ctx) error {
	claims, ok := ClaimsFromContext(ctx.UserContext())
	if !ok {
		fallback, isAuth := bearer.ClaimsFromContext(ctx).(AuthClaims)
		if !isAuth {
			return ErrTokenMissing
		}
		claims = fallback
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return ErrTokenMalformed
	}

	profile, err := a.Accounts.GetProfile(ctx.UserContext(), id)
	if err != nil {
		return err
	}

	if !profile.Verified {
		return errors.New("account is not verified", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized).
			WithTextCode(TextCodeNotVerified)
	}

	return ctx.JSON(profile)
}
