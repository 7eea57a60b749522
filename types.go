package accounts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// UserStore is the credential store surface the account service needs.
// Implementations persist users through atomic create/read/update operations.
type UserStore interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetVerificationCode(ctx context.Context, id uuid.UUID, code string) error
	UpdateVerificationState(ctx context.Context, id uuid.UUID, verified bool) (*User, error)
	TrackSuccessfulLogin(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, page, limit int) ([]*User, int, error)
}

// SessionStore persists the token to user linkage enforcing the single
// session invariant: ReplaceForUser removes every prior row for the user and
// inserts the new one as one logical unit.
type SessionStore interface {
	ReplaceForUser(ctx context.Context, userID uuid.UUID, token string) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	CountForUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// CategoryStore manages plain category records.
type CategoryStore interface {
	Create(ctx context.Context, record *Category) (*Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Category, error)
	GetByName(ctx context.Context, name string) (*Category, error)
	List(ctx context.Context, page, limit int) ([]*Category, int, error)
	Update(ctx context.Context, record *Category) (*Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TokenIssuer mints and checks the credentials the account service hands out.
type TokenIssuer interface {
	IssueSessionToken(ctx context.Context, claims SessionClaims) (string, error)
	IssuePasswordResetToken(email string) (string, error)
	VerifyPasswordResetToken(token string) (string, error)
	IssueVerificationCode() string
}

// TokenVerifier authorizes bearer credentials presented on requests.
type TokenVerifier interface {
	VerifyBearerToken(token string) (AuthClaims, error)
}

// RegisterMessage carries the registration input.
type RegisterMessage struct {
	FullName string `json:"full_name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

// AccountManager exposes the account lifecycle operations. The notification
// dispatcher decorates this interface, so HTTP handlers only ever see it.
type AccountManager interface {
	Register(ctx context.Context, msg RegisterMessage) (string, error)
	Login(ctx context.Context, identifier, password string) (string, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
	UpdateVerificationState(ctx context.Context, userID uuid.UUID, verified bool) error
	VerifyAccountByCode(ctx context.Context, email, code string) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
