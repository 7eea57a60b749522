package accounts

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Accounts owns the user identity lifecycle: registration, credential
// verification, verification state transitions and password changes. Token
// minting is delegated to the TokenIssuer.
type Accounts struct {
	users  UserStore
	tokens TokenIssuer
	logger Logger
}

var _ AccountManager = (*Accounts)(nil)

// NewAccounts returns a new account service
func NewAccounts(users UserStore, tokens TokenIssuer) *Accounts {
	return &Accounts{
		users:  users,
		tokens: tokens,
		logger: defLogger{},
	}
}

func (s *Accounts) WithLogger(logger Logger) *Accounts {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Register persists a new unverified user and returns a session token for
// it. Duplicate email or username fails with a conflict error.
func (s *Accounts) Register(ctx context.Context, msg RegisterMessage) (string, error) {
	hash, err := HashPassword(msg.Password)
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return "", richErr
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	role, ok := ParseRole(msg.Role)
	if !ok {
		role = RoleUser
	}

	user := &User{
		Email:            msg.Email,
		FullName:         msg.FullName,
		Username:         getUsername(msg.Username, msg.Email),
		PasswordHash:     hash,
		Role:             role,
		VerificationCode: s.tokens.IssueVerificationCode(),
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return "", richErr
		}
		return "", errors.Wrap(err, errors.CategoryConflict, "could not create user").
			WithCode(errors.CodeConflict)
	}

	token, err := s.tokens.IssueSessionToken(ctx, created.SessionClaims())
	if err != nil {
		s.logger.Error("Register failed to issue session token", "error", err)
		return "", err
	}

	return token, nil
}

// Login verifies credentials and returns a fresh session token. Unknown
// identifier and password mismatch are reported identically. Login on an
// account that has not been verified is rejected before any token is minted.
func (s *Accounts) Login(ctx context.Context, identifier, password string) (string, error) {
	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return "", ErrIdentityNotFound
		}
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user for login")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		// same error as an unknown identifier, do not leak account existence
		return "", ErrIdentityNotFound
	}

	if !user.Verified {
		return "", ErrAccountNotVerified
	}

	token, err := s.tokens.IssueSessionToken(ctx, user.SessionClaims())
	if err != nil {
		return "", err
	}

	// independent of token issuance, runs concurrently with the response
	go func(id uuid.UUID) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.users.TrackSuccessfulLogin(ctx, id); err != nil {
			s.logger.Warn("Login failed to track last login date", "error", err)
		}
	}(user.ID)

	return token, nil
}

// RequestPasswordReset only confirms the account exists. The reset token is
// minted by the notification dispatcher right before the email is enqueued,
// which keeps the token's exposure window as narrow as possible.
func (s *Accounts) RequestPasswordReset(ctx context.Context, email string) error {
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user for password reset")
	}
	return nil
}

// ResetPassword verifies the reset token and replaces the password of the
// user the token was issued for. Verification state is left untouched.
func (s *Accounts) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	email, err := s.tokens.VerifyPasswordResetToken(resetToken)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user for password change")
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return richErr
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to hash new password")
	}

	if err := s.users.SetPassword(ctx, user.ID, hash); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to update user password")
	}

	return nil
}

// UpdateVerificationState toggles the verification state machine. Moving to
// verified stamps VerifiedAt, moving back clears it; the store keeps the two
// fields consistent in a single update.
func (s *Accounts) UpdateVerificationState(ctx context.Context, userID uuid.UUID, verified bool) error {
	if _, err := s.users.UpdateVerificationState(ctx, userID, verified); err != nil {
		if errors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to update verification state")
	}
	return nil
}

// VerifyAccountByCode is the self service variant: the code previously
// mailed to the account has to match before the account becomes verified.
func (s *Accounts) VerifyAccountByCode(ctx context.Context, email, code string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user for verification")
	}

	if code == "" || user.VerificationCode != code {
		return errors.New("code does not match any user", errors.CategoryNotFound).
			WithCode(errors.CodeNotFound)
	}

	return s.UpdateVerificationState(ctx, user.ID, true)
}

// GetProfile returns the client safe projection of a user.
func (s *Accounts) GetProfile(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user profile")
	}
	return NewProfile(user), nil
}
