package accounts

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// DefaultSessionTokenTTL is the session token validity window.
	DefaultSessionTokenTTL = 30 * 24 * time.Hour
	// DefaultResetTokenTTL is the password reset token validity window.
	DefaultResetTokenTTL = 5 * time.Minute
)

// TokenConfig holds the signing options for the token service. Zero TTLs
// fall back to the defaults above.
type TokenConfig struct {
	SigningSecret   string
	SessionTokenTTL time.Duration
	ResetTokenTTL   time.Duration
	Issuer          string
	Audience        []string
}

func (c TokenConfig) sessionTTL() time.Duration {
	if c.SessionTokenTTL > 0 {
		return c.SessionTokenTTL
	}
	return DefaultSessionTokenTTL
}

func (c TokenConfig) resetTTL() time.Duration {
	if c.ResetTokenTTL > 0 {
		return c.ResetTokenTTL
	}
	return DefaultResetTokenTTL
}

// SessionClaims is the claim set embedded in session tokens.
type SessionClaims struct {
	UserID   uuid.UUID
	Verified bool
	Role     UserRole
}

// TokenService issues and verifies the signed credentials used across the
// service: session tokens, password reset tokens and verification codes.
type TokenService struct {
	cfg      TokenConfig
	sessions SessionStore
	logger   Logger
	// one mutex per user serializes session replacement so two concurrent
	// logins cannot each delete the other's freshly inserted row
	userLocks sync.Map
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg TokenConfig, sessions SessionStore, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenService{
		cfg:      cfg,
		sessions: sessions,
		logger:   logger,
	}
}

// IssueSessionToken signs a session token for the given claims and replaces
// every prior session row for the user with the new one. The delete and
// create run as a single logical unit, serialized per user.
func (ts *TokenService) IssueSessionToken(ctx context.Context, claims SessionClaims) (string, error) {
	if claims.UserID == uuid.Nil {
		return "", errors.New("session claims require a user id", errors.CategoryBadInput)
	}

	now := time.Now()

	jwtClaims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.cfg.Issuer,
			Subject:   claims.UserID.String(),
			Audience:  ts.audience(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.cfg.sessionTTL())),
		},
		UID:          claims.UserID.String(),
		UserRole:     string(claims.Role),
		UserVerified: claims.Verified,
	}

	token, err := ts.signClaims(jwtClaims)
	if err != nil {
		return "", err
	}

	lock := ts.lockFor(claims.UserID)
	lock.Lock()
	defer lock.Unlock()

	if err := ts.sessions.ReplaceForUser(ctx, claims.UserID, token); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to persist session record")
	}

	return token, nil
}

// VerifyBearerToken verifies signature and expiry, returning structured
// claims. The session store is intentionally not consulted: a token stays
// valid by signature even after a newer login deleted its session row.
func (ts *TokenService) VerifyBearerToken(tokenString string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.cfg.Issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.cfg.Issuer))
	}
	if len(ts.cfg.Audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.cfg.Audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, ts.keyFunc, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(errors.CodeUnauthorized)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		// reset tokens share the signing secret but never carry a uid
		if claims.UID == "" {
			return nil, ErrTokenMalformed
		}
		return claims, nil
	}

	ts.logger.Error("TokenService could not decode or validate session claims")
	return nil, ErrTokenMalformed
}

// IssueVerificationCode generates the random 20 hex character code used by
// the legacy email verification flow.
func (ts *TokenService) IssueVerificationCode() string {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the platform source is broken
		panic(fmt.Sprintf("verification code entropy unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}

// IssuePasswordResetToken signs a short lived, purpose tagged token proving
// control over the email address.
func (ts *TokenService) IssuePasswordResetToken(email string) (string, error) {
	now := time.Now()

	claims := &ResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.cfg.Issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.cfg.resetTTL())),
		},
		Email:   email,
		Purpose: PurposePasswordReset,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(ts.cfg.SigningSecret))
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign password reset token")
	}

	return signed, nil
}

// VerifyPasswordResetToken validates a reset token and returns the email it
// was issued for. Expired tokens and malformed/forged tokens fail with
// distinguishable error kinds so callers can offer different guidance.
func (ts *TokenService) VerifyPasswordResetToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ResetClaims{}, ts.keyFunc)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(errors.CodeUnauthorized)
	}

	claims, ok := token.Claims.(*ResetClaims)
	if !ok || !token.Valid {
		return "", ErrTokenMalformed
	}

	if claims.Purpose != PurposePasswordReset {
		return "", errors.New("token purpose mismatch", errors.CategoryAuth).
			WithTextCode(TextCodeTokenMalformed).
			WithCode(errors.CodeUnauthorized).
			WithMetadata(map[string]any{"purpose": claims.Purpose})
	}

	return claims.Email, nil
}

func (ts *TokenService) signClaims(claims *JWTClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(ts.cfg.SigningSecret))
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign session token")
	}

	return signed, nil
}

func (ts *TokenService) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		ts.logger.Error("TokenService encountered unexpected signing method", "alg", t.Header["alg"])
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return []byte(ts.cfg.SigningSecret), nil
}

func (ts *TokenService) lockFor(userID uuid.UUID) *sync.Mutex {
	lock, _ := ts.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (ts *TokenService) audience() jwt.ClaimStrings {
	if len(ts.cfg.Audience) == 0 {
		return nil
	}
	aud := make(jwt.ClaimStrings, len(ts.cfg.Audience))
	copy(aud, ts.cfg.Audience)
	return aud
}
