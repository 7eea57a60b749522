package accounts

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PurposePasswordReset tags reset tokens so a session token can never be
// replayed against the reset endpoint and vice versa.
const PurposePasswordReset = "password_reset"

// AuthClaims represents structured session claims with role checking
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	IsVerified() bool
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID          string `json:"uid,omitempty"`
	UserRole     string `json:"role,omitempty"`
	UserVerified bool   `json:"verified,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the global role
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// IsVerified reports the verification state captured at issuance time
func (c *JWTClaims) IsVerified() bool {
	return c.UserVerified
}

// HasRole checks if the user has a specific role
func (c *JWTClaims) HasRole(role string) bool {
	return c.UserRole == role
}

// IsAtLeast checks if the user's role is at least the minimum required role
func (c *JWTClaims) IsAtLeast(minRole string) bool {
	return UserRole(c.UserRole).IsAtLeast(UserRole(minRole))
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ResetClaims is the payload of a password reset token. Validity is purely
// signature and expiry based, there is no stored record to revoke.
type ResetClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}
