package accounts

import (
	"github.com/goliatone/go-errors"
)

// Stable text codes surfaced to clients alongside the HTTP status.
const (
	TextCodeTokenExpired   = "TOKEN_EXPIRED"
	TextCodeTokenMalformed = "TOKEN_MALFORMED"
	TextCodeTokenMissing   = "TOKEN_MISSING"
	TextCodeNotVerified    = "ACCOUNT_NOT_VERIFIED"
	TextCodeDuplicateUser  = "DUPLICATE_USER"
)

// ErrIdentityNotFound covers both an unknown identifier and a password
// mismatch: the two are deliberately indistinguishable to callers so the
// login endpoint cannot be used to enumerate accounts.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode("IDENTITY_NOT_FOUND")

// ErrAccountNotVerified blocks login until the account has been verified.
var ErrAccountNotVerified = errors.New("account is not verified, verify your account by email first", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeNotVerified)

// ErrTokenExpired is returned for tokens past their validity window.
var ErrTokenExpired = errors.New("token has expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed is returned for forged, truncated or otherwise
// unparsable tokens, including a valid signature carrying the wrong purpose.
var ErrTokenMalformed = errors.New("token is malformed or invalid", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrTokenMissing is returned when no bearer credential was presented.
var ErrTokenMissing = errors.New("authentication token not provided", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMissing)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = errors.New("value must not be an empty string", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the normalized bcrypt mismatch error.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired token errors
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTokenExpired)
}

// IsMalformedTokenError will check for malformed/forged token errors
func IsMalformedTokenError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == TextCodeTokenMalformed
	}

	return false
}
