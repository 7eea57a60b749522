package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole string

const (
	// RoleUser is a regular account (i.e. view, edit own data)
	RoleUser UserRole = "user"
	// RoleAdmin is an admin role (i.e. manage users, categories)
	RoleAdmin UserRole = "admin"
	// RoleSuperAdmin is the unrestricted role
	RoleSuperAdmin UserRole = "superadmin"
)

// User is the identity record. Verified and VerifiedAt move together:
// Verified is true iff VerifiedAt is non nil.
type User struct {
	bun.BaseModel    `bun:"table:users,alias:usr"`
	ID               uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role             UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	FullName         string     `bun:"full_name,notnull" json:"full_name,omitempty"`
	Username         string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email            string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash     string     `bun:"password_hash" json:"-"`
	Verified         bool       `bun:"is_verified" json:"is_verified"`
	VerifiedAt       *time.Time `bun:"verified_at,nullzero" json:"verified_at,omitempty"`
	VerificationCode string     `bun:"verification_code,nullzero" json:"-"`
	LastLoginAt      *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt        *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt        *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// SessionClaims returns the claim set minted into this user's session tokens.
func (u *User) SessionClaims() SessionClaims {
	return SessionClaims{
		UserID:   u.ID,
		Verified: u.Verified,
		Role:     u.Role,
	}
}

// Profile is the projection of a User safe to return to clients.
type Profile struct {
	ID          uuid.UUID  `json:"id"`
	FullName    string     `json:"full_name"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Role        UserRole   `json:"user_role"`
	Verified    bool       `json:"is_verified"`
	VerifiedAt  *time.Time `json:"verified_at,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// NewProfile builds the client facing projection, secrets excluded.
func NewProfile(u *User) *Profile {
	return &Profile{
		ID:          u.ID,
		FullName:    u.FullName,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		Verified:    u.Verified,
		VerifiedAt:  u.VerifiedAt,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// Session links one live bearer token to its owning user. Issuing a new
// token for a user replaces every prior row, so a user holds at most one.
type Session struct {
	bun.BaseModel `bun:"table:user_sessions,alias:uss"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Token         string     `bun:"token,notnull" json:"token,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Category is plain managed data, no auth invariants attached.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:cat"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull,unique" json:"name,omitempty"`
	Description   string     `bun:"description" json:"description,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
