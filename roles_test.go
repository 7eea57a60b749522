package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestUserRole_IsValid(t *testing.T) {
	assert.True(t, accounts.RoleUser.IsValid())
	assert.True(t, accounts.RoleAdmin.IsValid())
	assert.True(t, accounts.RoleSuperAdmin.IsValid())
	assert.False(t, accounts.UserRole("emperor").IsValid())
	assert.False(t, accounts.UserRole("").IsValid())
}

func TestUserRole_IsAtLeast(t *testing.T) {
	assert.True(t, accounts.RoleSuperAdmin.IsAtLeast(accounts.RoleAdmin))
	assert.True(t, accounts.RoleAdmin.IsAtLeast(accounts.RoleAdmin))
	assert.True(t, accounts.RoleAdmin.IsAtLeast(accounts.RoleUser))
	assert.False(t, accounts.RoleUser.IsAtLeast(accounts.RoleAdmin))
	assert.False(t, accounts.UserRole("emperor").IsAtLeast(accounts.RoleUser))
	assert.False(t, accounts.RoleUser.IsAtLeast(accounts.UserRole("emperor")))
}

func TestParseRole(t *testing.T) {
	role, ok := accounts.ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, accounts.RoleAdmin, role)

	role, ok = accounts.ParseRole("ADMIN")
	assert.True(t, ok)
	assert.Equal(t, accounts.RoleAdmin, role)

	role, ok = accounts.ParseRole("  SuperAdmin ")
	assert.True(t, ok)
	assert.Equal(t, accounts.RoleSuperAdmin, role)

	_, ok = accounts.ParseRole("emperor")
	assert.False(t, ok)
}
