package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RejectsEmpty(t *testing.T) {
	_, err := accounts.HashPassword("")
	assert.ErrorIs(t, err, accounts.ErrNoEmptyString)
}

func TestComparePasswordAndHash(t *testing.T) {
	hash := testPasswordHash(t)

	require.NoError(t, accounts.ComparePasswordAndHash("sup3rs3cret!", hash))

	err := accounts.ComparePasswordAndHash("wrong", hash)
	assert.ErrorIs(t, err, accounts.ErrMismatchedHashAndPassword)
}

func TestComparePasswordAndHash_InvalidHash(t *testing.T) {
	err := accounts.ComparePasswordAndHash("password", "not-a-bcrypt-hash")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, accounts.ErrMismatchedHashAndPassword)
}
