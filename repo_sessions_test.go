package accounts_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func seedDBUser(t *testing.T, db *bun.DB, email string) *accounts.User {
	t.Helper()

	created, err := accounts.NewUsersRepository(db).Create(context.Background(), &accounts.User{
		Email:        email,
		PasswordHash: "not-a-real-hash",
	})
	require.NoError(t, err)
	return created
}

func TestSessionsRepository_ReplaceForUser(t *testing.T) {
	db := setupTestDB(t)
	store := accounts.NewSessionsRepository(db)
	ctx := context.Background()

	user := seedDBUser(t, db, "peperone@example.com")

	require.NoError(t, store.ReplaceForUser(ctx, user.ID, "token-one"))

	count, err := store.CountForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.ReplaceForUser(ctx, user.ID, "token-two"))

	count, err = store.CountForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "second issuance must evict the first row")

	session, err := store.GetByToken(ctx, "token-two")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
	assert.NotNil(t, session.CreatedAt)

	_, err = store.GetByToken(ctx, "token-one")
	require.Error(t, err)
}

func TestSessionsRepository_ConcurrentReplaceKeepsOneRow(t *testing.T) {
	db := setupTestDB(t)
	store := accounts.NewSessionsRepository(db)
	ctx := context.Background()

	user := seedDBUser(t, db, "peperone@example.com")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.ReplaceForUser(ctx, user.ID, fmt.Sprintf("token-%d", n))
		}(i)
	}
	wg.Wait()

	count, err := store.CountForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSessionsRepository_UsersAreIsolated(t *testing.T) {
	db := setupTestDB(t)
	store := accounts.NewSessionsRepository(db)
	ctx := context.Background()

	one := seedDBUser(t, db, "one@example.com")
	two := seedDBUser(t, db, "two@example.com")

	require.NoError(t, store.ReplaceForUser(ctx, one.ID, "token-one"))
	require.NoError(t, store.ReplaceForUser(ctx, two.ID, "token-two"))
	require.NoError(t, store.ReplaceForUser(ctx, one.ID, "token-three"))

	count, err := store.CountForUser(ctx, two.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	session, err := store.GetByToken(ctx, "token-two")
	require.NoError(t, err)
	assert.Equal(t, two.ID, session.UserID)
}

func TestSessionsRepository_CountForUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	store := accounts.NewSessionsRepository(db)

	count, err := store.CountForUser(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
