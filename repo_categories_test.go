package accounts_test

import (
	"context"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoriesRepository_CRUD(t *testing.T) {
	db := setupTestDB(t)
	store := accounts.NewCategoriesRepository(db)
	ctx := context.Background()

	created, err := store.Create(ctx, &accounts.Category{
		Name:        "billing",
		Description: "billing related accounts",
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	fetched, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "billing", fetched.Name)

	byName, err := store.GetByName(ctx, "billing")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	fetched.Description = "invoices and payments"
	updated, err := store.Update(ctx, fetched)
	require.NoError(t, err)
	assert.Equal(t, "invoices and payments", updated.Description)
	assert.NotNil(t, updated.UpdatedAt)

	require.NoError(t, store.Delete(ctx, created.ID))

	_, err = store.GetByID(ctx, created.ID)
	require.Error(t, err)
}

func TestCategoriesRepository_DuplicateName(t *testing.T) {
	db := setupTestDB(t)
	store := accounts.NewCategoriesRepository(db)
	ctx := context.Background()

	_, err := store.Create(ctx, &accounts.Category{Name: "billing"})
	require.NoError(t, err)

	_, err = store.Create(ctx, &accounts.Category{Name: "billing"})
	require.Error(t, err)
}

func TestCategoriesRepository_List(t *testing.T) {
	db := setupTestDB(t)
	store := accounts.NewCategoriesRepository(db)
	ctx := context.Background()

	for _, name := range []string{"billing", "alerts", "support"} {
		_, err := store.Create(ctx, &accounts.Category{Name: name})
		require.NoError(t, err)
	}

	page, total, err := store.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 3, total)
	assert.Equal(t, "alerts", page[0].Name)

	rest, total, err := store.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
	assert.Equal(t, 3, total)
}

func TestCategoriesRepository_DeleteUnknown(t *testing.T) {
	db := setupTestDB(t)
	store := accounts.NewCategoriesRepository(db)

	err := store.Delete(context.Background(), uuid.New())
	require.Error(t, err)
}
