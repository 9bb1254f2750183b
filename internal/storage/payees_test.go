package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rapmendoza/ai-side-panel/internal/common"
	"github.com/rapmendoza/ai-side-panel/internal/model"
	"github.com/rapmendoza/ai-side-panel/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStorage creates a migrated storage backed by a temp file.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func testPayee(owner, name string) *model.Payee {
	return &model.Payee{
		OwnerID:     owner,
		Name:        name,
		Email:       "billing@example.com",
		Phone:       "555-0100",
		Category:    "Utilities",
		Description: "monthly bill",
	}
}

func TestCreateAndGetPayee(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	created, err := store.CreatePayee(ctx, testPayee("owner-1", "Acme Corp"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.GetPayee(ctx, "owner-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Name)
	assert.Equal(t, "billing@example.com", got.Email)
}

func TestCreatePayeeDuplicateName(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.CreatePayee(ctx, testPayee("owner-1", "Acme"))
	require.NoError(t, err)

	_, err = store.CreatePayee(ctx, testPayee("owner-1", "Acme"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDuplicateEntry))

	// The same name under a different owner is fine.
	_, err = store.CreatePayee(ctx, testPayee("owner-2", "Acme"))
	assert.NoError(t, err)
}

func TestCreatePayeeValidation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.CreatePayee(ctx, nil)
	assert.Error(t, err)

	_, err = store.CreatePayee(ctx, &model.Payee{OwnerID: "owner-1"})
	assert.Error(t, err, "name is required")

	_, err = store.CreatePayee(ctx, &model.Payee{Name: "Acme"})
	assert.Error(t, err, "owner is required")
}

func TestGetPayeeScopedToOwner(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	created, err := store.CreatePayee(ctx, testPayee("owner-1", "Acme"))
	require.NoError(t, err)

	_, err = store.GetPayee(ctx, "owner-2", created.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestGetPayeesFilters(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	seed := []*model.Payee{
		{OwnerID: "owner-1", Name: "Acme Corp", Category: "Suppliers", Description: "widgets"},
		{OwnerID: "owner-1", Name: "Globex", Category: "Suppliers", Description: "gadgets"},
		{OwnerID: "owner-1", Name: "Initech", Category: "Services", Description: "consulting widgets"},
		{OwnerID: "owner-2", Name: "Acme Corp", Category: "Suppliers"},
	}
	for _, p := range seed {
		_, err := store.CreatePayee(ctx, p)
		require.NoError(t, err)
	}

	t.Run("no filter returns all for owner ordered by name", func(t *testing.T) {
		payees, err := store.GetPayees(ctx, "owner-1", service.PayeeFilter{})
		require.NoError(t, err)
		require.Len(t, payees, 3)
		assert.Equal(t, "Acme Corp", payees[0].Name)
		assert.Equal(t, "Globex", payees[1].Name)
	})

	t.Run("name match is case-insensitive", func(t *testing.T) {
		payees, err := store.GetPayees(ctx, "owner-1", service.PayeeFilter{Name: "acme corp"})
		require.NoError(t, err)
		require.Len(t, payees, 1)
		assert.Equal(t, "Acme Corp", payees[0].Name)
	})

	t.Run("category filter", func(t *testing.T) {
		payees, err := store.GetPayees(ctx, "owner-1", service.PayeeFilter{Category: "suppliers"})
		require.NoError(t, err)
		assert.Len(t, payees, 2)
	})

	t.Run("search matches name and description", func(t *testing.T) {
		payees, err := store.GetPayees(ctx, "owner-1", service.PayeeFilter{Search: "widgets"})
		require.NoError(t, err)
		assert.Len(t, payees, 2)
	})

	t.Run("limit caps results", func(t *testing.T) {
		payees, err := store.GetPayees(ctx, "owner-1", service.PayeeFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, payees, 2)
	})

	t.Run("other owner's rows are invisible", func(t *testing.T) {
		payees, err := store.GetPayees(ctx, "owner-2", service.PayeeFilter{})
		require.NoError(t, err)
		assert.Len(t, payees, 1)
	})
}

func TestUpdatePayee(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	created, err := store.CreatePayee(ctx, testPayee("owner-1", "Acme"))
	require.NoError(t, err)

	created.Email = "new@acme.com"
	created.Category = "Services"
	updated, err := store.UpdatePayee(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "new@acme.com", updated.Email)

	got, err := store.GetPayee(ctx, "owner-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@acme.com", got.Email)
	assert.Equal(t, "Services", got.Category)
}

func TestUpdatePayeeNotFound(t *testing.T) {
	store := createTestStorage(t)

	missing := testPayee("owner-1", "Ghost")
	missing.ID = 9999
	_, err := store.UpdatePayee(context.Background(), missing)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestDeletePayee(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	created, err := store.CreatePayee(ctx, testPayee("owner-1", "Acme"))
	require.NoError(t, err)

	require.NoError(t, store.DeletePayee(ctx, "owner-1", created.ID))

	_, err = store.GetPayee(ctx, "owner-1", created.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	err = store.DeletePayee(ctx, "owner-1", created.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestDeletePayeeWrongOwner(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	created, err := store.CreatePayee(ctx, testPayee("owner-1", "Acme"))
	require.NoError(t, err)

	err = store.DeletePayee(ctx, "owner-2", created.ID)
	assert.True(t, errors.Is(err, common.ErrNotFound))

	_, err = store.GetPayee(ctx, "owner-1", created.ID)
	assert.NoError(t, err, "the record must survive a cross-owner delete attempt")
}
