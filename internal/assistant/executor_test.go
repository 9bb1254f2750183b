package assistant

import (
	"context"
	"testing"

	"github.com/rapmendoza/ai-side-panel/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOwner = "owner-1"

func TestExecuteCreatePayee(t *testing.T) {
	store := newMemStorage()
	executor := NewExecutor(store, testLogger(), 0)

	results := executor.Execute(context.Background(), testOwner, []model.SuggestedAction{
		{
			ID:     "a1",
			Type:   model.ActionCreate,
			Entity: model.KindPayee,
			Payload: model.ActionPayload{
				Name:  "Acme Corp",
				Email: "billing@acme.com",
			},
		},
	})

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "a1", results[0].ActionID)
	require.NotNil(t, results[0].Payee)
	assert.Equal(t, "Acme Corp", results[0].Payee.Name)
	assert.NotZero(t, results[0].Payee.ID)
}

func TestExecuteIsolatesFailures(t *testing.T) {
	// One failing action must not affect the actions around it, and results
	// must come back in submission order.
	store := newMemStorage()
	_, err := store.CreatePayee(context.Background(), &model.Payee{OwnerID: testOwner, Name: "Existing"})
	require.NoError(t, err)

	executor := NewExecutor(store, testLogger(), 0)

	results := executor.Execute(context.Background(), testOwner, []model.SuggestedAction{
		{ID: "a1", Type: model.ActionCreate, Entity: model.KindPayee, Payload: model.ActionPayload{Name: "First"}},
		{ID: "a2", Type: model.ActionCreate, Entity: model.KindPayee, Payload: model.ActionPayload{Name: "Existing"}},
		{ID: "a3", Type: model.ActionCreate, Entity: model.KindPayee, Payload: model.ActionPayload{Name: "Third"}},
	})

	require.Len(t, results, 3)
	assert.Equal(t, []string{"a1", "a2", "a3"}, []string{results[0].ActionID, results[1].ActionID, results[2].ActionID})
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)
	assert.True(t, results[2].Success, "an earlier failure must not abort later actions")
}

func TestExecuteRecoversFromPanic(t *testing.T) {
	executor := NewExecutor(nil, testLogger(), 0) // nil storage panics on dispatch

	results := executor.Execute(context.Background(), testOwner, []model.SuggestedAction{
		{ID: "a1", Type: model.ActionCreate, Entity: model.KindPayee, Payload: model.ActionPayload{Name: "Acme"}},
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "internal error")
}

func TestExecuteUnknownEntityKind(t *testing.T) {
	executor := NewExecutor(newMemStorage(), testLogger(), 0)

	results := executor.Execute(context.Background(), testOwner, []model.SuggestedAction{
		{ID: "a1", Type: model.ActionCreate, Entity: model.EntityKind("invoice")},
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, errUnknownActionType, results[0].Error)
}

func TestExecuteReadCountsMatches(t *testing.T) {
	store := newMemStorage()
	for _, name := range []string{"Acme Corp", "Acme Ltd", "Globex"} {
		_, err := store.CreatePayee(context.Background(), &model.Payee{OwnerID: testOwner, Name: name})
		require.NoError(t, err)
	}
	executor := NewExecutor(store, testLogger(), 0)

	results := executor.Execute(context.Background(), testOwner, []model.SuggestedAction{
		{ID: "a1", Type: model.ActionRead, Entity: model.KindPayee, Payload: model.ActionPayload{Search: "acme"}},
	})

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 2, results[0].Count)
	assert.Nil(t, results[0].Payee, "multiple matches carry only a count")
}

func TestExecuteUpdateResolvesByName(t *testing.T) {
	store := newMemStorage()
	created, err := store.CreatePayee(context.Background(), &model.Payee{OwnerID: testOwner, Name: "Acme", Email: "old@acme.com"})
	require.NoError(t, err)

	executor := NewExecutor(store, testLogger(), 0)

	results := executor.Execute(context.Background(), testOwner, []model.SuggestedAction{
		{
			ID:     "a1",
			Type:   model.ActionUpdate,
			Entity: model.KindPayee,
			Payload: model.ActionPayload{
				Name:  "Acme",
				Email: "new@acme.com",
			},
		},
	})

	require.Len(t, results, 1)
	require.True(t, results[0].Success, results[0].Error)
	assert.Equal(t, "new@acme.com", results[0].Payee.Email)

	stored, err := store.GetPayee(context.Background(), testOwner, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@acme.com", stored.Email)
}

func TestExecuteDeleteByID(t *testing.T) {
	store := newMemStorage()
	created, err := store.CreatePayee(context.Background(), &model.Payee{OwnerID: testOwner, Name: "Acme"})
	require.NoError(t, err)

	executor := NewExecutor(store, testLogger(), 0)

	results := executor.Execute(context.Background(), testOwner, []model.SuggestedAction{
		{ID: "a1", Type: model.ActionDelete, Entity: model.KindPayee, Payload: model.ActionPayload{ID: created.ID}},
	})

	require.Len(t, results, 1)
	assert.True(t, results[0].Success)

	_, err = store.GetPayee(context.Background(), testOwner, created.ID)
	assert.Error(t, err)
}

func TestExecuteDeleteAmbiguousNameFails(t *testing.T) {
	store := newMemStorage()
	executor := NewExecutor(store, testLogger(), 0)

	results := executor.Execute(context.Background(), testOwner, []model.SuggestedAction{
		{ID: "a1", Type: model.ActionDelete, Entity: model.KindPayee, Payload: model.ActionPayload{Name: "Nobody"}},
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "not found")
}

func TestExecuteCreateCategoryDefaultsToExpense(t *testing.T) {
	store := newMemStorage()
	executor := NewExecutor(store, testLogger(), 0)

	results := executor.Execute(context.Background(), testOwner, []model.SuggestedAction{
		{ID: "a1", Type: model.ActionCreate, Entity: model.KindCategory, Payload: model.ActionPayload{Name: "Utilities"}},
	})

	require.Len(t, results, 1)
	require.True(t, results[0].Success)
	require.NotNil(t, results[0].Category)
	assert.Equal(t, model.CategoryTypeExpense, results[0].Category.Type)
}

func TestExecuteScopesToOwner(t *testing.T) {
	store := newMemStorage()
	created, err := store.CreatePayee(context.Background(), &model.Payee{OwnerID: "someone-else", Name: "Acme"})
	require.NoError(t, err)

	executor := NewExecutor(store, testLogger(), 0)

	results := executor.Execute(context.Background(), testOwner, []model.SuggestedAction{
		{ID: "a1", Type: model.ActionDelete, Entity: model.KindPayee, Payload: model.ActionPayload{ID: created.ID}},
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success, "an action must never touch another owner's records")
}

func TestExecuteStopsCleanlyOnCancelledContext(t *testing.T) {
	store := newMemStorage()
	executor := NewExecutor(store, testLogger(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := executor.Execute(ctx, testOwner, []model.SuggestedAction{
		{ID: "a1", Type: model.ActionCreate, Entity: model.KindPayee, Payload: model.ActionPayload{Name: "Acme"}},
	})

	// memStorage ignores ctx, so the action still completes; the point is no
	// panic and a full result set.
	require.Len(t, results, 1)
}

func TestExecuteDuplicateCategoryFails(t *testing.T) {
	store := newMemStorage()
	_, err := store.CreateCategory(context.Background(), &model.Category{OwnerID: testOwner, Name: "Utilities"})
	require.NoError(t, err)

	executor := NewExecutor(store, testLogger(), 0)

	results := executor.Execute(context.Background(), testOwner, []model.SuggestedAction{
		{ID: "a1", Type: model.ActionCreate, Entity: model.KindCategory, Payload: model.ActionPayload{Name: "Utilities"}},
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "duplicate")
}
