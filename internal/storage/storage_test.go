package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tributary/internal/category"
	"tributary/internal/model"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func testTransaction(id, day string, amount float64, merchant string) model.Transaction {
	date, _ := time.Parse("2006-01-02", day)
	txn := model.Transaction{
		ID:           id,
		Date:         date,
		Name:         merchant,
		MerchantName: merchant,
		Amount:       amount,
		Source:       model.SourceCSV,
	}
	txn.Hash = txn.GenerateHash()
	return txn
}

func TestMigrate_Idempotent(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, store.Migrate(context.Background()))
}

func TestSaveTransactions_DeduplicatesByHash(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	txns := []model.Transaction{
		testTransaction("t1", "2024-03-01", -10, "Grocer"),
		testTransaction("t2", "2024-03-02", -20, "Cafe"),
	}

	saved, err := store.SaveTransactions(ctx, txns)
	require.NoError(t, err)
	assert.Equal(t, 2, saved)

	// Importing the same file again saves nothing new.
	saved, err = store.SaveTransactions(ctx, txns)
	require.NoError(t, err)
	assert.Equal(t, 0, saved)

	count, err := store.GetTransactionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSaveTransactions_Validation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	_, err := store.SaveTransactions(ctx, nil)
	assert.ErrorIs(t, err, ErrNilParameter)

	_, err = store.SaveTransactions(ctx, []model.Transaction{})
	assert.ErrorIs(t, err, ErrEmptySlice)

	_, err = store.SaveTransactions(ctx, []model.Transaction{{ID: "x"}})
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestListTransactions_DateRange(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	_, err := store.SaveTransactions(ctx, []model.Transaction{
		testTransaction("t1", "2024-01-15", -10, "A"),
		testTransaction("t2", "2024-02-15", -20, "B"),
		testTransaction("t3", "2024-03-15", -30, "C"),
	})
	require.NoError(t, err)

	from, _ := time.Parse("2006-01-02", "2024-02-01")
	to, _ := time.Parse("2006-01-02", "2024-02-28")

	all, err := store.ListTransactions(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	feb, err := store.ListTransactions(ctx, &from, &to)
	require.NoError(t, err)
	require.Len(t, feb, 1)
	assert.Equal(t, "t2", feb[0].ID)

	_, err = store.ListTransactions(ctx, &to, &from)
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestUpdateTransactionCategory(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	_, err := store.SaveTransactions(ctx, []model.Transaction{
		testTransaction("t1", "2024-03-01", -10, "Grocer"),
	})
	require.NoError(t, err)

	require.NoError(t, store.UpdateTransactionCategory(ctx, "t1", "Groceries"))

	txns, err := store.ListTransactions(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", txns[0].Category)

	assert.Error(t, store.UpdateTransactionCategory(ctx, "missing", "Groceries"))
}

func TestUpdateMerchantCategory(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	_, err := store.SaveTransactions(ctx, []model.Transaction{
		testTransaction("t1", "2024-03-01", -10, "Cafe"),
		testTransaction("t2", "2024-03-02", -12, "Cafe"),
		testTransaction("t3", "2024-03-03", -30, "Grocer"),
	})
	require.NoError(t, err)

	count, err := store.UpdateMerchantCategory(ctx, "t1", "Drink")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	txns, err := store.ListTransactions(ctx, nil, nil)
	require.NoError(t, err)
	for _, txn := range txns {
		if txn.MerchantName == "Cafe" {
			assert.Equal(t, "Drink", txn.Category)
		} else {
			assert.Empty(t, txn.Category)
		}
	}
}

func TestCategoryTree_DefaultAndRoundTrip(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	// A fresh database serves the starter tree.
	tree, err := store.GetCategoryTree(ctx)
	require.NoError(t, err)
	assert.Contains(t, category.Leaves(tree), "Groceries")

	custom, err := category.Parse([]byte(`{"Fun": {"Games": null}}`))
	require.NoError(t, err)
	require.NoError(t, store.SaveCategoryTree(ctx, custom))

	loaded, err := store.GetCategoryTree(ctx)
	require.NoError(t, err)
	assert.Equal(t, category.CollectPaths(custom), category.CollectPaths(loaded))
}

func TestReplaceCategoryTree_ClearsDeletedLeaves(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	initial, err := category.Parse([]byte(`{"Food": {"Restaurant": null, "Canteen": null}}`))
	require.NoError(t, err)
	require.NoError(t, store.SaveCategoryTree(ctx, initial))

	_, err = store.SaveTransactions(ctx, []model.Transaction{
		testTransaction("t1", "2024-03-01", -10, "A"),
		testTransaction("t2", "2024-03-02", -20, "B"),
	})
	require.NoError(t, err)
	require.NoError(t, store.UpdateTransactionCategory(ctx, "t1", "Canteen"))
	require.NoError(t, store.UpdateTransactionCategory(ctx, "t2", "Restaurant"))

	// Dropping Canteen uncategorizes t1 but leaves t2 alone.
	smaller, err := category.RemoveCategory(initial, "Canteen")
	require.NoError(t, err)

	cleared, err := store.ReplaceCategoryTree(ctx, smaller)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	txns, err := store.ListTransactions(ctx, nil, nil)
	require.NoError(t, err)
	for _, txn := range txns {
		switch txn.ID {
		case "t1":
			assert.Empty(t, txn.Category)
		case "t2":
			assert.Equal(t, "Restaurant", txn.Category)
		}
	}
}
