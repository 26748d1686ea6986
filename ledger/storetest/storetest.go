// Package storetest is the conformance suite every ledger.Repository runs.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/store-ledger/ledger"
)

// Factory returns an empty repository for one subtest.
type Factory func(t *testing.T) ledger.Repository

// Run exercises the Repository contract against repositories from newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("CreateAndGetStore", func(t *testing.T) { testCreateAndGetStore(t, newRepo(t)) })
	t.Run("Managers", func(t *testing.T) { testManagers(t, newRepo(t)) })
	t.Run("AppendLoadOrdered", func(t *testing.T) { testAppendLoadOrdered(t, newRepo(t)) })
	t.Run("DuplicateID", func(t *testing.T) { testDuplicateID(t, newRepo(t)) })
	t.Run("Replace", func(t *testing.T) { testReplace(t, newRepo(t)) })
	t.Run("LoadRange", func(t *testing.T) { testLoadRange(t, newRepo(t)) })
	t.Run("StoresIsolated", func(t *testing.T) { testStoresIsolated(t, newRepo(t)) })
}

// =============================================================================
// FIXTURES
// =============================================================================

var ring = ledger.Item{ID: "item-ring", CreatedAt: 900, Name: "Cincin", Weight: "2½ sk", Model: "Polos"}

func purchase(id string, at ledger.Timestamp, qty int64) ledger.Transaction {
	return ledger.Transaction{
		ID:          id,
		CreatedAt:   at,
		Data:        &ledger.TransactionData{Item: ring, Quantity: qty},
		Description: "beli",
		Price:       1000 * qty,
		Debit:       false,
		DoneBy:      "ani",
	}
}

func custom(id string, at ledger.Timestamp, price int64) ledger.Transaction {
	return ledger.Transaction{ID: id, CreatedAt: at, Description: "listrik", Price: price, DoneBy: "ani"}
}

func seedStore(t *testing.T, repo ledger.Repository, id string) {
	t.Helper()
	require.NoError(t, repo.CreateStore(context.Background(), ledger.Store{
		ID: id, CreatedAt: 100, Name: "Toko " + id, Owner: "owner-" + id,
	}))
}

// =============================================================================
// CASES
// =============================================================================

func testCreateAndGetStore(t *testing.T, repo ledger.Repository) {
	ctx := context.Background()
	seedStore(t, repo, "id-abc123")

	got, err := repo.GetStore(ctx, "id-abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Toko id-abc123", got.Name)
	assert.Equal(t, "owner-id-abc123", got.Owner)
	assert.Equal(t, ledger.Timestamp(100), got.CreatedAt)

	missing, err := repo.GetStore(ctx, "id-nope00")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.ListStores(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	err = repo.CreateStore(ctx, ledger.Store{ID: "id-abc123", CreatedAt: 200, Name: "Lain", Owner: "budi"})
	assert.ErrorIs(t, err, ledger.ErrDuplicateStore)
	assert.True(t, ledger.IsConflict(err))

	got, err = repo.GetStore(ctx, "id-abc123")
	require.NoError(t, err)
	assert.Equal(t, "Toko id-abc123", got.Name, "the first store is kept")
}

func testManagers(t *testing.T, repo ledger.Repository) {
	ctx := context.Background()
	seedStore(t, repo, "id-aaaaaa")
	seedStore(t, repo, "id-bbbbbb")

	// Owner is a manager on creation
	ok, err := repo.IsManager(ctx, "owner-id-aaaaaa", "id-aaaaaa")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsManager(ctx, "budi", "id-aaaaaa")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.AddManager(ctx, "budi", "id-aaaaaa"))
	require.NoError(t, repo.AddManager(ctx, "budi", "id-bbbbbb"))
	// Adding twice is harmless
	require.NoError(t, repo.AddManager(ctx, "budi", "id-bbbbbb"))

	stores, err := repo.StoresByManager(ctx, "budi")
	require.NoError(t, err)
	require.Len(t, stores, 2)

	none, err := repo.StoresByManager(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testAppendLoadOrdered(t *testing.T, repo ledger.Repository) {
	ctx := context.Background()
	seedStore(t, repo, "id-aaaaaa")

	require.NoError(t, repo.Append(ctx, "id-aaaaaa", purchase("t3", 3000, 1)))
	require.NoError(t, repo.Append(ctx, "id-aaaaaa", custom("t1", 1000, 500)))
	require.NoError(t, repo.Append(ctx, "id-aaaaaa", purchase("t2", 2000, 4)))

	txs, err := repo.Load(ctx, "id-aaaaaa")
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, []string{"t1", "t2", "t3"}, []string{txs[0].ID, txs[1].ID, txs[2].ID})

	// Round-trip preserves optional data and the item snapshot
	assert.Nil(t, txs[0].Data)
	require.NotNil(t, txs[1].Data)
	assert.Equal(t, ring, txs[1].Data.Item)
	assert.Equal(t, int64(4), txs[1].Data.Quantity)
	assert.Equal(t, "ani", txs[1].DoneBy)
	assert.Equal(t, int64(4000), txs[1].Price)
	assert.False(t, txs[1].Debit)
}

func testDuplicateID(t *testing.T, repo ledger.Repository) {
	ctx := context.Background()
	seedStore(t, repo, "id-aaaaaa")

	require.NoError(t, repo.Append(ctx, "id-aaaaaa", purchase("t1", 1000, 1)))
	err := repo.Append(ctx, "id-aaaaaa", purchase("t1", 2000, 2))
	assert.ErrorIs(t, err, ledger.ErrDuplicateTransaction)

	txs, err := repo.Load(ctx, "id-aaaaaa")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func testReplace(t *testing.T, repo ledger.Repository) {
	ctx := context.Background()
	seedStore(t, repo, "id-aaaaaa")
	require.NoError(t, repo.Append(ctx, "id-aaaaaa", purchase("t1", 1000, 1)))

	renamed := purchase("t1", 1000, 1)
	renamed.Data.Item = ledger.Item{ID: "item-ring-2", Name: "Cincin Emas", Weight: "3 sk", Model: "Polos"}
	require.NoError(t, repo.Replace(ctx, "id-aaaaaa", renamed))

	txs, err := repo.Load(ctx, "id-aaaaaa")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "item-ring-2", txs[0].Data.Item.ID)
	assert.Equal(t, "Cincin Emas", txs[0].Data.Item.Name)

	err = repo.Replace(ctx, "id-aaaaaa", purchase("missing", 1000, 1))
	assert.ErrorIs(t, err, ledger.ErrTransactionNotFound)
}

func testLoadRange(t *testing.T, repo ledger.Repository) {
	ctx := context.Background()
	seedStore(t, repo, "id-aaaaaa")
	for i, at := range []ledger.Timestamp{1000, 2000, 3000, 4000} {
		require.NoError(t, repo.Append(ctx, "id-aaaaaa", custom(string(rune('a'+i)), at, 10)))
	}

	txs, err := repo.LoadRange(ctx, "id-aaaaaa", 2000, 3000)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, ledger.Timestamp(2000), txs[0].CreatedAt)
	assert.Equal(t, ledger.Timestamp(3000), txs[1].CreatedAt)
}

func testStoresIsolated(t *testing.T, repo ledger.Repository) {
	ctx := context.Background()
	seedStore(t, repo, "id-aaaaaa")
	seedStore(t, repo, "id-bbbbbb")

	require.NoError(t, repo.Append(ctx, "id-aaaaaa", custom("t1", 1000, 10)))
	// Same id in another store is a different transaction
	require.NoError(t, repo.Append(ctx, "id-bbbbbb", custom("t1", 1000, 20)))

	a, err := repo.Load(ctx, "id-aaaaaa")
	require.NoError(t, err)
	b, err := repo.Load(ctx, "id-bbbbbb")
	require.NoError(t, err)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, int64(10), a[0].Price)
	assert.Equal(t, int64(20), b[0].Price)
}
