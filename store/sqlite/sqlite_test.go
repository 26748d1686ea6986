package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/store-ledger/ledger"
	"github.com/warp/store-ledger/ledger/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ledger.Repository { return newTestStore(t) })
}

func TestSQLite_DuplicateStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	st := ledger.Store{ID: "id-abc123", CreatedAt: 1, Name: "Toko", Owner: "ani"}

	require.NoError(t, s.CreateStore(ctx, st))
	assert.Error(t, s.CreateStore(ctx, st))
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.CreateStore(ctx, ledger.Store{ID: "id-abc123", CreatedAt: 1, Name: "Toko", Owner: "ani"}))
	require.NoError(t, s.Append(ctx, "id-abc123", ledger.Transaction{
		ID: "t1", CreatedAt: 10, Price: 500, Debit: true, Description: "modal",
	}))
	require.NoError(t, s.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	txs, err := reopened.Load(ctx, "id-abc123")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "modal", txs[0].Description)
	assert.True(t, txs[0].Debit)
}
