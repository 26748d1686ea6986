package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/store-ledger/ledger"
)

func TestSeedDemo_ConsistentHistory(t *testing.T) {
	// GIVEN: a seeded demo request
	env := newTestEnv(t)
	ctx := context.Background()
	req := DemoRequest{Items: 4, Transactions: 30, Seed: 42}

	// WHEN: the demo store is seeded
	resp, err := SeedDemo(ctx, env.svc, env.handler.Factory, "alice", req, testNow)
	require.NoError(t, err)

	// THEN: every recorded transaction is in the log
	assert.Equal(t, resp.Items+30, resp.Transactions)
	assert.Positive(t, resp.Items)
	txs, err := env.svc.Transactions(ctx, resp.Store.ID)
	require.NoError(t, err)
	assert.Len(t, txs, resp.Transactions)

	// AND: stock never drops below zero while replaying
	running := make(map[string]int64)
	for _, tx := range txs {
		assert.LessOrEqual(t, tx.CreatedAt, ledger.FromTime(testNow))
		if tx.Data == nil {
			continue
		}
		running[tx.Data.Item.ID] += tx.QuantityDelta()
		assert.GreaterOrEqual(t, running[tx.Data.Item.ID], int64(0), tx.Description)
	}
}

func TestSeedDemo_SameSeedSameItems(t *testing.T) {
	ctx := context.Background()
	labels := func() []string {
		env := newTestEnv(t)
		resp, err := SeedDemo(ctx, env.svc, env.handler.Factory, "alice", DemoRequest{Items: 5, Transactions: 5, Seed: 7}, testNow)
		require.NoError(t, err)
		inv, _, err := env.svc.State(ctx, resp.Store.ID)
		require.NoError(t, err)
		var out []string
		for _, it := range inv.Items() {
			out = append(out, it.Label())
		}
		return out
	}
	assert.Equal(t, labels(), labels())
}

func TestLoadDemo_Endpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/scenarios/demo", "alice", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[DemoResponse](t, rec)
	assert.Equal(t, "alice", resp.Store.Owner)
	assert.Equal(t, resp.Items+defaultDemoTransactions, resp.Transactions)

	rec = env.do(t, http.MethodGet, "/api/stores/"+resp.Store.ID+"/inventory", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	inv := decode[InventoryDTO](t, rec)
	assert.Len(t, inv.Stocks, resp.Items)

	rec = env.do(t, http.MethodPost, "/api/scenarios/demo", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
