package ledger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/store-ledger/ledger"
)

func ts(v int64) *ledger.Timestamp {
	t := ledger.Timestamp(v)
	return &t
}

func ids(txs []ledger.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}

func TestPartition_BeforeInRangeDropped(t *testing.T) {
	txs := []ledger.Transaction{
		expense("early", 500, 1),
		expense("start", 1000, 1),
		expense("mid", 1500, 1),
		expense("end", 2000, 1),
		expense("late", 2001, 1),
	}

	before, inRange := ledger.Partition(txs, 1000, 2000)

	assert.Equal(t, []string{"early"}, ids(before))
	assert.Equal(t, []string{"start", "mid", "end"}, ids(inRange))
}

func TestRange_Select(t *testing.T) {
	txs := []ledger.Transaction{expense("a", 1, 1), expense("b", 5, 1), expense("c", 9, 1)}

	assert.Equal(t, []string{"a", "b", "c"}, ids(ledger.Range{}.Select(txs)))
	assert.Equal(t, []string{"b", "c"}, ids(ledger.Range{Start: ts(5)}.Select(txs)))
	assert.Equal(t, []string{"a", "b"}, ids(ledger.Range{End: ts(5)}.Select(txs)))
	assert.Equal(t, []string{"b"}, ids(ledger.Range{Start: ts(2), End: ts(8)}.Select(txs)))
}

func TestSnapshotBefore_ReducesOnlyEarlierTransactions(t *testing.T) {
	a := item("i1", "A", "1 gram", "X")
	b := item("i2", "B", "2 gram", "Y")
	txs := []ledger.Transaction{
		buy("t1", 1000, a, 5, 1000),
		sell("t2", 2000, a, 2, 500),
		buy("t3", 3000, b, 1, 300),
	}

	snap := ledger.SnapshotBefore(txs, 3000)

	assert.Equal(t, ledger.Timestamp(3000), snap.AsOf)
	assert.Equal(t, ledger.Balance(-500), snap.Balance)
	assert.Equal(t, int64(3), snap.Inventory["i1"].Quantity)
	// Item first seen at the cutoff did not exist yet
	_, ok := snap.Inventory["i2"]
	assert.False(t, ok)
}

func TestOpeningSnapshot_SeedsEveryItemAtZero(t *testing.T) {
	// GIVEN: item A bought before the window, item B first bought inside it
	// WHEN: computing the opening snapshot of the window
	// THEN: A opens with its earlier stock, B opens at 0 (not absent)

	a := item("i1", "A", "1 gram", "X")
	b := item("i2", "B", "2 gram", "Y")
	all := []ledger.Transaction{
		buy("t3", 3000, b, 1, 300),
		buy("t1", 1000, a, 5, 1000),
		income("t2", 2000, 700),
	}
	selected := []ledger.Transaction{all[0]}

	snap := ledger.OpeningSnapshot(all, selected)

	assert.Equal(t, ledger.Timestamp(3000), snap.AsOf)
	assert.Equal(t, ledger.Balance(-300), snap.Balance)
	require.Contains(t, snap.Inventory, "i2")
	assert.Equal(t, int64(0), snap.Inventory["i2"].Quantity)
	assert.Equal(t, int64(5), snap.Inventory["i1"].Quantity)
}

func TestOpeningSnapshot_FullHistoryOpensAtZero(t *testing.T) {
	a := item("i1", "A", "1 gram", "X")
	all := []ledger.Transaction{buy("t1", 1000, a, 5, 1000), sell("t2", 2000, a, 1, 400)}

	snap := ledger.OpeningSnapshot(all, all)

	assert.Zero(t, snap.Balance)
	assert.Equal(t, int64(0), snap.Inventory["i1"].Quantity)
}

func TestOpeningSnapshot_EmptySelection(t *testing.T) {
	a := item("i1", "A", "1 gram", "X")
	all := []ledger.Transaction{buy("t1", 1000, a, 5, 1000)}

	snap := ledger.OpeningSnapshot(all, nil)

	assert.Zero(t, snap.Balance)
	assert.Equal(t, int64(0), snap.Inventory["i1"].Quantity)
}
