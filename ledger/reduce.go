/*
reduce.go - Deriving inventory and balance from the transaction log

PURPOSE:
  Folds a collection of transactions into the current Inventory (item ->
  quantity) and Balance. Nothing here is persisted: every caller recomputes
  from the full log, so there is no incremental state to invalidate.

ORDER:
  Quantities and balance are plain sums, so the result does not depend on
  input order. The only order-sensitive output is which Item snapshot an
  inventory entry carries: the last one seen wins. Callers that care pass
  the log through SortChronological first, making it "most recent wins".

NEGATIVE STOCK:
  Selling more than was bought is a data-entry anomaly, not an error. It is
  reported as a negative quantity.
*/
package ledger

import (
	"sort"
)

// Balance is the signed sum of all transaction price deltas.
type Balance int64

// Stock is an inventory entry: the item snapshot and its quantity on hand.
type Stock struct {
	Item     Item  `json:"item"`
	Quantity int64 `json:"quantity"`
}

// Inventory maps item id to stock. It is derived, never persisted.
type Inventory map[string]Stock

// Clone returns an independent copy.
func (inv Inventory) Clone() Inventory {
	out := make(Inventory, len(inv))
	for id, s := range inv {
		out[id] = s
	}
	return out
}

// Stocks returns the entries sorted by item id.
func (inv Inventory) Stocks() []Stock {
	out := make([]Stock, 0, len(inv))
	for _, s := range inv {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item.ID < out[j].Item.ID })
	return out
}

// Items returns the item snapshots, sorted by item id.
func (inv Inventory) Items() []Item {
	stocks := inv.Stocks()
	out := make([]Item, len(stocks))
	for i, s := range stocks {
		out[i] = s.Item
	}
	return out
}

// Reduce folds transactions into inventory and balance. Pure.
func Reduce(txs []Transaction) (Inventory, Balance) {
	inv := make(Inventory)
	var balance Balance
	for _, tx := range txs {
		balance += Balance(tx.BalanceDelta())
		if tx.Data == nil {
			continue
		}
		prev := inv[tx.Data.Item.ID]
		inv[tx.Data.Item.ID] = Stock{
			Item:     tx.Data.Item,
			Quantity: prev.Quantity + tx.QuantityDelta(),
		}
	}
	return inv, balance
}

// ReduceBalance sums balance deltas only.
func ReduceBalance(txs []Transaction) Balance {
	var balance Balance
	for _, tx := range txs {
		balance += Balance(tx.BalanceDelta())
	}
	return balance
}

// SortChronological returns a copy of txs stably sorted by CreatedAt ascending.
func SortChronological(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

// SortNewestFirst returns a copy of txs stably sorted by CreatedAt descending.
func SortNewestFirst(txs []Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out
}
