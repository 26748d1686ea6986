/*
Package ledger provides the store bookkeeping engine.

PURPOSE:
  A store's history is an append-only log of transactions. Every purchase,
  sale, and custom income/expense entry is one Transaction. Inventory and
  balance are never stored: they are derived by replaying the log.

KEY CONCEPTS IN THIS FILE (types.go):
  - Item: a stocked good (name, free-form weight, model)
  - Transaction: one ledger entry, optionally moving stock of one item
  - Store: the grouping key for transactions
  - Timestamp: epoch milliseconds, the persisted time format

SIGN CONVENTION:
  Debit == true  -> money received (sale / income), stock goes DOWN
  Debit == false -> money spent (purchase / expense), stock goes UP
  The field name is kept as persisted; downstream arithmetic depends on it.

SEE ALSO:
  - reduce.go: Inventory and Balance derivation
  - snapshot.go: Point-in-time snapshots
  - service.go: Writes, rename, store membership
*/
package ledger

import "time"

// =============================================================================
// TIMESTAMP - Epoch milliseconds
// =============================================================================

// Timestamp is a point in time in Unix milliseconds.
type Timestamp int64

// FromTime converts t to a Timestamp.
func FromTime(t time.Time) Timestamp { return Timestamp(t.UnixMilli()) }

// Time returns the timestamp as a time.Time in the given location.
func (ts Timestamp) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(int64(ts)).In(loc)
}

// EndOfDay returns 23:59:59 of the day containing t, in t's location.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// =============================================================================
// DOMAIN RECORDS
// =============================================================================

// Item is a stocked good. Its identity never changes; renaming an item
// produces a new Item and re-points transactions to it.
type Item struct {
	ID        string    `json:"id"`
	CreatedAt Timestamp `json:"createdAt,omitempty"`
	Name      string    `json:"name"`
	Weight    string    `json:"weight"`
	Model     string    `json:"model"`
}

// Label is the human-readable item name used in messages.
func (i Item) Label() string { return i.Name + " " + i.Weight + " " + i.Model }

// SameAttributes reports whether two items have identical name, weight and model.
func (i Item) SameAttributes(o Item) bool {
	return i.Name == o.Name && i.Weight == o.Weight && i.Model == o.Model
}

// TransactionData is the inventory part of a transaction.
type TransactionData struct {
	Item     Item  `json:"item"`
	Quantity int64 `json:"quantity"`
}

// Transaction is an immutable ledger entry. Transactions without Data are
// custom (non-inventory) income or expense entries.
type Transaction struct {
	ID          string           `json:"id"`
	CreatedAt   Timestamp        `json:"createdAt"`
	Data        *TransactionData `json:"data,omitempty"`
	Description string           `json:"description"`
	Price       int64            `json:"price"`
	Debit       bool             `json:"debit"`
	DoneBy      string           `json:"doneBy"`
}

// IsInventory reports whether the transaction moves stock.
func (t Transaction) IsInventory() bool { return t.Data != nil }

// ItemID returns the referenced item id, or "" for custom transactions.
func (t Transaction) ItemID() string {
	if t.Data == nil {
		return ""
	}
	return t.Data.Item.ID
}

// QuantityDelta is the signed stock change: purchases add, sales subtract.
func (t Transaction) QuantityDelta() int64 {
	if t.Data == nil {
		return 0
	}
	if t.Debit {
		return -t.Data.Quantity
	}
	return t.Data.Quantity
}

// BalanceDelta is the signed money change: +price when Debit, -price otherwise.
func (t Transaction) BalanceDelta() int64 {
	if t.Debit {
		return t.Price
	}
	return -t.Price
}

// clone returns a deep copy so callers can rewrite the embedded item safely.
func (t Transaction) clone() Transaction {
	if t.Data != nil {
		d := *t.Data
		t.Data = &d
	}
	return t
}

// Store groups transactions. Managers are tracked separately by the Repository.
type Store struct {
	ID        string    `json:"id"`
	CreatedAt Timestamp `json:"createdAt"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
}
