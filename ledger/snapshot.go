package ledger

// =============================================================================
// SNAPSHOT - Inventory and balance as of a point in time
// =============================================================================

// Snapshot is a materialized Inventory + Balance pair as of AsOf (exclusive).
type Snapshot struct {
	AsOf      Timestamp
	Inventory Inventory
	Balance   Balance
}

// Range is an optional, inclusive time window. A nil bound is unbounded.
type Range struct {
	Start *Timestamp
	End   *Timestamp
}

// Contains reports whether ts falls within the range.
func (r Range) Contains(ts Timestamp) bool {
	if r.Start != nil && ts < *r.Start {
		return false
	}
	if r.End != nil && ts > *r.End {
		return false
	}
	return true
}

// Select keeps the transactions inside the range, preserving order.
func (r Range) Select(txs []Transaction) []Transaction {
	var out []Transaction
	for _, tx := range txs {
		if r.Contains(tx.CreatedAt) {
			out = append(out, tx)
		}
	}
	return out
}

// Partition splits txs into those strictly before start and those within
// [start, end]. Transactions after end belong to neither.
func Partition(txs []Transaction, start, end Timestamp) (before, inRange []Transaction) {
	for _, tx := range txs {
		switch {
		case tx.CreatedAt < start:
			before = append(before, tx)
		case tx.CreatedAt <= end:
			inRange = append(inRange, tx)
		}
	}
	return before, inRange
}

// SnapshotBefore reduces the transactions created strictly before cutoff.
// Items that only appear at or after cutoff are absent from the inventory.
func SnapshotBefore(txs []Transaction, cutoff Timestamp) Snapshot {
	var before []Transaction
	for _, tx := range txs {
		if tx.CreatedAt < cutoff {
			before = append(before, tx)
		}
	}
	inv, balance := Reduce(SortChronological(before))
	return Snapshot{AsOf: cutoff, Inventory: inv, Balance: balance}
}

// OpeningSnapshot is the state a report over selected starts from.
//
// The cutoff is the oldest selected transaction, so a report without a lower
// bound always opens at zero. The inventory holds every item found anywhere
// in all, seeded at zero, so an item first bought inside the report window
// opens at 0 instead of being unknown.
func OpeningSnapshot(all, selected []Transaction) Snapshot {
	sorted := SortChronological(all)

	inv := make(Inventory)
	for _, tx := range sorted {
		if tx.Data != nil {
			inv[tx.Data.Item.ID] = Stock{Item: tx.Data.Item}
		}
	}

	if len(selected) == 0 {
		return Snapshot{Inventory: inv}
	}

	cutoff := selected[0].CreatedAt
	for _, tx := range selected[1:] {
		if tx.CreatedAt < cutoff {
			cutoff = tx.CreatedAt
		}
	}

	var balance Balance
	for _, tx := range sorted {
		if tx.CreatedAt >= cutoff {
			break
		}
		balance += Balance(tx.BalanceDelta())
		if tx.Data == nil {
			continue
		}
		s := inv[tx.Data.Item.ID]
		s.Quantity += tx.QuantityDelta()
		inv[tx.Data.Item.ID] = s
	}

	return Snapshot{AsOf: cutoff, Inventory: inv, Balance: balance}
}
