package ledger

import "strings"

// Validate checks the structural invariants every persisted transaction
// satisfies. The reducer and report generator assume them.
func Validate(tx Transaction) error {
	if tx.ID == "" {
		return &ValidationError{Field: "id", Message: "required"}
	}
	if strings.Contains(tx.Description, ",") {
		return &ValidationError{Field: "description", Message: "must not contain a comma", cause: ErrCommaInDescription}
	}
	if tx.Price < 0 {
		return &ValidationError{Field: "price", Message: "must not be negative"}
	}
	if tx.Data != nil {
		if tx.Data.Item.ID == "" {
			return &ValidationError{Field: "data.item.id", Message: "required"}
		}
		if tx.Data.Quantity <= 0 {
			return &ValidationError{Field: "data.quantity", Message: "must be positive"}
		}
	}
	return nil
}

// RequireItemFields rejects an item identity with an empty name, weight or
// model.
func RequireItemFields(name, weight, model string) error {
	for _, f := range []struct{ field, value string }{
		{"name", name}, {"weight", weight}, {"model", model},
	} {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.field, Message: "required"}
		}
	}
	return nil
}

// RenameItem returns rewritten copies of every transaction that references
// oldID, with the embedded item snapshot replaced. It is the only mutation a
// persisted transaction may undergo. Input is not modified.
func RenameItem(txs []Transaction, oldID string, replacement Item) []Transaction {
	var out []Transaction
	for _, tx := range txs {
		if tx.ItemID() != oldID {
			continue
		}
		c := tx.clone()
		c.Data.Item = replacement
		out = append(out, c)
	}
	return out
}

// FindItem returns the latest snapshot of the item with the given id.
func FindItem(txs []Transaction, id string) (Item, bool) {
	var (
		found Item
		ok    bool
		at    Timestamp
	)
	for _, tx := range txs {
		if tx.ItemID() == id && (!ok || tx.CreatedAt >= at) {
			found, ok, at = tx.Data.Item, true, tx.CreatedAt
		}
	}
	return found, ok
}

// FindByAttributes returns an item other than exceptID with the same name,
// weight and model as want.
func FindByAttributes(txs []Transaction, want Item, exceptID string) (Item, bool) {
	for _, tx := range txs {
		if tx.Data == nil || tx.Data.Item.ID == exceptID {
			continue
		}
		if tx.Data.Item.SameAttributes(want) {
			return tx.Data.Item, true
		}
	}
	return Item{}, false
}
