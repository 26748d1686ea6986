/*
store.go - Persistence interface for stores and their transaction logs

PURPOSE:
  Defines the interface between the ledger and the database. Different
  implementations use SQLite, BoltDB, PostgreSQL, or in-memory storage.

APPEND-MOSTLY CONTRACT:
  - Append(): the normal write; fails with ErrDuplicateTransaction on an
    existing id
  - Replace(): rewrites an existing transaction. Only the item-rename path
    calls it, and only the embedded item snapshot changes.
  - No Delete.

LOOKUPS:
  GetStore returns (nil, nil) when the store does not exist.

IMPLEMENTATIONS:
  - ledger/store/memory.go: In-memory for testing and dev
  - store/sqlite/sqlite.go
  - store/bolt/bolt.go
  - store/postgres/postgres.go

SEE ALSO:
  - ledger/storetest: Conformance suite every implementation runs
*/
package ledger

import "context"

// Repository handles persistence of stores, managers and transactions.
type Repository interface {
	// CreateStore persists a new store and makes its owner a manager.
	CreateStore(ctx context.Context, store Store) error

	// GetStore returns the store, or nil if it does not exist.
	GetStore(ctx context.Context, id string) (*Store, error)

	// ListStores returns every store, oldest first.
	ListStores(ctx context.Context) ([]Store, error)

	// AddManager records userID as a manager of storeID.
	AddManager(ctx context.Context, userID, storeID string) error

	// IsManager reports whether userID manages storeID.
	IsManager(ctx context.Context, userID, storeID string) (bool, error)

	// StoresByManager returns the stores userID manages, oldest first.
	StoresByManager(ctx context.Context, userID string) ([]Store, error)

	// Append persists a transaction. Returns ErrDuplicateTransaction if the id exists.
	Append(ctx context.Context, storeID string, tx Transaction) error

	// Replace overwrites an existing transaction. Returns ErrTransactionNotFound
	// if the id does not exist.
	Replace(ctx context.Context, storeID string, tx Transaction) error

	// Load returns all transactions of a store, ordered by CreatedAt.
	Load(ctx context.Context, storeID string) ([]Transaction, error)

	// LoadRange returns transactions with CreatedAt in [from, to], ordered by CreatedAt.
	LoadRange(ctx context.Context, storeID string, from, to Timestamp) ([]Transaction, error)
}

// Publisher receives the full, chronologically ordered log of a store after
// every successful write.
type Publisher interface {
	Publish(storeID string, txs []Transaction)
}
