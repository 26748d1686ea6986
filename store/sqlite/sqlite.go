/*
Package sqlite provides a SQLite-backed ledger.Repository.

PURPOSE:
  Persists stores, their managers and each store's transaction log. This is
  the default backend for a single-server deployment.

APPEND-MOSTLY ENFORCEMENT:
  - INSERT for new transactions; a duplicate (store_id, id) is rejected
  - UPDATE only through Replace, used by the item-rename path
  - No DELETE statements on the transactions table

KEY TABLES:
  stores:       Store records; the id doubles as the join code
  managers:     (user_id, store_id) membership
  transactions: One row per ledger entry. The optional item movement is
                stored as JSON in data_json, NULL for custom entries.

INDEXES:
  - idx_transactions_store_created: Load / LoadRange (hot path)
  - idx_managers_user: Store list of a user

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and a single open connection so that
  ":memory:" databases are shared by every query.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block.

USAGE:
  repo, err := sqlite.New("./data/ledger.db")
  if err != nil {
      log.Fatal(err)
  }
  defer repo.Close()

  svc := ledger.NewService(repo, hub, uuid.NewString)

SEE ALSO:
  - ledger/store.go: Interface definition
  - ledger/store/memory.go: In-memory implementation for testing
  - store/postgres: Same schema on PostgreSQL
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/mattn/go-sqlite3"

	"github.com/warp/store-ledger/ledger"
)

// Store implements ledger.Repository using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ ledger.Repository = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Stores
	CREATE TABLE IF NOT EXISTS stores (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	-- Store managers
	CREATE TABLE IF NOT EXISTS managers (
		user_id TEXT NOT NULL,
		store_id TEXT NOT NULL REFERENCES stores(id),
		PRIMARY KEY (user_id, store_id)
	);

	CREATE INDEX IF NOT EXISTS idx_managers_user
		ON managers(user_id);

	-- Transactions (append-mostly ledger, one log per store)
	CREATE TABLE IF NOT EXISTS transactions (
		store_id TEXT NOT NULL REFERENCES stores(id),
		id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		data_json TEXT,
		description TEXT NOT NULL DEFAULT '',
		price INTEGER NOT NULL,
		debit BOOLEAN NOT NULL,
		done_by TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (store_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_store_created
		ON transactions(store_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STORES AND MANAGERS
// =============================================================================

// CreateStore inserts the store and its owner's membership atomically.
func (s *Store) CreateStore(ctx context.Context, store ledger.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx,
		"INSERT INTO stores (id, name, owner, created_at) VALUES (?, ?, ?, ?)",
		store.ID, store.Name, store.Owner, int64(store.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%s: %w", store.ID, ledger.ErrDuplicateStore)
		}
		return fmt.Errorf("failed to create store: %w", err)
	}

	if _, err := sqlTx.ExecContext(ctx, addManagerQuery, store.Owner, store.ID); err != nil {
		return fmt.Errorf("failed to add owner as manager: %w", err)
	}

	return sqlTx.Commit()
}

// GetStore retrieves a store by ID.
func (s *Store) GetStore(ctx context.Context, id string) (*ledger.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var store ledger.Store
	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, owner, created_at FROM stores WHERE id = ?",
		id,
	).Scan(&store.ID, &store.Name, &store.Owner, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	store.CreatedAt = ledger.Timestamp(createdAt)
	return &store, nil
}

// ListStores returns all stores.
func (s *Store) ListStores(ctx context.Context) ([]ledger.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryStores(ctx,
		"SELECT id, name, owner, created_at FROM stores ORDER BY created_at, id",
	)
}

const addManagerQuery = `
	INSERT INTO managers (user_id, store_id) VALUES (?, ?)
	ON CONFLICT(user_id, store_id) DO NOTHING
`

// AddManager records membership. Adding an existing manager is a no-op.
func (s *Store) AddManager(ctx context.Context, userID, storeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, addManagerQuery, userID, storeID)
	return err
}

// IsManager reports whether userID manages storeID.
func (s *Store) IsManager(ctx context.Context, userID, storeID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM managers WHERE user_id = ? AND store_id = ?",
		userID, storeID,
	).Scan(&count)

	return count > 0, err
}

// StoresByManager returns the stores userID manages.
func (s *Store) StoresByManager(ctx context.Context, userID string) ([]ledger.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryStores(ctx, `
		SELECT s.id, s.name, s.owner, s.created_at
		FROM stores s
		JOIN managers m ON m.store_id = s.id
		WHERE m.user_id = ?
		ORDER BY s.created_at, s.id
	`, userID)
}

func (s *Store) queryStores(ctx context.Context, query string, args ...any) ([]ledger.Store, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stores: %w", err)
	}
	defer rows.Close()

	var stores []ledger.Store
	for rows.Next() {
		var store ledger.Store
		var createdAt int64
		if err := rows.Scan(&store.ID, &store.Name, &store.Owner, &createdAt); err != nil {
			return nil, err
		}
		store.CreatedAt = ledger.Timestamp(createdAt)
		stores = append(stores, store)
	}
	return stores, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// Append adds a transaction to the store's log.
func (s *Store) Append(ctx context.Context, storeID string, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dataJSON, err := marshalData(tx.Data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO transactions
		(store_id, id, created_at, data_json, description, price, debit, done_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		storeID,
		tx.ID,
		int64(tx.CreatedAt),
		dataJSON,
		tx.Description,
		tx.Price,
		tx.Debit,
		tx.DoneBy,
	)

	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%s: %w", tx.ID, ledger.ErrDuplicateTransaction)
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}

	return nil
}

// Replace overwrites a transaction in place.
func (s *Store) Replace(ctx context.Context, storeID string, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dataJSON, err := marshalData(tx.Data)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET created_at = ?, data_json = ?, description = ?, price = ?, debit = ?, done_by = ?
		WHERE store_id = ? AND id = ?
	`,
		int64(tx.CreatedAt), dataJSON, tx.Description, tx.Price, tx.Debit, tx.DoneBy,
		storeID, tx.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to replace transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", tx.ID, ledger.ErrTransactionNotFound)
	}
	return nil
}

// Load returns all transactions for a store.
func (s *Store) Load(ctx context.Context, storeID string) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, created_at, data_json, description, price, debit, done_by
		FROM transactions
		WHERE store_id = ?
		ORDER BY created_at ASC, rowid ASC
	`

	return s.queryTransactions(ctx, query, storeID)
}

// LoadRange returns transactions with created_at in [from, to].
func (s *Store) LoadRange(ctx context.Context, storeID string, from, to ledger.Timestamp) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, created_at, data_json, description, price, debit, done_by
		FROM transactions
		WHERE store_id = ?
		  AND created_at >= ? AND created_at <= ?
		ORDER BY created_at ASC, rowid ASC
	`

	return s.queryTransactions(ctx, query, storeID, int64(from), int64(to))
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (ledger.Transaction, error) {
	var (
		tx        ledger.Transaction
		createdAt int64
		dataJSON  sql.NullString
	)

	err := rows.Scan(&tx.ID, &createdAt, &dataJSON, &tx.Description, &tx.Price, &tx.Debit, &tx.DoneBy)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}
	tx.CreatedAt = ledger.Timestamp(createdAt)

	if dataJSON.Valid && dataJSON.String != "" {
		var data ledger.TransactionData
		if err := json.Unmarshal([]byte(dataJSON.String), &data); err != nil {
			return tx, fmt.Errorf("failed to decode transaction %s data: %w", tx.ID, err)
		}
		tx.Data = &data
	}

	return tx, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func marshalData(data *ledger.TransactionData) (sql.NullString, error) {
	if data == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode transaction data: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
