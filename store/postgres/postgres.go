/*
Package postgres provides a PostgreSQL-backed ledger.Repository using a
pgx connection pool.

PURPOSE:
  For deployments where several server instances share one database. The
  schema mirrors store/sqlite; the optional item movement is stored as JSONB.

CONCURRENCY:
  No in-process locking. The pool is safe for concurrent use and the
  (store_id, id) primary key serializes duplicate appends.

ORDERING:
  seq is a BIGSERIAL, so rows sharing created_at come back in insertion order.

USAGE:
  repo, err := postgres.New(ctx, os.Getenv("DATABASE_URL"))
  if err != nil {
      log.Fatal(err)
  }
  defer repo.Close()

SEE ALSO:
  - store/sqlite/sqlite.go: Same contract on SQLite
*/
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warp/store-ledger/ledger"
)

// uniqueViolation is the SQLSTATE for a unique or primary key conflict.
const uniqueViolation = "23505"

// Store implements ledger.Repository on PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ ledger.Repository = (*Store)(nil)

// New connects to databaseURL and migrates the schema.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS stores (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner TEXT NOT NULL,
		created_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS managers (
		user_id TEXT NOT NULL,
		store_id TEXT NOT NULL REFERENCES stores(id),
		PRIMARY KEY (user_id, store_id)
	);

	CREATE INDEX IF NOT EXISTS idx_managers_user ON managers(user_id);

	CREATE TABLE IF NOT EXISTS transactions (
		store_id TEXT NOT NULL REFERENCES stores(id),
		id TEXT NOT NULL,
		seq BIGSERIAL,
		created_at BIGINT NOT NULL,
		data JSONB,
		description TEXT NOT NULL DEFAULT '',
		price BIGINT NOT NULL,
		debit BOOLEAN NOT NULL,
		done_by TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (store_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_store_created
		ON transactions(store_id, created_at, seq);
	`)
	return err
}

// Truncate removes all rows. Used by tests sharing one database.
func (s *Store) Truncate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "TRUNCATE transactions, managers, stores")
	return err
}

// =============================================================================
// STORES AND MANAGERS
// =============================================================================

const addManagerQuery = `
	INSERT INTO managers (user_id, store_id) VALUES ($1, $2)
	ON CONFLICT (user_id, store_id) DO NOTHING`

// CreateStore inserts the store and its owner's membership in one transaction.
func (s *Store) CreateStore(ctx context.Context, store ledger.Store) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			"INSERT INTO stores (id, name, owner, created_at) VALUES ($1, $2, $3, $4)",
			store.ID, store.Name, store.Owner, int64(store.CreatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%s: %w", store.ID, ledger.ErrDuplicateStore)
			}
			return fmt.Errorf("failed to create store: %w", err)
		}
		_, err = tx.Exec(ctx, addManagerQuery, store.Owner, store.ID)
		return err
	})
}

// GetStore retrieves a store by ID, or nil if missing.
func (s *Store) GetStore(ctx context.Context, id string) (*ledger.Store, error) {
	var st ledger.Store
	var createdAt int64
	err := s.pool.QueryRow(ctx,
		"SELECT id, name, owner, created_at FROM stores WHERE id = $1", id,
	).Scan(&st.ID, &st.Name, &st.Owner, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	st.CreatedAt = ledger.Timestamp(createdAt)
	return &st, nil
}

// ListStores returns every store, oldest first.
func (s *Store) ListStores(ctx context.Context) ([]ledger.Store, error) {
	return s.queryStores(ctx, "SELECT id, name, owner, created_at FROM stores ORDER BY created_at, id")
}

// AddManager records membership.
func (s *Store) AddManager(ctx context.Context, userID, storeID string) error {
	_, err := s.pool.Exec(ctx, addManagerQuery, userID, storeID)
	return err
}

// IsManager reports whether userID manages storeID.
func (s *Store) IsManager(ctx context.Context, userID, storeID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM managers WHERE user_id = $1 AND store_id = $2)",
		userID, storeID,
	).Scan(&exists)
	return exists, err
}

// StoresByManager returns the stores userID manages, oldest first.
func (s *Store) StoresByManager(ctx context.Context, userID string) ([]ledger.Store, error) {
	return s.queryStores(ctx, `
		SELECT s.id, s.name, s.owner, s.created_at
		FROM stores s
		JOIN managers m ON m.store_id = s.id
		WHERE m.user_id = $1
		ORDER BY s.created_at, s.id`, userID)
}

func (s *Store) queryStores(ctx context.Context, query string, args ...any) ([]ledger.Store, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stores: %w", err)
	}
	defer rows.Close()

	var stores []ledger.Store
	for rows.Next() {
		var st ledger.Store
		var createdAt int64
		if err := rows.Scan(&st.ID, &st.Name, &st.Owner, &createdAt); err != nil {
			return nil, err
		}
		st.CreatedAt = ledger.Timestamp(createdAt)
		stores = append(stores, st)
	}
	return stores, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// Append adds a transaction to the store's log.
func (s *Store) Append(ctx context.Context, storeID string, tx ledger.Transaction) error {
	data, err := encodeData(tx.Data)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO transactions (store_id, id, created_at, data, description, price, debit, done_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		storeID, tx.ID, int64(tx.CreatedAt), data, tx.Description, tx.Price, tx.Debit, tx.DoneBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", tx.ID, ledger.ErrDuplicateTransaction)
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// Replace overwrites an existing transaction.
func (s *Store) Replace(ctx context.Context, storeID string, tx ledger.Transaction) error {
	data, err := encodeData(tx.Data)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE transactions
		SET created_at = $3, data = $4, description = $5, price = $6, debit = $7, done_by = $8
		WHERE store_id = $1 AND id = $2`,
		storeID, tx.ID, int64(tx.CreatedAt), data, tx.Description, tx.Price, tx.Debit, tx.DoneBy,
	)
	if err != nil {
		return fmt.Errorf("failed to replace transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", tx.ID, ledger.ErrTransactionNotFound)
	}
	return nil
}

// Load returns the store's log, oldest first.
func (s *Store) Load(ctx context.Context, storeID string) ([]ledger.Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT id, created_at, data, description, price, debit, done_by
		FROM transactions
		WHERE store_id = $1
		ORDER BY created_at, seq`, storeID)
}

// LoadRange returns transactions with created_at in [from, to].
func (s *Store) LoadRange(ctx context.Context, storeID string, from, to ledger.Timestamp) ([]ledger.Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT id, created_at, data, description, price, debit, done_by
		FROM transactions
		WHERE store_id = $1 AND created_at BETWEEN $2 AND $3
		ORDER BY created_at, seq`, storeID, int64(from), int64(to))
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]ledger.Transaction, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		var (
			tx        ledger.Transaction
			createdAt int64
			data      []byte
		)
		if err := rows.Scan(&tx.ID, &createdAt, &data, &tx.Description, &tx.Price, &tx.Debit, &tx.DoneBy); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.CreatedAt = ledger.Timestamp(createdAt)
		if len(data) > 0 {
			var d ledger.TransactionData
			if err := json.Unmarshal(data, &d); err != nil {
				return nil, fmt.Errorf("failed to decode transaction %s data: %w", tx.ID, err)
			}
			tx.Data = &d
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// encodeData returns the JSONB parameter for data: nil for custom entries.
func encodeData(data *ledger.TransactionData) (any, error) {
	if data == nil {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction data: %w", err)
	}
	return string(b), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
