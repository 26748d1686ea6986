// Package bolt provides a BoltDB-backed ledger.Repository.
//
// BoltDB is an embedded key/value store: the whole ledger lives in a single
// file and no database process is needed, which suits a one-shop install.
//
// Layout
// ------
//
//	stores/<storeID>                  -> Store JSON
//	managers/<userID>/<storeID>       -> "1"
//	logs/<storeID>/log/<ts><seq>      -> Transaction JSON
//	logs/<storeID>/ids/<txID>         -> log key
//
// Log keys are the big-endian, sign-flipped CreatedAt followed by the store's
// bucket sequence, so a cursor walk yields transactions oldest first and
// entries sharing a timestamp keep their insertion order.
package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	boltdb "github.com/boltdb/bolt"

	"github.com/warp/store-ledger/ledger"
)

var (
	bucketStores   = []byte("stores")
	bucketManagers = []byte("managers")
	bucketLogs     = []byte("logs")
	bucketLog      = []byte("log")
	bucketIDs      = []byte("ids")

	present = []byte("1")
)

// Store wraps a BoltDB database.
type Store struct {
	db *boltdb.DB
}

var _ ledger.Repository = (*Store)(nil)

// New opens (or creates) a BoltDB database at path and ensures the top-level
// buckets exist.
func New(path string) (*Store, error) {
	db, err := boltdb.Open(path, 0600, &boltdb.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *boltdb.Tx) error {
		for _, name := range [][]byte{bucketStores, bucketManagers, bucketLogs} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// STORES AND MANAGERS
// =============================================================================

// CreateStore persists the store and makes its owner a manager.
func (s *Store) CreateStore(_ context.Context, store ledger.Store) error {
	return s.db.Update(func(tx *boltdb.Tx) error {
		b := tx.Bucket(bucketStores)
		if b.Get([]byte(store.ID)) != nil {
			return fmt.Errorf("%s: %w", store.ID, ledger.ErrDuplicateStore)
		}
		data, err := json.Marshal(store)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(store.ID), data); err != nil {
			return err
		}
		return addManager(tx, store.Owner, store.ID)
	})
}

// GetStore returns the store, or nil if it does not exist.
func (s *Store) GetStore(_ context.Context, id string) (*ledger.Store, error) {
	var found *ledger.Store
	err := s.db.View(func(tx *boltdb.Tx) error {
		v := tx.Bucket(bucketStores).Get([]byte(id))
		if v == nil {
			return nil
		}
		var st ledger.Store
		if err := json.Unmarshal(v, &st); err != nil {
			return err
		}
		found = &st
		return nil
	})
	return found, err
}

// ListStores returns every store, oldest first.
func (s *Store) ListStores(_ context.Context) ([]ledger.Store, error) {
	var stores []ledger.Store
	err := s.db.View(func(tx *boltdb.Tx) error {
		return tx.Bucket(bucketStores).ForEach(func(_, v []byte) error {
			var st ledger.Store
			if err := json.Unmarshal(v, &st); err != nil {
				return err
			}
			stores = append(stores, st)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortStores(stores)
	return stores, nil
}

// AddManager records membership. Adding twice is a no-op.
func (s *Store) AddManager(_ context.Context, userID, storeID string) error {
	return s.db.Update(func(tx *boltdb.Tx) error {
		return addManager(tx, userID, storeID)
	})
}

func addManager(tx *boltdb.Tx, userID, storeID string) error {
	b, err := tx.Bucket(bucketManagers).CreateBucketIfNotExists([]byte(userID))
	if err != nil {
		return err
	}
	return b.Put([]byte(storeID), present)
}

// IsManager reports whether userID manages storeID.
func (s *Store) IsManager(_ context.Context, userID, storeID string) (bool, error) {
	ok := false
	err := s.db.View(func(tx *boltdb.Tx) error {
		b := tx.Bucket(bucketManagers).Bucket([]byte(userID))
		ok = b != nil && b.Get([]byte(storeID)) != nil
		return nil
	})
	return ok, err
}

// StoresByManager returns the stores userID manages, oldest first.
func (s *Store) StoresByManager(_ context.Context, userID string) ([]ledger.Store, error) {
	var stores []ledger.Store
	err := s.db.View(func(tx *boltdb.Tx) error {
		b := tx.Bucket(bucketManagers).Bucket([]byte(userID))
		if b == nil {
			return nil
		}
		all := tx.Bucket(bucketStores)
		return b.ForEach(func(storeID, _ []byte) error {
			v := all.Get(storeID)
			if v == nil {
				return nil
			}
			var st ledger.Store
			if err := json.Unmarshal(v, &st); err != nil {
				return err
			}
			stores = append(stores, st)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortStores(stores)
	return stores, nil
}

func sortStores(stores []ledger.Store) {
	sort.Slice(stores, func(i, j int) bool {
		if stores[i].CreatedAt != stores[j].CreatedAt {
			return stores[i].CreatedAt < stores[j].CreatedAt
		}
		return stores[i].ID < stores[j].ID
	})
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// Append persists tx in the store's log.
func (s *Store) Append(_ context.Context, storeID string, t ledger.Transaction) error {
	return s.db.Update(func(tx *boltdb.Tx) error {
		logB, ids, err := storeLog(tx, storeID, true)
		if err != nil {
			return err
		}
		if ids.Get([]byte(t.ID)) != nil {
			return fmt.Errorf("%s: %w", t.ID, ledger.ErrDuplicateTransaction)
		}
		return put(logB, ids, t)
	})
}

// Replace overwrites an existing transaction.
func (s *Store) Replace(_ context.Context, storeID string, t ledger.Transaction) error {
	return s.db.Update(func(tx *boltdb.Tx) error {
		logB, ids, err := storeLog(tx, storeID, false)
		if err != nil {
			return err
		}
		var key []byte
		if ids != nil {
			key = append([]byte(nil), ids.Get([]byte(t.ID))...)
		}
		if key == nil {
			return fmt.Errorf("%s: %w", t.ID, ledger.ErrTransactionNotFound)
		}

		if decodeTimestamp(key) == t.CreatedAt {
			data, err := json.Marshal(t)
			if err != nil {
				return err
			}
			return logB.Put(key, data)
		}

		// A new timestamp moves the entry.
		if err := logB.Delete(key); err != nil {
			return err
		}
		return put(logB, ids, t)
	})
}

// Load returns the store's log, oldest first.
func (s *Store) Load(_ context.Context, storeID string) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	err := s.db.View(func(tx *boltdb.Tx) error {
		logB, _, err := storeLog(tx, storeID, false)
		if err != nil || logB == nil {
			return err
		}
		return logB.ForEach(func(_, v []byte) error {
			return decodeInto(&out, v)
		})
	})
	return out, err
}

// LoadRange returns transactions with CreatedAt in [from, to], oldest first.
func (s *Store) LoadRange(_ context.Context, storeID string, from, to ledger.Timestamp) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	err := s.db.View(func(tx *boltdb.Tx) error {
		logB, _, err := storeLog(tx, storeID, false)
		if err != nil || logB == nil {
			return err
		}
		c := logB.Cursor()
		limit := encodeTimestamp(to)
		for k, v := c.Seek(encodeTimestamp(from)); k != nil && bytes.Compare(k[:8], limit) <= 0; k, v = c.Next() {
			if err := decodeInto(&out, v); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// storeLog returns the log and id-index buckets of storeID. With create
// false, missing buckets are returned as nil without error.
func storeLog(tx *boltdb.Tx, storeID string, create bool) (logB, ids *boltdb.Bucket, err error) {
	logs := tx.Bucket(bucketLogs)
	if !create {
		sb := logs.Bucket([]byte(storeID))
		if sb == nil {
			return nil, nil, nil
		}
		return sb.Bucket(bucketLog), sb.Bucket(bucketIDs), nil
	}

	sb, err := logs.CreateBucketIfNotExists([]byte(storeID))
	if err != nil {
		return nil, nil, err
	}
	if logB, err = sb.CreateBucketIfNotExists(bucketLog); err != nil {
		return nil, nil, err
	}
	if ids, err = sb.CreateBucketIfNotExists(bucketIDs); err != nil {
		return nil, nil, err
	}
	return logB, ids, nil
}

func put(logB, ids *boltdb.Bucket, t ledger.Transaction) error {
	seq, err := logB.NextSequence()
	if err != nil {
		return err
	}
	key := make([]byte, 16)
	copy(key, encodeTimestamp(t.CreatedAt))
	binary.BigEndian.PutUint64(key[8:], seq)

	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := logB.Put(key, data); err != nil {
		return err
	}
	return ids.Put([]byte(t.ID), key)
}

func decodeInto(out *[]ledger.Transaction, v []byte) error {
	var t ledger.Transaction
	if err := json.Unmarshal(v, &t); err != nil {
		return err
	}
	*out = append(*out, t)
	return nil
}

// encodeTimestamp flips the sign bit so negative timestamps sort first.
func encodeTimestamp(ts ledger.Timestamp) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(ts)^(1<<63))
	return b
}

func decodeTimestamp(key []byte) ledger.Timestamp {
	return ledger.Timestamp(binary.BigEndian.Uint64(key[:8]) ^ (1 << 63))
}
