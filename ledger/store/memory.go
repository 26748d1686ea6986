// Package store provides an in-memory ledger.Repository.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/store-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	stores       map[string]ledger.Store
	managers     map[string]map[string]bool // user -> store -> true
	transactions map[string][]ledger.Transaction
	ids          map[string]map[string]int // store -> tx id -> index
}

func NewMemory() *Memory {
	return &Memory{
		stores:       make(map[string]ledger.Store),
		managers:     make(map[string]map[string]bool),
		transactions: make(map[string][]ledger.Transaction),
		ids:          make(map[string]map[string]int),
	}
}

func (m *Memory) CreateStore(_ context.Context, s ledger.Store) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stores[s.ID]; ok {
		return fmt.Errorf("%s: %w", s.ID, ledger.ErrDuplicateStore)
	}
	m.stores[s.ID] = s
	m.addManagerLocked(s.Owner, s.ID)
	return nil
}

func (m *Memory) GetStore(_ context.Context, id string) (*ledger.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stores[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) ListStores(_ context.Context) ([]ledger.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ledger.Store, 0, len(m.stores))
	for _, s := range m.stores {
		out = append(out, s)
	}
	sortStores(out)
	return out, nil
}

func (m *Memory) AddManager(_ context.Context, userID, storeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addManagerLocked(userID, storeID)
	return nil
}

func (m *Memory) addManagerLocked(userID, storeID string) {
	if m.managers[userID] == nil {
		m.managers[userID] = make(map[string]bool)
	}
	m.managers[userID][storeID] = true
}

func (m *Memory) IsManager(_ context.Context, userID, storeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.managers[userID][storeID], nil
}

func (m *Memory) StoresByManager(_ context.Context, userID string) ([]ledger.Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Store
	for id := range m.managers[userID] {
		if s, ok := m.stores[id]; ok {
			out = append(out, s)
		}
	}
	sortStores(out)
	return out, nil
}

// Append adds a single transaction, keeping the log sorted by CreatedAt.
func (m *Memory) Append(_ context.Context, storeID string, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ids[storeID][tx.ID]; ok {
		return ledger.ErrDuplicateTransaction
	}

	txs := m.transactions[storeID]

	// Binary search for insertion point; equal timestamps keep arrival order
	i := sort.Search(len(txs), func(i int) bool {
		return txs[i].CreatedAt > tx.CreatedAt
	})

	txs = append(txs, ledger.Transaction{})
	copy(txs[i+1:], txs[i:])
	txs[i] = tx
	m.transactions[storeID] = txs
	m.reindexLocked(storeID)
	return nil
}

func (m *Memory) Replace(_ context.Context, storeID string, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.ids[storeID][tx.ID]
	if !ok {
		return ledger.ErrTransactionNotFound
	}
	m.transactions[storeID][i] = tx
	return nil
}

func (m *Memory) reindexLocked(storeID string) {
	idx := make(map[string]int, len(m.transactions[storeID]))
	for i, tx := range m.transactions[storeID] {
		idx[tx.ID] = i
	}
	m.ids[storeID] = idx
}

func (m *Memory) Load(_ context.Context, storeID string) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Transaction, len(m.transactions[storeID]))
	copy(result, m.transactions[storeID])
	return result, nil
}

func (m *Memory) LoadRange(_ context.Context, storeID string, from, to ledger.Timestamp) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Transaction
	for _, tx := range m.transactions[storeID] {
		if from <= tx.CreatedAt && tx.CreatedAt <= to {
			result = append(result, tx)
		}
	}
	return result, nil
}

func sortStores(s []ledger.Store) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].CreatedAt != s[j].CreatedAt {
			return s[i].CreatedAt < s[j].CreatedAt
		}
		return s[i].ID < s[j].ID
	})
}
