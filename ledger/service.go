package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// =============================================================================
// SERVICE - Writes, membership and derived state for one repository
// =============================================================================

// Service is the entry point the HTTP layer uses. It validates before
// writing and publishes the store's full log after every successful write.
//
// Writes to one store are serialized from the first read to the publish, so
// publishes for a store reach the Publisher in write order.
type Service struct {
	Repo      Repository
	Publisher Publisher     // optional
	NewID     func() string // generates ids for renamed items

	writes sync.Map // store id -> *sync.Mutex
}

// NewService creates a service over repo.
func NewService(repo Repository, pub Publisher, newID func() string) *Service {
	return &Service{Repo: repo, Publisher: pub, NewID: newID}
}

// CreateStore persists a new store owned by store.Owner.
func (s *Service) CreateStore(ctx context.Context, store Store) error {
	return s.Repo.CreateStore(ctx, store)
}

// JoinStore makes userID a manager of the store with the given code.
func (s *Service) JoinStore(ctx context.Context, userID, code string) (*Store, error) {
	already, err := s.Repo.IsManager(ctx, userID, code)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, fmt.Errorf("%s: %w", code, ErrAlreadyManager)
	}

	store, err := s.Repo.GetStore(ctx, code)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%s: %w", code, ErrStoreNotFound)
	}

	if err := s.Repo.AddManager(ctx, userID, code); err != nil {
		return nil, err
	}
	return store, nil
}

// StoresFor returns the stores userID manages.
func (s *Service) StoresFor(ctx context.Context, userID string) ([]Store, error) {
	return s.Repo.StoresByManager(ctx, userID)
}

// AllStores returns every store, oldest first. Used by background jobs.
func (s *Service) AllStores(ctx context.Context) ([]Store, error) {
	return s.Repo.ListStores(ctx)
}

// Access returns the store if userID may read and write it.
func (s *Service) Access(ctx context.Context, userID, storeID string) (*Store, error) {
	store, err := s.Repo.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%s: %w", storeID, ErrStoreNotFound)
	}
	ok, err := s.Repo.IsManager(ctx, userID, storeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return store, nil
}

// Record validates and appends a transaction.
func (s *Service) Record(ctx context.Context, storeID string, tx Transaction) error {
	if err := Validate(tx); err != nil {
		return err
	}
	unlock := s.lockStore(storeID)
	defer unlock()

	if err := s.Repo.Append(ctx, storeID, tx); err != nil {
		return err
	}
	return s.publish(ctx, storeID)
}

// Transactions returns the store's log, oldest first.
func (s *Service) Transactions(ctx context.Context, storeID string) ([]Transaction, error) {
	txs, err := s.Repo.Load(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return SortChronological(txs), nil
}

// TransactionsIn returns the store's transactions inside rng, oldest first.
// Open bounds are unbounded.
func (s *Service) TransactionsIn(ctx context.Context, storeID string, rng Range) ([]Transaction, error) {
	if rng.Start == nil && rng.End == nil {
		return s.Transactions(ctx, storeID)
	}
	from, to := Timestamp(math.MinInt64), Timestamp(math.MaxInt64)
	if rng.Start != nil {
		from = *rng.Start
	}
	if rng.End != nil {
		to = *rng.End
	}
	txs, err := s.Repo.LoadRange(ctx, storeID, from, to)
	if err != nil {
		return nil, err
	}
	return SortChronological(txs), nil
}

// State derives the current inventory and balance of a store.
func (s *Service) State(ctx context.Context, storeID string) (Inventory, Balance, error) {
	txs, err := s.Transactions(ctx, storeID)
	if err != nil {
		return nil, 0, err
	}
	inv, balance := Reduce(txs)
	return inv, balance, nil
}

// RenameInput is the new identity requested for an item.
type RenameInput struct {
	Name   string
	Weight string
	Model  string

	// ConfirmMerge accepts merging into an existing item with the same attributes.
	ConfirmMerge bool
}

func (in RenameInput) validate() error {
	return RequireItemFields(in.Name, in.Weight, in.Model)
}

// RenameItem re-points every transaction of itemID to a renamed item.
//
// If another item already has the requested attributes, a *DuplicateItemError
// is returned unless the caller confirmed the merge, in which case the
// existing identity is reused.
func (s *Service) RenameItem(ctx context.Context, storeID, itemID string, in RenameInput) (Item, error) {
	if err := in.validate(); err != nil {
		return Item{}, err
	}
	unlock := s.lockStore(storeID)
	defer unlock()

	txs, err := s.Transactions(ctx, storeID)
	if err != nil {
		return Item{}, err
	}

	current, ok := FindItem(txs, itemID)
	if !ok {
		return Item{}, fmt.Errorf("%s: %w", itemID, ErrItemNotFound)
	}

	want := Item{Name: in.Name, Weight: in.Weight, Model: in.Model}
	if current.SameAttributes(want) {
		return Item{}, ErrNoChange
	}

	replacement := current
	replacement.ID = s.NewID()
	replacement.Name, replacement.Weight, replacement.Model = in.Name, in.Weight, in.Model

	if existing, dup := FindByAttributes(txs, want, itemID); dup {
		if !in.ConfirmMerge {
			return Item{}, &DuplicateItemError{Existing: existing}
		}
		replacement = existing
	}

	for _, tx := range RenameItem(txs, itemID, replacement) {
		if err := s.Repo.Replace(ctx, storeID, tx); err != nil {
			return Item{}, fmt.Errorf("rewrite transaction %s: %w", tx.ID, err)
		}
	}

	if err := s.publish(ctx, storeID); err != nil {
		return Item{}, err
	}
	return replacement, nil
}

func (s *Service) lockStore(storeID string) func() {
	m, _ := s.writes.LoadOrStore(storeID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *Service) publish(ctx context.Context, storeID string) error {
	if s.Publisher == nil {
		return nil
	}
	txs, err := s.Transactions(ctx, storeID)
	if err != nil {
		return err
	}
	s.Publisher.Publish(storeID, txs)
	return nil
}
