/*
Package realtime fans out store updates to live subscribers.

PURPOSE:
  Screens showing a store's inventory or transaction list need to refresh
  whenever another manager records something. After every write the ledger
  service publishes the store's full, sorted log; the Hub derives the state
  once and hands the same Update to every subscriber of that store.

DELIVERY:
  Each subscriber has a one-slot mailbox. A subscriber that has not read the
  previous update gets it replaced by the newer one, so a slow reader skips
  intermediate states but always ends on the latest. Publish never blocks.

SEE ALSO:
  - ledger/store.go: Publisher
  - api/stream.go: Server-sent events endpoint
*/
package realtime

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/store-ledger/ledger"
)

// Update is a complete snapshot of one store after a write.
type Update struct {
	StoreID      string               `json:"storeId"`
	At           time.Time            `json:"at"`
	Transactions []ledger.Transaction `json:"transactions"`
	Stocks       []ledger.Stock       `json:"stocks"`
	Balance      ledger.Balance       `json:"balance"`
}

// NewUpdate derives an update from a store's log.
func NewUpdate(storeID string, txs []ledger.Transaction, at time.Time) Update {
	sorted := ledger.SortChronological(txs)
	inv, balance := ledger.Reduce(sorted)
	return Update{
		StoreID:      storeID,
		At:           at,
		Transactions: sorted,
		Stocks:       inv.Stocks(),
		Balance:      balance,
	}
}

type subscriber struct {
	ch   chan Update
	once sync.Once
}

func (s *subscriber) close() { s.once.Do(func() { close(s.ch) }) }

// Hub is a ledger.Publisher with per-store subscriptions.
type Hub struct {
	Logger zerolog.Logger
	Now    func() time.Time

	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	last   map[string]Update
	closed bool
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		Logger: logger,
		Now:    time.Now,
		subs:   make(map[string]map[*subscriber]struct{}),
		last:   make(map[string]Update),
	}
}

// Subscribe registers for updates of storeID. If the store has published
// before, the latest update is delivered immediately. The returned channel
// is closed by cancel or Close.
func (h *Hub) Subscribe(storeID string) (<-chan Update, func()) {
	sub := &subscriber{ch: make(chan Update, 1)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.close()
		return sub.ch, func() {}
	}
	if h.subs[storeID] == nil {
		h.subs[storeID] = make(map[*subscriber]struct{})
	}
	h.subs[storeID][sub] = struct{}{}
	if u, ok := h.last[storeID]; ok {
		sub.ch <- u
	}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs[storeID], sub)
		if len(h.subs[storeID]) == 0 {
			delete(h.subs, storeID)
		}
		h.mu.Unlock()
		sub.close()
	}
	return sub.ch, cancel
}

// Publish implements ledger.Publisher.
func (h *Hub) Publish(storeID string, txs []ledger.Transaction) {
	u := NewUpdate(storeID, txs, h.Now())

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.last[storeID] = u

	for sub := range h.subs[storeID] {
		select {
		case sub.ch <- u:
			continue
		default:
		}
		// Mailbox full: replace the stale update.
		select {
		case <-sub.ch:
			h.Logger.Debug().Str("store", storeID).Msg("realtime: dropped stale update")
		default:
		}
		select {
		case sub.ch <- u:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions for storeID.
func (h *Hub) Subscribers(storeID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[storeID])
}

// Close ends every subscription. Later publishes are ignored.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for storeID, subs := range h.subs {
		for sub := range subs {
			sub.close()
		}
		delete(h.subs, storeID)
	}
}
