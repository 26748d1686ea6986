package realtime_test

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/store-ledger/ledger"
	"github.com/warp/store-ledger/realtime"
)

func purchase(id string, at ledger.Timestamp, qty int64) ledger.Transaction {
	return ledger.Transaction{
		ID:        id,
		CreatedAt: at,
		Data:      &ledger.TransactionData{Item: ledger.Item{ID: "i1", Name: "Cincin"}, Quantity: qty},
		Price:     100,
	}
}

func receive(t *testing.T, ch <-chan realtime.Update) realtime.Update {
	t.Helper()
	select {
	case u, ok := <-ch:
		require.True(t, ok, "channel closed")
		return u
	case <-time.After(time.Second):
		t.Fatal("no update received")
	}
	return realtime.Update{}
}

func TestHub_FanOutToStoreSubscribers(t *testing.T) {
	// GIVEN: two subscribers on store A and one on store B
	// WHEN: store A publishes
	// THEN: both A subscribers get the derived state, B gets nothing

	hub := realtime.NewHub(zerolog.Nop())
	a1, cancelA1 := hub.Subscribe("A")
	defer cancelA1()
	a2, cancelA2 := hub.Subscribe("A")
	defer cancelA2()
	b, cancelB := hub.Subscribe("B")
	defer cancelB()

	hub.Publish("A", []ledger.Transaction{purchase("t2", 2, 3), purchase("t1", 1, 2)})

	for _, ch := range []<-chan realtime.Update{a1, a2} {
		u := receive(t, ch)
		assert.Equal(t, "A", u.StoreID)
		require.Len(t, u.Transactions, 2)
		assert.Equal(t, "t1", u.Transactions[0].ID)
		require.Len(t, u.Stocks, 1)
		assert.Equal(t, int64(5), u.Stocks[0].Quantity)
		assert.Equal(t, ledger.Balance(-200), u.Balance)
	}

	select {
	case <-b:
		t.Fatal("store B must not receive store A updates")
	default:
	}
}

func TestHub_SlowSubscriberGetsLatest(t *testing.T) {
	hub := realtime.NewHub(zerolog.Nop())
	ch, cancel := hub.Subscribe("A")
	defer cancel()

	hub.Publish("A", []ledger.Transaction{purchase("t1", 1, 1)})
	hub.Publish("A", []ledger.Transaction{purchase("t1", 1, 1), purchase("t2", 2, 1)})
	hub.Publish("A", []ledger.Transaction{purchase("t1", 1, 1), purchase("t2", 2, 1), purchase("t3", 3, 1)})

	u := receive(t, ch)
	assert.Len(t, u.Transactions, 3)

	select {
	case <-ch:
		t.Fatal("intermediate updates must be dropped")
	default:
	}
}

func TestHub_LateSubscriberReceivesLastUpdate(t *testing.T) {
	hub := realtime.NewHub(zerolog.Nop())
	hub.Publish("A", []ledger.Transaction{purchase("t1", 1, 4)})

	ch, cancel := hub.Subscribe("A")
	defer cancel()

	u := receive(t, ch)
	assert.Equal(t, int64(4), u.Stocks[0].Quantity)
}

func TestHub_CancelAndClose(t *testing.T) {
	hub := realtime.NewHub(zerolog.Nop())
	ch, cancel := hub.Subscribe("A")
	assert.Equal(t, 1, hub.Subscribers("A"))

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers("A"))

	other, _ := hub.Subscribe("B")
	hub.Close()
	_, ok = <-other
	assert.False(t, ok)

	// no panic after close
	hub.Publish("B", nil)
	closed, _ := hub.Subscribe("B")
	_, ok = <-closed
	assert.False(t, ok)
}

func TestHub_ConcurrentPublishers(t *testing.T) {
	hub := realtime.NewHub(zerolog.Nop())
	ch, cancel := hub.Subscribe("A")
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Publish("A", []ledger.Transaction{purchase("t1", 1, 1)})
		}()
	}
	wg.Wait()

	u := receive(t, ch)
	assert.Equal(t, "A", u.StoreID)
}
