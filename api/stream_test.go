package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/store-ledger/factory"
	"github.com/warp/store-ledger/notify"
	"github.com/warp/store-ledger/realtime"
)

type sseEvent struct {
	name string
	data string
}

// readEvents parses a text/event-stream body until EOF.
func readEvents(body io.Reader) <-chan sseEvent {
	out := make(chan sseEvent, 16)
	go func() {
		defer close(out)
		var ev sseEvent
		scanner := bufio.NewScanner(body)
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case line == "":
				out <- ev
				ev = sseEvent{}
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			}
		}
	}()
	return out
}

func nextEvent(t *testing.T, events <-chan sseEvent) sseEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "stream closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return sseEvent{}
	}
}

// openStream returns once response headers arrive. Handlers flush them only
// after subscribing, so later writes are never missed.
func openStream(t *testing.T, ctx context.Context, srv *httptest.Server, path, user string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set(UserHeader, user)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func TestStreamStore_PushesStateAfterWrites(t *testing.T) {
	// GIVEN: alice listens to her empty store
	env := newTestEnv(t)
	code := env.createStore(t, "alice", "Toko Emas")
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp := openStream(t, ctx, srv, "/api/stores/"+code+"/stream", "alice")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	events := readEvents(resp.Body)

	first := nextEvent(t, events)
	assert.Equal(t, EventState, first.name)
	var initial realtime.Update
	require.NoError(t, json.Unmarshal([]byte(first.data), &initial))
	assert.Equal(t, code, initial.StoreID)
	assert.Empty(t, initial.Transactions)

	// WHEN: an item is bought
	env.createItem(t, "alice", code, factory.NewItemForm{Name: "A", Weight: "1 gram", Model: "X", Quantity: 5, Price: 1000})

	// THEN: the stream delivers the new state
	ev := nextEvent(t, events)
	assert.Equal(t, EventState, ev.name)
	var u realtime.Update
	require.NoError(t, json.Unmarshal([]byte(ev.data), &u))
	require.Len(t, u.Stocks, 1)
	assert.Equal(t, int64(5), u.Stocks[0].Quantity)
	assert.EqualValues(t, -1000, u.Balance)
	assert.Len(t, u.Transactions, 1)
}

func TestStreamStore_RequiresManager(t *testing.T) {
	env := newTestEnv(t)
	code := env.createStore(t, "alice", "Toko Emas")

	rec := env.do(t, http.MethodGet, "/api/stores/"+code+"/stream", "mallory", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStreamNotifications(t *testing.T) {
	// GIVEN: a notification listener
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp := openStream(t, ctx, srv, "/api/notifications/stream", "alice")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	events := readEvents(resp.Body)

	// WHEN: a store is created
	env.createStore(t, "alice", "Toko Emas")

	// THEN: an open success notification arrives
	ev := nextEvent(t, events)
	assert.Equal(t, EventNotification, ev.name)
	var n notify.Event
	require.NoError(t, json.Unmarshal([]byte(ev.data), &n))
	assert.True(t, n.Open)
	assert.Equal(t, notify.SeveritySuccess, n.Severity)
	assert.Contains(t, n.Message, "Toko Emas")
}

