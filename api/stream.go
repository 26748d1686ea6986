package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/store-ledger/realtime"
)

// =============================================================================
// SERVER-SENT EVENTS
// =============================================================================

// Event names on the wire.
const (
	EventState        = "state"
	EventNotification = "notification"
)

// StreamStore pushes the store's derived state: once on connect, then after
// every write. Slow clients skip intermediate states.
func (h *Handler) StreamStore(w http.ResponseWriter, r *http.Request) {
	store, ok := h.store(w, r)
	if !ok {
		return
	}
	if h.Hub == nil {
		writeError(w, http.StatusServiceUnavailable, "Realtime updates disabled", nil)
		return
	}
	flusher, ok := startStream(w)
	if !ok {
		return
	}

	// Subscribe before loading so no write between the two is missed.
	updates, cancel := h.Hub.Subscribe(store.ID)
	defer cancel()

	txs, err := h.Service.Transactions(r.Context(), store.ID)
	if err != nil {
		h.Logger.Error().Err(err).Str("store", store.ID).Msg("stream: initial load failed")
		return
	}
	if err := writeEvent(w, EventState, realtime.NewUpdate(store.ID, txs, h.Now())); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case u, open := <-updates:
			if !open {
				return
			}
			if err := writeEvent(w, EventState, u); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// StreamNotifications pushes notification open and dismiss events.
func (h *Handler) StreamNotifications(w http.ResponseWriter, r *http.Request) {
	if h.Notifier == nil {
		writeError(w, http.StatusServiceUnavailable, "Notifications disabled", nil)
		return
	}
	flusher, ok := startStream(w)
	if !ok {
		return
	}

	events, cancel := h.Notifier.Subscribe()
	defer cancel()

	if current, open := h.Notifier.Current(); open {
		if err := writeEvent(w, EventNotification, current); err != nil {
			return
		}
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			if err := writeEvent(w, EventNotification, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func startStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported", nil)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return flusher, true
}

func writeEvent(w http.ResponseWriter, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}
