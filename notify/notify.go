// Package notify carries short user-facing messages ("Cincin 2 sk Polos
// dijual") with an auto-dismiss lifecycle.
//
// Only one notification is visible at a time. Notify shows a new one and
// arms a dismiss timer; a newer notification replaces the visible one and
// cancels its timer. Every state change is broadcast to subscribers as an
// Event, so an SSE client can mirror exactly what a snackbar would show.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultDismiss is how long a notification stays open.
const DefaultDismiss = 4 * time.Second

const subscriberBuffer = 16

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event is a notification state change. Open is false when it is dismissed.
type Event struct {
	ID       uint64    `json:"id"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	Open     bool      `json:"open"`
	At       time.Time `json:"at"`
}

// Notifier owns the visible notification and its dismiss timer.
type Notifier struct {
	Dismiss time.Duration
	Logger  zerolog.Logger

	mu      sync.Mutex
	subs    map[int]chan Event
	nextSub int
	seq     uint64
	current Event
	timer   *time.Timer
	closed  bool
}

// New creates a notifier. A non-positive dismiss uses DefaultDismiss.
func New(dismiss time.Duration, logger zerolog.Logger) *Notifier {
	if dismiss <= 0 {
		dismiss = DefaultDismiss
	}
	return &Notifier{
		Dismiss: dismiss,
		Logger:  logger,
		subs:    make(map[int]chan Event),
	}
}

// Notify shows message, replacing any visible notification.
func (n *Notifier) Notify(severity Severity, message string) Event {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return Event{}
	}
	if n.timer != nil {
		n.timer.Stop()
	}

	n.seq++
	ev := Event{ID: n.seq, Severity: severity, Message: message, Open: true, At: time.Now()}
	n.current = ev
	n.broadcastLocked(ev)

	id := ev.ID
	n.timer = time.AfterFunc(n.Dismiss, func() { n.dismiss(id) })

	logEvent := n.Logger.Info()
	if severity == SeverityError {
		logEvent = n.Logger.Warn()
	}
	logEvent.Str("severity", string(severity)).Msg(message)
	return ev
}

// Success is shorthand for Notify(SeveritySuccess, message).
func (n *Notifier) Success(message string) Event { return n.Notify(SeveritySuccess, message) }

// Error is shorthand for Notify(SeverityError, message).
func (n *Notifier) Error(message string) Event { return n.Notify(SeverityError, message) }

// dismiss closes notification id unless a newer one replaced it.
func (n *Notifier) dismiss(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed || n.current.ID != id || !n.current.Open {
		return
	}
	n.current.Open = false
	n.current.At = time.Now()
	n.timer = nil
	n.broadcastLocked(n.current)
}

// Current returns the visible notification, if any.
func (n *Notifier) Current() (Event, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current, n.current.Open
}

// Subscribe returns a channel of events. Events are dropped for subscribers
// that fall more than a few events behind.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if n.closed {
		close(ch)
		return ch, func() {}
	}
	id := n.nextSub
	n.nextSub++
	n.subs[id] = ch

	return ch, func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if c, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(c)
		}
	}
}

// Close stops the timer and ends all subscriptions.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	if n.timer != nil {
		n.timer.Stop()
	}
	for id, ch := range n.subs {
		close(ch)
		delete(n.subs, id)
	}
}

func (n *Notifier) broadcastLocked(ev Event) {
	for _, ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
