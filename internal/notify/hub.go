// Package notify delivers transient toast notifications to the views of a
// channel (a logged-in user or an anonymous device).
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultLimit      = 1
	DefaultQueueSize  = 100
	DefaultBufferSize = 16
)

// Kind is the visual variant of a toast.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Toast is a single notification.
type Toast struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventType says what happened to a toast.
type EventType string

const (
	EventPublished EventType = "toast"
	EventDismissed EventType = "dismiss"
)

// Event is what subscribers receive. IDs increase monotonically across the hub.
type Event struct {
	ID    int64     `json:"event_id"`
	Type  EventType `json:"type"`
	Toast Toast     `json:"toast"`
}

// Config tunes a Hub.
type Config struct {
	// Limit caps the number of active toasts per channel.
	Limit int
	// QueueSize caps the replay queue per channel.
	QueueSize int
	// BufferSize is the channel buffer of each subscription.
	BufferSize int
	Logger     *slog.Logger
}

// Hub is a publish/subscribe service for toasts. Create one at startup and
// Close it on shutdown.
type Hub struct {
	mu      sync.Mutex
	cfg     Config
	logger  *slog.Logger
	active  map[string][]Toast
	subs    map[string]map[int64]*Subscription
	queue   *replayQueue
	eventID int64
	subID   int64
	closed  bool
	now     func() time.Time
}

// NewHub returns a Hub configured by cfg.
func NewHub(cfg Config) *Hub {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		cfg:    cfg,
		logger: logger,
		active: make(map[string][]Toast),
		subs:   make(map[string]map[int64]*Subscription),
		queue:  newReplayQueue(cfg.QueueSize),
		now:    time.Now,
	}
}

// Publish adds a toast to channel and delivers it to the channel's
// subscribers. The oldest active toast is dropped once the limit is reached.
func (h *Hub) Publish(channel string, kind Kind, title, description string) Toast {
	t := Toast{
		ID:          uuid.NewString(),
		Kind:        kind,
		Title:       title,
		Description: description,
		CreatedAt:   h.now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		h.logger.Debug("dropping toast published after close", "channel", channel, "title", title)
		return t
	}

	active := append([]Toast{t}, h.active[channel]...)
	if len(active) > h.cfg.Limit {
		active = active[:h.cfg.Limit]
	}
	h.active[channel] = active

	h.emitLocked(channel, EventPublished, t)
	return t
}

// Dismiss removes the toast with id from channel. It reports whether the
// toast was active.
func (h *Hub) Dismiss(channel, id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	active := h.active[channel]
	for i, t := range active {
		if t.ID != id {
			continue
		}
		rest := append(active[:i:i], active[i+1:]...)
		if len(rest) == 0 {
			delete(h.active, channel)
		} else {
			h.active[channel] = rest
		}
		if !h.closed {
			h.emitLocked(channel, EventDismissed, t)
		}
		return true
	}
	return false
}

// Active returns the active toasts of channel, newest first.
func (h *Hub) Active(channel string) []Toast {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Toast(nil), h.active[channel]...)
}

// Subscribe registers a subscriber on channel. Events newer than lastEventID
// that are still in the replay queue are returned in Missed; pass 0 on a
// fresh connection.
func (h *Hub) Subscribe(channel string, lastEventID int64) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.subID++
	sub := &Subscription{
		id:      h.subID,
		channel: channel,
		hub:     h,
		events:  make(chan Event, h.cfg.BufferSize),
	}
	if h.closed {
		close(sub.events)
		return sub
	}
	if lastEventID > 0 {
		sub.Missed = h.queue.missed(channel, lastEventID)
	}
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[int64]*Subscription)
	}
	h.subs[channel][sub.id] = sub
	h.logger.Debug("notification subscriber added", "channel", channel, "subscription", sub.id, "replayed", len(sub.Missed))
	return sub
}

// Forget drops all state of channel, typically at logout.
func (h *Hub) Forget(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.active, channel)
	h.queue.prune(channel)
}

// Close disconnects every subscriber. Publishing after Close is a no-op.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for channel, subs := range h.subs {
		for _, sub := range subs {
			close(sub.events)
		}
		delete(h.subs, channel)
	}
}

func (h *Hub) emitLocked(channel string, typ EventType, t Toast) {
	h.eventID++
	ev := Event{ID: h.eventID, Type: typ, Toast: t}
	h.queue.enqueue(channel, ev)

	for _, sub := range h.subs[channel] {
		select {
		case sub.events <- ev:
		default:
			h.logger.Warn("notification subscriber is slow, dropping event",
				"channel", channel,
				"subscription", sub.id,
				"event_id", ev.ID,
			)
		}
	}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.subs[sub.channel]
	if !ok {
		return
	}
	if _, ok := subs[sub.id]; !ok {
		return
	}
	delete(subs, sub.id)
	if len(subs) == 0 {
		delete(h.subs, sub.channel)
	}
	close(sub.events)
}

// Subscription receives the events of one channel.
type Subscription struct {
	// Missed holds replayed events, oldest first.
	Missed []Event

	id      int64
	channel string
	hub     *Hub
	events  chan Event
	once    sync.Once
}

// Events returns the delivery channel. It is closed by Unsubscribe or by
// closing the hub.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Unsubscribe stops delivery. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Notifier publishes to a fixed channel.
type Notifier struct {
	hub     *Hub
	channel string
}

// For returns a Notifier bound to channel.
func (h *Hub) For(channel string) Notifier {
	return Notifier{hub: h, channel: channel}
}

// Notify publishes a toast on the bound channel.
func (n Notifier) Notify(kind Kind, title, description string) {
	n.hub.Publish(n.channel, kind, title, description)
}
