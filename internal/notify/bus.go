// Package notify is the in-process publish/subscribe channel the service
// layer uses to tell other components that schedules, entries or reports
// changed. Computation packages never publish; only orchestrators do.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Topic names a kind of event.
type Topic string

const (
	TopicScheduleCreated         Topic = "schedule.created"
	TopicScheduleUpdated         Topic = "schedule.updated"
	TopicScheduleDeleted         Topic = "schedule.deleted"
	TopicSchedulesGenerated      Topic = "schedules.generated"
	TopicEntryCheckedIn          Topic = "entry.checked_in"
	TopicEntryCheckedOut         Topic = "entry.checked_out"
	TopicReconciliationCompleted Topic = "reconciliation.completed"
)

// Event is one published message. Payload must be safe to share between
// subscribers; publishers pass values, not pointers into live state.
type Event struct {
	Topic      Topic     `json:"topic"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// Publisher is the narrow interface services depend on.
type Publisher interface {
	Publish(ctx context.Context, topic Topic, payload any)
}

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Bus fans events out to subscribers. Publish never blocks: when a
// subscriber's queue is full the event is dropped for that subscriber.
type Bus struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	buffer  int
	now     func() time.Time
	logger  *slog.Logger
	dropped atomic.Uint64
	closed  bool
}

// Option customizes a Bus.
type Option func(*Bus)

// WithBuffer sets the per-subscriber queue length.
func WithBuffer(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.buffer = n
		}
	}
}

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger sets the logger used to report dropped events.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBus constructs an empty Bus.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[uint64]*Subscription),
		buffer: DefaultBuffer,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscription receives events for a set of topics.
type Subscription struct {
	id     uint64
	topics map[Topic]struct{}
	ch     chan Event
	bus    *Bus
	once   sync.Once
}

// Events returns the channel events are delivered on. It is closed when the
// subscription is cancelled or the bus is closed.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close cancels the subscription.
func (s *Subscription) Close() {
	s.bus.unsubscribe(s)
}

func (s *Subscription) wants(topic Topic) bool {
	if len(s.topics) == 0 {
		return true
	}
	_, ok := s.topics[topic]
	return ok
}

// Subscribe registers for the given topics, or every topic when none are given.
func (b *Bus) Subscribe(topics ...Topic) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		topics: make(map[Topic]struct{}, len(topics)),
		ch:     make(chan Event, b.buffer),
		bus:    b,
	}
	for _, topic := range topics {
		sub.topics[topic] = struct{}{}
	}
	if b.closed {
		sub.once.Do(func() { close(sub.ch) })
		return sub
	}
	b.subs[sub.id] = sub
	return sub
}

// Publish delivers an event to every interested subscriber without blocking.
func (b *Bus) Publish(ctx context.Context, topic Topic, payload any) {
	event := Event{Topic: topic, OccurredAt: b.now().UTC(), Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for _, sub := range b.subs {
		if !sub.wants(topic) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.dropped.Add(1)
			b.logger.WarnContext(ctx, "notification dropped for slow subscriber",
				slog.String("topic", string(topic)),
				slog.Uint64("subscription", sub.id),
			)
		}
	}
}

// Dropped reports how many deliveries were discarded because a queue was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Subscribers reports the number of live subscriptions.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close cancels every subscription. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		sub.once.Do(func() { close(sub.ch) })
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub.id)
	sub.once.Do(func() { close(sub.ch) })
}

// Discard is a Publisher that drops every event.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, Topic, any) {}
