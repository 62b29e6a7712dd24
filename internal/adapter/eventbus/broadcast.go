// Package eventbus provides implementations of the StateBroadcaster interface.
package eventbus

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/tejashwikalptaru/espot/internal/domain"
	"github.com/tejashwikalptaru/espot/internal/ports"
)

// DefaultBuffer is used when Subscribe is asked for a non-positive buffer.
const DefaultBuffer = 16

// Broadcaster delivers every published state update to each subscriber's
// buffered channel.
//
// Thread-safety: This implementation is thread-safe. Publishing never blocks;
// when a subscriber's buffer is full the update is dropped for that subscriber
// and counted.
type Broadcaster struct {
	// Dependencies
	logger *slog.Logger

	// subscribers map subscription ids to their delivery channels
	subscribers map[domain.SubscriptionID]chan domain.StateUpdate

	// mu protects subscribers and closed
	mu sync.RWMutex

	// dropped counts updates lost to full buffers
	dropped atomic.Uint64

	closed bool
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		logger:      logger.With(slog.String("adapter", "broadcaster")),
		subscribers: make(map[domain.SubscriptionID]chan domain.StateUpdate),
	}
}

// Publish delivers update to all subscribers.
// If the broadcaster is closed, this method does nothing.
func (b *Broadcaster) Publish(update domain.StateUpdate) {
	if update == nil {
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for id, ch := range b.subscribers {
		select {
		case ch <- update:
		default:
			b.dropped.Add(1)
			b.logger.Warn("subscriber lagging, update dropped",
				slog.String("subscription", string(id)),
				slog.String("update", string(update.Type())))
		}
	}

	b.logger.Debug("state update published",
		slog.String("update", string(update.Type())),
		slog.Int("subscribers", len(b.subscribers)))
}

// Subscribe registers a new subscriber.
// Subscribing to a closed broadcaster returns an already-closed channel.
func (b *Broadcaster) Subscribe(buffer int) (domain.SubscriptionID, <-chan domain.StateUpdate) {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	id := domain.SubscriptionID(uuid.NewString())
	ch := make(chan domain.StateUpdate, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return id, ch
	}

	b.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscription and closes its channel.
// If the subscription ID is unknown, this is a no-op.
func (b *Broadcaster) Unsubscribe(id domain.SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subscribers[id]
	if !ok {
		return
	}
	delete(b.subscribers, id)
	close(ch)
}

// Close closes every subscription channel.
// Calling Close more than once is safe.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Dropped returns how many deliveries were skipped because a buffer was full.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Verify that Broadcaster implements the StateBroadcaster interface
var _ ports.StateBroadcaster = (*Broadcaster)(nil)
