// Package ports define the StateBroadcaster interface for playback notifications.
package ports

import (
	"github.com/tejashwikalptaru/espot/internal/domain"
)

// StateBroadcaster fans state updates out to independent subscribers.
//
// The worker publishes; the UI and the status exporter each hold their own
// subscription and drain it at their own pace.
//
// Thread-safety: Implementations must be thread-safe.
//
// Example usage:
//
//	id, updates := broadcaster.Subscribe(16)
//	defer broadcaster.Unsubscribe(id)
//	for update := range updates {
//	    if np, ok := update.(domain.NowPlayingUpdate); ok {
//	        fmt.Println(np.Track.Name)
//	    }
//	}
type StateBroadcaster interface {
	// Publish delivers update to every subscriber without blocking.
	// A subscriber whose buffer is full misses the update.
	Publish(update domain.StateUpdate)

	// Subscribe registers a new subscriber with the given buffer size.
	// The returned channel is closed by Unsubscribe or Close.
	Subscribe(buffer int) (domain.SubscriptionID, <-chan domain.StateUpdate)

	// Unsubscribe removes a subscription. Unknown ids are a no-op.
	Unsubscribe(id domain.SubscriptionID)

	// Close closes every subscription. Publish after Close is a no-op.
	Close()
}
