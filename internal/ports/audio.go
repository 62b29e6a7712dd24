// Package ports define interfaces for dependency inversion.
// These interfaces keep the worker independent of the streaming daemon and the Web API SDK.
package ports

import (
	"context"
	"time"

	"github.com/tejashwikalptaru/espot/internal/domain"
)

// PlaybackEngine is an authenticated audio session.
// It abstracts the streaming daemon and allows testing with mocks.
//
// The worker is the only caller, so implementations need not serialize calls themselves,
// but Events must be safe to read from another goroutine.
type PlaybackEngine interface {
	// Load replaces the current track with id.
	// autoplay starts audio as soon as the track is ready; offset is the start position.
	//
	// Returns an *domain.EngineError if the engine rejects the track.
	Load(id domain.TrackID, autoplay bool, offset time.Duration) error

	// Play starts or resumes playback of the loaded track.
	Play() error

	// Pause pauses playback.
	Pause() error

	// Stop stops playback. The loaded track is dropped.
	Stop() error

	// Preload hints that id will be loaded next so the engine can buffer it.
	Preload(id domain.TrackID) error

	// Events returns the transport event stream.
	// The channel is closed when the session ends.
	Events() <-chan domain.Event

	// Close ends the session and releases its resources.
	Close() error
}

// EngineConnector opens playback sessions.
type EngineConnector interface {
	// Connect establishes a session for the given account.
	// Returns an error when the engine is unreachable or rejects the credentials.
	Connect(ctx context.Context, creds domain.Credentials) (PlaybackEngine, error)
}
