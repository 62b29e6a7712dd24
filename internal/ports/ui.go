// Package ports define the View interface for view abstraction.
// This interface allows the presenter to update the UI without depending on a terminal directly.
package ports

import (
	"context"

	"github.com/tejashwikalptaru/espot/internal/domain"
)

// View is the interface for the user interface layer.
//
// The presenter receives task results and state updates and calls these
// methods to render them. Implementations do not talk to the worker.
//
// Thread-safety: the presenter calls a View from its own goroutine and from
// the input goroutine; implementations must serialize output.
type View interface {
	// SetTrackInfo shows the track now playing. artworkPath is empty when no cover is cached.
	SetTrackInfo(track domain.TrackInfo, artworkPath string)

	// SetPlayState shows the playback status.
	SetPlayState(status domain.PlaybackStatus)

	// ShowPlaylists lists playlists under a heading, numbered from 1.
	ShowPlaylists(title string, playlists []domain.PlaylistRef)

	// ShowTracks lists tracks under a heading, numbered from 1.
	ShowTracks(title string, tracks []domain.TrackInfo)

	// ShowNotification displays a short message.
	ShowNotification(title, message string)

	// ShowError displays an error.
	ShowError(title, message string)
}

// Dispatcher is the worker's inbound side as seen by a UI.
type Dispatcher interface {
	Submit(ctx context.Context, task domain.Task) error
	Send(ctx context.Context, control domain.Control) error
	Results() <-chan domain.TaskResult
}
