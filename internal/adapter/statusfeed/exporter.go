// Package statusfeed mirrors playback state as JSON lines for status bars and scripts.
package statusfeed

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/espot/internal/domain"
	"github.com/tejashwikalptaru/espot/internal/ports"
)

// Track is the exported view of the current track.
type Track struct {
	ID         domain.TrackID `json:"id"`
	URI        string         `json:"uri"`
	Title      string         `json:"title"`
	Artists    []string       `json:"artists"`
	Album      string         `json:"album"`
	DurationMS int64          `json:"duration_ms"`
	ArtPath    string         `json:"art_path,omitempty"`
}

// Snapshot is one line of the feed.
type Snapshot struct {
	Status     string    `json:"status"`
	Track      *Track    `json:"track,omitempty"`
	Shuffle    bool      `json:"shuffle"`
	LoopStatus string    `json:"loop_status"`
	CanPlay    bool      `json:"can_play"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ArtworkLocator resolves a cover id to a cached file.
type ArtworkLocator func(id string) (string, bool)

// Exporter subscribes to state updates and writes a snapshot after each one.
//
// Queues are always shuffled and wrap around, so Shuffle is always true and
// LoopStatus is always "Playlist".
type Exporter struct {
	logger  *slog.Logger
	states  ports.StateBroadcaster
	artwork ArtworkLocator
	buffer  int

	mu       sync.Mutex
	out      *json.Encoder
	snapshot Snapshot
}

// NewExporter creates an exporter writing to out. artwork may be nil.
func NewExporter(logger *slog.Logger, states ports.StateBroadcaster, out io.Writer, artwork ArtworkLocator, buffer int) *Exporter {
	return &Exporter{
		logger:  logger.With(slog.String("adapter", "statusfeed")),
		states:  states,
		artwork: artwork,
		buffer:  buffer,
		out:     json.NewEncoder(out),
		snapshot: Snapshot{
			Status:     domain.StatusStopped.String(),
			Shuffle:    true,
			LoopStatus: "Playlist",
		},
	}
}

// Run writes snapshots until ctx is done or the broadcaster closes.
func (e *Exporter) Run(ctx context.Context) error {
	id, updates := e.states.Subscribe(e.buffer)
	defer e.states.Unsubscribe(id)

	e.logger.Debug("status feed started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := e.apply(update, time.Now()); err != nil {
				e.logger.Warn("failed to write status", slog.Any("error", err))
			}
		}
	}
}

// Snapshot returns the latest state.
func (e *Exporter) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

func (e *Exporter) apply(update domain.StateUpdate, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch u := update.(type) {
	case domain.PausedUpdate:
		e.snapshot.Status = domain.StatusPaused.String()
	case domain.ResumedUpdate:
		e.snapshot.Status = domain.StatusPlaying.String()
	case domain.StoppedUpdate:
		e.snapshot.Status = domain.StatusStopped.String()
		e.snapshot.Track = nil
	case domain.NowPlayingUpdate:
		e.snapshot.Status = domain.StatusPlaying.String()
		e.snapshot.Track = e.trackView(u.Track)
	default:
		return nil
	}
	e.snapshot.CanPlay = e.snapshot.Track != nil
	e.snapshot.UpdatedAt = now

	return e.out.Encode(e.snapshot)
}

func (e *Exporter) trackView(t domain.TrackInfo) *Track {
	view := &Track{
		ID:         t.ID,
		URI:        t.ID.URI(),
		Title:      t.Name,
		Artists:    append([]string(nil), t.Artists...),
		Album:      t.AlbumName,
		DurationMS: t.DurationMS,
	}
	if e.artwork != nil {
		if path, ok := e.artwork(t.CoverID()); ok {
			view.ArtPath = path
		}
	}
	return view
}
