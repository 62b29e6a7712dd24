// Package console provides a line-oriented terminal front-end.
package console

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/espot/internal/domain"
	"github.com/tejashwikalptaru/espot/internal/ports"
)

// ArtworkLocator resolves a cover id to a cached file.
type ArtworkLocator func(id string) (string, bool)

// Presenter implements the Presenter pattern (MVP architecture).
// It turns typed commands into worker tasks and controls, and renders task
// results and state updates through the View.
//
// Responsibilities:
// - Subscribe to state updates
// - Consume task results
// - Remember the last listings so commands can refer to entries by number
//
// Thread-safety: All operations are thread-safe via sync.RWMutex.
type Presenter struct {
	// Dependencies
	logger     *slog.Logger
	dispatcher ports.Dispatcher
	states     ports.StateBroadcaster
	view       ports.View
	artwork    ArtworkLocator

	// Presentation state
	playlists []domain.PlaylistRef
	tracks    []domain.TrackInfo
	current   *domain.TrackInfo
	status    domain.PlaybackStatus

	mu sync.RWMutex
}

// NewPresenter creates a new presenter. artwork may be nil.
func NewPresenter(
	logger *slog.Logger,
	dispatcher ports.Dispatcher,
	states ports.StateBroadcaster,
	view ports.View,
	artwork ArtworkLocator,
) *Presenter {
	return &Presenter{
		logger:     logger.With(slog.String("adapter", "console")),
		dispatcher: dispatcher,
		states:     states,
		view:       view,
		artwork:    artwork,
		status:     domain.StatusStopped,
	}
}

// Run renders results and state updates until ctx is done or the worker's
// result channel closes.
func (p *Presenter) Run(ctx context.Context) error {
	id, updates := p.states.Subscribe(0)
	defer p.states.Unsubscribe(id)

	results := p.dispatcher.Results()
	for {
		select {
		case <-ctx.Done():
			return nil
		case r, ok := <-results:
			if !ok {
				return nil
			}
			p.onResult(r)
		case u, ok := <-updates:
			if !ok {
				// Broadcaster closed; keep rendering results.
				updates = nil
				continue
			}
			p.onUpdate(u)
		}
	}
}

// Current returns the track now playing, if any.
func (p *Presenter) Current() (domain.TrackInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return domain.TrackInfo{}, false
	}
	return *p.current, true
}

// Status returns the last known playback status.
func (p *Presenter) Status() domain.PlaybackStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Result handlers

func (p *Presenter) onResult(r domain.TaskResult) {
	switch res := r.(type) {
	case domain.LoginResult:
		p.onLogin(res)
	case domain.UserPlaylistsResult:
		p.onPlaylists("Your playlists", res.Playlists, res.Err)
	case domain.FeaturedPlaylistsResult:
		title := res.Message
		if title == "" {
			title = "Featured playlists"
		}
		p.onPlaylists(title, res.Playlists, res.Err)
	case domain.PlaylistTracksResult:
		p.onTracks(p.playlistName(res.Playlist), res.Tracks, res.Err)
	case domain.RecommendationsResult:
		p.onTracks("Recommended for "+p.playlistName(res.Playlist), res.Tracks, res.Err)
	case domain.SearchResult:
		p.onSearch(res)
	case domain.PlaylistMutationResult:
		p.onMutation(res)
	default:
		p.logger.Debug("unhandled result", slog.Any("result", r))
	}
}

func (p *Presenter) onLogin(res domain.LoginResult) {
	if res.Err != nil || !res.Success {
		p.showFailure("Login failed", res.Err)
		return
	}
	p.view.ShowNotification("Logged in", "type 'playlists' to list your playlists")
}

func (p *Presenter) onPlaylists(title string, playlists []domain.PlaylistRef, err error) {
	if err != nil {
		p.showFailure("Could not load playlists", err)
		return
	}
	p.mu.Lock()
	p.playlists = playlists
	p.mu.Unlock()

	p.view.ShowPlaylists(title, playlists)
}

func (p *Presenter) onTracks(title string, tracks []domain.TrackInfo, err error) {
	if err != nil {
		p.showFailure("Could not load tracks", err)
		return
	}
	p.mu.Lock()
	p.tracks = tracks
	p.mu.Unlock()

	p.view.ShowTracks(title, tracks)
}

func (p *Presenter) onSearch(res domain.SearchResult) {
	if res.Err != nil {
		p.showFailure("Search failed", res.Err)
		return
	}
	title := "Results for '" + res.Query + "'"
	if res.Kind == domain.SearchPlaylists {
		p.onPlaylists(title, res.Playlists, nil)
		return
	}
	p.onTracks(title, res.Tracks, nil)
}

func (p *Presenter) onMutation(res domain.PlaylistMutationResult) {
	op, done := "Remove", "Removed"
	if res.Added {
		op, done = "Add", "Added"
	}
	if res.Err != nil {
		p.showFailure(op+" failed", res.Err)
		return
	}
	p.view.ShowNotification(done, res.Track+" / "+res.Playlist)
}

func (p *Presenter) showFailure(title string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	p.view.ShowError(title, msg)
}

func (p *Presenter) playlistName(id domain.PlaylistID) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, pl := range p.playlists {
		if pl.ID == id {
			return pl.Name
		}
	}
	return string(id)
}

// State update handlers

func (p *Presenter) onUpdate(u domain.StateUpdate) {
	switch upd := u.(type) {
	case domain.NowPlayingUpdate:
		track := upd.Track
		p.setState(&track, domain.StatusPlaying)

		var art string
		if p.artwork != nil {
			art, _ = p.artwork(track.CoverID())
		}
		p.view.SetTrackInfo(track, art)
		p.view.SetPlayState(domain.StatusPlaying)
	case domain.PausedUpdate:
		p.setStatus(domain.StatusPaused)
	case domain.ResumedUpdate:
		p.setStatus(domain.StatusPlaying)
	case domain.StoppedUpdate:
		p.setState(nil, domain.StatusStopped)
		p.view.SetPlayState(domain.StatusStopped)
	}
}

func (p *Presenter) setStatus(status domain.PlaybackStatus) {
	p.mu.Lock()
	p.status = status
	p.mu.Unlock()
	p.view.SetPlayState(status)
}

func (p *Presenter) setState(track *domain.TrackInfo, status domain.PlaybackStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = track
	p.status = status
}
