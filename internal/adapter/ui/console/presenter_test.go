package console

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/espot/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/espot/internal/domain"
	"github.com/tejashwikalptaru/espot/internal/logger"
	"github.com/tejashwikalptaru/espot/internal/testutil"
)

// fakeDispatcher records what the presenter sends to the worker.
type fakeDispatcher struct {
	mu       sync.Mutex
	tasks    []domain.Task
	controls []domain.Control
	results  chan domain.TaskResult
	err      error
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{results: make(chan domain.TaskResult, 8)}
}

func (d *fakeDispatcher) Submit(_ context.Context, task domain.Task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.tasks = append(d.tasks, task)
	return nil
}

func (d *fakeDispatcher) Send(_ context.Context, control domain.Control) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.controls = append(d.controls, control)
	return nil
}

func (d *fakeDispatcher) Results() <-chan domain.TaskResult {
	return d.results
}

func (d *fakeDispatcher) lastTask() domain.Task {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.tasks) == 0 {
		return nil
	}
	return d.tasks[len(d.tasks)-1]
}

func (d *fakeDispatcher) lastControl() domain.Control {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.controls) == 0 {
		return nil
	}
	return d.controls[len(d.controls)-1]
}

// recordingView keeps every call as a line.
type recordingView struct {
	mu    sync.Mutex
	calls []string
	art   string
}

func (v *recordingView) record(s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, s)
}

func (v *recordingView) SetTrackInfo(track domain.TrackInfo, artworkPath string) {
	v.mu.Lock()
	v.art = artworkPath
	v.mu.Unlock()
	v.record("track:" + track.Name)
}

func (v *recordingView) SetPlayState(status domain.PlaybackStatus) {
	v.record("state:" + status.String())
}

func (v *recordingView) ShowPlaylists(title string, playlists []domain.PlaylistRef) {
	names := make([]string, len(playlists))
	for i, pl := range playlists {
		names[i] = pl.Name
	}
	v.record("playlists:" + title + ":" + strings.Join(names, ","))
}

func (v *recordingView) ShowTracks(title string, tracks []domain.TrackInfo) {
	names := make([]string, len(tracks))
	for i, t := range tracks {
		names[i] = t.Name
	}
	v.record("tracks:" + title + ":" + strings.Join(names, ","))
}

func (v *recordingView) ShowNotification(title, message string) {
	v.record("note:" + title + ":" + message)
}

func (v *recordingView) ShowError(title, message string) {
	v.record("error:" + title + ":" + message)
}

func (v *recordingView) snapshot() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.calls...)
}

func (v *recordingView) last() string {
	calls := v.snapshot()
	if len(calls) == 0 {
		return ""
	}
	return calls[len(calls)-1]
}

func newTestPresenter(t *testing.T) (*Presenter, *fakeDispatcher, *recordingView, *eventbus.Broadcaster) {
	t.Helper()
	dispatcher := newFakeDispatcher()
	view := &recordingView{}
	states := eventbus.NewBroadcaster(logger.NewSilentLogger())
	t.Cleanup(states.Close)

	artwork := func(id string) (string, bool) {
		if id == "alb1" {
			return "/tmp/cover-alb1", true
		}
		return "", false
	}
	p := NewPresenter(logger.NewTestLogger(), dispatcher, states, view, artwork)
	return p, dispatcher, view, states
}

func testTracks() []domain.TrackInfo {
	return []domain.TrackInfo{
		{ID: "t1", Name: "One", Artists: []string{"A"}, AlbumID: "alb1", AlbumName: "First", DurationMS: 61000},
		{ID: "t2", Name: "Two", Artists: []string{"B"}, AlbumID: "alb2", AlbumName: "Second", DurationMS: 125000},
		{ID: "t3", Name: "Three", Artists: []string{"C"}, AlbumID: "alb3", AlbumName: "Third", DurationMS: 3000},
	}
}

func testPlaylists() []domain.PlaylistRef {
	return []domain.PlaylistRef{
		{ID: "pl1", Name: "Mix", TrackIDs: []domain.TrackID{"t1", "t2"}},
		{ID: "pl2", Name: "Chill", TrackIDs: []domain.TrackID{"t3"}},
	}
}

func TestPresenter_OnResultListings(t *testing.T) {
	p, _, view, _ := newTestPresenter(t)

	p.onResult(domain.UserPlaylistsResult{Playlists: testPlaylists()})
	assert.Equal(t, "playlists:Your playlists:Mix,Chill", view.last())

	p.onResult(domain.PlaylistTracksResult{Playlist: "pl1", Tracks: testTracks()[:2]})
	assert.Equal(t, "tracks:Mix:One,Two", view.last(), "titled with the playlist name")

	p.onResult(domain.RecommendationsResult{Playlist: "pl2", Tracks: testTracks()[2:]})
	assert.Equal(t, "tracks:Recommended for Chill:Three", view.last())

	p.onResult(domain.FeaturedPlaylistsResult{Message: "Monday picks", Playlists: testPlaylists()[:1]})
	assert.Equal(t, "playlists:Monday picks:Mix", view.last())

	p.onResult(domain.FeaturedPlaylistsResult{})
	assert.Equal(t, "playlists:Featured playlists:", view.last())
}

func TestPresenter_OnResultFailures(t *testing.T) {
	p, _, view, _ := newTestPresenter(t)
	boom := errors.New("boom")

	p.onResult(domain.LoginResult{Err: boom})
	assert.Equal(t, "error:Login failed:boom", view.last())

	p.onResult(domain.LoginResult{})
	assert.Equal(t, "error:Login failed:unknown error", view.last())

	p.onResult(domain.UserPlaylistsResult{Err: boom})
	assert.Equal(t, "error:Could not load playlists:boom", view.last())

	p.onResult(domain.PlaylistTracksResult{Err: boom})
	assert.Equal(t, "error:Could not load tracks:boom", view.last())

	p.onResult(domain.SearchResult{Query: "x", Err: boom})
	assert.Equal(t, "error:Search failed:boom", view.last())

	p.onResult(domain.PlaylistMutationResult{Track: "t1", Playlist: "pl1", Added: true, Err: boom})
	assert.Equal(t, "error:Add failed:boom", view.last())

	p.onResult(domain.PlaylistMutationResult{Track: "t1", Playlist: "pl1", Err: boom})
	assert.Equal(t, "error:Remove failed:boom", view.last())
}

func TestPresenter_OnResultSuccessNotes(t *testing.T) {
	p, _, view, _ := newTestPresenter(t)

	p.onResult(domain.LoginResult{Success: true})
	assert.True(t, strings.HasPrefix(view.last(), "note:Logged in:"))

	p.onResult(domain.PlaylistMutationResult{Track: "t1", Playlist: "pl1", Added: true})
	assert.Equal(t, "note:Added:t1 / pl1", view.last())

	p.onResult(domain.PlaylistMutationResult{Track: "t1", Playlist: "pl1"})
	assert.Equal(t, "note:Removed:t1 / pl1", view.last())
}

func TestPresenter_OnResultSearch(t *testing.T) {
	p, _, view, _ := newTestPresenter(t)

	p.onResult(domain.SearchResult{Query: "one", Kind: domain.SearchTracks, Tracks: testTracks()[:1]})
	assert.Equal(t, "tracks:Results for 'one':One", view.last())

	p.onResult(domain.SearchResult{Query: "mix", Kind: domain.SearchPlaylists, Playlists: testPlaylists()[:1]})
	assert.Equal(t, "playlists:Results for 'mix':Mix", view.last())
}

func TestPresenter_OnUpdate(t *testing.T) {
	p, _, view, _ := newTestPresenter(t)
	track := testTracks()[0]

	_, ok := p.Current()
	assert.False(t, ok)
	assert.Equal(t, domain.StatusStopped, p.Status())

	p.onUpdate(domain.NewNowPlayingUpdate(track))
	current, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, track.ID, current.ID)
	assert.Equal(t, domain.StatusPlaying, p.Status())
	assert.Equal(t, "/tmp/cover-alb1", view.art)
	assert.Equal(t, []string{"track:One", "state:playing"}, view.snapshot())

	p.onUpdate(domain.NewPausedUpdate())
	assert.Equal(t, domain.StatusPaused, p.Status())
	assert.Equal(t, "state:paused", view.last())

	p.onUpdate(domain.NewResumedUpdate())
	assert.Equal(t, domain.StatusPlaying, p.Status())

	p.onUpdate(domain.NewStoppedUpdate())
	_, ok = p.Current()
	assert.False(t, ok, "stopping clears the current track")
	assert.Equal(t, "state:stopped", view.last())
}

func TestPresenter_OnUpdateWithoutArtwork(t *testing.T) {
	view := &recordingView{}
	p := NewPresenter(logger.NewSilentLogger(), newFakeDispatcher(), nil, view, nil)

	p.onUpdate(domain.NewNowPlayingUpdate(testTracks()[1]))
	assert.Empty(t, view.art)
}

func TestPresenter_Run(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	p, dispatcher, view, states := newTestPresenter(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return states.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	dispatcher.results <- domain.UserPlaylistsResult{Playlists: testPlaylists()}
	states.Publish(domain.NewNowPlayingUpdate(testTracks()[0]))

	require.Eventually(t, func() bool {
		calls := view.snapshot()
		return contains(calls, "playlists:Your playlists:Mix,Chill") && contains(calls, "track:One")
	}, time.Second, 5*time.Millisecond)

	close(dispatcher.results)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("presenter did not stop after results closed")
	}
	assert.Zero(t, states.SubscriberCount())
}

func TestPresenter_RunSurvivesBroadcasterClose(t *testing.T) {
	p, dispatcher, view, states := newTestPresenter(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	require.Eventually(t, func() bool { return states.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	states.Close()
	dispatcher.results <- domain.LoginResult{Success: true}
	require.Eventually(t, func() bool {
		return strings.HasPrefix(view.last(), "note:Logged in")
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func contains(calls []string, want string) bool {
	for _, c := range calls {
		if c == want {
			return true
		}
	}
	return false
}
