package console

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/espot/internal/domain"
)

func TestPresenter_ExecuteTasks(t *testing.T) {
	p, dispatcher, _, _ := newTestPresenter(t)
	ctx := context.Background()

	tests := []struct {
		line string
		want domain.Task
	}{
		{"login alice secret", domain.LoginTask{Credentials: domain.Credentials{Username: "alice", Password: "secret"}}},
		{"playlists", domain.FetchUserPlaylistsTask{}},
		{"FEATURED", domain.FetchFeaturedPlaylistsTask{}},
		{"search daft punk", domain.SearchTask{Query: "daft punk", Kind: domain.SearchTracks}},
		{"find road trip", domain.SearchTask{Query: "road trip", Kind: domain.SearchPlaylists}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			require.NoError(t, p.Execute(ctx, tt.line))
			assert.Equal(t, tt.want, dispatcher.lastTask())
		})
	}
}

func TestPresenter_ExecuteControls(t *testing.T) {
	p, dispatcher, _, _ := newTestPresenter(t)
	ctx := context.Background()

	tests := []struct {
		line string
		want domain.Control
	}{
		{"play", domain.PlayControl{}},
		{"pause", domain.PauseControl{}},
		{"toggle", domain.TogglePlayPauseControl{}},
		{"stop", domain.StopControl{}},
		{"next", domain.NextTrackControl{}},
		{"prev", domain.PreviousTrackControl{}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			require.NoError(t, p.Execute(ctx, tt.line))
			assert.Equal(t, tt.want, dispatcher.lastControl())
		})
	}
}

func TestPresenter_ExecuteListingReferences(t *testing.T) {
	p, dispatcher, _, _ := newTestPresenter(t)
	ctx := context.Background()

	p.onResult(domain.UserPlaylistsResult{Playlists: testPlaylists()})
	p.onResult(domain.PlaylistTracksResult{Playlist: "pl1", Tracks: testTracks()})

	require.NoError(t, p.Execute(ctx, "open 2"))
	assert.Equal(t, domain.FetchPlaylistTracksTask{Playlist: testPlaylists()[1]}, dispatcher.lastTask())

	require.NoError(t, p.Execute(ctx, "recommend 1"))
	assert.Equal(t, domain.FetchRecommendationsTask{Playlist: testPlaylists()[0]}, dispatcher.lastTask())

	require.NoError(t, p.Execute(ctx, "shuffle"))
	assert.Equal(t, domain.StartQueueControl{Tracks: testTracks()}, dispatcher.lastControl())

	require.NoError(t, p.Execute(ctx, "play 3"))
	assert.Equal(t, domain.StartQueueAtControl{Tracks: testTracks(), Anchor: "t3"}, dispatcher.lastControl())

	require.NoError(t, p.Execute(ctx, "add 2 1"))
	assert.Equal(t, domain.AddTrackToPlaylistTask{Track: "t2", Playlist: "pl1"}, dispatcher.lastTask())

	require.NoError(t, p.Execute(ctx, "remove spotify:track:xyz pl9"))
	assert.Equal(t, domain.RemoveTrackFromPlaylistTask{Track: "spotify:track:xyz", Playlist: "pl9"}, dispatcher.lastTask(),
		"non-numeric arguments pass through to the worker")
}

func TestPresenter_ExecuteErrors(t *testing.T) {
	p, dispatcher, _, _ := newTestPresenter(t)
	ctx := context.Background()

	assert.NoError(t, p.Execute(ctx, "   "), "blank lines are ignored")
	assert.ErrorIs(t, p.Execute(ctx, "quit"), ErrQuit)
	assert.ErrorIs(t, p.Execute(ctx, "exit"), ErrQuit)
	assert.ErrorIs(t, p.Execute(ctx, "dance"), ErrUnknownCommand)

	err := p.Execute(ctx, "login alice")
	require.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, err.Error(), "login <user> <password>")

	assert.ErrorIs(t, p.Execute(ctx, "search"), ErrUsage)
	assert.ErrorIs(t, p.Execute(ctx, "open x"), ErrUsage)
	assert.Error(t, p.Execute(ctx, "open 1"), "no playlists listed yet")
	assert.Error(t, p.Execute(ctx, "shuffle"), "no tracks listed yet")
	assert.Error(t, p.Execute(ctx, "play 1"))

	assert.Empty(t, dispatcher.tasks)
	assert.Empty(t, dispatcher.controls)

	dispatcher.err = errors.New("worker stopped")
	assert.EqualError(t, p.Execute(ctx, "pause"), "worker stopped")
}

func TestPresenter_ExecuteHelp(t *testing.T) {
	p, _, view, _ := newTestPresenter(t)

	require.NoError(t, p.Execute(context.Background(), "help"))
	last := view.last()
	assert.True(t, strings.HasPrefix(last, "note:Commands:"))
	for name := range commands {
		assert.Contains(t, last, name)
	}
}

func TestPresenter_ReadCommands(t *testing.T) {
	p, dispatcher, view, _ := newTestPresenter(t)

	in := strings.NewReader("playlists\nbogus\n\npause\nquit\nstop\n")
	require.NoError(t, p.ReadCommands(context.Background(), in))

	assert.Equal(t, []domain.Task{domain.FetchUserPlaylistsTask{}}, dispatcher.tasks)
	assert.Equal(t, []domain.Control{domain.PauseControl{}}, dispatcher.controls, "input after quit is not read")
	assert.Equal(t, []string{"error:Command failed:unknown command: bogus"}, view.snapshot())
}

func TestPresenter_ReadCommandsStopsOnCancel(t *testing.T) {
	p, dispatcher, _, _ := newTestPresenter(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.ReadCommands(ctx, strings.NewReader("playlists\n")))
	assert.Empty(t, dispatcher.tasks)
}

func TestIndex(t *testing.T) {
	i, err := index("3", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	_, err = index("0", 3)
	assert.Error(t, err)

	_, err = index("4", 3)
	assert.Error(t, err)

	_, err = index("two", 3)
	assert.ErrorIs(t, err, ErrUsage)
}
