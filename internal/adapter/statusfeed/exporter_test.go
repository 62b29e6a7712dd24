package statusfeed

import (
	"bytes"
	"context"
	"encoding/json"
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

// syncBuffer is a bytes.Buffer safe for one writer and one reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimSpace(b.buf.String()), "\n")
}

func testTrack() domain.TrackInfo {
	return domain.TrackInfo{
		ID:         "abc",
		Name:       "Song",
		DurationMS: 180000,
		Artists:    []string{"A", "B"},
		AlbumID:    "alb",
		AlbumName:  "Album",
	}
}

func TestExporter_Apply(t *testing.T) {
	var out bytes.Buffer
	artwork := func(id string) (string, bool) {
		if id == "alb" {
			return "/cache/cover-alb", true
		}
		return "", false
	}
	e := NewExporter(logger.NewSilentLogger(), nil, &out, artwork, 0)
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	initial := e.Snapshot()
	assert.Equal(t, "stopped", initial.Status)
	assert.True(t, initial.Shuffle)
	assert.Equal(t, "Playlist", initial.LoopStatus)
	assert.False(t, initial.CanPlay)

	require.NoError(t, e.apply(domain.NewNowPlayingUpdate(testTrack()), now))
	s := e.Snapshot()
	assert.Equal(t, "playing", s.Status)
	require.NotNil(t, s.Track)
	assert.Equal(t, "spotify:track:abc", s.Track.URI)
	assert.Equal(t, "/cache/cover-alb", s.Track.ArtPath)
	assert.True(t, s.CanPlay)
	assert.Equal(t, now, s.UpdatedAt)

	require.NoError(t, e.apply(domain.NewPausedUpdate(), now))
	assert.Equal(t, "paused", e.Snapshot().Status)
	assert.NotNil(t, e.Snapshot().Track, "pausing keeps the track")

	require.NoError(t, e.apply(domain.NewResumedUpdate(), now))
	assert.Equal(t, "playing", e.Snapshot().Status)

	require.NoError(t, e.apply(domain.NewStoppedUpdate(), now))
	assert.Equal(t, "stopped", e.Snapshot().Status)
	assert.Nil(t, e.Snapshot().Track, "stopping clears the track")
	assert.False(t, e.Snapshot().CanPlay)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)

	var first Snapshot
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "Song", first.Track.Title)
	assert.Equal(t, []string{"A", "B"}, first.Track.Artists)
	assert.Equal(t, int64(180000), first.Track.DurationMS)
}

func TestExporter_Run(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	states := eventbus.NewBroadcaster(logger.NewSilentLogger())
	defer states.Close()

	var out syncBuffer
	e := NewExporter(logger.NewTestLogger(), states, &out, nil, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, func() bool { return states.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	states.Publish(domain.NewNowPlayingUpdate(testTrack()))
	states.Publish(domain.NewPausedUpdate())

	require.Eventually(t, func() bool { return len(out.lines()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, out.lines()[1], `"status":"paused"`)

	cancel()
	require.NoError(t, <-done)
	assert.Zero(t, states.SubscriberCount(), "unsubscribed on exit")
}

func TestExporter_RunStopsWhenBroadcasterCloses(t *testing.T) {
	states := eventbus.NewBroadcaster(logger.NewSilentLogger())
	e := NewExporter(logger.NewSilentLogger(), states, &syncBuffer{}, nil, 0)

	done := make(chan error, 1)
	go func() { done <- e.Run(context.Background()) }()
	require.Eventually(t, func() bool { return states.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	states.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("exporter did not stop")
	}
}
