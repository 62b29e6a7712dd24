package console

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tejashwikalptaru/espot/internal/domain"
	"github.com/tejashwikalptaru/espot/internal/ports"
)

// TextView renders to a plain text stream.
type TextView struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTextView creates a view writing to out.
func NewTextView(out io.Writer) *TextView {
	return &TextView{out: out}
}

func (v *TextView) printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, format, args...)
}

// SetTrackInfo prints the now-playing line.
func (v *TextView) SetTrackInfo(track domain.TrackInfo, artworkPath string) {
	line := fmt.Sprintf("♪ %s - %s (%s) [%s]", track.Name, track.ArtistLine(), track.AlbumName, clock(track.Duration()))
	if artworkPath != "" {
		line += " cover: " + artworkPath
	}
	v.printf("%s\n", line)
}

// SetPlayState prints the playback status.
func (v *TextView) SetPlayState(status domain.PlaybackStatus) {
	v.printf("[%s]\n", status)
}

// ShowPlaylists prints a numbered playlist listing.
func (v *TextView) ShowPlaylists(title string, playlists []domain.PlaylistRef) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fmt.Fprintf(v.out, "%s (%d)\n", title, len(playlists))
	for i, pl := range playlists {
		fmt.Fprintf(v.out, "%4d. %s (%d tracks)\n", i+1, pl.Name, len(pl.TrackIDs))
	}
}

// ShowTracks prints a numbered track listing.
func (v *TextView) ShowTracks(title string, tracks []domain.TrackInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()

	fmt.Fprintf(v.out, "%s (%d)\n", title, len(tracks))
	for i, t := range tracks {
		fmt.Fprintf(v.out, "%4d. %s - %s %s\n", i+1, t.Name, t.ArtistLine(), clock(t.Duration()))
	}
}

// ShowNotification prints an informational message.
func (v *TextView) ShowNotification(title, message string) {
	v.printf("%s: %s\n", title, message)
}

// ShowError prints an error message.
func (v *TextView) ShowError(title, message string) {
	v.printf("error: %s: %s\n", title, message)
}

// clock formats d as m:ss.
func clock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// Verify interface compliance
var _ ports.View = (*TextView)(nil)
