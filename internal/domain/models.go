// Package domain contains core models of the espot playback worker with no external dependencies.
// This package defines tracks, playlists, the play queue and identifiers.
package domain

import (
	"strings"
	"time"
)

// MaxTrackBatch is the largest number of ids a single track lookup may carry.
const MaxTrackBatch = 50

// MaxRecommendationSeeds is the largest number of seed tracks a recommendation query accepts.
const MaxRecommendationSeeds = 5

// TrackID is the canonical base-62 identifier of a catalog track.
type TrackID string

// PlaylistID is the canonical base-62 identifier of a catalog playlist.
type PlaylistID string

// URI returns the spotify:track URI form of the id.
func (id TrackID) URI() string {
	return "spotify:track:" + string(id)
}

// URI returns the spotify:playlist URI form of the id.
func (id PlaylistID) URI() string {
	return "spotify:playlist:" + string(id)
}

// ParseTrackID accepts a bare id or a spotify:track URI.
func ParseTrackID(s string) (TrackID, error) {
	id, err := parseID(s, "track")
	if err != nil {
		return "", NewValidationError("track_id", s, err.Error(), ErrInvalidIdentifier)
	}
	return TrackID(id), nil
}

// ParsePlaylistID accepts a bare id or a spotify:playlist URI.
func ParsePlaylistID(s string) (PlaylistID, error) {
	id, err := parseID(s, "playlist")
	if err != nil {
		return "", NewValidationError("playlist_id", s, err.Error(), ErrInvalidIdentifier)
	}
	return PlaylistID(id), nil
}

type idError string

func (e idError) Error() string { return string(e) }

func parseID(s, kind string) (string, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "spotify:"); ok {
		prefix := kind + ":"
		if !strings.HasPrefix(rest, prefix) {
			return "", idError("uri is not a " + kind)
		}
		s = strings.TrimPrefix(rest, prefix)
	}
	if s == "" {
		return "", idError("empty id")
	}
	if len(s) > 64 {
		return "", idError("id too long")
	}
	for _, r := range s {
		if !isBase62(r) {
			return "", idError("id must be base-62")
		}
	}
	return s, nil
}

func isBase62(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

// Image is one artwork candidate offered by the catalog.
type Image struct {
	// Size is the pixel height; 0 means the catalog did not declare one
	Size int `json:"size"`

	URL string `json:"url"`
}

// TrackRecord is a track as returned by the Web API, before validation.
type TrackRecord struct {
	ID         TrackID
	Name       string
	DurationMS int64
	Artists    []string
	AlbumID    string
	AlbumName  string
	Images     []Image
}

// TrackInfo is resolved, cacheable metadata for one playable track.
// Values are never mutated after construction.
type TrackInfo struct {
	ID         TrackID  `json:"id"`
	Name       string   `json:"name"`
	DurationMS int64    `json:"duration_ms"`
	Artists    []string `json:"artists"`
	AlbumID    string   `json:"album_id"`
	AlbumName  string   `json:"album_name"`
	Images     []Image  `json:"album_images"`
}

// NewTrackInfo converts a network record. Records without a track or album id are rejected.
func NewTrackInfo(rec TrackRecord) (TrackInfo, error) {
	if rec.ID == "" || rec.AlbumID == "" {
		return TrackInfo{}, ErrIncompleteTrack
	}
	return TrackInfo{
		ID:         rec.ID,
		Name:       rec.Name,
		DurationMS: rec.DurationMS,
		Artists:    append([]string(nil), rec.Artists...),
		AlbumID:    rec.AlbumID,
		AlbumName:  rec.AlbumName,
		Images:     append([]Image(nil), rec.Images...),
	}, nil
}

// Duration returns the track length.
func (t TrackInfo) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// CoverID is the artwork key for the track: its album id.
func (t TrackInfo) CoverID() string {
	return t.AlbumID
}

// ArtistLine joins the artist names for display.
func (t TrackInfo) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// PlaylistRecord is a playlist as returned by the Web API.
type PlaylistRecord struct {
	ID       PlaylistID
	Name     string
	TrackIDs []TrackID
	Images   []Image
}

// PlaylistRef identifies a playlist and its ordered track ids.
// It lives only for the operation that produced it.
type PlaylistRef struct {
	ID       PlaylistID
	Name     string
	TrackIDs []TrackID
	Images   []Image
}

// NewPlaylistRef converts a network record.
func NewPlaylistRef(rec PlaylistRecord) PlaylistRef {
	return PlaylistRef{
		ID:       rec.ID,
		Name:     rec.Name,
		TrackIDs: append([]TrackID(nil), rec.TrackIDs...),
		Images:   append([]Image(nil), rec.Images...),
	}
}

// PlayQueue is the ordered track sequence being played plus its cursor.
// Cursor is a valid index whenever Tracks is non-empty.
type PlayQueue struct {
	Tracks []TrackInfo
	Cursor int
}

// Len returns the number of queued tracks.
func (q PlayQueue) Len() int {
	return len(q.Tracks)
}

// Empty reports whether there is no active playback queue.
func (q PlayQueue) Empty() bool {
	return len(q.Tracks) == 0
}

// Current returns the track under the cursor.
func (q PlayQueue) Current() (TrackInfo, bool) {
	if q.Empty() {
		return TrackInfo{}, false
	}
	return q.Tracks[q.Cursor], true
}

// Credentials are the user's account credentials as entered in the UI.
type Credentials struct {
	Username string
	Password string
}

// Valid reports whether both fields are set.
func (c Credentials) Valid() bool {
	return strings.TrimSpace(c.Username) != "" && c.Password != ""
}

// SearchKind selects what a search returns.
type SearchKind int

const (
	// SearchTracks searches the track catalog
	SearchTracks SearchKind = iota

	// SearchPlaylists searches public playlists
	SearchPlaylists
)

// String returns the search kind name.
func (k SearchKind) String() string {
	switch k {
	case SearchTracks:
		return "track"
	case SearchPlaylists:
		return "playlist"
	default:
		return "unknown"
	}
}

// SearchRecords holds raw search hits.
type SearchRecords struct {
	Tracks    []TrackRecord
	Playlists []PlaylistRecord
}

// PlaybackStatus represents the playback state seen by status consumers.
type PlaybackStatus int

const (
	// StatusStopped indicates playback is stopped
	StatusStopped PlaybackStatus = iota

	// StatusPlaying indicates playback is active
	StatusPlaying

	// StatusPaused indicates playback is paused
	StatusPaused
)

// String returns a human-readable representation of the playback status.
func (s PlaybackStatus) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	default:
		return "unknown"
	}
}
