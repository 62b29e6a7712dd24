package ports

import (
	"context"

	"github.com/tejashwikalptaru/espot/internal/domain"
)

// WebAPIClient is an authenticated catalog client.
// Paging and rate limiting are its own business; callers see whole result sets.
type WebAPIClient interface {
	// UserPlaylists lists every playlist of the current user, with track ids.
	UserPlaylists(ctx context.Context) ([]domain.PlaylistRecord, error)

	// FeaturedPlaylists lists featured playlists and the catalog's headline message.
	FeaturedPlaylists(ctx context.Context) (string, []domain.PlaylistRecord, error)

	// Tracks looks up at most domain.MaxTrackBatch tracks in one round trip.
	// Ids the catalog does not know are left out of the result.
	//
	// Returns domain.ErrBatchTooLarge for oversized batches.
	Tracks(ctx context.Context, ids []domain.TrackID) ([]domain.TrackRecord, error)

	// Recommendations returns up to limit track ids seeded by at most
	// domain.MaxRecommendationSeeds tracks.
	Recommendations(ctx context.Context, seeds []domain.TrackID, limit int) ([]domain.TrackID, error)

	// Search queries the catalog for the given kind.
	Search(ctx context.Context, query string, kind domain.SearchKind, limit int) (domain.SearchRecords, error)

	// AddTrackToPlaylist appends track to the playlist.
	AddTrackToPlaylist(ctx context.Context, playlist domain.PlaylistID, track domain.TrackID) error

	// RemoveTrackFromPlaylist removes every occurrence of track from the playlist.
	RemoveTrackFromPlaylist(ctx context.Context, playlist domain.PlaylistID, track domain.TrackID) error
}

// WebAPIAuthenticator produces authenticated clients.
type WebAPIAuthenticator interface {
	Authenticate(ctx context.Context, creds domain.Credentials) (WebAPIClient, error)
}
