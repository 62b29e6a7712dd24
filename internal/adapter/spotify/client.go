// Package spotify adapts the Spotify Web API (github.com/zmb3/spotify/v2) to
// the catalog port used by the worker.
package spotify

import (
	"context"
	"errors"
	"log/slog"

	libspotify "github.com/zmb3/spotify/v2"
	"golang.org/x/time/rate"

	"github.com/tejashwikalptaru/espot/internal/domain"
	"github.com/tejashwikalptaru/espot/internal/ports"
)

// pageSize is the largest page the Web API serves for playlist endpoints.
const pageSize = 50

// Client implements ports.WebAPIClient.
//
// Every HTTP round trip (including each followed page) waits on a shared
// limiter so bursty tasks stay under the account's request quota.
type Client struct {
	logger  *slog.Logger
	api     *libspotify.Client
	limiter *rate.Limiter
}

// NewClient wraps an authenticated Web API client. rps <= 0 disables limiting.
func NewClient(logger *slog.Logger, api *libspotify.Client, rps float64) *Client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Client{
		logger:  logger.With(slog.String("adapter", "spotify")),
		api:     api,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.NewAPIError("rate limit", "request aborted while waiting", err)
	}
	return nil
}

// UserPlaylists lists every playlist of the current user.
func (c *Client) UserPlaylists(ctx context.Context) ([]domain.PlaylistRecord, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	page, err := c.api.CurrentUsersPlaylists(ctx, libspotify.Limit(pageSize))
	if err != nil {
		return nil, domain.NewAPIError("user playlists", "listing failed", err)
	}

	var simple []libspotify.SimplePlaylist
	for {
		simple = append(simple, page.Playlists...)
		more, err := c.next(ctx, page)
		if err != nil {
			return nil, domain.NewAPIError("user playlists", "paging failed", err)
		}
		if !more {
			break
		}
	}

	return c.playlistRecords(ctx, simple)
}

// FeaturedPlaylists lists the catalog's featured playlists.
func (c *Client) FeaturedPlaylists(ctx context.Context) (string, []domain.PlaylistRecord, error) {
	if err := c.wait(ctx); err != nil {
		return "", nil, err
	}
	message, page, err := c.api.FeaturedPlaylists(ctx, libspotify.Limit(pageSize))
	if err != nil {
		return "", nil, domain.NewAPIError("featured playlists", "listing failed", err)
	}

	records, err := c.playlistRecords(ctx, page.Playlists)
	if err != nil {
		return "", nil, err
	}
	return message, records, nil
}

// playlistRecords expands each playlist with its ordered track ids.
func (c *Client) playlistRecords(ctx context.Context, playlists []libspotify.SimplePlaylist) ([]domain.PlaylistRecord, error) {
	records := make([]domain.PlaylistRecord, 0, len(playlists))
	for _, p := range playlists {
		ids, err := c.playlistTrackIDs(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		records = append(records, domain.PlaylistRecord{
			ID:       domain.PlaylistID(p.ID),
			Name:     p.Name,
			TrackIDs: ids,
			Images:   convertImages(p.Images),
		})
	}
	return records, nil
}

// playlistTrackIDs walks every item page of a playlist. Episodes and local
// files have no catalog track and are skipped.
func (c *Client) playlistTrackIDs(ctx context.Context, id libspotify.ID) ([]domain.TrackID, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	page, err := c.api.GetPlaylistItems(ctx, id, libspotify.Limit(pageSize))
	if err != nil {
		return nil, domain.NewAPIError("playlist items", "listing "+string(id)+" failed", err)
	}

	var ids []domain.TrackID
	for {
		for _, item := range page.Items {
			if item.IsLocal || item.Track.Track == nil || item.Track.Track.ID == "" {
				continue
			}
			ids = append(ids, domain.TrackID(item.Track.Track.ID))
		}
		more, err := c.next(ctx, page)
		if err != nil {
			return nil, domain.NewAPIError("playlist items", "paging "+string(id)+" failed", err)
		}
		if !more {
			return ids, nil
		}
	}
}

// next advances page in place. It reports false on the last page.
func (c *Client) next(ctx context.Context, page any) (bool, error) {
	var advance func() error
	switch p := page.(type) {
	case *libspotify.SimplePlaylistPage:
		if p.Next == "" {
			return false, nil
		}
		advance = func() error { return c.api.NextPage(ctx, p) }
	case *libspotify.PlaylistItemPage:
		if p.Next == "" {
			return false, nil
		}
		advance = func() error { return c.api.NextPage(ctx, p) }
	default:
		return false, nil
	}

	if err := c.wait(ctx); err != nil {
		return false, err
	}
	err := advance()
	if errors.Is(err, libspotify.ErrNoMorePages) {
		return false, nil
	}
	return err == nil, err
}

// Tracks looks up one batch of tracks.
func (c *Client) Tracks(ctx context.Context, ids []domain.TrackID) ([]domain.TrackRecord, error) {
	if len(ids) > domain.MaxTrackBatch {
		return nil, domain.NewAPIError("tracks", "batch too large", domain.ErrBatchTooLarge)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	full, err := c.api.GetTracks(ctx, toIDs(ids))
	if err != nil {
		return nil, domain.NewAPIError("tracks", "lookup failed", err)
	}

	records := make([]domain.TrackRecord, 0, len(full))
	for _, t := range full {
		if t == nil {
			continue
		}
		records = append(records, convertTrack(t))
	}

	c.logger.Debug("tracks fetched", slog.Int("requested", len(ids)), slog.Int("found", len(records)))
	return records, nil
}

// Recommendations asks for tracks similar to the seeds.
func (c *Client) Recommendations(ctx context.Context, seeds []domain.TrackID, limit int) ([]domain.TrackID, error) {
	if len(seeds) > domain.MaxRecommendationSeeds {
		return nil, domain.NewAPIError("recommendations", "too many seeds", domain.ErrTooManySeeds)
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	recs, err := c.api.GetRecommendations(ctx, libspotify.Seeds{Tracks: toIDs(seeds)}, nil, libspotify.Limit(limit))
	if err != nil {
		return nil, domain.NewAPIError("recommendations", "query failed", err)
	}

	ids := make([]domain.TrackID, 0, len(recs.Tracks))
	for _, t := range recs.Tracks {
		ids = append(ids, domain.TrackID(t.ID))
	}
	return ids, nil
}

// Search queries tracks or playlists.
func (c *Client) Search(ctx context.Context, query string, kind domain.SearchKind, limit int) (domain.SearchRecords, error) {
	var out domain.SearchRecords

	searchType := libspotify.SearchType(libspotify.SearchTypeTrack)
	if kind == domain.SearchPlaylists {
		searchType = libspotify.SearchTypePlaylist
	}

	if err := c.wait(ctx); err != nil {
		return out, err
	}
	res, err := c.api.Search(ctx, query, searchType, libspotify.Limit(limit))
	if err != nil {
		return out, domain.NewAPIError("search", "query failed", err)
	}

	if res.Tracks != nil {
		for i := range res.Tracks.Tracks {
			out.Tracks = append(out.Tracks, convertTrack(&res.Tracks.Tracks[i]))
		}
	}
	if res.Playlists != nil {
		out.Playlists, err = c.playlistRecords(ctx, res.Playlists.Playlists)
		if err != nil {
			return domain.SearchRecords{}, err
		}
	}
	return out, nil
}

// AddTrackToPlaylist appends one track.
func (c *Client) AddTrackToPlaylist(ctx context.Context, playlist domain.PlaylistID, track domain.TrackID) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if _, err := c.api.AddTracksToPlaylist(ctx, libspotify.ID(playlist), libspotify.ID(track)); err != nil {
		return domain.NewAPIError("add to playlist", string(track)+" -> "+string(playlist), err)
	}
	return nil
}

// RemoveTrackFromPlaylist removes every occurrence of one track.
func (c *Client) RemoveTrackFromPlaylist(ctx context.Context, playlist domain.PlaylistID, track domain.TrackID) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if _, err := c.api.RemoveTracksFromPlaylist(ctx, libspotify.ID(playlist), libspotify.ID(track)); err != nil {
		return domain.NewAPIError("remove from playlist", string(track)+" <- "+string(playlist), err)
	}
	return nil
}

func toIDs(ids []domain.TrackID) []libspotify.ID {
	out := make([]libspotify.ID, len(ids))
	for i, id := range ids {
		out[i] = libspotify.ID(id)
	}
	return out
}

func convertTrack(t *libspotify.FullTrack) domain.TrackRecord {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	return domain.TrackRecord{
		ID:         domain.TrackID(t.ID),
		Name:       t.Name,
		DurationMS: int64(t.Duration),
		Artists:    artists,
		AlbumID:    string(t.Album.ID),
		AlbumName:  t.Album.Name,
		Images:     convertImages(t.Album.Images),
	}
}

func convertImages(images []libspotify.Image) []domain.Image {
	out := make([]domain.Image, 0, len(images))
	for _, img := range images {
		out = append(out, domain.Image{Size: int(img.Height), URL: img.URL})
	}
	return out
}

// Verify interface compliance
var _ ports.WebAPIClient = (*Client)(nil)
