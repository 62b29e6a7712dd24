package service

import (
	"context"
	"errors"
	"sync"

	"github.com/tejashwikalptaru/espot/internal/domain"
	"github.com/tejashwikalptaru/espot/internal/ports"
)

var errFakeNetwork = errors.New("fake network failure")

// fakeAPI is an in-memory WebAPIClient that records its calls.
type fakeAPI struct {
	mu sync.Mutex

	catalog   map[domain.TrackID]domain.TrackRecord
	playlists []domain.PlaylistRecord
	featured  []domain.PlaylistRecord
	recs      []domain.TrackID
	search    domain.SearchRecords

	trackBatches [][]domain.TrackID
	seeds        [][]domain.TrackID
	added        []string
	removed      []string

	failTracksAfter int // fail every Tracks call after this many; <0 never
	failPlaylists   bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		catalog:         make(map[domain.TrackID]domain.TrackRecord),
		failTracksAfter: -1,
	}
}

// addTracks registers records for every id.
func (f *fakeAPI) addTracks(ids ...domain.TrackID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		f.catalog[id] = domain.TrackRecord{
			ID:         id,
			Name:       "Song " + string(id),
			DurationMS: 1000,
			Artists:    []string{"Artist"},
			AlbumID:    "album" + string(id),
			AlbumName:  "Album",
			Images:     []domain.Image{{Size: 300, URL: "http://img/" + string(id)}},
		}
	}
}

func (f *fakeAPI) batches() [][]domain.TrackID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]domain.TrackID(nil), f.trackBatches...)
}

func (f *fakeAPI) UserPlaylists(ctx context.Context) ([]domain.PlaylistRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPlaylists {
		return nil, errFakeNetwork
	}
	return f.playlists, nil
}

func (f *fakeAPI) FeaturedPlaylists(ctx context.Context) (string, []domain.PlaylistRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPlaylists {
		return "", nil, errFakeNetwork
	}
	return "Featured today", f.featured, nil
}

func (f *fakeAPI) Tracks(ctx context.Context, ids []domain.TrackID) ([]domain.TrackRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(ids) > domain.MaxTrackBatch {
		return nil, domain.ErrBatchTooLarge
	}
	if f.failTracksAfter >= 0 && len(f.trackBatches) >= f.failTracksAfter {
		return nil, errFakeNetwork
	}
	f.trackBatches = append(f.trackBatches, append([]domain.TrackID(nil), ids...))

	var out []domain.TrackRecord
	for _, id := range ids {
		if rec, ok := f.catalog[id]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeAPI) Recommendations(ctx context.Context, seeds []domain.TrackID, limit int) ([]domain.TrackID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(seeds) > domain.MaxRecommendationSeeds {
		return nil, domain.ErrTooManySeeds
	}
	f.seeds = append(f.seeds, append([]domain.TrackID(nil), seeds...))
	return f.recs, nil
}

func (f *fakeAPI) Search(ctx context.Context, query string, kind domain.SearchKind, limit int) (domain.SearchRecords, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.search, nil
}

func (f *fakeAPI) AddTrackToPlaylist(ctx context.Context, playlist domain.PlaylistID, track domain.TrackID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, string(playlist)+"/"+string(track))
	return nil
}

func (f *fakeAPI) RemoveTrackFromPlaylist(ctx context.Context, playlist domain.PlaylistID, track domain.TrackID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, string(playlist)+"/"+string(track))
	return nil
}

// fakeAuth hands out the same fakeAPI for any password except "wrong".
type fakeAuth struct {
	api   *fakeAPI
	calls int
}

func (a *fakeAuth) Authenticate(ctx context.Context, creds domain.Credentials) (ports.WebAPIClient, error) {
	a.calls++
	if creds.Password == "wrong" {
		return nil, domain.NewAPIError("authenticate", "bad credentials", domain.ErrInvalidCredentials)
	}
	return a.api, nil
}

// stubFetcher serves fixed artwork bytes for every URL.
type stubFetcher struct {
	mu       sync.Mutex
	requests []string
}

func (s *stubFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, url)
	return []byte("img"), nil
}

func (s *stubFetcher) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

var (
	_ ports.WebAPIClient        = (*fakeAPI)(nil)
	_ ports.WebAPIAuthenticator = (*fakeAuth)(nil)
	_ ports.ArtworkFetcher      = (*stubFetcher)(nil)
)
