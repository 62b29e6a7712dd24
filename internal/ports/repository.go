// Package ports define repository interfaces for data persistence abstraction.
package ports

import (
	"context"

	"github.com/tejashwikalptaru/espot/internal/domain"
)

// MetadataCache persists resolved track metadata and artwork across restarts.
//
// Thread-safety: none. The cache is owned by the worker goroutine.
type MetadataCache interface {
	// Lookup returns the cached track for id. It never touches the network.
	Lookup(id domain.TrackID) (domain.TrackInfo, bool)

	// Store inserts a track and marks the table dirty.
	// Nothing is written until Flush.
	Store(track domain.TrackInfo)

	// Flush persists the table if it changed since the last flush.
	Flush() error

	// CacheArtwork downloads artwork for id unless a file already exists.
	// Failures are swallowed; artwork is optional.
	CacheArtwork(ctx context.Context, id string, candidates []domain.Image)

	// ArtworkPath returns the path of the artwork file for id and whether it exists.
	ArtworkPath(id string) (string, bool)
}

// ArtworkFetcher downloads raw image bytes.
type ArtworkFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
