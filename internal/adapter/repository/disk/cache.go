// Package disk provides file-backed repository implementations.
package disk

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tejashwikalptaru/espot/internal/domain"
	"github.com/tejashwikalptaru/espot/internal/ports"
)

const (
	// TableFile is the name of the serialized track table under the cache root.
	TableFile = "tracks.json"

	// ArtworkPrefix prefixes every artwork file name.
	ArtworkPrefix = "cover-"

	// DefaultArtworkSize is the preferred artwork height in pixels.
	DefaultArtworkSize = 300
)

// Options configures a MetadataCache.
type Options struct {
	// Root is the cache directory. It is created if missing.
	Root string

	// ArtworkSize is the preferred artwork height; 0 selects DefaultArtworkSize.
	ArtworkSize int

	// Fetcher downloads artwork. A nil fetcher disables artwork caching.
	Fetcher ports.ArtworkFetcher
}

// MetadataCache implements ports.MetadataCache on a directory:
//
//	<root>/tracks.json   track id -> TrackInfo
//	<root>/cover-<id>    raw artwork bytes
//
// Writes go through a temp file and rename so a crash never leaves a torn file.
//
// Thread-safety: none. The cache is owned by the worker goroutine.
type MetadataCache struct {
	logger      *slog.Logger
	root        string
	artworkSize int
	fetcher     ports.ArtworkFetcher

	tracks map[domain.TrackID]domain.TrackInfo
	dirty  bool
}

// Open creates the cache root if needed and loads the track table.
// A missing or unreadable table starts an empty cache.
//
// Returns a *domain.SetupError if the root cannot be created.
func Open(logger *slog.Logger, opts Options) (*MetadataCache, error) {
	if opts.Root == "" {
		return nil, domain.NewSetupError("cache", "empty cache root", domain.ErrCacheRoot)
	}
	if err := os.MkdirAll(opts.Root, 0o755); err != nil {
		return nil, domain.NewSetupError("cache", "cannot create "+opts.Root, errors.Join(domain.ErrCacheRoot, err))
	}

	size := opts.ArtworkSize
	if size <= 0 {
		size = DefaultArtworkSize
	}

	c := &MetadataCache{
		logger:      logger.With(slog.String("adapter", "metadata_cache")),
		root:        opts.Root,
		artworkSize: size,
		fetcher:     opts.Fetcher,
		tracks:      make(map[domain.TrackID]domain.TrackInfo),
	}
	c.load()

	return c, nil
}

func (c *MetadataCache) load() {
	path := c.tablePath()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		c.logger.Debug("no track table yet", slog.String("path", path))
		return
	}
	if err != nil {
		c.logger.Warn("cannot read track table, starting empty",
			slog.String("path", path), slog.Any("error", err))
		return
	}

	var tracks map[domain.TrackID]domain.TrackInfo
	if err := json.Unmarshal(data, &tracks); err != nil {
		c.logger.Warn("track table is corrupt, starting empty",
			slog.String("path", path), slog.Any("error", err))
		return
	}

	for id, t := range tracks {
		if id == "" || t.ID != id {
			continue
		}
		c.tracks[id] = t
	}

	c.logger.Debug("track table loaded", slog.Int("tracks", len(c.tracks)))
}

// Lookup returns the cached track for id.
func (c *MetadataCache) Lookup(id domain.TrackID) (domain.TrackInfo, bool) {
	t, ok := c.tracks[id]
	return t, ok
}

// Store inserts track and marks the table dirty.
func (c *MetadataCache) Store(track domain.TrackInfo) {
	if track.ID == "" {
		return
	}
	c.tracks[track.ID] = track
	c.dirty = true
}

// Flush writes the table if anything changed since the last flush.
func (c *MetadataCache) Flush() error {
	if !c.dirty {
		return nil
	}

	data, err := json.Marshal(c.tracks)
	if err != nil {
		return domain.NewCacheError("flush", c.tablePath(), "failed to marshal tracks", err)
	}
	if err := writeAtomic(c.root, c.tablePath(), data); err != nil {
		return domain.NewCacheError("flush", c.tablePath(), "failed to write track table", err)
	}

	c.dirty = false
	c.logger.Debug("track table flushed", slog.Int("tracks", len(c.tracks)))
	return nil
}

// CacheArtwork downloads artwork for id unless it is already on disk.
// The first candidate with an unknown size or exactly the preferred size wins.
// Every failure is logged and dropped.
func (c *MetadataCache) CacheArtwork(ctx context.Context, id string, candidates []domain.Image) {
	if id == "" || c.fetcher == nil {
		return
	}

	path, exists := c.ArtworkPath(id)
	if exists {
		return
	}

	image, ok := c.pickArtwork(candidates)
	if !ok {
		return
	}

	data, err := c.fetcher.Fetch(ctx, image.URL)
	if err != nil {
		c.logger.Debug("artwork fetch failed", slog.String("id", id), slog.Any("error", err))
		return
	}
	if len(data) == 0 {
		return
	}

	if err := writeAtomic(c.root, path, data); err != nil {
		c.logger.Debug("artwork write failed", slog.String("path", path), slog.Any("error", err))
	}
}

func (c *MetadataCache) pickArtwork(candidates []domain.Image) (domain.Image, bool) {
	for _, img := range candidates {
		if img.URL == "" {
			continue
		}
		if img.Size == 0 || img.Size == c.artworkSize {
			return img, true
		}
	}
	return domain.Image{}, false
}

// ArtworkPath returns the artwork file path for id and whether the file exists.
func (c *MetadataCache) ArtworkPath(id string) (string, bool) {
	path := filepath.Join(c.root, ArtworkPrefix+sanitizeID(id))
	info, err := os.Stat(path)
	return path, err == nil && info.Mode().IsRegular()
}

// Len returns the number of cached tracks.
func (c *MetadataCache) Len() int {
	return len(c.tracks)
}

// Root returns the cache directory.
func (c *MetadataCache) Root() string {
	return c.root
}

// Dirty reports whether stores are waiting for Flush.
func (c *MetadataCache) Dirty() bool {
	return c.dirty
}

func (c *MetadataCache) tablePath() string {
	return filepath.Join(c.root, TableFile)
}

// sanitizeID keeps ids usable as file names.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(dir, path string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Verify interface compliance
var _ ports.MetadataCache = (*MetadataCache)(nil)
