// Package search maintains a full-text index over the metadata of cached
// tracks. It feeds off the cache's track lifecycle, so only tracks that are
// actually available offline are searchable.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
)

// mappingVersion is bumped whenever the index mapping changes, forcing a
// rebuild of stale on-disk indexes at open.
const mappingVersion = "1"

// Index wraps a Bleve index of cached-track metadata. All methods are safe
// for concurrent use.
type Index struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Open opens the index under dataPath, creating it if absent. A corrupt
// index or one built with an older mapping is removed and recreated; the
// cache repopulates it as tracks are touched.
func Open(dataPath string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	indexPath := filepath.Join(dataPath, "search.bleve")
	versionPath := filepath.Join(dataPath, "search.version")

	var index bleve.Index
	rebuild := false

	if _, err := os.Stat(indexPath); err == nil {
		version, readErr := os.ReadFile(versionPath)
		if readErr != nil || string(version) != mappingVersion {
			logger.Info("search index mapping outdated, rebuilding",
				"new_version", mappingVersion)
			rebuild = true
		} else {
			var openErr error
			index, openErr = bleve.Open(indexPath)
			if openErr != nil {
				logger.Warn("failed to open search index, recreating",
					"path", indexPath, "error", openErr)
				rebuild = true
			}
		}
	}

	if rebuild {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
		index = nil
	}

	if index == nil {
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created search index", "path", indexPath)
	}

	return &Index{index: index, path: indexPath, logger: logger}, nil
}

// Close releases the index.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.index.Close()
}

// IndexTrack adds or replaces a cached track's metadata in the index.
func (ix *Index) IndexTrack(_ context.Context, entry *domain.CachedTrackEntry) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	// Index a map so field names match the lowercase mapping.
	return ix.index.Index(entry.TrackID, map[string]any{
		"title":       entry.Title,
		"artist_name": entry.ArtistName,
		"album_name":  entry.AlbumName,
		"file_format": entry.FileFormat,
		"duration_ms": entry.DurationMs,
	})
}

// DeleteTrack removes a track from the index.
func (ix *Index) DeleteTrack(_ context.Context, trackID string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.Delete(trackID)
}

// Count returns the number of indexed tracks.
func (ix *Index) Count() (uint64, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.index.DocCount()
}
