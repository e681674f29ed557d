// Package cache is the persistent local cache for decrypted media and
// metadata. It keeps three logical collections in one Badger database:
// audio tracks (byte-budgeted, LRU-evicted), artwork (keyed by content
// blob so shared covers are stored once), and small remote JSON records.
//
// The cache is an optimization, not a dependency: every failure surfaces
// as a STORAGE-coded error and callers are expected to fall back to the
// content provider.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
	"github.com/tunevaultapp/tunevault-client/internal/errors"
)

// TrackIndexer keeps an external search index in sync with the track
// collection. Index failures never fail cache writes.
type TrackIndexer interface {
	IndexTrack(ctx context.Context, entry *domain.CachedTrackEntry) error
	DeleteTrack(ctx context.Context, trackID string) error
}

// NoopIndexer is a no-op TrackIndexer for tests and index-less setups.
type NoopIndexer struct{}

// IndexTrack implements TrackIndexer as a no-op.
func (NoopIndexer) IndexTrack(context.Context, *domain.CachedTrackEntry) error { return nil }

// DeleteTrack implements TrackIndexer as a no-op.
func (NoopIndexer) DeleteTrack(context.Context, string) error { return nil }

// Cache wraps a Badger database holding the three cache collections.
type Cache struct {
	db     *badger.DB
	logger *slog.Logger

	// libraryID namespaces the metadata collection so two libraries on one
	// machine never read each other's records.
	libraryID string

	indexer TrackIndexer

	mu       sync.Mutex
	settings domain.CacheSettings
	// currentSize tracks total audio bytes; trackIDs answers HasTrack
	// without I/O. Both are rebuilt from the track collection on open.
	currentSize int64
	trackIDs    map[string]struct{}
}

// Open opens (or recreates) the cache at dir.
//
// If the store exists but is missing any required collection marker —
// a partial or corrupt prior initialization — the whole store is deleted
// and recreated rather than repaired. Afterwards the running size and the
// cached-track id set are rebuilt by scanning the track collection once.
func Open(dir string, settings domain.CacheSettings, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	db, err := openBadger(dir)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeStorage, "open cache store")
	}

	ok, err := schemaComplete(db)
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.CodeStorage, "check cache schema")
	}
	if !ok {
		// Partial or corrupt prior initialization: wipe and start over.
		logger.Warn("cache schema incomplete, recreating store", "path", dir)
		if err := db.Close(); err != nil {
			return nil, errors.Wrap(err, errors.CodeStorage, "close corrupt store")
		}
		if err := os.RemoveAll(dir); err != nil {
			return nil, errors.Wrap(err, errors.CodeStorage, "remove corrupt store")
		}
		db, err = openBadger(dir)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeStorage, "recreate cache store")
		}
		if err := writeSchema(db); err != nil {
			db.Close()
			return nil, errors.Wrap(err, errors.CodeStorage, "write cache schema")
		}
	}

	c := &Cache{
		db:        db,
		logger:    logger,
		settings:  settings,
		indexer:   NoopIndexer{},
		libraryID: "default",
		trackIDs:  make(map[string]struct{}),
	}

	if err := c.rebuildTrackState(); err != nil {
		db.Close()
		return nil, err
	}

	// Enforce the retention window at startup so long-idle installs shed
	// stale entries before anything touches the cache.
	if settings.MaxAgeDays > 0 {
		pruned, err := c.PruneOlderThan(context.Background(), settings.MaxAgeDays)
		if err != nil {
			logger.Warn("cache prune on open failed", "max_age_days", settings.MaxAgeDays, "error", err)
		} else if pruned > 0 {
			logger.Info("pruned stale cache entries", "count", pruned, "max_age_days", settings.MaxAgeDays)
		}
	}

	logger.Info("cache opened",
		"path", dir,
		"tracks", len(c.trackIDs),
		"size_bytes", c.currentSize)

	return c, nil
}

func openBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Sync writes to survive crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	return badger.Open(opts)
}

// schemaComplete reports whether every collection marker is present.
// A brand new (empty) store is initialized in place and reported complete.
func schemaComplete(db *badger.DB) (bool, error) {
	empty := true
	complete := true

	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		defer it.Close()
		it.Rewind()
		empty = !it.Valid()
		return nil
	})
	if err != nil {
		return false, err
	}

	if empty {
		return true, writeSchema(db)
	}

	err = db.View(func(txn *badger.Txn) error {
		for _, key := range schemaKeys() {
			if _, err := txn.Get(key); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					complete = false
					return nil
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return complete, nil
}

func writeSchema(db *badger.DB) error {
	return db.Update(func(txn *badger.Txn) error {
		for _, key := range schemaKeys() {
			if err := txn.Set(key, []byte(schemaVersion)); err != nil {
				return err
			}
		}
		return nil
	})
}

// rebuildTrackState recomputes the running byte count and the cached-track
// id set with a single scan over the track collection.
func (c *Cache) rebuildTrackState() error {
	var size int64
	ids := make(map[string]struct{})

	err := c.db.View(func(txn *badger.Txn) error {
		for entry, err := range scanTracks(txn) {
			if err != nil {
				return err
			}
			size += entry.SizeBytes
			ids[entry.TrackID] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeStorage, "rebuild track state")
	}

	c.mu.Lock()
	c.currentSize = size
	c.trackIDs = ids
	c.mu.Unlock()
	return nil
}

// SetLibraryID namespaces the metadata collection. Call before first use.
func (c *Cache) SetLibraryID(libraryID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if libraryID != "" {
		c.libraryID = libraryID
	}
}

// SetIndexer wires a search indexer that follows track puts and removals.
// Set after construction to avoid a circular dependency with the index.
func (c *Cache) SetIndexer(indexer TrackIndexer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if indexer != nil {
		c.indexer = indexer
	}
}

// Settings returns the current cache preferences.
func (c *Cache) Settings() domain.CacheSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// UpdateSettings replaces the cache preferences. New limits take effect on
// the next write or prune; nothing is evicted immediately.
func (c *Cache) UpdateSettings(s domain.CacheSettings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = s
}

// CurrentSizeBytes returns the running total of cached audio bytes.
func (c *Cache) CurrentSizeBytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentSize
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	c.logger.Info("closing cache")
	if err := c.db.Close(); err != nil {
		return errors.Wrap(err, errors.CodeStorage, "close cache store")
	}
	return nil
}

func (c *Cache) notifyIndexPut(entry *domain.CachedTrackEntry) {
	if err := c.indexer.IndexTrack(context.Background(), entry); err != nil {
		c.logger.Warn("search index update failed", "track_id", entry.TrackID, "error", err)
	}
}

func (c *Cache) notifyIndexDelete(trackID string) {
	if err := c.indexer.DeleteTrack(context.Background(), trackID); err != nil {
		c.logger.Warn("search index delete failed", "track_id", trackID, "error", err)
	}
}

func storageErr(op string, err error) error {
	return errors.Wrap(err, errors.CodeStorage, fmt.Sprintf("%s failed", op))
}
