package cache

import (
	"context"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
	"github.com/tunevaultapp/tunevault-client/internal/errors"
)

// GetTrack returns the cached entry for trackID and marks it as the most
// recently used. Returns a NOT_FOUND error when the track is not cached.
func (c *Cache) GetTrack(ctx context.Context, trackID string) (*domain.CachedTrackEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var entry *domain.CachedTrackEntry
	err := c.db.Update(func(txn *badger.Txn) error {
		var err error
		entry, err = getJSON[domain.CachedTrackEntry](txn, trackKey(trackID))
		if err != nil {
			return err
		}

		// Touch: move the entry to the fresh end of the recency index.
		if err := txn.Delete(accessedIndexKey(entry.LastAccess, trackID)); err != nil {
			return err
		}
		entry.LastAccess = time.Now().UTC()
		if err := setJSON(txn, trackKey(trackID), entry); err != nil {
			return err
		}
		return txn.Set(accessedIndexKey(entry.LastAccess, trackID), []byte(trackID))
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, errors.NotFoundf("track %s not cached", trackID)
		}
		return nil, storageErr("get track", err)
	}
	return entry, nil
}

// PutTrack stores decrypted audio for trackID. When the write would push the
// cache past its byte budget, least-recently-used tracks are evicted first to
// free at least len(audio) bytes. Replacing an existing entry releases the
// old entry's bytes before the budget check.
func (c *Cache) PutTrack(ctx context.Context, trackID string, audio []byte, meta domain.TrackMetadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := int64(len(audio))
	now := time.Now().UTC()
	entry := &domain.CachedTrackEntry{
		TrackID:    trackID,
		AudioData:  audio,
		Title:      meta.Title,
		ArtistName: meta.ArtistName,
		AlbumName:  meta.AlbumName,
		DurationMs: meta.DurationMs,
		FileFormat: meta.FileFormat,
		CachedAt:   now,
		LastAccess: now,
		SizeBytes:  size,
	}

	var removed []*domain.CachedTrackEntry
	err := c.db.Update(func(txn *badger.Txn) error {
		removed = removed[:0]

		old, err := c.removeTrackTxn(txn, trackID)
		if err != nil {
			return err
		}
		if old != nil {
			removed = append(removed, old)
		}

		remaining := c.currentSize - removedBytes(removed)
		if remaining+size > c.settings.MaxSizeBytes {
			evicted, err := c.evictTxn(txn, size)
			if err != nil {
				return err
			}
			removed = append(removed, evicted...)
		}

		if err := setJSON(txn, trackKey(trackID), entry); err != nil {
			return err
		}
		if err := txn.Set(accessedIndexKey(now, trackID), []byte(trackID)); err != nil {
			return err
		}
		return txn.Set(cachedIndexKey(now, trackID), []byte(trackID))
	})
	if err != nil {
		return storageErr("put track", err)
	}

	c.applyRemovals(removed)
	c.currentSize += size
	c.trackIDs[trackID] = struct{}{}
	c.notifyIndexPut(entry)
	return nil
}

// RemoveTrack deletes a cached track. Removing an absent track is a no-op.
func (c *Cache) RemoveTrack(ctx context.Context, trackID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed *domain.CachedTrackEntry
	err := c.db.Update(func(txn *badger.Txn) error {
		var err error
		removed, err = c.removeTrackTxn(txn, trackID)
		return err
	})
	if err != nil {
		return storageErr("remove track", err)
	}
	if removed != nil {
		c.applyRemovals([]*domain.CachedTrackEntry{removed})
	}
	return nil
}

// HasTrack reports whether trackID is cached. It consults the in-memory id
// set and never touches disk.
func (c *Cache) HasTrack(trackID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.trackIDs[trackID]
	return ok
}

// TrackIDs returns a snapshot of all cached track ids.
func (c *Cache) TrackIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.trackIDs))
	for id := range c.trackIDs {
		ids = append(ids, id)
	}
	return ids
}

// PruneOlderThan deletes every track cached before the age cutoff and
// returns how many entries were removed.
func (c *Cache) PruneOlderThan(ctx context.Context, maxAgeDays int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := sortableTimestamp(time.Now().UTC().AddDate(0, 0, -maxAgeDays))
	var removed []*domain.CachedTrackEntry

	err := c.db.Update(func(txn *badger.Txn) error {
		removed = removed[:0]
		for key, trackID := range scanIndex(txn, cachedPrefix) {
			// Keys sort oldest first; stop at the first entry past the cutoff.
			ts := strings.TrimPrefix(string(key), cachedPrefix)
			if ts >= cutoff {
				break
			}
			entry, err := c.removeTrackTxn(txn, trackID)
			if err != nil {
				return err
			}
			if entry != nil {
				removed = append(removed, entry)
			}
		}
		return nil
	})
	if err != nil {
		return 0, storageErr("prune tracks", err)
	}

	c.applyRemovals(removed)
	if len(removed) > 0 {
		c.logger.Info("pruned cached tracks", "count", len(removed), "max_age_days", maxAgeDays)
	}
	return len(removed), nil
}

// evictTxn deletes tracks in ascending lastAccessed order until at least
// neededBytes have been freed or the collection is empty, returning the
// deleted entries. Caller holds c.mu and applies counter updates on commit.
func (c *Cache) evictTxn(txn *badger.Txn, neededBytes int64) ([]*domain.CachedTrackEntry, error) {
	var evicted []*domain.CachedTrackEntry
	var freed int64
	for _, trackID := range scanIndex(txn, accessedPrefix) {
		if freed >= neededBytes {
			break
		}
		entry, err := getJSON[domain.CachedTrackEntry](txn, trackKey(trackID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			return nil, err
		}
		if err := deleteTrackEntryTxn(txn, entry); err != nil {
			return nil, err
		}
		freed += entry.SizeBytes
		evicted = append(evicted, entry)
	}
	return evicted, nil
}

// removeTrackTxn deletes trackID and returns the removed entry, or nil when
// the track was not cached.
func (c *Cache) removeTrackTxn(txn *badger.Txn, trackID string) (*domain.CachedTrackEntry, error) {
	entry, err := getJSON[domain.CachedTrackEntry](txn, trackKey(trackID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if err := deleteTrackEntryTxn(txn, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// deleteTrackEntryTxn removes the primary record plus both index keys.
func deleteTrackEntryTxn(txn *badger.Txn, entry *domain.CachedTrackEntry) error {
	if err := txn.Delete(trackKey(entry.TrackID)); err != nil {
		return err
	}
	if err := txn.Delete(accessedIndexKey(entry.LastAccess, entry.TrackID)); err != nil {
		return err
	}
	return txn.Delete(cachedIndexKey(entry.CachedAt, entry.TrackID))
}

// applyRemovals updates the in-memory counters and the search index after a
// successful commit. Caller holds c.mu.
func (c *Cache) applyRemovals(removed []*domain.CachedTrackEntry) {
	for _, entry := range removed {
		c.currentSize -= entry.SizeBytes
		delete(c.trackIDs, entry.TrackID)
		c.logger.Debug("removed cached track", "track_id", entry.TrackID, "size_bytes", entry.SizeBytes)
		c.notifyIndexDelete(entry.TrackID)
	}
}

func removedBytes(entries []*domain.CachedTrackEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.SizeBytes
	}
	return total
}
