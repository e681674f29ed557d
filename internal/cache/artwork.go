package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
	"github.com/tunevaultapp/tunevault-client/internal/errors"
	"github.com/tunevaultapp/tunevault-client/internal/media/artwork"
)

// Artwork is keyed by content blob id, not track id: tracks on the same
// album reference the same blob, so shared covers are decrypted and stored
// once. Artwork is excluded from the audio byte budget.

// GetArtwork returns decrypted artwork for blobID, refreshing its
// last-access time.
func (c *Cache) GetArtwork(ctx context.Context, blobID string) (*domain.CachedArtworkEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var entry *domain.CachedArtworkEntry
	err := c.db.Update(func(txn *badger.Txn) error {
		var err error
		entry, err = getJSON[domain.CachedArtworkEntry](txn, artworkKey(blobID))
		if err != nil {
			return err
		}
		entry.LastAccess = time.Now().UTC()
		return setJSON(txn, artworkKey(blobID), entry)
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, errors.NotFoundf("artwork %s not cached", blobID)
		}
		return nil, storageErr("get artwork", err)
	}
	return entry, nil
}

// PutArtwork stores decrypted artwork bytes. Image analysis (dimensions,
// blurhash placeholder) is best-effort; unparseable images are still cached.
func (c *Cache) PutArtwork(ctx context.Context, blobID string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	entry := &domain.CachedArtworkEntry{
		BlobID:     blobID,
		ImageData:  data,
		CachedAt:   now,
		LastAccess: now,
		SizeBytes:  int64(len(data)),
	}

	if info, err := artwork.Analyze(data); err != nil {
		c.logger.Debug("artwork analysis failed", "blob_id", blobID, "error", err)
	} else {
		entry.MimeType = info.MimeType
		entry.Width = info.Width
		entry.Height = info.Height
		entry.BlurHash = info.BlurHash
	}

	err := c.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, artworkKey(blobID), entry)
	})
	if err != nil {
		return storageErr("put artwork", err)
	}
	return nil
}

// RemoveArtwork deletes cached artwork. Removing absent artwork is a no-op.
func (c *Cache) RemoveArtwork(ctx context.Context, blobID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(artworkKey(blobID))
	})
	if err != nil {
		return storageErr("remove artwork", err)
	}
	return nil
}

// HasArtwork reports whether blobID is cached.
func (c *Cache) HasArtwork(blobID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(artworkKey(blobID))
		return err
	})
	return err == nil
}
