package cache

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
	"github.com/tunevaultapp/tunevault-client/internal/errors"
)

// The metadata collection caches small decrypted JSON records mirrored from
// the provider, keyed by their remote record path and namespaced by library
// so switching vaults never serves stale documents.

// GetMetadata returns the cached JSON record for path.
func (c *Cache) GetMetadata(ctx context.Context, path string) (*domain.CachedMetadataEntry, error) {
	c.mu.Lock()
	key := metadataKey(c.libraryID, path)
	c.mu.Unlock()

	var entry *domain.CachedMetadataEntry
	err := c.db.View(func(txn *badger.Txn) error {
		var err error
		entry, err = getJSON[domain.CachedMetadataEntry](txn, key)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, errors.NotFoundf("metadata %s not cached", path)
		}
		return nil, storageErr("get metadata", err)
	}
	return entry, nil
}

// PutMetadata stores a JSON record under path, replacing any prior value.
func (c *Cache) PutMetadata(ctx context.Context, path string, jsonData string) error {
	c.mu.Lock()
	key := metadataKey(c.libraryID, path)
	c.mu.Unlock()

	now := time.Now().UTC()
	entry := &domain.CachedMetadataEntry{
		Path:       path,
		JSONData:   jsonData,
		CachedAt:   now,
		LastAccess: now,
	}

	err := c.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, key, entry)
	})
	if err != nil {
		return storageErr("put metadata", err)
	}
	return nil
}

// RemoveMetadata deletes the cached record for path; absence is a no-op.
func (c *Cache) RemoveMetadata(ctx context.Context, path string) error {
	c.mu.Lock()
	key := metadataKey(c.libraryID, path)
	c.mu.Unlock()

	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return storageErr("remove metadata", err)
	}
	return nil
}
