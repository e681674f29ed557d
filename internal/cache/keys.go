package cache

import (
	"bytes"
	"encoding/json/v2"
	"fmt"
	"iter"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
)

const schemaVersion = "1"

// Key layout. Primary records are JSON values; index keys carry the target
// id as their value so eviction and pruning scans never deserialize entries
// they end up skipping.
//
//	schema:<collection>                      -> schema version marker
//	track:<trackID>                          -> CachedTrackEntry
//	artwork:<blobID>                         -> CachedArtworkEntry
//	meta:<libraryID>:<path>                  -> CachedMetadataEntry
//	idx:track:accessed:<ts>:<trackID>        -> trackID (LRU order)
//	idx:track:cached:<ts>:<trackID>          -> trackID (age order)
const (
	trackPrefix    = "track:"
	artworkPrefix  = "artwork:"
	metaPrefix     = "meta:"
	accessedPrefix = "idx:track:accessed:"
	cachedPrefix   = "idx:track:cached:"
)

func schemaKeys() [][]byte {
	return [][]byte{
		[]byte("schema:tracks"),
		[]byte("schema:artwork"),
		[]byte("schema:metadata"),
	}
}

func trackKey(trackID string) []byte {
	return []byte(trackPrefix + trackID)
}

func artworkKey(blobID string) []byte {
	return []byte(artworkPrefix + blobID)
}

func metadataKey(libraryID, path string) []byte {
	return []byte(metaPrefix + libraryID + ":" + path)
}

// sortableTimestamp renders t so lexicographic key order equals time order.
// Nanoseconds are zero-padded to full width; Go's native RFC3339 formatting
// trims trailing zeros, which would break the ordering.
func sortableTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05") + fmt.Sprintf(".%09d", t.Nanosecond()) + "Z"
}

func accessedIndexKey(lastAccess time.Time, trackID string) []byte {
	return []byte(accessedPrefix + sortableTimestamp(lastAccess) + ":" + trackID)
}

func cachedIndexKey(cachedAt time.Time, trackID string) []byte {
	return []byte(cachedPrefix + sortableTimestamp(cachedAt) + ":" + trackID)
}

func getJSON[T any](txn *badger.Txn, key []byte) (*T, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	var out T
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

// scanTracks yields every cached track entry in key order.
func scanTracks(txn *badger.Txn) iter.Seq2[*domain.CachedTrackEntry, error] {
	return func(yield func(*domain.CachedTrackEntry, error) bool) {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(trackPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var entry domain.CachedTrackEntry
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if !yield(&entry, nil) {
				return
			}
		}
	}
}

// scanIndex yields (indexKey, trackID) pairs under prefix in key order,
// which for timestamp-keyed indexes is oldest first.
func scanIndex(txn *badger.Txn, prefix string) iter.Seq2[[]byte, string] {
	return func(yield func([]byte, string) bool) {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id, err := item.ValueCopy(nil)
			if err != nil {
				continue
			}
			key := bytes.Clone(item.Key())
			if !yield(key, string(id)) {
				return
			}
		}
	}
}
