package playcount

import (
	"context"
	"encoding/json/v2"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
	"github.com/tunevaultapp/tunevault-client/internal/errors"
	"github.com/tunevaultapp/tunevault-client/internal/remote"
)

// store reads and writes date-bucketed play-count documents through the
// provider's generic encrypted-record interface. The underlying store has
// no atomic increment, so every mutation is a read-modify-write and callers
// must serialize writes themselves.
type store struct {
	provider remote.Provider
	userID   string
}

// load returns the bucket for dateKey. A missing document is reported with
// found=false and an empty map, never an error: absent buckets mean zero.
func (s *store) load(ctx context.Context, dateKey string) (domain.PlayCounts, bool, error) {
	data, err := s.provider.GetEncryptedRecord(ctx, domain.PlayCountPath(s.userID, dateKey))
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return domain.PlayCounts{}, false, nil
		}
		return nil, false, err
	}

	var counts domain.PlayCounts
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, false, errors.Wrapf(err, errors.CodeInternal, "decode play counts %s", dateKey)
	}
	if counts == nil {
		counts = domain.PlayCounts{}
	}
	return counts, true, nil
}

// save replaces the bucket for dateKey.
func (s *store) save(ctx context.Context, dateKey string, counts domain.PlayCounts) error {
	data, err := json.Marshal(counts)
	if err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "encode play counts %s", dateKey)
	}
	return s.provider.SetEncryptedRecord(ctx, domain.PlayCountPath(s.userID, dateKey), data)
}

// delete removes the bucket for dateKey; absent buckets are a no-op.
func (s *store) delete(ctx context.Context, dateKey string) error {
	return s.provider.DeleteEncryptedRecord(ctx, domain.PlayCountPath(s.userID, dateKey))
}
