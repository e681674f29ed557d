// Package service provides the library-facing business logic: metadata
// lookups that prefer the local cache, artwork resolution, and rebuilding
// album and artist records from the library index when their full remote
// documents are missing.
package service

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"sort"

	"github.com/tunevaultapp/tunevault-client/internal/cache"
	"github.com/tunevaultapp/tunevault-client/internal/domain"
	"github.com/tunevaultapp/tunevault-client/internal/errors"
	"github.com/tunevaultapp/tunevault-client/internal/remote"
	"github.com/tunevaultapp/tunevault-client/internal/validation"
)

// Metadata cache paths within the library namespace.
const (
	trackPathPrefix  = "tracks/"
	albumPathPrefix  = "albums/"
	artistPathPrefix = "artists/"
	indexPath        = "index"
)

// LibraryService answers metadata queries cache-first and falls back to the
// provider, caching what it fetches. Cache failures are never fatal; the
// provider is the source of truth.
type LibraryService struct {
	cache     *cache.Cache
	provider  remote.Provider
	validator *validation.Validator
	logger    *slog.Logger
}

// NewLibraryService creates a new library service.
func NewLibraryService(c *cache.Cache, provider remote.Provider, logger *slog.Logger) *LibraryService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LibraryService{
		cache:     c,
		provider:  provider,
		validator: validation.New(),
		logger:    logger,
	}
}

type recordQuery struct {
	ID string `json:"id" validate:"required"`
}

// GetTrack returns a track record, from the metadata cache when possible.
func (s *LibraryService) GetTrack(ctx context.Context, trackID string) (*domain.TrackRecord, error) {
	if err := s.validator.Validate(recordQuery{ID: trackID}); err != nil {
		return nil, err
	}

	path := trackPathPrefix + trackID
	if rec, ok := cachedRecord[domain.TrackRecord](ctx, s, path); ok {
		return rec, nil
	}

	rec, err := s.provider.GetTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}
	s.cacheRecord(ctx, path, rec)
	return rec, nil
}

// GetAlbum returns an album record. When the full remote document is gone
// (NOT_FOUND), the record is rebuilt from the lighter library index instead
// of failing.
func (s *LibraryService) GetAlbum(ctx context.Context, albumID string) (*domain.AlbumRecord, error) {
	if err := s.validator.Validate(recordQuery{ID: albumID}); err != nil {
		return nil, err
	}

	path := albumPathPrefix + albumID
	if rec, ok := cachedRecord[domain.AlbumRecord](ctx, s, path); ok {
		return rec, nil
	}

	rec, err := s.provider.GetAlbum(ctx, albumID)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		rec, err = s.rebuildAlbum(ctx, albumID)
		if err != nil {
			return nil, err
		}
	}
	s.cacheRecord(ctx, path, rec)
	return rec, nil
}

// GetArtist returns an artist record, rebuilding from the library index
// when the full remote document is missing.
func (s *LibraryService) GetArtist(ctx context.Context, artistID string) (*domain.ArtistRecord, error) {
	if err := s.validator.Validate(recordQuery{ID: artistID}); err != nil {
		return nil, err
	}

	path := artistPathPrefix + artistID
	if rec, ok := cachedRecord[domain.ArtistRecord](ctx, s, path); ok {
		return rec, nil
	}

	rec, err := s.provider.GetArtist(ctx, artistID)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		rec, err = s.rebuildArtist(ctx, artistID)
		if err != nil {
			return nil, err
		}
	}
	s.cacheRecord(ctx, path, rec)
	return rec, nil
}

// GetLibraryIndex returns the library index, cache-first.
func (s *LibraryService) GetLibraryIndex(ctx context.Context) (*domain.LibraryIndex, error) {
	if idx, ok := cachedRecord[domain.LibraryIndex](ctx, s, indexPath); ok {
		return idx, nil
	}
	return s.refreshIndex(ctx)
}

// RefreshIndex refetches the library index from the provider and replaces
// the cached copy.
func (s *LibraryService) RefreshIndex(ctx context.Context) (*domain.LibraryIndex, error) {
	return s.refreshIndex(ctx)
}

func (s *LibraryService) refreshIndex(ctx context.Context) (*domain.LibraryIndex, error) {
	idx, err := s.provider.GetLibraryIndex(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheRecord(ctx, indexPath, idx)
	return idx, nil
}

// GetArtwork returns decrypted artwork bytes, cache-first. Downloaded
// artwork is cached by blob id so covers shared across tracks are stored
// and fetched once.
func (s *LibraryService) GetArtwork(ctx context.Context, blobID, key string) ([]byte, error) {
	if err := s.validator.Validate(recordQuery{ID: blobID}); err != nil {
		return nil, err
	}

	entry, err := s.cache.GetArtwork(ctx, blobID)
	if err == nil {
		return entry.ImageData, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		s.logger.Warn("artwork cache read failed", "blob_id", blobID, "error", err)
	}

	data, err := s.provider.DownloadArtworkBlob(ctx, blobID, key)
	if err != nil {
		return nil, err
	}
	if err := s.cache.PutArtwork(ctx, blobID, data); err != nil {
		s.logger.Warn("artwork cache fill failed", "blob_id", blobID, "error", err)
	}
	return data, nil
}

// rebuildAlbum reconstitutes an album record from the index rows that
// reference it.
func (s *LibraryService) rebuildAlbum(ctx context.Context, albumID string) (*domain.AlbumRecord, error) {
	idx, err := s.GetLibraryIndex(ctx)
	if err != nil {
		return nil, err
	}

	rec := &domain.AlbumRecord{ID: albumID, UpdatedAt: idx.UpdatedAt}
	for _, tr := range idx.Tracks {
		if tr.AlbumID != albumID {
			continue
		}
		if rec.Title == "" {
			rec.Title = tr.AlbumName
			rec.ArtistID = tr.ArtistID
			rec.ArtistName = tr.ArtistName
		}
		rec.TrackIDs = append(rec.TrackIDs, tr.ID)
	}
	if len(rec.TrackIDs) == 0 {
		return nil, errors.NotFoundf("album %s not in library index", albumID)
	}

	s.logger.Info("rebuilt album record from index", "album_id", albumID, "tracks", len(rec.TrackIDs))
	return rec, nil
}

// rebuildArtist reconstitutes an artist record from the index rows that
// reference it.
func (s *LibraryService) rebuildArtist(ctx context.Context, artistID string) (*domain.ArtistRecord, error) {
	idx, err := s.GetLibraryIndex(ctx)
	if err != nil {
		return nil, err
	}

	rec := &domain.ArtistRecord{ID: artistID, UpdatedAt: idx.UpdatedAt}
	albums := map[string]struct{}{}
	for _, tr := range idx.Tracks {
		if tr.ArtistID != artistID {
			continue
		}
		if rec.Name == "" {
			rec.Name = tr.ArtistName
		}
		rec.TrackIDs = append(rec.TrackIDs, tr.ID)
		albums[tr.AlbumID] = struct{}{}
	}
	if len(rec.TrackIDs) == 0 {
		return nil, errors.NotFoundf("artist %s not in library index", artistID)
	}
	for albumID := range albums {
		rec.AlbumIDs = append(rec.AlbumIDs, albumID)
	}
	sort.Strings(rec.AlbumIDs)

	s.logger.Info("rebuilt artist record from index", "artist_id", artistID, "tracks", len(rec.TrackIDs))
	return rec, nil
}

// cachedRecord reads and decodes a record from the metadata cache. A miss
// or decode failure is reported as ok=false, never an error.
func cachedRecord[T any](ctx context.Context, s *LibraryService, path string) (*T, bool) {
	entry, err := s.cache.GetMetadata(ctx, path)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			s.logger.Warn("metadata cache read failed", "path", path, "error", err)
		}
		return nil, false
	}
	var out T
	if err := json.Unmarshal([]byte(entry.JSONData), &out); err != nil {
		s.logger.Warn("metadata cache entry corrupt", "path", path, "error", err)
		return nil, false
	}
	return &out, true
}

// cacheRecord stores a record in the metadata cache, best effort.
func (s *LibraryService) cacheRecord(ctx context.Context, path string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("metadata encode failed", "path", path, "error", err)
		return
	}
	if err := s.cache.PutMetadata(ctx, path, string(data)); err != nil {
		s.logger.Warn("metadata cache write failed", "path", path, "error", err)
	}
}
