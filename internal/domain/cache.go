package domain

import "time"

// CachedTrackEntry is a decrypted audio track held in the local cache.
// Created on first successful download, touched on every read,
// destroyed by eviction, pruning, or explicit removal.
type CachedTrackEntry struct {
	TrackID    string    `json:"track_id"`
	AudioData  []byte    `json:"audio_data"`
	Title      string    `json:"title"`
	ArtistName string    `json:"artist_name"`
	AlbumName  string    `json:"album_name"`
	DurationMs int64     `json:"duration_ms"`
	FileFormat string    `json:"file_format"`
	CachedAt   time.Time `json:"cached_at"`
	LastAccess time.Time `json:"last_accessed"`
	SizeBytes  int64     `json:"size_bytes"`
}

// TrackMetadata is the descriptive part of a cache entry, supplied by the
// caller on put. Sizes and timestamps are the cache's business.
type TrackMetadata struct {
	Title      string `json:"title"`
	ArtistName string `json:"artist_name"`
	AlbumName  string `json:"album_name"`
	DurationMs int64  `json:"duration_ms"`
	FileFormat string `json:"file_format"`
}

// CachedArtworkEntry is decrypted artwork keyed by its content blob ID.
// Tracks and albums sharing one artwork blob share one entry; artwork is
// never duplicated per track.
type CachedArtworkEntry struct {
	BlobID     string    `json:"blob_id"`
	ImageData  []byte    `json:"image_data"`
	MimeType   string    `json:"mime_type"`
	BlurHash   string    `json:"blur_hash,omitempty"`
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	CachedAt   time.Time `json:"cached_at"`
	LastAccess time.Time `json:"last_accessed"`
	SizeBytes  int64     `json:"size_bytes"`
}

// CachedMetadataEntry caches a small remote JSON record by its storage path,
// namespaced per library instance.
type CachedMetadataEntry struct {
	Path       string    `json:"path"`
	JSONData   string    `json:"json_data"`
	CachedAt   time.Time `json:"cached_at"`
	LastAccess time.Time `json:"last_accessed"`
}

// CacheSettings are the runtime-adjustable cache preferences.
type CacheSettings struct {
	MaxSizeBytes  int64 `json:"max_size_bytes"`
	MaxAgeDays    int   `json:"max_age_days"`
	AutoPrefetch  bool  `json:"auto_prefetch"`
	PrefetchCount int   `json:"prefetch_count"`
}

// DefaultCacheSettings returns the documented defaults:
// 2 GiB budget, 30 day retention, prefetching on.
func DefaultCacheSettings() CacheSettings {
	return CacheSettings{
		MaxSizeBytes:  2 << 30,
		MaxAgeDays:    30,
		AutoPrefetch:  true,
		PrefetchCount: 1,
	}
}
