package domain

import "time"

// TrackRecord is the remote metadata document for a track.
// Audio and artwork live in separate encrypted blobs referenced here.
type TrackRecord struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	ArtistID      string    `json:"artist_id"`
	ArtistName    string    `json:"artist_name"`
	AlbumID       string    `json:"album_id"`
	AlbumName     string    `json:"album_name"`
	DurationMs    int64     `json:"duration_ms"`
	FileFormat    string    `json:"file_format"`
	TrackNumber   int       `json:"track_number,omitempty"`
	AudioBlobID   string    `json:"audio_blob_id"`
	AudioKey      string    `json:"audio_key"` // per-blob DEK, opaque
	ArtworkBlobID string    `json:"artwork_blob_id,omitempty"`
	ArtworkKey    string    `json:"artwork_key,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AlbumRecord is the remote metadata document for an album.
type AlbumRecord struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	ArtistID      string    `json:"artist_id"`
	ArtistName    string    `json:"artist_name"`
	TrackIDs      []string  `json:"track_ids"`
	ArtworkBlobID string    `json:"artwork_blob_id,omitempty"`
	ArtworkKey    string    `json:"artwork_key,omitempty"`
	Year          int       `json:"year,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ArtistRecord is the remote metadata document for an artist.
type ArtistRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AlbumIDs  []string  `json:"album_ids"`
	TrackIDs  []string  `json:"track_ids"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LibraryIndex is the lighter per-library listing used to rebuild album
// and artist records when their full documents are missing remotely.
type LibraryIndex struct {
	Tracks    []IndexedTrack `json:"tracks"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// IndexedTrack is a minimal track row within the library index.
type IndexedTrack struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	ArtistID   string `json:"artist_id"`
	ArtistName string `json:"artist_name"`
	AlbumID    string `json:"album_id"`
	AlbumName  string `json:"album_name"`
	DurationMs int64  `json:"duration_ms"`
}
