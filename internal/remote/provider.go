// Package remote talks to the encrypted content provider: metadata records,
// play-count documents, and encrypted audio/artwork blobs.
package remote

import (
	"context"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
)

// BlobRef identifies an uploaded blob and the key needed to open it.
type BlobRef struct {
	BlobID string `json:"blob_id"`
	Key    string `json:"key"`
}

// Provider is the contract the engine consumes from the remote store.
//
// Blob downloads return decrypted bytes: transport and decryption are the
// provider's problem, caching the result is the caller's. Missing records
// surface as NOT_FOUND-coded errors; transport failures as NETWORK.
type Provider interface {
	// Metadata records.
	GetTrack(ctx context.Context, trackID string) (*domain.TrackRecord, error)
	GetAlbum(ctx context.Context, albumID string) (*domain.AlbumRecord, error)
	GetArtist(ctx context.Context, artistID string) (*domain.ArtistRecord, error)
	GetLibraryIndex(ctx context.Context) (*domain.LibraryIndex, error)

	// Encrypted blobs.
	DownloadAudioBlob(ctx context.Context, blobID, key string) ([]byte, error)
	UploadAudioBlob(ctx context.Context, data []byte) (*BlobRef, error)
	DownloadArtworkBlob(ctx context.Context, blobID, key string) ([]byte, error)
	UploadArtworkBlob(ctx context.Context, data []byte) (*BlobRef, error)

	// Generic path-addressed records (play-count documents live here).
	GetEncryptedRecord(ctx context.Context, path string) ([]byte, error)
	SetEncryptedRecord(ctx context.Context, path string, jsonData []byte) error
	DeleteEncryptedRecord(ctx context.Context, path string) error
}
