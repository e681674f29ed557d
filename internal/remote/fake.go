package remote

import (
	"context"
	"fmt"
	"sync"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
	"github.com/tunevaultapp/tunevault-client/internal/errors"
	"github.com/tunevaultapp/tunevault-client/internal/id"
)

// Fake is an in-memory Provider for tests. Blobs are stored unencrypted;
// the key is recorded so mismatched keys can be detected.
type Fake struct {
	mu sync.Mutex

	Tracks  map[string]*domain.TrackRecord
	Albums  map[string]*domain.AlbumRecord
	Artists map[string]*domain.ArtistRecord
	Index   *domain.LibraryIndex

	blobs   map[string]fakeBlob
	records map[string][]byte

	// Err, when set, is returned by every call. Simulates provider outage.
	Err error

	// Call counters keyed by method name.
	Calls map[string]int
}

type fakeBlob struct {
	data []byte
	key  string
}

// NewFake creates an empty fake provider.
func NewFake() *Fake {
	return &Fake{
		Tracks:  make(map[string]*domain.TrackRecord),
		Albums:  make(map[string]*domain.AlbumRecord),
		Artists: make(map[string]*domain.ArtistRecord),
		blobs:   make(map[string]fakeBlob),
		records: make(map[string][]byte),
		Calls:   make(map[string]int),
	}
}

// AddAudioBlob seeds a blob and returns its reference.
func (f *Fake) AddAudioBlob(data []byte) *BlobRef {
	f.mu.Lock()
	defer f.mu.Unlock()

	ref := &BlobRef{BlobID: id.MustGenerate("blob"), Key: id.MustGenerate("dek")}
	f.blobs[ref.BlobID] = fakeBlob{data: data, key: ref.Key}
	return ref
}

// AddArtworkBlob seeds an artwork blob and returns its reference.
func (f *Fake) AddArtworkBlob(data []byte) *BlobRef {
	return f.AddAudioBlob(data)
}

// CallCount returns how many times the named method was invoked.
func (f *Fake) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[method]
}

func (f *Fake) begin(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[method]++
	return f.Err
}

// GetTrack implements Provider.
func (f *Fake) GetTrack(_ context.Context, trackID string) (*domain.TrackRecord, error) {
	if err := f.begin("GetTrack"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.Tracks[trackID]
	if !ok {
		return nil, errors.NotFoundf("track %s not found", trackID)
	}
	return rec, nil
}

// GetAlbum implements Provider.
func (f *Fake) GetAlbum(_ context.Context, albumID string) (*domain.AlbumRecord, error) {
	if err := f.begin("GetAlbum"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.Albums[albumID]
	if !ok {
		return nil, errors.NotFoundf("album %s not found", albumID)
	}
	return rec, nil
}

// GetArtist implements Provider.
func (f *Fake) GetArtist(_ context.Context, artistID string) (*domain.ArtistRecord, error) {
	if err := f.begin("GetArtist"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.Artists[artistID]
	if !ok {
		return nil, errors.NotFoundf("artist %s not found", artistID)
	}
	return rec, nil
}

// GetLibraryIndex implements Provider.
func (f *Fake) GetLibraryIndex(_ context.Context) (*domain.LibraryIndex, error) {
	if err := f.begin("GetLibraryIndex"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Index == nil {
		return nil, errors.NotFound("library index not found")
	}
	return f.Index, nil
}

// DownloadAudioBlob implements Provider.
func (f *Fake) DownloadAudioBlob(_ context.Context, blobID, key string) ([]byte, error) {
	if err := f.begin("DownloadAudioBlob"); err != nil {
		return nil, err
	}
	return f.openBlob(blobID, key)
}

// UploadAudioBlob implements Provider.
func (f *Fake) UploadAudioBlob(_ context.Context, data []byte) (*BlobRef, error) {
	if err := f.begin("UploadAudioBlob"); err != nil {
		return nil, err
	}
	return f.AddAudioBlob(data), nil
}

// DownloadArtworkBlob implements Provider.
func (f *Fake) DownloadArtworkBlob(_ context.Context, blobID, key string) ([]byte, error) {
	if err := f.begin("DownloadArtworkBlob"); err != nil {
		return nil, err
	}
	return f.openBlob(blobID, key)
}

// UploadArtworkBlob implements Provider.
func (f *Fake) UploadArtworkBlob(_ context.Context, data []byte) (*BlobRef, error) {
	if err := f.begin("UploadArtworkBlob"); err != nil {
		return nil, err
	}
	return f.AddAudioBlob(data), nil
}

// GetEncryptedRecord implements Provider.
func (f *Fake) GetEncryptedRecord(_ context.Context, path string) ([]byte, error) {
	if err := f.begin("GetEncryptedRecord"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.records[path]
	if !ok {
		return nil, errors.NotFoundf("record %s not found", path)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// SetEncryptedRecord implements Provider.
func (f *Fake) SetEncryptedRecord(_ context.Context, path string, jsonData []byte) error {
	if err := f.begin("SetEncryptedRecord"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := make([]byte, len(jsonData))
	copy(stored, jsonData)
	f.records[path] = stored
	return nil
}

// DeleteEncryptedRecord implements Provider.
func (f *Fake) DeleteEncryptedRecord(_ context.Context, path string) error {
	if err := f.begin("DeleteEncryptedRecord"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, path)
	return nil
}

// RecordPaths returns the paths of all stored records.
func (f *Fake) RecordPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	paths := make([]string, 0, len(f.records))
	for p := range f.records {
		paths = append(paths, p)
	}
	return paths
}

func (f *Fake) openBlob(blobID, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	blob, ok := f.blobs[blobID]
	if !ok {
		return nil, errors.NotFoundf("blob %s not found", blobID)
	}
	if blob.key != key {
		return nil, errors.Decrypt(fmt.Sprintf("wrong key for blob %s", blobID))
	}
	out := make([]byte, len(blob.data))
	copy(out, blob.data)
	return out, nil
}

// Interface guard.
var _ Provider = (*Fake)(nil)
