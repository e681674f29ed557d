package remote

import (
	"bytes"
	"context"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
	"github.com/tunevaultapp/tunevault-client/internal/errors"
	"github.com/tunevaultapp/tunevault-client/internal/ratelimit"
	"github.com/tunevaultapp/tunevault-client/internal/vaultcrypto"
)

const (
	defaultTimeout = 30 * time.Second
	defaultRPS     = 10.0
	defaultBurst   = 20

	// Rate limit buckets: record traffic is chatty and cheap, blob traffic
	// is rare and heavy. Limiting them separately keeps metadata reads
	// responsive during a download.
	limitRecords = "records"
	limitBlobs   = "blobs"
)

// Client is a rate-limited HTTP implementation of Provider.
type Client struct {
	http    *http.Client
	cipher  *vaultcrypto.Cipher
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
	baseURL string
}

// Options tune the client; zero values fall back to defaults.
type Options struct {
	Timeout time.Duration
	RPS     float64
	Burst   int
}

// NewClient creates a provider client for the given base URL.
func NewClient(baseURL string, cipher *vaultcrypto.Cipher, logger *slog.Logger, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RPS <= 0 {
		opts.RPS = defaultRPS
	}
	if opts.Burst <= 0 {
		opts.Burst = defaultBurst
	}

	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		cipher:  cipher,
		limiter: ratelimit.New(opts.RPS, opts.Burst),
		logger:  logger,
		baseURL: baseURL,
	}
}

// GetTrack fetches a track metadata record.
func (c *Client) GetTrack(ctx context.Context, trackID string) (*domain.TrackRecord, error) {
	var rec domain.TrackRecord
	if err := c.getJSON(ctx, "/v1/tracks/"+url.PathEscape(trackID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetAlbum fetches an album metadata record.
func (c *Client) GetAlbum(ctx context.Context, albumID string) (*domain.AlbumRecord, error) {
	var rec domain.AlbumRecord
	if err := c.getJSON(ctx, "/v1/albums/"+url.PathEscape(albumID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetArtist fetches an artist metadata record.
func (c *Client) GetArtist(ctx context.Context, artistID string) (*domain.ArtistRecord, error) {
	var rec domain.ArtistRecord
	if err := c.getJSON(ctx, "/v1/artists/"+url.PathEscape(artistID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetLibraryIndex fetches the light per-library track listing.
func (c *Client) GetLibraryIndex(ctx context.Context) (*domain.LibraryIndex, error) {
	var idx domain.LibraryIndex
	if err := c.getJSON(ctx, "/v1/index", &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

// DownloadAudioBlob fetches and decrypts an audio blob.
func (c *Client) DownloadAudioBlob(ctx context.Context, blobID, key string) ([]byte, error) {
	return c.downloadBlob(ctx, "/v1/blobs/audio/", blobID, key)
}

// UploadAudioBlob encrypts data under a fresh DEK and uploads it.
func (c *Client) UploadAudioBlob(ctx context.Context, data []byte) (*BlobRef, error) {
	return c.uploadBlob(ctx, "/v1/blobs/audio", data)
}

// DownloadArtworkBlob fetches and decrypts an artwork blob.
func (c *Client) DownloadArtworkBlob(ctx context.Context, blobID, key string) ([]byte, error) {
	return c.downloadBlob(ctx, "/v1/blobs/artwork/", blobID, key)
}

// UploadArtworkBlob encrypts data under a fresh DEK and uploads it.
func (c *Client) UploadArtworkBlob(ctx context.Context, data []byte) (*BlobRef, error) {
	return c.uploadBlob(ctx, "/v1/blobs/artwork", data)
}

// GetEncryptedRecord fetches a raw path-addressed record.
func (c *Client) GetEncryptedRecord(ctx context.Context, path string) ([]byte, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/records/"+path, nil, limitRecords)
}

// SetEncryptedRecord writes a raw path-addressed record.
func (c *Client) SetEncryptedRecord(ctx context.Context, path string, jsonData []byte) error {
	_, err := c.doRequest(ctx, http.MethodPut, "/v1/records/"+path, jsonData, limitRecords)
	return err
}

// DeleteEncryptedRecord removes a path-addressed record. Deleting a missing
// record is not an error.
func (c *Client) DeleteEncryptedRecord(ctx context.Context, path string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/v1/records/"+path, nil, limitRecords)
	if errors.Is(err, errors.ErrNotFound) {
		return nil
	}
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, nil, limitRecords)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return errors.Wrap(err, errors.CodeNetwork, "decode response")
	}
	return nil
}

func (c *Client) downloadBlob(ctx context.Context, prefix, blobID, key string) ([]byte, error) {
	ciphertext, err := c.doRequest(ctx, http.MethodGet, prefix+url.PathEscape(blobID), nil, limitBlobs)
	if err != nil {
		return nil, err
	}
	return c.cipher.Decrypt(key, ciphertext)
}

func (c *Client) uploadBlob(ctx context.Context, path string, data []byte) (*BlobRef, error) {
	dek, err := c.cipher.GenerateKey()
	if err != nil {
		return nil, err
	}

	sealed, err := c.cipher.Encrypt(dek, data)
	if err != nil {
		return nil, err
	}

	body, err := c.doRequest(ctx, http.MethodPost, path, sealed, limitBlobs)
	if err != nil {
		return nil, err
	}

	var resp struct {
		BlobID string `json:"blob_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, errors.CodeNetwork, "decode upload response")
	}

	return &BlobRef{BlobID: resp.BlobID, Key: dek}, nil
}

// doRequest executes an HTTP request with rate limiting and maps status
// codes onto the domain error taxonomy.
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte, limitKey string) ([]byte, error) {
	if err := c.limiter.Wait(ctx, limitKey); err != nil {
		return nil, errors.Wrap(err, errors.CodeNetwork, "rate limit wait")
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetwork, "create request")
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "TuneVault/1.0")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	c.logger.Debug("provider request", "method", method, "path", path, "request_id", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetwork, "execute request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeNetwork, "read response")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return respBody, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.NotFoundf("%s %s: not found", method, path)
	default:
		return nil, errors.Networkf("unexpected status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s... (%d bytes)", b[:n], len(b))
}
