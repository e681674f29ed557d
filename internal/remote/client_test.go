package remote

import (
	"context"
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
	"github.com/tunevaultapp/tunevault-client/internal/errors"
	"github.com/tunevaultapp/tunevault-client/internal/vaultcrypto"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *vaultcrypto.Cipher) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cipher := vaultcrypto.New()
	return NewClient(srv.URL, cipher, slog.New(slog.DiscardHandler), Options{}), cipher
}

func TestGetTrack(t *testing.T) {
	want := &domain.TrackRecord{ID: "trk-1", Title: "Aurora", AudioBlobID: "blob-1"}

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/tracks/trk-1", r.URL.Path)
		data, err := json.Marshal(want)
		require.NoError(t, err)
		w.Write(data)
	}))

	got, err := client.GetTrack(context.Background(), "trk-1")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
}

func TestGetTrackNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.GetTrack(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestServerErrorMapsToNetwork(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.GetLibraryIndex(context.Background())
	assert.True(t, errors.Is(err, errors.ErrNetwork))
}

func TestDownloadAudioBlobDecrypts(t *testing.T) {
	cipher := vaultcrypto.New()
	dek, err := cipher.GenerateKey()
	require.NoError(t, err)

	plaintext := []byte("audio frames")
	sealed, err := cipher.Encrypt(dek, plaintext)
	require.NoError(t, err)

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/blobs/audio/blob-7", r.URL.Path)
		w.Write(sealed)
	}))

	got, err := client.DownloadAudioBlob(context.Background(), "blob-7", dek)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestUploadAudioBlobEncrypts(t *testing.T) {
	var uploaded []byte

	client, cipher := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		uploaded, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		w.Write([]byte(`{"blob_id":"blob-new"}`))
	}))

	plaintext := []byte("fresh import")
	ref, err := client.UploadAudioBlob(context.Background(), plaintext)
	require.NoError(t, err)
	assert.Equal(t, "blob-new", ref.BlobID)
	assert.NotEqual(t, plaintext, uploaded, "upload body must be ciphertext")

	// Returned key opens what was uploaded.
	opened, err := cipher.Decrypt(ref.Key, uploaded)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestSetAndGetEncryptedRecord(t *testing.T) {
	stored := map[string][]byte{}

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			stored[r.URL.Path] = body
		case http.MethodGet:
			data, ok := stored[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Write(data)
		}
	}))

	ctx := context.Background()
	path := "user/usr-1/play_counts/2026-03-07"
	require.NoError(t, client.SetEncryptedRecord(ctx, path, []byte(`{"trk-1":3}`)))

	got, err := client.GetEncryptedRecord(ctx, path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"trk-1":3}`, string(got))

	_, err = client.GetEncryptedRecord(ctx, "user/usr-1/play_counts/1999-01-01")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDeleteEncryptedRecordIgnoresMissing(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	assert.NoError(t, client.DeleteEncryptedRecord(context.Background(), "user/u/play_counts/2020-01-01"))
}
