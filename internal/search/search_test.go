package search

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(t.TempDir(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix
}

func indexTrack(t *testing.T, ix *Index, id, title, artist, album string) {
	t.Helper()
	require.NoError(t, ix.IndexTrack(context.Background(), &domain.CachedTrackEntry{
		TrackID:    id,
		Title:      title,
		ArtistName: artist,
		AlbumName:  album,
		DurationMs: 180_000,
		FileFormat: "flac",
	}))
}

func TestSearchByTitle(t *testing.T) {
	ix := newTestIndex(t)
	indexTrack(t, ix, "t1", "Harvest Moon", "Neil Young", "Harvest Moon")
	indexTrack(t, ix, "t2", "Heart of Gold", "Neil Young", "Harvest")

	res, err := ix.Search(context.Background(), "harvest moon", 10)
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "t1", res.Hits[0].TrackID)
	assert.Equal(t, "Harvest Moon", res.Hits[0].Title)
	assert.Equal(t, "Neil Young", res.Hits[0].ArtistName)
}

func TestSearchByArtist(t *testing.T) {
	ix := newTestIndex(t)
	indexTrack(t, ix, "t1", "So What", "Miles Davis", "Kind of Blue")
	indexTrack(t, ix, "t2", "Naima", "John Coltrane", "Giant Steps")

	res, err := ix.Search(context.Background(), "coltrane", 10)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "t2", res.Hits[0].TrackID)
}

func TestSearchFuzzyToleratesTypo(t *testing.T) {
	ix := newTestIndex(t)
	indexTrack(t, ix, "t1", "Thunderstruck", "AC/DC", "The Razors Edge")

	res, err := ix.Search(context.Background(), "thunderstruk", 10)
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "t1", res.Hits[0].TrackID)
}

func TestSearchPrefix(t *testing.T) {
	ix := newTestIndex(t)
	indexTrack(t, ix, "t1", "Everlong", "Foo Fighters", "The Colour and the Shape")

	res, err := ix.Search(context.Background(), "ever", 10)
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "t1", res.Hits[0].TrackID)
}

func TestIndexReplaceAndDelete(t *testing.T) {
	ix := newTestIndex(t)
	ctx := context.Background()

	indexTrack(t, ix, "t1", "Old Title", "Artist", "Album")
	indexTrack(t, ix, "t1", "New Title", "Artist", "Album")

	count, err := ix.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	require.NoError(t, ix.DeleteTrack(ctx, "t1"))
	count, err = ix.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearchLimit(t *testing.T) {
	ix := newTestIndex(t)
	indexTrack(t, ix, "t1", "Blue One", "Artist", "Album")
	indexTrack(t, ix, "t2", "Blue Two", "Artist", "Album")
	indexTrack(t, ix, "t3", "Blue Three", "Artist", "Album")

	res, err := ix.Search(context.Background(), "blue", 2)
	require.NoError(t, err)
	assert.Len(t, res.Hits, 2)
	assert.Equal(t, uint64(3), res.Total)
}

func TestOpenRebuildsOnVersionMismatch(t *testing.T) {
	dir := t.TempDir()

	ix, err := Open(dir, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	indexTrack(t, ix, "t1", "Song", "Artist", "Album")
	require.NoError(t, ix.Close())

	// Simulate an index built with an older mapping.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "search.version"), []byte("0"), 0644))

	ix, err = Open(dir, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer ix.Close()

	count, err := ix.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count, "stale index should be rebuilt empty")
}

func TestOpenReusesHealthyIndex(t *testing.T) {
	dir := t.TempDir()

	ix, err := Open(dir, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	indexTrack(t, ix, "t1", "Song", "Artist", "Album")
	require.NoError(t, ix.Close())

	ix, err = Open(dir, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer ix.Close()

	count, err := ix.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}
