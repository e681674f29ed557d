package playcount

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
	"github.com/tunevaultapp/tunevault-client/internal/errors"
	"github.com/tunevaultapp/tunevault-client/internal/player"
	"github.com/tunevaultapp/tunevault-client/internal/remote"
)

const testUserID = "user-1"

var testNow = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

type aggregatorFixture struct {
	agg      *Aggregator
	provider *remote.Fake
	events   *player.Dispatcher
}

func newAggregatorFixture(t *testing.T) *aggregatorFixture {
	t.Helper()
	provider := remote.NewFake()
	events := player.NewDispatcher(slog.New(slog.DiscardHandler))
	agg := NewAggregator(provider, testUserID, events, slog.New(slog.DiscardHandler))
	agg.now = func() time.Time { return testNow }
	t.Cleanup(func() { agg.Close() })

	return &aggregatorFixture{agg: agg, provider: provider, events: events}
}

func (f *aggregatorFixture) seedBucket(t *testing.T, dateKey string, counts domain.PlayCounts) {
	t.Helper()
	data, err := json.Marshal(counts)
	require.NoError(t, err)
	path := domain.PlayCountPath(testUserID, dateKey)
	require.NoError(t, f.provider.SetEncryptedRecord(context.Background(), path, data))
}

func (f *aggregatorFixture) bucket(t *testing.T, dateKey string) (domain.PlayCounts, bool) {
	t.Helper()
	path := domain.PlayCountPath(testUserID, dateKey)
	data, err := f.provider.GetEncryptedRecord(context.Background(), path)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, false
	}
	require.NoError(t, err)
	var counts domain.PlayCounts
	require.NoError(t, json.Unmarshal(data, &counts))
	return counts, true
}

// startSession emits loading+loaded for a track.
func (f *aggregatorFixture) startSession(trackID string, durationMs int64) {
	f.events.Emit(player.Event{Type: player.EventLoading, TrackID: trackID})
	f.events.Emit(player.Event{Type: player.EventLoaded, TrackID: trackID, DurationMs: durationMs})
}

func (f *aggregatorFixture) tick(trackID string, positionMs int64) {
	f.events.Emit(player.Event{Type: player.EventTimeUpdate, TrackID: trackID, PositionMs: positionMs})
}

func (f *aggregatorFixture) end(trackID string) {
	f.events.Emit(player.Event{Type: player.EventEnded, TrackID: trackID})
}

func TestCountsAtThirtySeconds(t *testing.T) {
	f := newAggregatorFixture(t)

	f.startSession("t1", 200_000)
	f.tick("t1", 29_999)
	f.agg.Flush()

	counts, found := f.bucket(t, "2026-08-26")
	assert.False(t, found, "no play should be recorded below the threshold")
	assert.Nil(t, counts)

	f.tick("t1", 30_000)
	f.agg.Flush()

	counts, found = f.bucket(t, "2026-08-26")
	require.True(t, found)
	assert.Equal(t, int64(1), counts["t1"])
}

func TestShortTrackCountsAtHalfDuration(t *testing.T) {
	f := newAggregatorFixture(t)

	f.startSession("short", 40_000)
	f.tick("short", 19_999)
	f.agg.Flush()
	_, found := f.bucket(t, "2026-08-26")
	assert.False(t, found)

	f.tick("short", 20_000)
	f.agg.Flush()
	counts, found := f.bucket(t, "2026-08-26")
	require.True(t, found)
	assert.Equal(t, int64(1), counts["short"])
}

func TestExactlyOncePerSession(t *testing.T) {
	f := newAggregatorFixture(t)

	f.startSession("t1", 200_000)
	f.tick("t1", 30_000)
	f.tick("t1", 60_000)
	f.tick("t1", 90_000)
	f.end("t1")
	f.agg.Flush()

	counts, _ := f.bucket(t, "2026-08-26")
	assert.Equal(t, int64(1), counts["t1"])
}

func TestEndedCountsTracksBelowThreshold(t *testing.T) {
	f := newAggregatorFixture(t)

	// A 10 second track ends before any threshold applies; ended must
	// still record exactly one play.
	f.startSession("brief", 10_000)
	f.tick("brief", 4_000)
	f.end("brief")
	f.agg.Flush()

	counts, _ := f.bucket(t, "2026-08-26")
	assert.Equal(t, int64(1), counts["brief"])
}

func TestEndedWithoutLoadedStillCounts(t *testing.T) {
	f := newAggregatorFixture(t)

	f.events.Emit(player.Event{Type: player.EventLoading, TrackID: "t1"})
	f.end("t1")
	f.agg.Flush()

	counts, _ := f.bucket(t, "2026-08-26")
	assert.Equal(t, int64(1), counts["t1"])
}

func TestNewSessionCountsAgain(t *testing.T) {
	f := newAggregatorFixture(t)

	for i := 0; i < 2; i++ {
		f.startSession("t1", 200_000)
		f.tick("t1", 30_000)
	}
	f.agg.Flush()

	counts, _ := f.bucket(t, "2026-08-26")
	assert.Equal(t, int64(2), counts["t1"])
}

func TestQueueOrdersAllWrites(t *testing.T) {
	f := newAggregatorFixture(t)

	// Many sessions enqueued back to back: every read-modify-write must
	// see its predecessor's result, so no increment is lost.
	for i := 0; i < 25; i++ {
		f.startSession("t1", 200_000)
		f.tick("t1", 30_000)
	}
	f.agg.Flush()

	total, err := f.agg.GetPlayCount(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
}

func TestDailyCompactionIntoMonth(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()

	// A daily document exactly 7 days old, plus an existing monthly bucket.
	f.seedBucket(t, "2026-08-19", domain.PlayCounts{"A": 3})
	f.seedBucket(t, "2026-08", domain.PlayCounts{"A": 2})

	before, err := f.agg.GetPlayCount(ctx, "A")
	require.NoError(t, err)
	require.Equal(t, int64(5), before)

	// Any recorded play triggers the compaction pass.
	f.startSession("other", 200_000)
	f.tick("other", 30_000)
	f.agg.Flush()

	_, found := f.bucket(t, "2026-08-19")
	assert.False(t, found, "expired daily document should be deleted")

	monthly, found := f.bucket(t, "2026-08")
	require.True(t, found)
	assert.Equal(t, int64(5), monthly["A"])

	after, err := f.agg.GetPlayCount(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, before, after, "compaction must not change totals")
}

func TestMonthlyCompactionIntoYear(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()

	// A monthly document exactly 12 months old, plus its year bucket.
	f.seedBucket(t, "2025-08", domain.PlayCounts{"B": 4})
	f.seedBucket(t, "2025", domain.PlayCounts{"B": 1})

	before, err := f.agg.GetPlayCount(ctx, "B")
	require.NoError(t, err)
	require.Equal(t, int64(5), before)

	f.startSession("other", 200_000)
	f.tick("other", 30_000)
	f.agg.Flush()

	_, found := f.bucket(t, "2025-08")
	assert.False(t, found, "expired monthly document should be deleted")

	yearly, found := f.bucket(t, "2025")
	require.True(t, found)
	assert.Equal(t, int64(5), yearly["B"])

	after, err := f.agg.GetPlayCount(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLeapDayDoesNotCompactHotMonth(t *testing.T) {
	f := newAggregatorFixture(t)
	ctx := context.Background()

	// Naive month subtraction from Feb 29 normalizes to Mar 1, which would
	// target 2027-03: a bucket only eleven months old and still hot.
	f.agg.now = func() time.Time { return time.Date(2028, 2, 29, 12, 0, 0, 0, time.UTC) }
	f.seedBucket(t, "2027-03", domain.PlayCounts{"hot": 5})
	f.seedBucket(t, "2027-02", domain.PlayCounts{"old": 3})

	f.startSession("other", 200_000)
	f.tick("other", 30_000)
	f.agg.Flush()

	monthly, found := f.bucket(t, "2027-03")
	require.True(t, found, "eleven-month-old monthly document must stay put")
	assert.Equal(t, int64(5), monthly["hot"])

	top, err := f.agg.GetTopTracks(ctx, "2027-03", 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(5), top[0].Count)

	// The month twelve months back is the one that compacts.
	_, found = f.bucket(t, "2027-02")
	assert.False(t, found, "expired monthly document should be deleted")
	yearly, found := f.bucket(t, "2027")
	require.True(t, found)
	assert.Equal(t, int64(3), yearly["old"])
}

func TestCompactionFailureIsNonFatal(t *testing.T) {
	f := newAggregatorFixture(t)

	f.startSession("t1", 200_000)
	f.tick("t1", 30_000)
	f.agg.Flush()

	// Nothing to compact and nothing to fail: counts are intact.
	counts, _ := f.bucket(t, "2026-08-26")
	assert.Equal(t, int64(1), counts["t1"])
}

func TestGetTopTracksWeek(t *testing.T) {
	f := newAggregatorFixture(t)

	f.seedBucket(t, "2026-08-26", domain.PlayCounts{"a": 2, "b": 1})
	f.seedBucket(t, "2026-08-23", domain.PlayCounts{"a": 1, "c": 4})
	f.seedBucket(t, "2026-08-20", domain.PlayCounts{"b": 3})
	// Outside the 7 day window, must be ignored.
	f.seedBucket(t, "2026-08-10", domain.PlayCounts{"a": 50})

	top, err := f.agg.GetTopTracks(context.Background(), "week", 10)
	require.NoError(t, err)
	assert.Equal(t, []domain.TrackPlayCount{
		{TrackID: "b", Count: 4},
		{TrackID: "c", Count: 4},
		{TrackID: "a", Count: 3},
	}, top, "ties break by track id for reproducibility")
}

func TestGetTopTracksWeekLimit(t *testing.T) {
	f := newAggregatorFixture(t)
	f.seedBucket(t, "2026-08-26", domain.PlayCounts{"a": 3, "b": 2, "c": 1})

	top, err := f.agg.GetTopTracks(context.Background(), "week", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "a", top[0].TrackID)
	assert.Equal(t, "b", top[1].TrackID)
}

func TestGetTopTracksMonthIncludesHotDailies(t *testing.T) {
	f := newAggregatorFixture(t)

	// Compacted month document plus a not-yet-compacted daily in the
	// same month.
	f.seedBucket(t, "2026-08", domain.PlayCounts{"x": 10})
	f.seedBucket(t, "2026-08-26", domain.PlayCounts{"x": 1, "y": 5})

	top, err := f.agg.GetTopTracks(context.Background(), "2026-08", 10)
	require.NoError(t, err)
	assert.Equal(t, []domain.TrackPlayCount{
		{TrackID: "x", Count: 11},
		{TrackID: "y", Count: 5},
	}, top)
}

func TestGetTopTracksYearIncludesHotMonthlies(t *testing.T) {
	f := newAggregatorFixture(t)

	// Year bucket plus a still-hot monthly from late 2025 (within the
	// trailing 12 months from 2026-08).
	f.seedBucket(t, "2025", domain.PlayCounts{"z": 3})
	f.seedBucket(t, "2025-10", domain.PlayCounts{"z": 2, "w": 1})

	top, err := f.agg.GetTopTracks(context.Background(), "2025", 10)
	require.NoError(t, err)
	assert.Equal(t, []domain.TrackPlayCount{
		{TrackID: "z", Count: 5},
		{TrackID: "w", Count: 1},
	}, top)
}

func TestGetTopTracksInvalidPeriod(t *testing.T) {
	f := newAggregatorFixture(t)

	_, err := f.agg.GetTopTracks(context.Background(), "fortnight", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestGetPlayCountMissingDocumentsAreZero(t *testing.T) {
	f := newAggregatorFixture(t)

	total, err := f.agg.GetPlayCount(context.Background(), "never-played")
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}

func TestGetPlayCountSumsAllTiers(t *testing.T) {
	f := newAggregatorFixture(t)

	f.seedBucket(t, "2026-08-26", domain.PlayCounts{"t": 1})
	f.seedBucket(t, "2026-03", domain.PlayCounts{"t": 2})
	f.seedBucket(t, "2019", domain.PlayCounts{"t": 7})

	total, err := f.agg.GetPlayCount(context.Background(), "t")
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
}

func TestGetRecentlyPopular(t *testing.T) {
	f := newAggregatorFixture(t)

	f.seedBucket(t, "2026-08-26", domain.PlayCounts{"a": 1, "b": 2})
	f.seedBucket(t, "2026-08-25", domain.PlayCounts{"a": 2, "b": 3})
	f.seedBucket(t, "2026-08-23", domain.PlayCounts{"a": 40})

	top, err := f.agg.GetRecentlyPopular(context.Background(), 2, 10)
	require.NoError(t, err)
	assert.Equal(t, []domain.TrackPlayCount{
		{TrackID: "b", Count: 5},
		{TrackID: "a", Count: 3},
	}, top)

	// Limit applies after ranking.
	top, err = f.agg.GetRecentlyPopular(context.Background(), 2, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "b", top[0].TrackID)
}

func TestCloseUnsubscribesAndIsIdempotent(t *testing.T) {
	f := newAggregatorFixture(t)

	require.NoError(t, f.agg.Close())
	require.NoError(t, f.agg.Close())

	// Events after Close are ignored.
	f.startSession("t1", 200_000)
	f.tick("t1", 30_000)

	_, found := f.bucket(t, "2026-08-26")
	assert.False(t, found)
}
