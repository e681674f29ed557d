// Package playcount turns playback events into persisted, date-bucketed
// play counts. Detection guarantees exactly one counted play per listening
// session; persistence funnels every increment through one ordered write
// queue because the remote store has no atomic increment.
package playcount

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
	"github.com/tunevaultapp/tunevault-client/internal/errors"
	"github.com/tunevaultapp/tunevault-client/internal/player"
	"github.com/tunevaultapp/tunevault-client/internal/remote"
)

const (
	// playThresholdMs counts a play once 30 seconds have been heard.
	playThresholdMs = 30_000
	// shortTrackCutoffMs: tracks at or under a minute count at 50% instead.
	shortTrackCutoffMs = 60_000

	hotDailyDays   = 7
	hotMonthlyMons = 12
	maxYearlyDocs  = 20
)

// session is the per-load play-detection state, reset on every loading
// event so each track session counts at most once.
type session struct {
	trackID    string
	durationMs int64
	counted    bool
}

// Aggregator subscribes to a playback event stream, detects qualifying
// plays, and maintains the daily/monthly/yearly bucket documents.
type Aggregator struct {
	logger *slog.Logger
	store  *store
	now    func() time.Time

	queue   chan string
	pending sync.WaitGroup
	done    chan struct{}

	unsubscribe func()
	closeOnce   sync.Once

	mu      sync.Mutex
	session session
}

// NewAggregator wires an aggregator to the provider's record store and
// subscribes it to the playback event stream.
func NewAggregator(provider remote.Provider, userID string, events *player.Dispatcher, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &Aggregator{
		logger: logger,
		store:  &store{provider: provider, userID: userID},
		now:    time.Now,
		queue:  make(chan string, 256),
		done:   make(chan struct{}),
	}

	subID := events.Subscribe(a.handleEvent)
	a.unsubscribe = func() { events.Unsubscribe(subID) }

	go a.worker()
	return a
}

// handleEvent runs the play-detection state machine.
func (a *Aggregator) handleEvent(ev player.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch ev.Type {
	case player.EventLoading:
		a.session = session{trackID: ev.TrackID}

	case player.EventLoaded:
		if ev.TrackID == a.session.trackID {
			a.session.durationMs = ev.DurationMs
		}

	case player.EventTimeUpdate:
		s := &a.session
		if s.counted || s.trackID == "" || s.durationMs <= 0 {
			return
		}
		threshold := int64(playThresholdMs)
		if s.durationMs <= shortTrackCutoffMs {
			threshold = s.durationMs / 2
		}
		if ev.PositionMs >= threshold {
			s.counted = true
			a.enqueue(s.trackID)
		}

	case player.EventEnded:
		// Covers tracks too short to cross the threshold before ending.
		s := &a.session
		if !s.counted && s.trackID != "" {
			s.counted = true
			a.enqueue(s.trackID)
		}
	}
}

func (a *Aggregator) enqueue(trackID string) {
	a.pending.Add(1)
	a.queue <- trackID
}

// worker is the single writer: it applies increments strictly in enqueue
// order so every read-modify-write sees the previous write's result.
func (a *Aggregator) worker() {
	for trackID := range a.queue {
		ctx := context.Background()
		a.recordPlay(ctx, trackID)
		a.compact(ctx)
		a.pending.Done()
	}
	close(a.done)
}

func (a *Aggregator) recordPlay(ctx context.Context, trackID string) {
	dayKey := domain.DailyKey(a.now())
	counts, _, err := a.store.load(ctx, dayKey)
	if err != nil {
		a.logger.Warn("play count read failed", "day", dayKey, "track_id", trackID, "error", err)
		return
	}
	counts[trackID]++
	if err := a.store.save(ctx, dayKey, counts); err != nil {
		a.logger.Warn("play count write failed", "day", dayKey, "track_id", trackID, "error", err)
		return
	}
	a.logger.Debug("recorded play", "track_id", trackID, "day", dayKey)
}

// compact merges expired buckets upward: the daily document exactly 7 days
// old into its month, then the monthly document exactly 12 months old into
// its year. Both passes are best effort; a skipped cycle loses nothing
// because absent documents always read as empty.
func (a *Aggregator) compact(ctx context.Context) {
	now := a.now()

	expiredDay := now.AddDate(0, 0, -hotDailyDays)
	a.mergeUp(ctx, domain.DailyKey(expiredDay), domain.MonthlyKey(expiredDay))

	// Anchor to the first of the month so subtracting twelve months never
	// normalizes across a short month (Feb 29 minus a year is not Mar 1).
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	expiredMonth := firstOfMonth.AddDate(0, -hotMonthlyMons, 0)
	a.mergeUp(ctx, domain.MonthlyKey(expiredMonth), domain.YearlyKey(expiredMonth))
}

// mergeUp folds the bucket at fromKey into the one at toKey and deletes the
// source. The source is deleted only after the merged target is saved.
func (a *Aggregator) mergeUp(ctx context.Context, fromKey, toKey string) {
	counts, found, err := a.store.load(ctx, fromKey)
	if err != nil {
		a.logger.Warn("compaction read failed", "from", fromKey, "error", err)
		return
	}
	if !found {
		return
	}

	target, _, err := a.store.load(ctx, toKey)
	if err != nil {
		a.logger.Warn("compaction read failed", "to", toKey, "error", err)
		return
	}
	target.Merge(counts)

	if err := a.store.save(ctx, toKey, target); err != nil {
		a.logger.Warn("compaction write failed", "to", toKey, "error", err)
		return
	}
	if err := a.store.delete(ctx, fromKey); err != nil {
		a.logger.Warn("compaction delete failed", "from", fromKey, "error", err)
		return
	}
	a.logger.Info("compacted play counts", "from", fromKey, "to", toKey)
}

// GetTopTracks returns the most played tracks for a period: "week" for the
// last 7 days, "YYYY-MM" for a month, or "YYYY" for a year. Month and year
// queries include hot documents that have not been compacted yet. Ties
// break by track id so results are reproducible.
func (a *Aggregator) GetTopTracks(ctx context.Context, period string, limit int) ([]domain.TrackPlayCount, error) {
	var keys []string
	switch domain.ParsePeriod(period) {
	case domain.PeriodWeek:
		keys = a.dailyKeys(hotDailyDays)

	case domain.PeriodMonth:
		keys = append(keys, period)
		for _, dk := range a.dailyKeys(hotDailyDays) {
			if strings.HasPrefix(dk, period) {
				keys = append(keys, dk)
			}
		}

	case domain.PeriodYear:
		keys = append(keys, period)
		for _, mk := range a.monthlyKeys(hotMonthlyMons) {
			if strings.HasPrefix(mk, period) {
				keys = append(keys, mk)
			}
		}
		for _, dk := range a.dailyKeys(hotDailyDays) {
			if strings.HasPrefix(dk, period) {
				keys = append(keys, dk)
			}
		}

	default:
		return nil, errors.Validation("period must be \"week\", \"YYYY-MM\", or \"YYYY\"")
	}

	merged, err := a.mergeBuckets(ctx, keys)
	if err != nil {
		return nil, err
	}
	return rank(merged, limit), nil
}

// GetPlayCount sums one track's plays across every bucket that can still
// exist, fetched in parallel. Missing documents count as zero. The ranges
// include the boundary buckets still awaiting compaction, so the total is
// stable across a compaction cycle.
func (a *Aggregator) GetPlayCount(ctx context.Context, trackID string) (int64, error) {
	keys := a.dailyKeys(hotDailyDays + 1)
	keys = append(keys, a.monthlyKeys(hotMonthlyMons+1)...)
	keys = append(keys, a.yearlyKeys(maxYearlyDocs)...)

	merged, err := a.mergeBuckets(ctx, keys)
	if err != nil {
		return 0, err
	}
	return merged[trackID], nil
}

// GetRecentlyPopular ranks tracks over the last days daily buckets.
func (a *Aggregator) GetRecentlyPopular(ctx context.Context, days, limit int) ([]domain.TrackPlayCount, error) {
	if days <= 0 || days > hotDailyDays {
		days = hotDailyDays
	}
	merged, err := a.mergeBuckets(ctx, a.dailyKeys(days))
	if err != nil {
		return nil, err
	}
	return rank(merged, limit), nil
}

// Flush blocks until every queued write has been applied.
func (a *Aggregator) Flush() {
	a.pending.Wait()
}

// Close unsubscribes from the event stream and drains the write queue.
// Safe to call multiple times.
func (a *Aggregator) Close() error {
	a.closeOnce.Do(func() {
		a.unsubscribe()
		a.pending.Wait()
		close(a.queue)
		<-a.done
	})
	return nil
}

// mergeBuckets loads every bucket concurrently and sums the results.
func (a *Aggregator) mergeBuckets(ctx context.Context, keys []string) (domain.PlayCounts, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		merged   = domain.PlayCounts{}
		firstErr error
	)

	for _, key := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			counts, _, err := a.store.load(ctx, key)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			merged.Merge(counts)
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return merged, nil
}

func (a *Aggregator) dailyKeys(days int) []string {
	now := a.now().UTC()
	keys := make([]string, 0, days)
	for i := 0; i < days; i++ {
		keys = append(keys, domain.DailyKey(now.AddDate(0, 0, -i)))
	}
	return keys
}

// monthlyKeys walks back from the first of the current month so month
// arithmetic never normalizes across a short month.
func (a *Aggregator) monthlyKeys(months int) []string {
	now := a.now().UTC()
	base := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	keys := make([]string, 0, months)
	for i := 0; i < months; i++ {
		keys = append(keys, domain.MonthlyKey(base.AddDate(0, -i, 0)))
	}
	return keys
}

func (a *Aggregator) yearlyKeys(years int) []string {
	now := a.now().UTC()
	keys := make([]string, 0, years)
	for i := 0; i < years; i++ {
		keys = append(keys, domain.YearlyKey(time.Date(now.Year()-i, 1, 1, 0, 0, 0, 0, time.UTC)))
	}
	return keys
}

// rank sorts counts descending, breaking ties by track id ascending, and
// truncates to limit (non-positive means unlimited).
func rank(counts domain.PlayCounts, limit int) []domain.TrackPlayCount {
	out := make([]domain.TrackPlayCount, 0, len(counts))
	for trackID, n := range counts {
		out = append(out, domain.TrackPlayCount{TrackID: trackID, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].TrackID < out[j].TrackID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
