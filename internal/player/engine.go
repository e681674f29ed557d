// Package player implements the playback engine: a state machine that
// resolves audio through the local cache (downloading and decrypting on
// miss), drives an audio sink, manages the play queue, prefetches upcoming
// tracks past the midpoint, and publishes the playback event stream.
package player

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/tunevaultapp/tunevault-client/internal/cache"
	"github.com/tunevaultapp/tunevault-client/internal/domain"
	"github.com/tunevaultapp/tunevault-client/internal/errors"
	"github.com/tunevaultapp/tunevault-client/internal/remote"
)

// restartThresholdMs: Previous() restarts the current track instead of
// navigating once playback has passed this position. Deliberate UX rule.
const restartThresholdMs = 3_000

// Engine is the playback engine. One engine drives one sink; all control
// methods are safe for concurrent use but the engine assumes a single
// logical controller (UI thread) plus its own background prefetches.
type Engine struct {
	logger   *slog.Logger
	cache    *cache.Cache
	provider remote.Provider
	sink     Sink
	events   *Dispatcher
	randInt  func(n int) int

	mu             sync.Mutex
	state          State
	queue          domain.QueueState
	currentTrackID string
	positionMs     int64
	durationMs     int64
	volume         float64
	// loadGen increments on every load attempt; a slow superseded load
	// compares its generation before touching engine or sink state.
	loadGen       uint64
	midpointFired bool
	prefetching   map[string]struct{}

	// sinkMu serializes sink ownership transfers (release and attach).
	// Each transfer re-checks its generation under this lock, so a stale
	// load can never release a resource a newer load has attached.
	// Lock order: sinkMu before mu, never the reverse.
	sinkMu sync.Mutex

	prefetchWG sync.WaitGroup
}

// NewEngine wires an engine to its cache, provider, and sink. The engine
// registers itself as the sink's clock listener.
func NewEngine(c *cache.Cache, provider remote.Provider, sink Sink, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Engine{
		logger:      logger,
		cache:       c,
		provider:    provider,
		sink:        sink,
		events:      NewDispatcher(logger),
		randInt:     rand.IntN,
		state:       StateIdle,
		queue:       domain.QueueState{Repeat: domain.RepeatNone},
		volume:      1.0,
		prefetching: make(map[string]struct{}),
	}
	sink.SetListener(e)
	return e
}

// Events returns the engine's event dispatcher.
func (e *Engine) Events() *Dispatcher {
	return e.events
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// PlaybackState returns a snapshot of the sink-facing state.
func (e *Engine) PlaybackState() domain.PlaybackState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.PlaybackState{
		CurrentTrackID: e.currentTrackID,
		PositionMs:     e.positionMs,
		IsPlaying:      e.state == StatePlaying,
		Volume:         e.volume,
		UpdatedAt:      time.Now().UTC(),
	}
}

// Queue returns a snapshot of the play queue.
func (e *Engine) Queue() domain.QueueState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queue.Clone()
}

// PlayTrack loads and plays a track whose metadata record the caller
// already holds, skipping the record fetch on a cache miss.
func (e *Engine) PlayTrack(ctx context.Context, track *domain.TrackRecord) error {
	return e.load(ctx, track.ID, track)
}

// PlayTrackID loads and plays a track by id, fetching its record from the
// provider if the audio is not cached.
func (e *Engine) PlayTrackID(ctx context.Context, trackID string) error {
	return e.load(ctx, trackID, nil)
}

// load is the single loading path: emit loading, release the previous sink
// resource, resolve audio cache-first, attach, play. A load superseded by a
// newer one abandons its result without touching engine or sink state.
func (e *Engine) load(ctx context.Context, trackID string, track *domain.TrackRecord) error {
	e.mu.Lock()
	e.loadGen++
	gen := e.loadGen
	e.state = StateLoading
	e.currentTrackID = trackID
	e.positionMs = 0
	e.durationMs = 0
	e.midpointFired = false
	e.mu.Unlock()

	e.events.Emit(Event{Type: EventLoading, TrackID: trackID})

	// The previous track's resource is released before the new attempt so
	// a failed load never leaves two resources or a half-attached sink.
	e.sinkMu.Lock()
	if e.currentGen() == gen {
		if err := e.sink.Release(); err != nil {
			e.logger.Warn("sink release failed", "error", err)
		}
	}
	e.sinkMu.Unlock()

	entry, err := e.resolveAudio(ctx, trackID, track)

	e.mu.Lock()
	if gen != e.loadGen {
		// A newer load owns the engine now; drop this result.
		e.mu.Unlock()
		e.logger.Debug("discarding superseded load", "track_id", trackID)
		return nil
	}
	if err != nil {
		e.state = StateError
		e.mu.Unlock()
		e.events.Emit(Event{Type: EventError, TrackID: trackID, Cause: err.Error()})
		return err
	}
	e.durationMs = entry.DurationMs
	volume := e.volume
	e.mu.Unlock()

	// Sink calls stay inside sinkMu; event emission happens after unlock so
	// an inline handler can call back into the engine without deadlocking.
	e.sinkMu.Lock()
	if e.currentGen() != gen {
		e.sinkMu.Unlock()
		e.logger.Debug("discarding superseded load", "track_id", trackID)
		return nil
	}

	if err := e.sink.Load(entry); err != nil {
		e.sinkMu.Unlock()
		err = errors.Wrap(err, errors.CodeInternal, "attach audio")
		return e.failLoad(gen, trackID, err)
	}
	if err := e.sink.SetVolume(volume); err != nil {
		e.logger.Warn("sink volume failed", "error", err)
	}
	e.sinkMu.Unlock()

	e.events.Emit(Event{Type: EventLoaded, TrackID: trackID, DurationMs: entry.DurationMs})

	e.sinkMu.Lock()
	if e.currentGen() != gen {
		e.sinkMu.Unlock()
		e.logger.Debug("discarding superseded load", "track_id", trackID)
		return nil
	}
	if err := e.sink.Play(); err != nil {
		e.sinkMu.Unlock()
		err = errors.Wrap(err, errors.CodeInternal, "start playback")
		return e.failLoad(gen, trackID, err)
	}
	e.sinkMu.Unlock()

	e.mu.Lock()
	if gen == e.loadGen {
		e.state = StatePlaying
	}
	e.mu.Unlock()
	e.events.Emit(Event{Type: EventPlay, TrackID: trackID})

	e.logger.Info("playing track", "track_id", trackID)
	return nil
}

// failLoad records a load failure, moving to the error state only if this
// load still owns the engine.
func (e *Engine) failLoad(gen uint64, trackID string, err error) error {
	e.mu.Lock()
	if gen == e.loadGen {
		e.state = StateError
	}
	e.mu.Unlock()
	e.events.Emit(Event{Type: EventError, TrackID: trackID, Cause: err.Error()})
	return err
}

// resolveAudio returns playable audio for trackID: cache hit, or download +
// decrypt + cache fill. Cache failures are logged and never abort playback.
func (e *Engine) resolveAudio(ctx context.Context, trackID string, track *domain.TrackRecord) (*domain.CachedTrackEntry, error) {
	entry, err := e.cache.GetTrack(ctx, trackID)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		e.logger.Warn("cache read failed, downloading", "track_id", trackID, "error", err)
	}

	if track == nil {
		track, err = e.provider.GetTrack(ctx, trackID)
		if err != nil {
			return nil, err
		}
	}

	audio, err := e.provider.DownloadAudioBlob(ctx, track.AudioBlobID, track.AudioKey)
	if err != nil {
		return nil, err
	}

	meta := trackMetadata(track)
	if err := e.cache.PutTrack(ctx, trackID, audio, meta); err != nil {
		e.logger.Warn("cache fill failed", "track_id", trackID, "error", err)
	}

	now := time.Now().UTC()
	return &domain.CachedTrackEntry{
		TrackID:    trackID,
		AudioData:  audio,
		Title:      meta.Title,
		ArtistName: meta.ArtistName,
		AlbumName:  meta.AlbumName,
		DurationMs: meta.DurationMs,
		FileFormat: meta.FileFormat,
		CachedAt:   now,
		LastAccess: now,
		SizeBytes:  int64(len(audio)),
	}, nil
}

// Pause transitions Playing to Paused. A no-op in any other state.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.state != StatePlaying {
		e.mu.Unlock()
		return
	}
	e.state = StatePaused
	trackID := e.currentTrackID
	e.mu.Unlock()

	if err := e.sink.Pause(); err != nil {
		e.logger.Warn("sink pause failed", "error", err)
	}
	e.events.Emit(Event{Type: EventPause, TrackID: trackID})
}

// Resume transitions Paused to Playing. A no-op in any other state.
func (e *Engine) Resume() {
	e.mu.Lock()
	if e.state != StatePaused {
		e.mu.Unlock()
		return
	}
	e.state = StatePlaying
	trackID := e.currentTrackID
	e.mu.Unlock()

	if err := e.sink.Play(); err != nil {
		e.logger.Warn("sink play failed", "error", err)
	}
	e.events.Emit(Event{Type: EventPlay, TrackID: trackID})
}

// TogglePlayPause flips between Playing and Paused.
func (e *Engine) TogglePlayPause() {
	switch e.State() {
	case StatePlaying:
		e.Pause()
	case StatePaused:
		e.Resume()
	}
}

// Seek jumps to an absolute position without changing state.
func (e *Engine) Seek(positionMs int64) {
	if positionMs < 0 {
		positionMs = 0
	}
	if err := e.sink.Seek(positionMs); err != nil {
		e.logger.Warn("sink seek failed", "error", err)
		return
	}
	e.mu.Lock()
	e.positionMs = positionMs
	e.mu.Unlock()
}

// SetVolume clamps v to [0, 1] and applies it.
func (e *Engine) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.mu.Lock()
	e.volume = v
	e.mu.Unlock()
	if err := e.sink.SetVolume(v); err != nil {
		e.logger.Warn("sink volume failed", "error", err)
	}
}

// SetQueue replaces the queue contents and position, preserving shuffle and
// repeat settings.
func (e *Engine) SetQueue(trackIDs []string, startIndex int) {
	if startIndex < 0 || startIndex >= len(trackIDs) {
		startIndex = 0
	}
	e.mu.Lock()
	e.queue.TrackIDs = append([]string(nil), trackIDs...)
	e.queue.CurrentIndex = startIndex
	e.queue.UpdatedAt = time.Now().UTC()
	snapshot := e.queue.Clone()
	e.mu.Unlock()

	e.events.Emit(Event{Type: EventQueueChange, Queue: &snapshot})
}

// AddToQueue appends a track to the end of the queue.
func (e *Engine) AddToQueue(trackID string) {
	e.mu.Lock()
	e.queue.TrackIDs = append(e.queue.TrackIDs, trackID)
	e.queue.UpdatedAt = time.Now().UTC()
	snapshot := e.queue.Clone()
	e.mu.Unlock()

	e.events.Emit(Event{Type: EventQueueChange, Queue: &snapshot})
}

// ToggleShuffle flips shuffle mode.
func (e *Engine) ToggleShuffle() {
	e.mu.Lock()
	e.queue.Shuffle = !e.queue.Shuffle
	e.queue.UpdatedAt = time.Now().UTC()
	snapshot := e.queue.Clone()
	e.mu.Unlock()

	e.events.Emit(Event{Type: EventQueueChange, Queue: &snapshot})
}

// CycleRepeat advances repeat mode none -> all -> one -> none.
func (e *Engine) CycleRepeat() {
	e.mu.Lock()
	e.queue.Repeat = e.queue.Repeat.Next()
	e.queue.UpdatedAt = time.Now().UTC()
	snapshot := e.queue.Clone()
	e.mu.Unlock()

	e.events.Emit(Event{Type: EventQueueChange, Queue: &snapshot})
}

// Next advances to the next queue index. At the end of a non-repeating
// queue playback simply stops; that is not an error.
func (e *Engine) Next(ctx context.Context) error {
	e.mu.Lock()
	idx := nextIndex(&e.queue, e.randInt)
	if idx == noIndex {
		e.mu.Unlock()
		e.stop()
		return nil
	}
	e.queue.CurrentIndex = idx
	trackID := e.queue.TrackIDs[idx]
	e.mu.Unlock()

	return e.load(ctx, trackID, nil)
}

// Previous restarts the current track when more than three seconds in;
// otherwise it navigates backwards with the same wrap/stop rules as Next.
func (e *Engine) Previous(ctx context.Context) error {
	e.mu.Lock()
	if e.positionMs > restartThresholdMs && e.currentTrackID != "" {
		e.mu.Unlock()
		e.Seek(0)
		return nil
	}
	idx := previousIndex(&e.queue)
	if idx == noIndex {
		e.mu.Unlock()
		e.stop()
		return nil
	}
	e.queue.CurrentIndex = idx
	trackID := e.queue.TrackIDs[idx]
	e.mu.Unlock()

	return e.load(ctx, trackID, nil)
}

// stop releases the sink and returns the engine to Idle.
func (e *Engine) stop() {
	e.mu.Lock()
	e.loadGen++ // invalidate any in-flight load
	e.mu.Unlock()

	e.sinkMu.Lock()
	if err := e.sink.Release(); err != nil {
		e.logger.Warn("sink release failed", "error", err)
	}
	e.sinkMu.Unlock()

	e.mu.Lock()
	e.state = StateIdle
	e.currentTrackID = ""
	e.positionMs = 0
	e.durationMs = 0
	e.mu.Unlock()
}

// OnTimeUpdate implements SinkListener. It relays the audio clock to the
// event stream and triggers midpoint prefetching exactly once per load.
func (e *Engine) OnTimeUpdate(positionMs int64) {
	settings := e.cache.Settings()

	e.mu.Lock()
	e.positionMs = positionMs
	trackID := e.currentTrackID
	var upcoming []string
	if settings.AutoPrefetch && !e.midpointFired &&
		e.durationMs > 0 && positionMs*2 >= e.durationMs {
		e.midpointFired = true
		upcoming = e.upcomingLocked(settings.PrefetchCount)
	}
	e.mu.Unlock()

	e.events.Emit(Event{Type: EventTimeUpdate, TrackID: trackID, PositionMs: positionMs})

	for _, next := range upcoming {
		e.prefetch(next)
	}
}

// OnEnded implements SinkListener.
func (e *Engine) OnEnded() {
	e.mu.Lock()
	e.state = StateEnded
	trackID := e.currentTrackID
	position := e.positionMs
	e.mu.Unlock()

	e.events.Emit(Event{Type: EventEnded, TrackID: trackID, PositionMs: position})
}

// OnError implements SinkListener. A failure of the attached resource while
// a track is loading or playing moves the engine to the error state; in any
// other state the cause is surfaced on the event stream without a transition.
func (e *Engine) OnError(err error) {
	e.mu.Lock()
	trackID := e.currentTrackID
	if e.state == StateLoading || e.state == StatePlaying {
		e.state = StateError
	}
	e.mu.Unlock()

	e.logger.Warn("sink reported playback failure", "track_id", trackID, "error", err)
	e.events.Emit(Event{Type: EventError, TrackID: trackID, Cause: err.Error()})
}

// upcomingLocked simulates forward navigation to find up to count distinct
// track ids worth prefetching. Caller holds e.mu.
func (e *Engine) upcomingLocked(count int) []string {
	if count <= 0 {
		count = 1
	}
	sim := e.queue.Clone()
	seen := map[string]struct{}{e.currentTrackID: {}}
	var out []string
	for len(out) < count {
		idx := nextIndex(&sim, e.randInt)
		if idx == noIndex {
			break
		}
		sim.CurrentIndex = idx
		id := sim.TrackIDs[idx]
		if _, dup := seen[id]; dup {
			break
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// prefetch downloads and caches a track in the background. The in-flight
// set prevents duplicate concurrent fetches; failures are logged only.
func (e *Engine) prefetch(trackID string) {
	if e.cache.HasTrack(trackID) {
		return
	}
	e.mu.Lock()
	if _, busy := e.prefetching[trackID]; busy {
		e.mu.Unlock()
		return
	}
	e.prefetching[trackID] = struct{}{}
	e.mu.Unlock()

	e.prefetchWG.Add(1)
	go func() {
		defer e.prefetchWG.Done()
		defer func() {
			e.mu.Lock()
			delete(e.prefetching, trackID)
			e.mu.Unlock()
		}()

		ctx := context.Background()
		track, err := e.provider.GetTrack(ctx, trackID)
		if err != nil {
			e.logger.Warn("prefetch record fetch failed", "track_id", trackID, "error", err)
			return
		}
		audio, err := e.provider.DownloadAudioBlob(ctx, track.AudioBlobID, track.AudioKey)
		if err != nil {
			e.logger.Warn("prefetch download failed", "track_id", trackID, "error", err)
			return
		}
		if err := e.cache.PutTrack(ctx, trackID, audio, trackMetadata(track)); err != nil {
			e.logger.Warn("prefetch cache fill failed", "track_id", trackID, "error", err)
			return
		}
		e.logger.Debug("prefetched track", "track_id", trackID)
	}()
}

// Close releases the sink and waits for in-flight prefetches.
func (e *Engine) Close() error {
	e.stop()
	e.prefetchWG.Wait()
	return nil
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) currentGen() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadGen
}

func trackMetadata(t *domain.TrackRecord) domain.TrackMetadata {
	return domain.TrackMetadata{
		Title:      t.Title,
		ArtistName: t.ArtistName,
		AlbumName:  t.AlbumName,
		DurationMs: t.DurationMs,
		FileFormat: t.FileFormat,
	}
}
