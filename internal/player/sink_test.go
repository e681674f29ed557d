package player

import (
	"sync"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
)

// stubSink records engine calls and lets tests drive the audio clock.
type stubSink struct {
	mu       sync.Mutex
	listener SinkListener

	loaded   *domain.CachedTrackEntry
	playing  bool
	position int64
	volume   float64
	calls    []string

	loadErr error
	playErr error
}

func newStubSink() *stubSink {
	return &stubSink{volume: 1.0}
}

func (s *stubSink) record(call string) {
	s.calls = append(s.calls, call)
}

func (s *stubSink) Load(entry *domain.CachedTrackEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("load:" + entry.TrackID)
	if s.loadErr != nil {
		return s.loadErr
	}
	s.loaded = entry
	s.position = 0
	return nil
}

func (s *stubSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("play")
	if s.playErr != nil {
		return s.playErr
	}
	s.playing = true
	return nil
}

func (s *stubSink) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("pause")
	s.playing = false
	return nil
}

func (s *stubSink) Seek(positionMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("seek")
	s.position = positionMs
	return nil
}

func (s *stubSink) SetVolume(volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = volume
	return nil
}

func (s *stubSink) PositionMs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *stubSink) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("release")
	s.loaded = nil
	s.playing = false
	s.position = 0
	return nil
}

func (s *stubSink) SetListener(l SinkListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// advanceClock simulates the playback clock reaching positionMs.
func (s *stubSink) advanceClock(positionMs int64) {
	s.mu.Lock()
	s.position = positionMs
	l := s.listener
	s.mu.Unlock()
	l.OnTimeUpdate(positionMs)
}

// finish simulates the track reaching its end.
func (s *stubSink) finish() {
	s.mu.Lock()
	s.playing = false
	l := s.listener
	s.mu.Unlock()
	l.OnEnded()
}

// fail simulates the attached resource dying mid-playback.
func (s *stubSink) fail(err error) {
	s.mu.Lock()
	s.playing = false
	l := s.listener
	s.mu.Unlock()
	l.OnError(err)
}

func (s *stubSink) callLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *stubSink) loadedTrackID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded == nil {
		return ""
	}
	return s.loaded.TrackID
}
