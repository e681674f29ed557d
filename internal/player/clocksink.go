package player

import (
	"sync"
	"time"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
)

// clockTickInterval is how often a playing ClockSink reports its position.
const clockTickInterval = 250 * time.Millisecond

// ClockSink is a wall-clock playback backend: it advances position in real
// time without producing audio. It backs headless environments and tooling
// where no platform audio output is available.
type ClockSink struct {
	mu         sync.Mutex
	listener   SinkListener
	positionMs int64
	durationMs int64
	playing    bool
	stopTicker chan struct{}
}

// NewClockSink creates a sink with nothing attached.
func NewClockSink() *ClockSink {
	return &ClockSink{}
}

// SetListener registers the callback target for time updates and track end.
func (s *ClockSink) SetListener(l SinkListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Load attaches a track and rewinds the clock.
func (s *ClockSink) Load(entry *domain.CachedTrackEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.positionMs = 0
	s.durationMs = entry.DurationMs
	return nil
}

// Play starts the playback clock.
func (s *ClockSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playing {
		return nil
	}
	s.playing = true
	stop := make(chan struct{})
	s.stopTicker = stop
	go s.run(stop)
	return nil
}

// Pause halts the clock, keeping the current position.
func (s *ClockSink) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	return nil
}

// Seek moves the clock to the given position.
func (s *ClockSink) Seek(positionMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.durationMs > 0 && positionMs > s.durationMs {
		positionMs = s.durationMs
	}
	s.positionMs = positionMs
	return nil
}

// SetVolume is accepted and ignored; the sink produces no audio.
func (s *ClockSink) SetVolume(volume float64) error {
	return nil
}

// PositionMs reports the current clock position.
func (s *ClockSink) PositionMs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionMs
}

// Release detaches the current track and stops the clock.
func (s *ClockSink) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.positionMs = 0
	s.durationMs = 0
	return nil
}

func (s *ClockSink) stopLocked() {
	if !s.playing {
		return
	}
	s.playing = false
	close(s.stopTicker)
	s.stopTicker = nil
}

func (s *ClockSink) run(stop chan struct{}) {
	ticker := time.NewTicker(clockTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if !s.playing {
				s.mu.Unlock()
				return
			}
			s.positionMs += clockTickInterval.Milliseconds()
			ended := s.durationMs > 0 && s.positionMs >= s.durationMs
			if ended {
				s.positionMs = s.durationMs
				s.stopLocked()
			}
			pos := s.positionMs
			listener := s.listener
			s.mu.Unlock()

			if listener == nil {
				continue
			}
			listener.OnTimeUpdate(pos)
			if ended {
				listener.OnEnded()
				return
			}
		}
	}
}
