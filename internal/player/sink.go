package player

import "github.com/tunevaultapp/tunevault-client/internal/domain"

// SinkListener receives audio-clock callbacks from the sink. The engine
// implements it; sinks invoke it from their playback clock. OnError reports
// a failure of the attached resource mid-playback (device lost, decoder
// fault); the sink is expected to have stopped producing audio already.
type SinkListener interface {
	OnTimeUpdate(positionMs int64)
	OnEnded()
	OnError(err error)
}

// Sink is the audio output the engine drives: it owns the decoded playback
// resource for exactly one track at a time. Load replaces any previously
// attached track; Release drops the current one. All methods are safe to
// call on a sink with nothing attached.
type Sink interface {
	Load(entry *domain.CachedTrackEntry) error
	Play() error
	Pause() error
	Seek(positionMs int64) error
	SetVolume(volume float64) error
	PositionMs() int64
	Release() error
	SetListener(l SinkListener)
}
