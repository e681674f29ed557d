package domain

import "time"

// RepeatMode controls queue navigation at the edges.
type RepeatMode string

// Repeat modes, cycled none → all → one → none.
const (
	RepeatNone RepeatMode = "none"
	RepeatAll  RepeatMode = "all"
	RepeatOne  RepeatMode = "one"
)

// Next returns the mode that follows in the cycle.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatNone:
		return RepeatAll
	case RepeatAll:
		return RepeatOne
	default:
		return RepeatNone
	}
}

// QueueState is the ordered list of track IDs scheduled for playback.
// Replaced wholesale on SetQueue, mutated in place on navigation and
// shuffle/repeat toggles. Whenever TrackIDs is non-empty,
// 0 <= CurrentIndex < len(TrackIDs).
type QueueState struct {
	TrackIDs     []string   `json:"track_ids"`
	CurrentIndex int        `json:"current_index"`
	Shuffle      bool       `json:"shuffle"`
	Repeat       RepeatMode `json:"repeat"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CurrentTrackID returns the track at the current index, or "" for an
// empty queue.
func (q *QueueState) CurrentTrackID() string {
	if len(q.TrackIDs) == 0 || q.CurrentIndex < 0 || q.CurrentIndex >= len(q.TrackIDs) {
		return ""
	}
	return q.TrackIDs[q.CurrentIndex]
}

// Len returns the number of queued tracks.
func (q *QueueState) Len() int {
	return len(q.TrackIDs)
}

// Clone returns a deep copy safe to hand to event subscribers.
func (q *QueueState) Clone() QueueState {
	out := *q
	out.TrackIDs = make([]string, len(q.TrackIDs))
	copy(out.TrackIDs, q.TrackIDs)
	return out
}

// PlaybackState is the engine's derived, unpersisted view of the sink.
type PlaybackState struct {
	CurrentTrackID string    `json:"current_track_id"`
	PositionMs     int64     `json:"position_ms"`
	IsPlaying      bool      `json:"is_playing"`
	Volume         float64   `json:"volume"` // 0.0 - 1.0
	UpdatedAt      time.Time `json:"updated_at"`
}
