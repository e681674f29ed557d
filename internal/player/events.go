package player

import (
	"log/slog"
	"sync"

	"github.com/tunevaultapp/tunevault-client/internal/domain"
	"github.com/tunevaultapp/tunevault-client/internal/id"
)

// EventType identifies a playback event.
type EventType string

const (
	// EventLoading fires when a track begins resolving (cache or download).
	EventLoading EventType = "playback.loading"
	// EventLoaded fires when audio is attached and ready.
	EventLoaded EventType = "playback.loaded"
	// EventPlay fires on every Playing transition.
	EventPlay EventType = "playback.play"
	// EventPause fires on every Paused transition.
	EventPause EventType = "playback.pause"
	// EventEnded fires when the sink reaches end of track.
	EventEnded EventType = "playback.ended"
	// EventTimeUpdate carries the audio clock at its natural cadence.
	EventTimeUpdate EventType = "playback.timeupdate"
	// EventError carries a load or playback failure.
	EventError EventType = "playback.error"
	// EventQueueChange fires on any queue mutation.
	EventQueueChange EventType = "playback.queuechange"
)

// Event is a single playback notification. Only the fields relevant to the
// event type are set.
type Event struct {
	Type       EventType          `json:"type"`
	TrackID    string             `json:"track_id,omitempty"`
	PositionMs int64              `json:"position_ms,omitempty"`
	DurationMs int64              `json:"duration_ms,omitempty"`
	Cause      string             `json:"cause,omitempty"`
	Queue      *domain.QueueState `json:"queue,omitempty"`
}

// Handler receives events synchronously, in emission order. Handlers must
// not call back into the engine.
type Handler func(Event)

// Dispatcher fans playback events out to subscribers. Handler subscriptions
// are synchronous; channel subscriptions are buffered and drop events rather
// than block the engine when a consumer falls behind.
type Dispatcher struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
	channels map[string]chan Event
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		logger:   logger,
		handlers: make(map[string]Handler),
		channels: make(map[string]chan Event),
	}
}

// Subscribe registers a synchronous handler and returns its subscription id.
func (d *Dispatcher) Subscribe(h Handler) string {
	subID := id.MustGenerate("sub")
	d.mu.Lock()
	d.handlers[subID] = h
	d.mu.Unlock()
	return subID
}

// Unsubscribe removes a subscription by id. Unknown ids are ignored.
func (d *Dispatcher) Unsubscribe(subID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, subID)
	if ch, ok := d.channels[subID]; ok {
		close(ch)
		delete(d.channels, subID)
	}
}

// Channel returns a buffered event stream plus a cancel function. Slow
// consumers lose events instead of stalling playback.
func (d *Dispatcher) Channel(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan Event, buffer)
	subID := id.MustGenerate("sub")

	d.mu.Lock()
	d.channels[subID] = ch
	d.mu.Unlock()

	return ch, func() { d.Unsubscribe(subID) }
}

// Emit delivers an event to every subscriber. Handler subscribers run
// inline so events for one state transition arrive strictly in order.
func (d *Dispatcher) Emit(event Event) {
	d.mu.RLock()
	handlers := make([]Handler, 0, len(d.handlers))
	for _, h := range d.handlers {
		handlers = append(handlers, h)
	}
	channels := make([]chan Event, 0, len(d.channels))
	for _, ch := range d.channels {
		channels = append(channels, ch)
	}
	d.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
	for _, ch := range channels {
		select {
		case ch <- event:
		default:
			d.logger.Warn("dropped playback event for slow subscriber",
				"event_type", string(event.Type))
		}
	}
}
