package player

// State is the engine's lifecycle phase. Idle is initial; Ended and Error
// are not terminal, the next load attempt moves back through Loading.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
	StateError   State = "error"
)
