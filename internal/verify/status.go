package verify

// Status is the outcome notification of a verification run. Every run emits
// started followed by exactly one terminal status.
type Status string

const (
	StatusStarted   Status = "started"
	StatusMatch     Status = "match"
	StatusNoMatch   Status = "no-match"
	StatusNoFace    Status = "no-face"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// State is the device session state.
type State int

const (
	StateIdle State = iota
	StateClaimed
	StateVerifying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateClaimed:
		return "claimed"
	case StateVerifying:
		return "verifying"
	default:
		return "unknown"
	}
}
