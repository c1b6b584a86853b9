package analyses

import "fmt"

// Event drives the analysis state machine.
type Event string

const (
	EventStart    Event = "start"
	EventComplete Event = "complete"
	EventFail     Event = "fail"
)

// Transition is the pure (state, event) -> state' function of the lifecycle.
//
//	pending    --start-->    processing
//	processing --complete--> completed
//	pending    --fail-->     failed
//	processing --fail-->     failed
//
// completed and failed accept no events.
func Transition(from Status, ev Event) (Status, error) {
	switch from {
	case StatusPending:
		switch ev {
		case EventStart:
			return StatusProcessing, nil
		case EventFail:
			return StatusFailed, nil
		}
	case StatusProcessing:
		switch ev {
		case EventComplete:
			return StatusCompleted, nil
		case EventFail:
			return StatusFailed, nil
		}
	}
	return from, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
}
