package export

import "fmt"

// Status is a stage of the export state machine.
type Status string

const (
	StatusIdle                Status = "idle"
	StatusCapturingBackground Status = "capturing_background"
	StatusPlacingPhotos       Status = "placing_photos"
	StatusFinalizing          Status = "finalizing"
	StatusDone                Status = "done"
	StatusFailed              Status = "failed"
)

var transitions = map[Status][]Status{
	StatusIdle:                {StatusCapturingBackground},
	StatusCapturingBackground: {StatusPlacingPhotos, StatusFailed},
	StatusPlacingPhotos:       {StatusFinalizing, StatusFailed},
	StatusFinalizing:          {StatusDone, StatusFailed},
	StatusDone:                {StatusIdle},
	StatusFailed:              {StatusIdle},
}

// CanTransition reports whether the machine may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, to := range transitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// Terminal is true for the states a job ends in.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Active is true while a job is running.
func (s Status) Active() bool {
	return s != StatusIdle && !s.Terminal()
}

type transitionError struct {
	from, to Status
}

func (e *transitionError) Error() string {
	return fmt.Sprintf("invalid export transition %s -> %s", e.from, e.to)
}
