package export

import "time"

// Job is one export run.
type Job struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	Profile     string     `json:"profile"`
	PhotoCount  int        `json:"photo_count"`
	FileName    string     `json:"file_name,omitempty"`
	Location    string     `json:"location,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Report      *Report    `json:"report,omitempty"`
}

// Event types sent to an Observer.
const (
	EventStatus = "status"
	EventSlot   = "slot"
)

// Event reports progress of a job. Status events carry the new stage and,
// for failures, the error in Message. Slot events are sent once per
// occupied slot after its placement attempt.
type Event struct {
	Type    string `json:"type"`
	JobID   string `json:"job_id"`
	Status  Status `json:"status"`
	Slot    int    `json:"slot"`
	Done    int    `json:"done,omitempty"`
	Total   int    `json:"total,omitempty"`
	Placed  bool   `json:"placed,omitempty"`
	Message string `json:"message,omitempty"`
}

// Observer receives job events on the export goroutine. It must not block.
type Observer func(Event)

func (o Observer) emit(ev Event) {
	if o != nil {
		o(ev)
	}
}
