package handlers

import (
	"sync"

	"github.com/kozaktomas/photo-panel/internal/constants"
	"github.com/kozaktomas/photo-panel/internal/export"
)

// JobEvent represents an event from a job.
type JobEvent struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventBroadcaster provides listener management and event broadcasting for async jobs.
// Embed this in job structs to get AddListener, RemoveListener, and SendEvent methods.
type EventBroadcaster struct {
	listeners []chan JobEvent
	mu        sync.RWMutex
}

// AddListener adds an event listener.
func (b *EventBroadcaster) AddListener() chan JobEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan JobEvent, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener.
func (b *EventBroadcaster) RemoveListener(ch chan JobEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// SendEvent sends an event to all listeners.
func (b *EventBroadcaster) SendEvent(event JobEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// SSEJob is the interface required by streamSSEEvents to stream job events via SSE.
type SSEJob interface {
	AddListener() chan JobEvent
	RemoveListener(ch chan JobEvent)
	GetStatus() export.Status
}

// ExportJob streams the events of one export run.
type ExportJob struct {
	EventBroadcaster

	ID       string
	exporter *export.Exporter
}

// GetStatus returns the current job status (implements SSEJob).
func (j *ExportJob) GetStatus() export.Status {
	job, ok := j.exporter.Job(j.ID)
	if !ok {
		return export.StatusFailed
	}
	return job.Status
}

// Observe forwards exporter events to the listeners.
func (j *ExportJob) Observe(ev export.Event) {
	msg := ev.Message
	if ev.Type == export.EventStatus && ev.Status == export.StatusDone {
		msg = "export finished"
	}
	j.SendEvent(JobEvent{Type: ev.Type, Message: msg, Data: ev})
}

// JobManager tracks export jobs by ID.
type JobManager struct {
	jobs map[string]*ExportJob
	mu   sync.RWMutex
}

// NewJobManager creates a new job manager.
func NewJobManager() *JobManager {
	return &JobManager{
		jobs: make(map[string]*ExportJob),
	}
}

// Register stores a job under its ID and drops jobs the exporter has
// already forgotten.
func (m *JobManager) Register(job *ExportJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, j := range m.jobs {
		if _, ok := j.exporter.Job(id); !ok {
			delete(m.jobs, id)
		}
	}
	m.jobs[job.ID] = job
}

// GetJob retrieves a job by ID.
func (m *JobManager) GetJob(id string) *ExportJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}
