// Package export runs the print export: background capture, per-slot photo
// placement, captions and finalization of one page document.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/photo-panel/internal/compose"
	"github.com/kozaktomas/photo-panel/internal/config"
	"github.com/kozaktomas/photo-panel/internal/constants"
	"github.com/kozaktomas/photo-panel/internal/layout"
	"github.com/kozaktomas/photo-panel/internal/panel"
	"github.com/kozaktomas/photo-panel/internal/status"
)

var (
	ErrNoPhotos         = errors.New("no photos to export")
	ErrExportInProgress = errors.New("an export is already running")
	ErrNoPlacements     = errors.New("no photo could be placed")
)

// Session is the operator state an export reads. Controls are hidden for
// the duration of a job.
type Session interface {
	Snapshot() panel.Snapshot
	HideControls()
	RestoreControls()
}

// DocumentFactory opens an empty page sized to profile.
type DocumentFactory func(profile config.ExportProfile, createdAt time.Time) (compose.Document, error)

type Options struct {
	Template    *layout.Template
	Profile     config.ExportProfile
	Rasterizer  layout.Rasterizer
	NewDocument DocumentFactory
	Sink        Sink
	Notifier    status.Notifier
	Logger      *slog.Logger
	// PreviewScale is px per mm of the live surface the geometry is read from.
	PreviewScale float64
	// KeepJobs bounds the jobs kept for lookup by ID, oldest first out.
	KeepJobs int
	Clock    func() time.Time
}

// Exporter is the export state machine. One job runs at a time.
type Exporter struct {
	opts       Options
	logger     *slog.Logger
	notifier   status.Notifier
	background *compose.Background
	placer     *compose.PhotoPlacer

	mu      sync.Mutex
	status  Status
	current *Job
	last    *Job
	jobs    map[string]*Job
	order   []string
}

func New(opts Options) (*Exporter, error) {
	switch {
	case opts.Template == nil:
		return nil, errors.New("export: template is required")
	case opts.Rasterizer == nil:
		return nil, errors.New("export: rasterizer is required")
	case opts.NewDocument == nil:
		return nil, errors.New("export: document factory is required")
	case opts.Sink == nil:
		return nil, errors.New("export: sink is required")
	}
	if err := opts.Profile.Validate(); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	if opts.PreviewScale <= 0 {
		opts.PreviewScale = constants.ScreenPxPerMM
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.KeepJobs <= 0 {
		opts.KeepJobs = constants.DefaultKeptJobs
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = status.Discard{}
	}
	return &Exporter{
		opts:       opts,
		logger:     logger,
		notifier:   notifier,
		background: compose.NewBackground(opts.Rasterizer, logger),
		placer:     compose.NewPhotoPlacer(logger),
		status:     StatusIdle,
		jobs:       make(map[string]*Job),
	}, nil
}

func (e *Exporter) Profile() config.ExportProfile {
	return e.opts.Profile
}

// Status returns the current machine state.
func (e *Exporter) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Current returns the running job.
func (e *Exporter) Current() (Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return Job{}, false
	}
	return *e.current, true
}

// LastJob returns the most recently finished job.
func (e *Exporter) LastJob() (Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return Job{}, false
	}
	return *e.last, true
}

// Job looks up a job by ID.
func (e *Exporter) Job(id string) (Job, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Run exports synchronously and returns the finished job. A failed job is
// returned together with its error.
func (e *Exporter) Run(ctx context.Context, s Session, obs Observer) (Job, error) {
	job, snap, err := e.begin(s, obs)
	if err != nil {
		return Job{}, err
	}
	return e.run(ctx, job, s, snap, obs)
}

// Start claims the machine and runs the export on a new goroutine. The
// returned job is the state at start.
func (e *Exporter) Start(ctx context.Context, s Session, obs Observer) (Job, error) {
	job, snap, err := e.begin(s, obs)
	if err != nil {
		return Job{}, err
	}
	e.mu.Lock()
	started := *job
	e.mu.Unlock()

	go func() {
		_, _ = e.run(ctx, job, s, snap, obs)
	}()
	return started, nil
}

// begin checks the start guards, locks the session and moves the machine
// out of idle.
func (e *Exporter) begin(s Session, obs Observer) (*Job, panel.Snapshot, error) {
	e.mu.Lock()
	if e.status != StatusIdle {
		e.mu.Unlock()
		return nil, panel.Snapshot{}, ErrExportInProgress
	}

	s.HideControls()
	snap := s.Snapshot()
	if snap.PhotoCount() == 0 {
		s.RestoreControls()
		e.mu.Unlock()
		e.notifier.Error(status.MsgNoPhotos)
		return nil, panel.Snapshot{}, ErrNoPhotos
	}

	job := &Job{
		ID:         uuid.New().String(),
		Status:     StatusCapturingBackground,
		Profile:    e.opts.Profile.Name,
		PhotoCount: snap.PhotoCount(),
		StartedAt:  e.opts.Clock(),
	}
	e.status = StatusCapturingBackground
	e.current = job
	e.remember(job)
	e.mu.Unlock()

	e.logger.Info("export started", "job", job.ID, "profile", job.Profile, "photos", job.PhotoCount)
	obs.emit(Event{Type: EventStatus, JobID: job.ID, Status: StatusCapturingBackground})
	return job, snap, nil
}

// remember indexes job and forgets the oldest jobs beyond KeepJobs. The
// new job is the newest, so the running job is never forgotten. Callers
// hold e.mu.
func (e *Exporter) remember(job *Job) {
	e.jobs[job.ID] = job
	e.order = append(e.order, job.ID)
	for len(e.order) > e.opts.KeepJobs {
		delete(e.jobs, e.order[0])
		e.order = e.order[1:]
	}
}

type output struct {
	name     string
	location string
}

func (e *Exporter) run(ctx context.Context, job *Job, s Session, snap panel.Snapshot, obs Observer) (result Job, err error) {
	var (
		report *Report
		out    output
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("export panicked: %v", r)
		}
		s.RestoreControls()
		if err != nil {
			result = e.fail(job, report, err, obs)
			return
		}
		result = e.finish(job, report, out, obs)
	}()

	e.notifier.OK(status.MsgGenerating)
	report, out, err = e.pipeline(ctx, job, snap, obs)
	return result, err
}

func (e *Exporter) pipeline(ctx context.Context, job *Job, snap panel.Snapshot, obs Observer) (*Report, output, error) {
	profile := e.opts.Profile
	tmpl := e.opts.Template
	report := &Report{
		Profile:      profile.Name,
		PageWidthMM:  profile.PageWidthMM,
		PageHeightMM: profile.PageHeightMM,
		DPI:          profile.DPI,
		PhotoCount:   snap.PhotoCount(),
	}

	// the live geometry is read once, before anything is drawn
	geom := tmpl.Layout(0, 0, e.opts.PreviewScale)
	live := tmpl.Scene(snap.States(), false)

	doc, err := e.opts.NewDocument(profile, e.opts.Clock())
	if err != nil {
		return report, output{}, fmt.Errorf("create document: %w", err)
	}

	bg, err := e.background.Capture(ctx, live, profile)
	if err != nil {
		return report, output{}, fmt.Errorf("background capture: %w", err)
	}
	if err := compose.PlaceBackground(doc, bg, profile); err != nil {
		return report, output{}, fmt.Errorf("background capture: %w", err)
	}

	if err := e.advance(job, StatusPlacingPhotos, obs); err != nil {
		return report, output{}, err
	}
	rects, err := compose.Resolve(geom, profile, snap.Occupied())
	if err != nil {
		return report, output{}, fmt.Errorf("resolve slots: %w", err)
	}
	for n, rect := range rects {
		slot := snap.Slots[rect.Index]
		ev := Event{Type: EventSlot, JobID: job.ID, Status: StatusPlacingPhotos, Slot: rect.Index, Done: n + 1, Total: len(rects)}

		pl, err := e.placer.Place(ctx, doc, rect, slot.Photo.Raw, profile)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, output{}, ctxErr
			}
			e.logger.Warn("photo skipped", "job", job.ID, "slot", rect.Index, "photo", slot.Photo.Name, "error", err)
			report.Skipped = append(report.Skipped, SkippedSlot{Index: rect.Index, PhotoName: slot.Photo.Name, Reason: err.Error()})
			ev.Message = err.Error()
			obs.emit(ev)
			continue
		}

		if err := compose.DrawCaption(doc, rect, slot.Caption, profile); err != nil {
			e.logger.Warn("caption not drawn", "job", job.ID, "slot", rect.Index, "error", err)
			report.Warnings = append(report.Warnings, fmt.Sprintf("Slot %d (%s): caption not drawn, %v", rect.Index, slot.Photo.Name, err))
		}
		report.Photos = append(report.Photos, ReportPhoto{
			Placement: pl,
			PhotoID:   slot.Photo.ID,
			PhotoName: slot.Photo.Name,
			Caption:   slot.Caption,
		})
		report.Placed++
		ev.Placed = true
		obs.emit(ev)
	}
	if report.Placed == 0 {
		return report, output{}, ErrNoPlacements
	}

	if err := e.advance(job, StatusFinalizing, obs); err != nil {
		return report, output{}, err
	}
	if err := compose.DrawFrame(doc, profile); err != nil {
		return report, output{}, fmt.Errorf("finalize: %w", err)
	}
	addWarnings(report)

	name := FileName(profile.FilePrefix, e.opts.Clock())
	location, err := e.opts.Sink.Save(name, doc)
	if err != nil {
		return report, output{}, fmt.Errorf("finalize: %w", err)
	}
	return report, output{name: name, location: location}, nil
}

// advance moves a running job to its next stage.
func (e *Exporter) advance(job *Job, to Status, obs Observer) error {
	e.mu.Lock()
	from := e.status
	if !from.CanTransition(to) {
		e.mu.Unlock()
		return &transitionError{from: from, to: to}
	}
	e.status = to
	job.Status = to
	if to.Terminal() {
		now := e.opts.Clock()
		job.CompletedAt = &now
	}
	msg := job.Error
	e.mu.Unlock()

	e.logger.Debug("export stage", "job", job.ID, "from", from, "to", to)
	obs.emit(Event{Type: EventStatus, JobID: job.ID, Status: to, Message: msg})
	return nil
}

func (e *Exporter) finish(job *Job, report *Report, out output, obs Observer) Job {
	e.mu.Lock()
	job.Report = report
	job.FileName = out.name
	job.Location = out.location
	e.mu.Unlock()

	if err := e.advance(job, StatusDone, obs); err != nil {
		e.logger.Error("export finish", "job", job.ID, "error", err)
	}
	e.logger.Info("export done", "job", job.ID, "file", out.location,
		"placed", report.Placed, "warnings", len(report.Warnings))
	e.notifier.OK(status.MsgGenerated)
	return e.release(job)
}

func (e *Exporter) fail(job *Job, report *Report, cause error, obs Observer) Job {
	e.mu.Lock()
	job.Error = cause.Error()
	job.Report = report
	e.mu.Unlock()

	if err := e.advance(job, StatusFailed, obs); err != nil {
		e.logger.Error("export fail", "job", job.ID, "error", err)
	}
	e.logger.Error("export failed", "job", job.ID, "error", cause)
	e.notifier.Error(status.MsgExportFailed)
	return e.release(job)
}

// release returns the machine to idle and keeps job as the last one.
func (e *Exporter) release(job *Job) Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = StatusIdle
	e.current = nil
	e.last = job
	job.Status = terminalOr(job.Status)
	return *job
}

// terminalOr forces a job that never reached a terminal state to failed.
func terminalOr(s Status) Status {
	if s.Terminal() {
		return s
	}
	return StatusFailed
}
