package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/photo-panel/internal/compose"
	"github.com/kozaktomas/photo-panel/internal/compose/composetest"
	"github.com/kozaktomas/photo-panel/internal/config"
	"github.com/kozaktomas/photo-panel/internal/constants"
	"github.com/kozaktomas/photo-panel/internal/layout"
	"github.com/kozaktomas/photo-panel/internal/panel"
	"github.com/kozaktomas/photo-panel/internal/status"
)

var (
	red  = color.RGBA{255, 0, 0, 255}
	blue = color.RGBA{0, 0, 255, 255}
)

func testProfile(t *testing.T) config.ExportProfile {
	t.Helper()
	set, err := config.LoadProfiles("")
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	p, err := set.Get("a2")
	if err != nil {
		t.Fatal(err)
	}
	// 1px per mm keeps buffers small
	p.DPI = 25.4
	p.BackgroundDPI = 25.4
	p.SettleTimeout = 50 * time.Millisecond
	return p
}

func pngData(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func assign(t *testing.T, p *panel.Panel, index int, name string, data []byte, caption string) {
	t.Helper()
	photo, err := panel.NewPhoto(name, data)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.AssignPhoto(index, photo); err != nil {
		t.Fatal(err)
	}
	if caption != "" {
		if err := p.SetCaption(index, caption); err != nil {
			t.Fatal(err)
		}
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) observe(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) statuses() []Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Status
	for _, ev := range l.events {
		if ev.Type == EventStatus {
			out = append(out, ev.Status)
		}
	}
	return out
}

func (l *eventLog) slots() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, ev := range l.events {
		if ev.Type == EventSlot {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	exp   *Exporter
	tmpl  *layout.Template
	ras   *composetest.Rasterizer
	doc   *composetest.Recorder
	docs  int
	sink  *MemorySink
	board *status.Board
}

var fixedClock = func() time.Time { return time.UnixMilli(1700000000000) }

func newHarness(t *testing.T, modify ...func(*Options)) *harness {
	t.Helper()
	tmpl, err := layout.Default()
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{
		tmpl:  tmpl,
		ras:   &composetest.Rasterizer{},
		doc:   &composetest.Recorder{},
		sink:  &MemorySink{},
		board: status.NewBoardWithDelay(time.Hour),
	}
	opts := Options{
		Template:   tmpl,
		Profile:    testProfile(t),
		Rasterizer: h.ras,
		NewDocument: func(config.ExportProfile, time.Time) (compose.Document, error) {
			h.docs++
			return h.doc, nil
		},
		Sink:     h.sink,
		Notifier: h.board,
		Clock:    fixedClock,
	}
	for _, m := range modify {
		m(&opts)
	}
	h.exp, err = New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func (h *harness) message(t *testing.T) status.Message {
	t.Helper()
	msg, ok := h.board.Current()
	if !ok {
		t.Fatal("expected a status message")
	}
	return msg
}

func near(a, b uint32) bool {
	d := int(a>>8) - int(b>>8)
	return d >= -3 && d <= 3
}

func sameColor(a, b color.Color) bool {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	return near(ar, br) && near(ag, bg) && near(ab, bb)
}

// checkContainFit verifies a placed buffer shows the photo centred and
// the fill colour on the sides the photo does not reach.
func checkContainFit(t *testing.T, data []byte, srcW, srcH int, want color.Color) (letterbox bool) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("placed data is not PNG: %v", err)
	}
	b := img.Bounds()
	fill := color.RGBA{0xf9, 0xf9, 0xf9, 0xff}
	if c := img.At(b.Dx()/2, b.Dy()/2); !sameColor(c, want) {
		t.Errorf("centre pixel %v, want photo colour %v", c, want)
	}
	letterbox = float64(srcW)/float64(srcH) > float64(b.Dx())/float64(b.Dy())
	if letterbox {
		if c := img.At(b.Dx()/2, 1); !sameColor(c, fill) {
			t.Errorf("top band %v, want fill", c)
		}
	} else {
		if c := img.At(1, b.Dy()/2); !sameColor(c, fill) {
			t.Errorf("left band %v, want fill", c)
		}
	}
	return letterbox
}

func TestRun_NoPhotos(t *testing.T) {
	h := newHarness(t)
	p := panel.New()

	_, err := h.exp.Run(context.Background(), p, nil)
	if !errors.Is(err, ErrNoPhotos) {
		t.Fatalf("expected ErrNoPhotos, got %v", err)
	}
	if h.docs != 0 || len(h.doc.Ops()) != 0 {
		t.Error("a document was produced")
	}
	if _, ok := h.sink.Get(FileName("Painel Filhos de Sião", fixedClock())); ok {
		t.Error("sink received a document")
	}
	if h.exp.Status() != StatusIdle {
		t.Errorf("expected idle, got %s", h.exp.Status())
	}
	if _, ok := h.exp.LastJob(); ok {
		t.Error("no job should have been recorded")
	}
	if p.ControlsHidden() {
		t.Error("controls left hidden")
	}
	msg := h.message(t)
	if msg.Kind != status.KindError || msg.Text != status.MsgNoPhotos {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestRun_Scenario(t *testing.T) {
	h := newHarness(t)
	p := panel.New()
	assign(t, p, 0, "a.png", pngData(t, 400, 300, red), "Team A")
	assign(t, p, 3, "b.png", pngData(t, 200, 300, blue), "Family Photo")
	log := &eventLog{}

	job, err := h.exp.Run(context.Background(), p, log.observe)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Status != StatusDone {
		t.Fatalf("expected done, got %s", job.Status)
	}

	profile := h.exp.Profile()
	rects, err := compose.Resolve(h.tmpl.Layout(0, 0, constants.ScreenPxPerMM), profile, []int{0, 3})
	if err != nil {
		t.Fatal(err)
	}
	rectA, rectB := rects[0], rects[1]

	images := h.doc.OpsOf(composetest.OpImage)
	if len(images) != 3 {
		t.Fatalf("expected background and two photos, got %d images", len(images))
	}
	if images[0].Rect != (layout.Rect{W: 594, H: 420}) {
		t.Errorf("first image should be the full page background, got %+v", images[0].Rect)
	}
	if images[1].Rect != rectA.Rect() || images[2].Rect != rectB.Rect() {
		t.Errorf("photos placed at %+v and %+v", images[1].Rect, images[2].Rect)
	}
	checkContainFit(t, images[1].Data, 400, 300, red)
	if rectB.W <= rectB.H {
		t.Fatalf("feature rect should be wider than tall: %+v", rectB)
	}
	if checkContainFit(t, images[2].Data, 200, 300, blue) {
		t.Error("portrait photo in the feature slot should be pillarboxed")
	}

	texts := h.doc.OpsOf(composetest.OpText)
	if len(texts) != 2 {
		t.Fatalf("expected two caption lines, got %+v", texts)
	}
	checks := []struct {
		text    string
		rect    compose.SlotRect
		spacing float64
	}{
		{"Team A", rectA, profile.Regular.CaptionSpacingMM},
		{"Family Photo", rectB, profile.Feature.CaptionSpacingMM},
	}
	for i, c := range checks {
		w, _ := h.doc.TextWidth(c.text)
		if texts[i].Text != c.text {
			t.Errorf("line %d = %q, want %q", i, texts[i].Text, c.text)
		}
		if d := texts[i].X - (c.rect.X + c.rect.W/2 - w/2); d > 1e-9 || d < -1e-9 {
			t.Errorf("%q not centred under its photo", c.text)
		}
		if d := texts[i].Y - (c.rect.Y + c.rect.H + c.spacing); d > 1e-9 || d < -1e-9 {
			t.Errorf("%q baseline %.2f, want %.2f", c.text, texts[i].Y, c.rect.Y+c.rect.H+c.spacing)
		}
	}

	ops := h.doc.Ops()
	if last := ops[len(ops)-1]; last.Kind != composetest.OpStroke || last.LineWidth != 6 {
		t.Errorf("the page frame should be drawn last, got %+v", last)
	}

	if p.ControlsHidden() {
		t.Error("controls not restored")
	}
	msg := h.message(t)
	if msg.Kind != status.KindOK || msg.Text != status.MsgGenerated {
		t.Errorf("unexpected final message %+v", msg)
	}

	wantStatuses := []Status{StatusCapturingBackground, StatusPlacingPhotos, StatusFinalizing, StatusDone}
	got := log.statuses()
	if len(got) != len(wantStatuses) {
		t.Fatalf("statuses %v, want %v", got, wantStatuses)
	}
	for i := range got {
		if got[i] != wantStatuses[i] {
			t.Errorf("status %d = %s, want %s", i, got[i], wantStatuses[i])
		}
	}
	if slots := log.slots(); len(slots) != 2 || !slots[0].Placed || slots[1].Total != 2 {
		t.Errorf("unexpected slot events %+v", slots)
	}

	if job.FileName != "Painel_Filhos_de_Siao_1700000000000.pdf" {
		t.Errorf("unexpected file name %q", job.FileName)
	}
	data, ok := h.sink.Get(job.FileName)
	if !ok || !strings.HasPrefix(string(data), "%PDF") {
		t.Errorf("sink holds %q", data)
	}

	if job.Report == nil || job.Report.Placed != 2 || len(job.Report.Photos) != 2 {
		t.Fatalf("unexpected report %+v", job.Report)
	}
	if job.Report.Photos[1].Index != constants.FeatureSlotIndex || !job.Report.Photos[1].Feature {
		t.Errorf("second placement should be the feature slot: %+v", job.Report.Photos[1])
	}
	foundLowRes := false
	for _, w := range job.Report.Warnings {
		if strings.HasPrefix(w, "Slot 0 (a.png): effective DPI") {
			foundLowRes = true
		}
	}
	if !foundLowRes {
		t.Errorf("expected a low-res warning for slot 0, got %v", job.Report.Warnings)
	}

	if h.exp.Status() != StatusIdle {
		t.Errorf("machine should be idle, got %s", h.exp.Status())
	}
	last, ok := h.exp.LastJob()
	if !ok || last.ID != job.ID || last.Status != StatusDone {
		t.Errorf("unexpected last job %+v", last)
	}
	if _, ok := h.exp.Current(); ok {
		t.Error("no job should be current")
	}
}

func TestRun_LetterboxesWidePhoto(t *testing.T) {
	h := newHarness(t)
	p := panel.New()
	assign(t, p, 0, "wide.png", pngData(t, 800, 100, red), "")

	if _, err := h.exp.Run(context.Background(), p, nil); err != nil {
		t.Fatal(err)
	}
	images := h.doc.OpsOf(composetest.OpImage)
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(images))
	}
	if !checkContainFit(t, images[1].Data, 800, 100, red) {
		t.Error("an 8:1 photo should be letterboxed")
	}
	if n := len(h.doc.OpsOf(composetest.OpText)); n != 0 {
		t.Errorf("empty caption drew %d lines", n)
	}
}

func TestRun_OneOfSevenFails(t *testing.T) {
	h := newHarness(t)
	p := panel.New()
	for i := 0; i < constants.SlotCount; i++ {
		data := pngData(t, 40, 30, red)
		if i == 2 {
			data = []byte("not an image")
		}
		assign(t, p, i, "photo.png", data, "legenda")
	}
	log := &eventLog{}

	job, err := h.exp.Run(context.Background(), p, log.observe)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if job.Status != StatusDone {
		t.Fatalf("expected done, got %s", job.Status)
	}
	if job.Report.Placed != 6 || len(job.Report.Skipped) != 1 || job.Report.Skipped[0].Index != 2 {
		t.Errorf("unexpected report placed=%d skipped=%+v", job.Report.Placed, job.Report.Skipped)
	}
	for _, ph := range job.Report.Photos {
		if ph.Index == 2 {
			t.Error("slot 2 should not be placed")
		}
	}
	if n := len(h.doc.OpsOf(composetest.OpImage)); n != 7 {
		t.Errorf("expected background plus six photos, got %d images", n)
	}
	if n := len(h.doc.OpsOf(composetest.OpText)); n != 6 {
		t.Errorf("expected six captions, got %d", n)
	}
	slots := log.slots()
	if len(slots) != 7 || slots[2].Placed || slots[2].Message == "" {
		t.Errorf("unexpected slot events %+v", slots)
	}
	found := false
	for _, w := range job.Report.Warnings {
		if strings.HasPrefix(w, "Slot 2 (photo.png): skipped") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a skip warning, got %v", job.Report.Warnings)
	}
}

func TestRun_AllPhotosFail(t *testing.T) {
	h := newHarness(t)
	p := panel.New()
	assign(t, p, 1, "x.png", []byte("garbage"), "")
	assign(t, p, 4, "y.png", []byte("garbage"), "")

	job, err := h.exp.Run(context.Background(), p, nil)
	if !errors.Is(err, ErrNoPlacements) {
		t.Fatalf("expected ErrNoPlacements, got %v", err)
	}
	if job.Status != StatusFailed || job.Error == "" {
		t.Errorf("unexpected job %+v", job)
	}
	if job.Report == nil || len(job.Report.Skipped) != 2 {
		t.Errorf("failed job should keep the skipped slots, got %+v", job.Report)
	}
	if _, ok := h.sink.Get(FileName("Painel Filhos de Sião", fixedClock())); ok {
		t.Error("no document should be saved")
	}
	if p.ControlsHidden() {
		t.Error("controls not restored")
	}
	msg := h.message(t)
	if msg.Kind != status.KindError || msg.Text != status.MsgExportFailed {
		t.Errorf("unexpected message %+v", msg)
	}
	if h.exp.Status() != StatusIdle {
		t.Errorf("expected idle after failure, got %s", h.exp.Status())
	}
}

func TestRun_BackgroundFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.ras.RenderErr = errors.New("gpu on fire")
	p := panel.New()
	assign(t, p, 0, "a.png", pngData(t, 20, 20, red), "")

	job, err := h.exp.Run(context.Background(), p, nil)
	if err == nil || !strings.Contains(err.Error(), "background capture") {
		t.Fatalf("expected background capture error, got %v", err)
	}
	if job.Status != StatusFailed {
		t.Errorf("expected failed, got %s", job.Status)
	}
	if n := len(h.doc.OpsOf(composetest.OpImage)); n != 0 {
		t.Errorf("nothing should be placed, got %d images", n)
	}
	if h.ras.Open() != 0 {
		t.Error("capture pass not closed")
	}
	if p.ControlsHidden() {
		t.Error("controls not restored")
	}
}

type failingSink struct{}

func (failingSink) Save(string, io.WriterTo) (string, error) {
	return "", errors.New("disk full")
}

func TestRun_SinkFailure(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Sink = failingSink{} })
	p := panel.New()
	assign(t, p, 0, "a.png", pngData(t, 20, 20, red), "")

	job, err := h.exp.Run(context.Background(), p, nil)
	if err == nil || !strings.Contains(err.Error(), "finalize") {
		t.Fatalf("expected finalize error, got %v", err)
	}
	if job.Status != StatusFailed {
		t.Errorf("expected failed, got %s", job.Status)
	}
}

func TestRun_RestoresControlsOnPanic(t *testing.T) {
	h := newHarness(t)
	h.ras.Hook = func() { panic("boom") }
	p := panel.New()
	assign(t, p, 0, "a.png", pngData(t, 20, 20, red), "")

	job, err := h.exp.Run(context.Background(), p, nil)
	if err == nil || !strings.Contains(err.Error(), "panicked") {
		t.Fatalf("expected panic error, got %v", err)
	}
	if job.Status != StatusFailed {
		t.Errorf("expected failed, got %s", job.Status)
	}
	if p.ControlsHidden() {
		t.Error("controls not restored after panic")
	}
	if h.exp.Status() != StatusIdle {
		t.Errorf("expected idle, got %s", h.exp.Status())
	}
}

func TestRun_Cancelled(t *testing.T) {
	h := newHarness(t)
	p := panel.New()
	assign(t, p, 0, "a.png", pngData(t, 20, 20, red), "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	job, err := h.exp.Run(ctx, p, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if job.Status != StatusFailed || p.ControlsHidden() {
		t.Errorf("unexpected end state %+v hidden=%v", job, p.ControlsHidden())
	}
}

func TestStart_SecondRequestIsNoOp(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.ras.Hook = func() { <-release }

	p := panel.New()
	assign(t, p, 0, "a.png", pngData(t, 20, 20, red), "um")

	done := make(chan struct{})
	obs := func(ev Event) {
		if ev.Type == EventStatus && ev.Status.Terminal() {
			close(done)
		}
	}
	first, err := h.exp.Start(context.Background(), p, obs)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if first.Status != StatusCapturingBackground {
		t.Errorf("expected capturing_background, got %s", first.Status)
	}

	if _, err := h.exp.Start(context.Background(), p, nil); !errors.Is(err, ErrExportInProgress) {
		t.Errorf("expected ErrExportInProgress, got %v", err)
	}
	if _, err := h.exp.Run(context.Background(), p, nil); !errors.Is(err, ErrExportInProgress) {
		t.Errorf("expected ErrExportInProgress, got %v", err)
	}
	if cur, ok := h.exp.Current(); !ok || cur.ID != first.ID {
		t.Errorf("current job changed: %+v", cur)
	}

	if err := p.SetCaption(0, "dois"); !errors.Is(err, panel.ErrControlsLocked) {
		t.Errorf("panel should be locked during export, got %v", err)
	}

	close(release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("export did not finish")
	}

	// the terminal event is sent before the machine returns to idle
	deadline := time.Now().Add(5 * time.Second)
	for h.exp.Status() != StatusIdle {
		if time.Now().After(deadline) {
			t.Fatal("machine did not return to idle")
		}
		time.Sleep(time.Millisecond)
	}
	if h.docs != 1 {
		t.Errorf("expected one document, got %d", h.docs)
	}
	job, ok := h.exp.Job(first.ID)
	if !ok || job.Status != StatusDone {
		t.Errorf("unexpected job %+v", job)
	}
	if texts := h.doc.OpsOf(composetest.OpText); len(texts) != 1 || texts[0].Text != "um" {
		t.Errorf("export should use the caption at start, got %+v", texts)
	}
	if p.ControlsHidden() {
		t.Error("controls not restored")
	}
}

func TestNew_Validation(t *testing.T) {
	tmpl, _ := layout.Default()
	profile := testProfile(t)
	docs := func(config.ExportProfile, time.Time) (compose.Document, error) { return &composetest.Recorder{}, nil }
	tests := []struct {
		name string
		opts Options
	}{
		{"no template", Options{Profile: profile, Rasterizer: &composetest.Rasterizer{}, NewDocument: docs, Sink: &MemorySink{}}},
		{"no rasterizer", Options{Template: tmpl, Profile: profile, NewDocument: docs, Sink: &MemorySink{}}},
		{"no document", Options{Template: tmpl, Profile: profile, Rasterizer: &composetest.Rasterizer{}, Sink: &MemorySink{}}},
		{"no sink", Options{Template: tmpl, Profile: profile, Rasterizer: &composetest.Rasterizer{}, NewDocument: docs}},
		{"invalid profile", Options{Template: tmpl, Rasterizer: &composetest.Rasterizer{}, NewDocument: docs, Sink: &MemorySink{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRun_KeepsBoundedJobHistory(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.KeepJobs = 2 })
	p := panel.New()
	assign(t, p, 0, "a.png", pngData(t, 4, 3, red), "")

	var ids []string
	for range 3 {
		job, err := h.exp.Run(context.Background(), p, nil)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		ids = append(ids, job.ID)
	}

	if _, ok := h.exp.Job(ids[0]); ok {
		t.Error("oldest job should be forgotten")
	}
	for _, id := range ids[1:] {
		if job, ok := h.exp.Job(id); !ok || job.Status != StatusDone {
			t.Errorf("job %s should still be available, got %+v", id, job)
		}
	}
	if last, ok := h.exp.LastJob(); !ok || last.ID != ids[2] {
		t.Errorf("unexpected last job %+v", last)
	}
}
