package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/kozaktomas/photo-panel/internal/compose"
	"github.com/kozaktomas/photo-panel/internal/compose/composetest"
	"github.com/kozaktomas/photo-panel/internal/config"
	"github.com/kozaktomas/photo-panel/internal/export"
	"github.com/kozaktomas/photo-panel/internal/layout"
	"github.com/kozaktomas/photo-panel/internal/panel"
)

func TestJobManager_DropsForgottenJobs(t *testing.T) {
	tmpl, err := layout.Default()
	if err != nil {
		t.Fatal(err)
	}
	set, err := config.LoadProfiles("")
	if err != nil {
		t.Fatal(err)
	}
	profile, _ := set.Get("")
	profile.DPI = 25.4
	profile.BackgroundDPI = 25.4

	exp, err := export.New(export.Options{
		Template:   tmpl,
		Profile:    profile,
		Rasterizer: &composetest.Rasterizer{},
		NewDocument: func(config.ExportProfile, time.Time) (compose.Document, error) {
			return &composetest.Recorder{}, nil
		},
		Sink:     &export.MemorySink{},
		KeepJobs: 1,
	})
	if err != nil {
		t.Fatal(err)
	}

	p := panel.New()
	photo, err := panel.NewPhoto("a.png", []byte("not decodable"))
	if err != nil {
		t.Fatal(err)
	}
	if err := p.AssignPhoto(0, photo); err != nil {
		t.Fatal(err)
	}

	jm := NewJobManager()
	var ids []string
	for range 2 {
		job := &ExportJob{exporter: exp}
		result, _ := exp.Run(context.Background(), p, job.Observe)
		job.ID = result.ID
		jm.Register(job)
		ids = append(ids, result.ID)
	}

	if jm.GetJob(ids[0]) != nil {
		t.Error("job forgotten by the exporter should be dropped")
	}
	if jm.GetJob(ids[1]) == nil {
		t.Error("latest job should be registered")
	}
}
