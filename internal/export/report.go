package export

import (
	"fmt"

	"github.com/kozaktomas/photo-panel/internal/compose"
	"github.com/kozaktomas/photo-panel/internal/constants"
)

// Report describes a finished export for quality checks.
type Report struct {
	Profile      string        `json:"profile"`
	PageWidthMM  float64       `json:"page_width_mm"`
	PageHeightMM float64       `json:"page_height_mm"`
	DPI          float64       `json:"dpi"`
	PhotoCount   int           `json:"photo_count"`
	Placed       int           `json:"placed"`
	Photos       []ReportPhoto `json:"photos"`
	Skipped      []SkippedSlot `json:"skipped,omitempty"`
	Warnings     []string      `json:"warnings"`
}

// ReportPhoto is one photo placed on the page.
type ReportPhoto struct {
	compose.Placement
	PhotoID   string `json:"photo_id"`
	PhotoName string `json:"photo_name"`
	Caption   string `json:"caption,omitempty"`
}

// SkippedSlot is a slot whose photo could not be placed.
type SkippedSlot struct {
	Index     int    `json:"index"`
	PhotoName string `json:"photo_name"`
	Reason    string `json:"reason"`
}

// addWarnings lists low-resolution and skipped photos.
func addWarnings(report *Report) {
	for _, photo := range report.Photos {
		if photo.LowRes {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("Slot %d (%s): effective DPI %.0f is below %d",
					photo.Index, photo.PhotoName, photo.EffectiveDPI, int(constants.LowResDPIThreshold)))
		}
	}
	for _, s := range report.Skipped {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Slot %d (%s): skipped, %s", s.Index, s.PhotoName, s.Reason))
	}
}
