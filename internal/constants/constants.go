// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Slot constants
const (
	// SlotCount is the fixed number of photo slots in the template
	SlotCount = 7

	// FeatureSlotIndex is the enlarged full-width slot in the middle row
	FeatureSlotIndex = 3
)

// Print quality constants
const (
	// MMPerInch converts between millimeters and inches
	MMPerInch = 25.4

	// LowResDPIThreshold is the effective DPI below which a placement is reported as low resolution
	LowResDPIThreshold = 200.0

	// ScreenPxPerMM is the CSS reference density (96 px per inch) used for the live layout
	ScreenPxPerMM = 96.0 / MMPerInch
)

// Status channel constants
const (
	// StatusAutoClear is how long an "ok" status message stays visible
	StatusAutoClear = 4 * time.Second
)

// Output constants
const (
	// OutputExtension is the file extension of exported documents
	OutputExtension = ".pdf"
	// DefaultKeptJobs is how many jobs stay available for status lookup
	DefaultKeptJobs = 20
)
