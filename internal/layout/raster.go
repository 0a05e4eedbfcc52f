package layout

import (
	"context"
	"image"
)

// Rasterizer turns scenes into pixels.
type Rasterizer interface {
	// Prepare starts loading the scene's image assets in the background.
	Prepare(ctx context.Context, scene *Scene) Pass
}

// Pass is one prepared rasterization.
type Pass interface {
	// Settled is closed once every asset has finished loading.
	Settled() <-chan struct{}
	// Render draws the scene at pxPerMM with whatever assets are loaded.
	Render(ctx context.Context, pxPerMM float64) (image.Image, error)
	// Close releases the assets. Safe to call more than once.
	Close()
}
