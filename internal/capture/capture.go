package capture

import (
	"errors"
	"image"
	"time"
)

// Capture error types
var (
	// ErrUnavailable means a capture backend cannot operate on this system.
	// The provider recovers by falling through to the next strategy.
	ErrUnavailable = errors.New("capture backend unavailable")

	// ErrInvalidRegion means the requested region lies outside capturable bounds.
	ErrInvalidRegion = errors.New("region outside capturable bounds")
)

// Frame is a captured pixel buffer. It is owned by the pipeline stage that
// produced it and must not be mutated after construction.
type Frame struct {
	Img    *image.RGBA
	Region Region
	Taken  time.Time
}

// Capturer grabs a screen region as a pixel buffer.
type Capturer interface {
	Capture(region Region) (*image.RGBA, error)
	Name() string
}
