package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
)

// ScreenshotCapturer is the portable fallback backend. It is roughly an
// order of magnitude slower than the native path but works on every
// supported compositor.
type ScreenshotCapturer struct{}

// NewScreenshotCapturer returns the portable screenshot backend.
func NewScreenshotCapturer() *ScreenshotCapturer {
	return &ScreenshotCapturer{}
}

func (c *ScreenshotCapturer) Name() string { return "screenshot" }

// Capture grabs the region through the generic screenshot library.
func (c *ScreenshotCapturer) Capture(region Region) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(region.ToRect())
	if err != nil {
		return nil, fmt.Errorf("screenshot capture of %s: %w", region, err)
	}
	return img, nil
}

// VirtualBounds returns the union of all active display bounds. Regions are
// validated against this rectangle before capture.
func VirtualBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays: %w", ErrUnavailable)
	}
	bounds := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		bounds = bounds.Union(screenshot.GetDisplayBounds(i))
	}
	return bounds, nil
}

// PrimaryBounds returns the bounds of the primary display.
func PrimaryBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays: %w", ErrUnavailable)
	}
	return screenshot.GetDisplayBounds(0), nil
}
