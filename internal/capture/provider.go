package capture

import (
	"fmt"
	"image"
	"time"

	"ncklabs.com/monster-detector-go/internal/logging"
)

// Provider captures frames through an ordered list of backends. Each capture
// tries the backends in sequence and the first success wins, so a missing
// native path degrades to the portable one without surfacing an error.
type Provider struct {
	backends []Capturer
	bounds   func() (image.Rectangle, error)
	log      *logging.Logger

	// index of the last backend that failed with ErrUnavailable, so the
	// failover is logged once instead of every cycle
	reported map[string]bool
}

// NewProvider creates a provider over the given backends, tried in order.
// At least one backend must be supplied.
func NewProvider(backends ...Capturer) (*Provider, error) {
	if len(backends) == 0 {
		return nil, fmt.Errorf("capture provider needs at least one backend: %w", ErrUnavailable)
	}
	return &Provider{
		backends: backends,
		bounds:   VirtualBounds,
		log:      logging.NewLogger("capture"),
		reported: make(map[string]bool),
	}, nil
}

// DefaultProvider builds the standard backend chain: the native path first,
// then the portable screenshot fallback. Fails only if no backend can
// initialize at all.
func DefaultProvider() (*Provider, error) {
	backends := make([]Capturer, 0, 2)
	if native, err := NewNativeCapturer(); err == nil {
		backends = append(backends, native)
	}
	backends = append(backends, NewScreenshotCapturer())
	return NewProvider(backends...)
}

// WithBounds overrides the virtual desktop bounds lookup. Used by tests.
func (p *Provider) WithBounds(fn func() (image.Rectangle, error)) *Provider {
	p.bounds = fn
	return p
}

// Capture grabs the region through the first working backend and stamps the
// result. Returns ErrInvalidRegion if the region falls outside the virtual
// desktop, or ErrUnavailable if every backend refused.
func (p *Provider) Capture(region Region) (Frame, error) {
	if !region.Valid() {
		return Frame{}, fmt.Errorf("%s: %w", region, ErrInvalidRegion)
	}
	if desktop, err := p.bounds(); err == nil {
		if !region.ToRect().In(desktop) {
			return Frame{}, fmt.Errorf("%s not inside desktop %v: %w", region, desktop, ErrInvalidRegion)
		}
	}

	var lastErr error
	for _, backend := range p.backends {
		img, err := backend.Capture(region)
		if err == nil {
			return Frame{Img: img, Region: region, Taken: time.Now()}, nil
		}
		lastErr = err
		if !p.reported[backend.Name()] {
			p.reported[backend.Name()] = true
			p.log.Warn(fmt.Sprintf("backend %s failed, falling through: %v", backend.Name(), err))
		}
	}
	return Frame{}, fmt.Errorf("all capture backends failed: %w", lastErr)
}

// Backends returns the backend names in try order.
func (p *Provider) Backends() []string {
	names := make([]string, len(p.backends))
	for i, b := range p.backends {
		names[i] = b.Name()
	}
	return names
}
