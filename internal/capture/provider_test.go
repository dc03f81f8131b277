package capture

import (
	"errors"
	"image"
	"testing"
)

// fakeCapturer implements Capturer for testing backend fallback
type fakeCapturer struct {
	name  string
	err   error
	calls int
}

func (f *fakeCapturer) Capture(region Region) (*image.RGBA, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return image.NewRGBA(image.Rect(0, 0, region.Width, region.Height)), nil
}

func (f *fakeCapturer) Name() string { return f.name }

func testBounds() (image.Rectangle, error) {
	return image.Rect(0, 0, 1920, 1080), nil
}

func TestProviderRequiresBackend(t *testing.T) {
	if _, err := NewProvider(); err == nil {
		t.Fatal("expected error constructing provider with no backends")
	}
}

func TestProviderFirstBackendWins(t *testing.T) {
	first := &fakeCapturer{name: "first"}
	second := &fakeCapturer{name: "second"}
	p, err := NewProvider(first, second)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	p.WithBounds(testBounds)

	region := Region{X: 0, Y: 0, Width: 100, Height: 50}
	frame, err := p.Capture(region)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	if first.calls != 1 {
		t.Errorf("first backend called %d times, want 1", first.calls)
	}
	if second.calls != 0 {
		t.Errorf("second backend called %d times, want 0", second.calls)
	}
	if frame.Region != region {
		t.Errorf("frame region = %+v, want %+v", frame.Region, region)
	}
	if frame.Img.Bounds().Dx() != 100 || frame.Img.Bounds().Dy() != 50 {
		t.Errorf("frame size = %v, want 100x50", frame.Img.Bounds())
	}
	if frame.Taken.IsZero() {
		t.Error("frame timestamp not set")
	}
}

func TestProviderFallsThrough(t *testing.T) {
	broken := &fakeCapturer{name: "broken", err: ErrUnavailable}
	working := &fakeCapturer{name: "working"}
	p, err := NewProvider(broken, working)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	p.WithBounds(testBounds)

	region := Region{X: 10, Y: 10, Width: 20, Height: 20}

	// Capture twice; the fallback should keep working and the broken
	// backend should keep being tried first.
	for i := 0; i < 2; i++ {
		if _, err := p.Capture(region); err != nil {
			t.Fatalf("capture %d failed: %v", i, err)
		}
	}
	if working.calls != 2 {
		t.Errorf("working backend called %d times, want 2", working.calls)
	}
}

func TestProviderAllBackendsFail(t *testing.T) {
	broken := &fakeCapturer{name: "broken", err: errors.New("boom")}
	p, err := NewProvider(broken)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	p.WithBounds(testBounds)

	_, err = p.Capture(Region{X: 0, Y: 0, Width: 10, Height: 10})
	if err == nil {
		t.Fatal("expected error when every backend fails")
	}
}

func TestProviderRejectsInvalidRegion(t *testing.T) {
	backend := &fakeCapturer{name: "fake"}
	p, err := NewProvider(backend)
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	p.WithBounds(testBounds)

	tests := []struct {
		name   string
		region Region
	}{
		{"zero size", Region{X: 0, Y: 0, Width: 0, Height: 0}},
		{"negative size", Region{X: 0, Y: 0, Width: -10, Height: 10}},
		{"outside desktop", Region{X: 1900, Y: 1000, Width: 100, Height: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Capture(tt.region)
			if !errors.Is(err, ErrInvalidRegion) {
				t.Errorf("Capture(%+v) error = %v, want ErrInvalidRegion", tt.region, err)
			}
		})
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times for invalid regions, want 0", backend.calls)
	}
}
