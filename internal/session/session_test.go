package session

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"ncklabs.com/monster-detector-go/internal/capture"
	"ncklabs.com/monster-detector-go/internal/detect"
	"ncklabs.com/monster-detector-go/internal/events"
	"ncklabs.com/monster-detector-go/internal/logging"
)

// stubFrames serves a fixed frame for any requested region.
type stubFrames struct {
	img   *image.RGBA
	err   error
	calls int64
}

func (s *stubFrames) Capture(region capture.Region) (capture.Frame, error) {
	atomic.AddInt64(&s.calls, 1)
	if s.err != nil {
		return capture.Frame{}, s.err
	}
	return capture.Frame{Img: s.img, Region: region, Taken: time.Now()}, nil
}

func noiseImage(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(rng.Intn(256))
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func testSessionConfig() func(*detect.Config) {
	return func(c *detect.Config) {
		c.UsePreprocessing = false
		c.Scales = []float64{1.0}
		c.FPS = 30
	}
}

// buildScene returns a frame with the template pasted at (pasteX, pasteY)
// and the template itself.
func buildScene(t *testing.T, pasteX, pasteY int) (*image.RGBA, *detect.Template) {
	t.Helper()
	cfg := detect.DefaultConfig()
	cfg.UsePreprocessing = false

	tmplImg := noiseImage(32, 24, 1)
	tmpl := detect.NewTemplateFromImage("marker", tmplImg, cfg)

	frame := noiseImage(200, 160, 2)
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			frame.SetRGBA(pasteX+x, pasteY+y, tmplImg.RGBAAt(x, y))
		}
	}
	return frame, tmpl
}

func TestSessionStartPreconditions(t *testing.T) {
	s := New(&stubFrames{img: noiseImage(64, 64, 1)}, nil, logging.NewLogger("test"))

	if err := s.Start(); !errors.Is(err, ErrNoTemplate) {
		t.Errorf("Start without template = %v, want ErrNoTemplate", err)
	}

	cfg := detect.DefaultConfig()
	s.SetTemplate(detect.NewTemplateFromImage("m", noiseImage(16, 16, 1), cfg))
	if err := s.Start(); !errors.Is(err, ErrNoRegion) {
		t.Errorf("Start without region = %v, want ErrNoRegion", err)
	}

	if err := s.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop while idle = %v, want ErrNotRunning", err)
	}
}

func TestSessionRejectsInvalidRegion(t *testing.T) {
	s := New(&stubFrames{}, nil, logging.NewLogger("test"))
	if err := s.SetRegion(capture.Region{Width: 0, Height: 10}); !errors.Is(err, capture.ErrInvalidRegion) {
		t.Errorf("SetRegion = %v, want ErrInvalidRegion", err)
	}
}

func TestSessionDetectsAndReportsAbsolutePosition(t *testing.T) {
	frame, tmpl := buildScene(t, 60, 40)
	frames := &stubFrames{img: frame}

	bus := events.NewEventBus(64)
	defer bus.Stop()

	detected := make(chan events.Event, 8)
	bus.Subscribe(events.EventTypeDetection, func(e events.Event) {
		select {
		case detected <- e:
		default:
		}
	})

	s := New(frames, bus, logging.NewLogger("test"))
	if err := s.UpdateConfig(testSessionConfig()); err != nil {
		t.Fatal(err)
	}
	s.SetTemplate(tmpl)
	region := capture.Region{X: 500, Y: 300, Width: 200, Height: 160}
	if err := s.SetRegion(region); err != nil {
		t.Fatal(err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start = %v, want ErrAlreadyRunning", err)
	}

	select {
	case e := <-detected:
		if found, _ := e.Data["found"].(bool); !found {
			t.Errorf("first cycle did not find the pasted template: %v", e.Data)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a detection event")
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// Template center inside the frame is (76, 52); the absolute screen
	// position adds the region origin.
	pt, ok := s.LastDetection()
	if !ok {
		t.Fatal("no last detection recorded")
	}
	wantX, wantY := 500+76, 300+52
	if abs(pt.X-wantX) > 2 || abs(pt.Y-wantY) > 2 {
		t.Errorf("absolute position = %v, want within 2px of (%d,%d)", pt, wantX, wantY)
	}

	snap := s.Stats.Snapshot()
	if snap.TotalCycles < 1 {
		t.Error("stats recorded no cycles")
	}
	if snap.Hits < 1 {
		t.Error("stats recorded no hits")
	}
	if snap.HitRate <= 0 || snap.HitRate > 1 {
		t.Errorf("hit rate = %v, want (0,1]", snap.HitRate)
	}
}

func TestSessionSkipsCycleOnCaptureError(t *testing.T) {
	frames := &stubFrames{err: errors.New("backend gone")}

	bus := events.NewEventBus(64)
	defer bus.Stop()

	skipped := make(chan events.Event, 8)
	bus.Subscribe(events.EventTypeCycleSkipped, func(e events.Event) {
		select {
		case skipped <- e:
		default:
		}
	})

	s := New(frames, bus, logging.NewLogger("test"))
	if err := s.UpdateConfig(testSessionConfig()); err != nil {
		t.Fatal(err)
	}
	cfg := detect.DefaultConfig()
	s.SetTemplate(detect.NewTemplateFromImage("m", noiseImage(16, 16, 1), cfg))
	if err := s.SetRegion(capture.Region{X: 0, Y: 0, Width: 64, Height: 64}); err != nil {
		t.Fatal(err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	select {
	case e := <-skipped:
		if reason, _ := e.Data["reason"].(string); reason == "" {
			t.Error("skip event carries no reason")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a skip event")
	}

	// The loop must survive the failure and keep trying.
	time.Sleep(150 * time.Millisecond)
	if atomic.LoadInt64(&frames.calls) < 2 {
		t.Error("loop stopped after the first capture failure")
	}
}

func TestSessionUpdateConfigValidation(t *testing.T) {
	s := New(&stubFrames{}, nil, logging.NewLogger("test"))

	if err := s.UpdateConfig(func(c *detect.Config) { c.Threshold = 2.0 }); err == nil {
		t.Error("expected invalid threshold to be rejected")
	}
	// Rejected update must not stick.
	if got := s.Config().Threshold; got != detect.DefaultThreshold {
		t.Errorf("threshold after rejected update = %v, want %v", got, detect.DefaultThreshold)
	}

	if err := s.UpdateConfig(func(c *detect.Config) { c.Threshold = 0.8 }); err != nil {
		t.Errorf("valid update rejected: %v", err)
	}
	if got := s.Config().Threshold; got != 0.8 {
		t.Errorf("threshold = %v, want 0.8", got)
	}
}

func TestSetTemplateRederivesUnderCurrentConfig(t *testing.T) {
	// Template built somewhere else, under different preprocessing
	// settings than the session's.
	builtCfg := detect.DefaultConfig() // preprocessing on
	tmpl := detect.NewTemplateFromImage("m", noiseImage(64, 64, 1), builtCfg)

	s := New(&stubFrames{}, nil, logging.NewLogger("test"))
	if err := s.UpdateConfig(func(c *detect.Config) { c.UsePreprocessing = false }); err != nil {
		t.Fatal(err)
	}

	s.SetTemplate(tmpl)

	// Frames and the installed template must go through the same
	// preprocessing, or matching scores are meaningless.
	installed := s.Template()
	want := detect.Preprocess(installed.Source, s.Config())
	if !bytes.Equal(installed.Gray.Pix, want.Pix) {
		t.Error("installed template was preprocessed under its build-time config, not the session's")
	}

	// The other direction: session has preprocessing on, template was
	// built with it off.
	offCfg := builtCfg
	offCfg.UsePreprocessing = false
	tmpl2 := detect.NewTemplateFromImage("m2", noiseImage(64, 64, 2), offCfg)

	s2 := New(&stubFrames{}, nil, logging.NewLogger("test"))
	s2.SetTemplate(tmpl2)

	installed2 := s2.Template()
	want2 := detect.Preprocess(installed2.Source, s2.Config())
	if !bytes.Equal(installed2.Gray.Pix, want2.Pix) {
		t.Error("installed template not rederived to match the session's preprocessing")
	}
}

func TestUpdateConfigDoesNotHoldLockDuringPublish(t *testing.T) {
	// A tiny queue plus a subscriber that reads session state forces the
	// hazardous interleaving: publisher blocked on a full queue while the
	// dispatcher's handler wants session state.
	bus := events.NewEventBus(1)
	defer bus.Stop()

	s := New(&stubFrames{}, bus, logging.NewLogger("test"))
	bus.Subscribe(events.EventTypeConfigUpdated, func(e events.Event) {
		time.Sleep(30 * time.Millisecond)
		_ = s.Config()
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			if err := s.UpdateConfig(func(c *detect.Config) { c.Threshold = 0.7 }); err != nil {
				t.Errorf("UpdateConfig: %v", err)
				return
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("config updates deadlocked against a state-reading subscriber")
	}
}

func TestStatsReset(t *testing.T) {
	var st Stats
	st.recordCycle(true, 10*time.Millisecond)
	st.recordCycle(false, 20*time.Millisecond)

	snap := st.Snapshot()
	if snap.TotalCycles != 2 || snap.Hits != 1 {
		t.Fatalf("snapshot = %+v, want 2 cycles 1 hit", snap)
	}
	if snap.HitRate != 0.5 {
		t.Errorf("hit rate = %v, want 0.5", snap.HitRate)
	}

	st.Reset()
	if snap := st.Snapshot(); snap.TotalCycles != 0 || snap.Hits != 0 || snap.HitRate != 0 {
		t.Errorf("after reset: %+v, want zeroes", snap)
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
