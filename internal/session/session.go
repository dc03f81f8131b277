package session

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"ncklabs.com/monster-detector-go/internal/capture"
	"ncklabs.com/monster-detector-go/internal/cursor"
	"ncklabs.com/monster-detector-go/internal/detect"
	"ncklabs.com/monster-detector-go/internal/events"
	"ncklabs.com/monster-detector-go/internal/logging"
)

// FrameSource supplies screen frames for a region. *capture.Provider is the
// production implementation; tests substitute synthetic sources.
type FrameSource interface {
	Capture(region capture.Region) (capture.Frame, error)
}

var (
	ErrAlreadyRunning = errors.New("session: already running")
	ErrNotRunning     = errors.New("session: not running")
	ErrNoTemplate     = errors.New("session: no template loaded")
	ErrNoRegion       = errors.New("session: no capture region selected")
)

// Session runs the periodic capture-and-detect loop. Configuration, template
// and region may be changed at any time; each cycle works from a snapshot
// taken at its start, so mid-cycle updates apply from the next cycle on.
type Session struct {
	mu     sync.Mutex
	cfg    detect.Config
	tmpl   *detect.Template
	region capture.Region

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	lastFound bool
	lastPoint image.Point

	frames   FrameSource
	detector *detect.Detector
	bus      events.EventBus
	log      *logging.Logger
	Stats    Stats
}

// New creates a session over the given frame source and event bus.
func New(frames FrameSource, bus events.EventBus, log *logging.Logger) *Session {
	return &Session{
		cfg:      detect.DefaultConfig(),
		frames:   frames,
		detector: detect.NewDetector(),
		bus:      bus,
		log:      log,
	}
}

// Config returns a copy of the current configuration.
func (s *Session) Config() detect.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// UpdateConfig applies fn to a copy of the configuration and installs the
// result if it validates. Derived template data is rebuilt when preprocessing
// parameters changed.
func (s *Session) UpdateConfig(fn func(*detect.Config)) error {
	s.mu.Lock()

	next := s.cfg
	fn(&next)
	next = next.Normalized()
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}

	rederive := s.tmpl != nil &&
		(next.UsePreprocessing != s.cfg.UsePreprocessing ||
			next.CLAHEClipLimit != s.cfg.CLAHEClipLimit ||
			next.MaxFeatures != s.cfg.MaxFeatures)

	s.cfg = next
	if rederive {
		s.tmpl = s.tmpl.Rederive(s.cfg)
	}
	// Publish outside the lock: the bus blocks on a full queue, and
	// subscribers are free to read session state from their handlers.
	s.mu.Unlock()

	s.publish(events.Event{
		Type:      events.EventTypeConfigUpdated,
		Source:    "session",
		Timestamp: time.Now(),
	})
	return nil
}

// LoadTemplate loads a template image from disk and makes it current.
func (s *Session) LoadTemplate(path string) error {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()

	tmpl, err := detect.LoadTemplate(path, cfg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tmpl = tmpl
	s.mu.Unlock()

	s.publish(events.Event{
		Type:      events.EventTypeTemplateLoaded,
		Source:    "session",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"name":   tmpl.Name,
			"path":   path,
			"width":  tmpl.Width,
			"height": tmpl.Height,
		},
	})
	return nil
}

// SetTemplate installs an already-built template. Its derived data is
// rebuilt under the session's current configuration, so a template built
// elsewhere (the library cache, an older config) is always preprocessed
// the same way the frames will be.
func (s *Session) SetTemplate(tmpl *detect.Template) {
	s.mu.Lock()
	if tmpl != nil {
		tmpl = tmpl.Rederive(s.cfg)
	}
	s.tmpl = tmpl
	s.mu.Unlock()
}

// Template returns the current template, or nil.
func (s *Session) Template() *detect.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tmpl
}

// SetRegion installs the capture region.
func (s *Session) SetRegion(r capture.Region) error {
	if !r.Valid() {
		return capture.ErrInvalidRegion
	}
	s.mu.Lock()
	s.region = r
	s.mu.Unlock()

	s.publish(events.Event{
		Type:      events.EventTypeRegionSelected,
		Source:    "session",
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"region": r.String()},
	})
	return nil
}

// Region returns the current capture region.
func (s *Session) Region() capture.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.region
}

// Running reports whether the loop is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches the detection loop. The session must have a template and a
// region; both may still be swapped while running.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	if s.tmpl == nil {
		s.mu.Unlock()
		return ErrNoTemplate
	}
	if !s.region.Valid() {
		s.mu.Unlock()
		return ErrNoRegion
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.Stats.markStarted()
	s.publish(events.Event{
		Type:      events.EventTypeSessionStarted,
		Source:    "session",
		Timestamp: time.Now(),
	})
	s.log.Info("Detection session started")

	s.wg.Add(1)
	go s.loop(stopCh)
	return nil
}

// Stop halts the loop. The cycle in flight finishes before Stop returns.
func (s *Session) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()

	s.publish(events.Event{
		Type:      events.EventTypeSessionStopped,
		Source:    "session",
		Timestamp: time.Now(),
	})
	s.log.Info("Detection session stopped")
	return nil
}

func (s *Session) loop(stopCh chan struct{}) {
	defer s.wg.Done()

	interval := s.interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First cycle runs immediately rather than one tick in.
	s.runCycle()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.runCycle()
			if next := s.interval(); next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

func (s *Session) interval() time.Duration {
	s.mu.Lock()
	fps := s.cfg.FPS
	s.mu.Unlock()
	if fps <= 0 {
		fps = detect.DefaultFPS
	}
	return time.Second / time.Duration(fps)
}

// runCycle captures one frame and runs detection. A panic in a single cycle
// is contained: the cycle is skipped and the loop carries on.
func (s *Session) runCycle() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Cycle panicked", fmt.Errorf("%v", r))
			s.publish(events.Event{
				Type:      events.EventTypeCycleSkipped,
				Source:    "session",
				Timestamp: time.Now(),
				Data:      map[string]interface{}{"reason": fmt.Sprintf("panic: %v", r)},
			})
		}
	}()

	s.mu.Lock()
	cfg := s.cfg
	tmpl := s.tmpl
	region := s.region
	s.mu.Unlock()

	if tmpl == nil || !region.Valid() {
		return
	}

	start := time.Now()
	frame, err := s.frames.Capture(region)
	if err != nil {
		s.log.WarnWithContext("Capture failed", map[string]interface{}{"error": err.Error()})
		s.publish(events.Event{
			Type:      events.EventTypeCycleSkipped,
			Source:    "session",
			Timestamp: time.Now(),
			Data:      map[string]interface{}{"reason": err.Error()},
		})
		return
	}

	det := s.detector.Detect(frame.Img, tmpl, cfg)
	elapsed := time.Since(start)
	s.Stats.recordCycle(det.Found, elapsed)

	if det.Found {
		abs := image.Pt(region.X+det.Location.X, region.Y+det.Location.Y)
		s.mu.Lock()
		s.lastFound = true
		s.lastPoint = abs
		s.mu.Unlock()
	}

	data := map[string]interface{}{
		"found":      det.Found,
		"confidence": det.Confidence,
		"method":     string(det.Method),
		"scale":      det.Scale,
		"elapsed_ms": elapsed.Milliseconds(),
		"frame":      frame.Img,
		"detection":  det,
	}
	if det.Found {
		data["x"] = det.Location.X
		data["y"] = det.Location.Y
	}
	s.publish(events.NewDetectionEvent("session", data))
}

// LastDetection returns the absolute screen position of the most recent hit.
func (s *Session) LastDetection() (image.Point, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPoint, s.lastFound
}

// MoveCursorToLast moves the OS cursor to the most recent detection.
func (s *Session) MoveCursorToLast() error {
	pt, ok := s.LastDetection()
	if !ok {
		return errors.New("session: no detection yet")
	}
	if err := cursor.MoveTo(pt.X, pt.Y); err != nil {
		return err
	}
	s.publish(events.Event{
		Type:      events.EventTypeCursorMoved,
		Source:    "session",
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"x": pt.X, "y": pt.Y},
	})
	return nil
}

func (s *Session) publish(e events.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}
