package detect

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"ncklabs.com/monster-detector-go/internal/logging"
)

// Matcher locates a template in a preprocessed scene. The boolean reports
// whether the result passes the matcher's acceptance gate under cfg.
type Matcher func(scene *image.Gray, tmpl *Template, cfg Config) (MatchResult, bool)

// TemplateMatcher is the multi-scale correlation matcher. Accepts when the
// best score reaches the configured threshold.
func TemplateMatcher(scene *image.Gray, tmpl *Template, cfg Config) (MatchResult, bool) {
	res := matchTemplateMultiScale(scene, tmpl, cfg)
	return res, res.Found && res.Confidence >= cfg.Threshold
}

// FeatureMatcher is the keypoint matcher. It applies its own internal gate
// (minimum consistent correspondences), not the global threshold, since its
// confidence scale differs.
func FeatureMatcher(scene *image.Gray, tmpl *Template, cfg Config) (MatchResult, bool) {
	res := matchFeatures(scene, tmpl, cfg)
	return res, res.Found
}

// Detector merges the matchers into one decision per frame. The matcher
// list is ordered and short-circuits: the exact template match is
// preferred, the feature match only runs as a recall fallback when the
// template score misses the threshold.
type Detector struct {
	matchers []Matcher
	log      *logging.Logger
}

// NewDetector creates a detector with the standard tiered matcher order.
func NewDetector() *Detector {
	return &Detector{
		matchers: []Matcher{TemplateMatcher, FeatureMatcher},
		log:      logging.NewLogger("detect"),
	}
}

// NewDetectorWithMatchers creates a detector over an explicit matcher list.
// Used by tests to instrument call ordering.
func NewDetectorWithMatchers(matchers ...Matcher) *Detector {
	return &Detector{
		matchers: matchers,
		log:      logging.NewLogger("detect"),
	}
}

// Detect preprocesses the frame and runs the matcher list in order,
// accepting the first result that passes its gate. On acceptance the
// configured offset is applied, and the location is re-derived as the
// top-left corner when center positioning is disabled.
func (d *Detector) Detect(frame *image.RGBA, tmpl *Template, cfg Config) Detection {
	if frame == nil || tmpl == nil {
		return Detection{Method: MethodNone}
	}

	scene := Preprocess(frame, cfg)
	if cfg.SaveDebugImages {
		d.dumpDebugImages(scene, tmpl)
	}

	for _, match := range d.matchers {
		res, ok := match(scene, tmpl, cfg)
		if !ok {
			continue
		}
		return d.calibrate(res, cfg)
	}
	return Detection{Method: MethodNone}
}

// calibrate converts an accepted match into the reported detection.
func (d *Detector) calibrate(res MatchResult, cfg Config) Detection {
	loc := res.Location
	if !cfg.UseCenterPosition {
		loc = image.Point{X: loc.X - res.Size.X/2, Y: loc.Y - res.Size.Y/2}
	}
	loc.X += cfg.OffsetX
	loc.Y += cfg.OffsetY

	return Detection{
		Found:      true,
		Location:   loc,
		Confidence: res.Confidence,
		Scale:      res.Scale,
		Size:       res.Size,
		Method:     res.Method,
	}
}

// dumpDebugImages writes the preprocessed scene and template next to the
// working directory for offline inspection. Failures are logged, never
// surfaced.
func (d *Detector) dumpDebugImages(scene *image.Gray, tmpl *Template) {
	for name, img := range map[string]image.Image{
		"debug_scene_processed.png":    scene,
		"debug_template_processed.png": tmpl.Gray,
	} {
		if err := imaging.Save(imaging.Clone(img), name); err != nil {
			d.log.Error(fmt.Sprintf("debug image %s", name), err)
		}
	}
}
