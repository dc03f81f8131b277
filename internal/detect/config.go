package detect

import (
	"fmt"
	"sort"
)

// Default tuning values for the detection pipeline.
const (
	DefaultThreshold      = 0.65
	DefaultCLAHEClipLimit = 1.5
	DefaultFPS            = 10
	DefaultMinFeatMatches = 10
	DefaultMaxFeatures    = 500

	// Resized templates smaller than this on either side are skipped.
	minTemplateSide = 8
)

// DefaultScales covers 8x8 up to 192x192 for a 128x128 source template.
var DefaultScales = []float64{0.0625, 0.125, 0.25, 0.5, 0.75, 1.0, 1.25, 1.5}

// Config is an immutable snapshot of the detection parameters. The session
// copies it at the start of every cycle; updates build a fresh value instead
// of mutating fields in place.
type Config struct {
	// Scales to evaluate during template matching, stored ascending.
	Scales []float64

	// Threshold accepts a template match when its confidence reaches it.
	Threshold float64

	// UsePreprocessing enables denoise + CLAHE enhancement. When false the
	// preprocessor reduces to plain grayscale.
	UsePreprocessing bool

	// CLAHEClipLimit caps per-tile histogram bins during equalization.
	CLAHEClipLimit float64

	// OffsetX and OffsetY calibrate the reported position.
	OffsetX int
	OffsetY int

	// UseCenterPosition reports the template center; when false the
	// top-left corner is reported instead.
	UseCenterPosition bool

	// FPS is the session loop rate, applied at the next cycle boundary.
	FPS int

	// MinFeatureMatches is the feature matcher acceptance gate.
	MinFeatureMatches int

	// MaxFeatures caps keypoints extracted per image.
	MaxFeatures int

	// SaveDebugImages dumps preprocessed template/frame pairs as PNGs.
	SaveDebugImages bool
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Scales:            append([]float64(nil), DefaultScales...),
		Threshold:         DefaultThreshold,
		UsePreprocessing:  true,
		CLAHEClipLimit:    DefaultCLAHEClipLimit,
		UseCenterPosition: true,
		FPS:               DefaultFPS,
		MinFeatureMatches: DefaultMinFeatMatches,
		MaxFeatures:       DefaultMaxFeatures,
	}
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if len(c.Scales) == 0 {
		return fmt.Errorf("config: at least one scale required")
	}
	for _, s := range c.Scales {
		if s <= 0 {
			return fmt.Errorf("config: scale %v must be positive", s)
		}
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("config: threshold %v outside [0,1]", c.Threshold)
	}
	if c.CLAHEClipLimit <= 0 {
		return fmt.Errorf("config: clahe clip limit %v must be positive", c.CLAHEClipLimit)
	}
	if c.FPS < 1 || c.FPS > 60 {
		return fmt.Errorf("config: fps %d outside [1,60]", c.FPS)
	}
	if c.MinFeatureMatches < 1 {
		return fmt.Errorf("config: min feature matches %d must be positive", c.MinFeatureMatches)
	}
	return nil
}

// Normalized returns a copy with the scale list deduplicated and sorted
// ascending, so evaluation order is deterministic across runs.
func (c Config) Normalized() Config {
	scales := append([]float64(nil), c.Scales...)
	sort.Float64s(scales)
	out := scales[:0]
	var prev float64
	for i, s := range scales {
		if i == 0 || s != prev {
			out = append(out, s)
		}
		prev = s
	}
	c.Scales = out
	return c
}
