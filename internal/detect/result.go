package detect

import (
	"fmt"
	"image"
)

// Method identifies which matcher produced a result.
type Method string

const (
	MethodTemplate Method = "template"
	MethodFeature  Method = "feature"
	MethodNone     Method = "none"
)

// MatchResult is the raw output of a single matcher. Location is the
// geometric center of the detected area; never mutated after creation.
type MatchResult struct {
	Found      bool
	Location   image.Point
	Confidence float64
	Scale      float64
	Size       image.Point
	Method     Method
}

// Detection is the aggregator decision for one frame, with offset and
// position-mode calibration already applied.
type Detection struct {
	Found      bool
	Location   image.Point
	Confidence float64
	Scale      float64
	Size       image.Point
	Method     Method
}

func (d Detection) String() string {
	if !d.Found {
		return "no detection"
	}
	return fmt.Sprintf("detected method=%s confidence=%.2f scale=%.2fx position=(%d, %d) size=%dx%d",
		d.Method, d.Confidence, d.Scale, d.Location.X, d.Location.Y, d.Size.X, d.Size.Y)
}
