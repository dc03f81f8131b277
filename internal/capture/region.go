package capture

import (
	"fmt"
	"image"
)

// Region is a rectangular screen area in absolute pixel coordinates.
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
}

// NewRegion creates a region from a top-left corner and dimensions.
func NewRegion(x, y, width, height int) Region {
	return Region{X: x, Y: y, Width: width, Height: height}
}

// RegionFromPoints builds a region from two opposite corners in any order.
// The result always has positive width and height.
func RegionFromPoints(x1, y1, x2, y2 int) Region {
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	return Region{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Valid reports whether the region has positive area.
func (r Region) Valid() bool {
	return r.Width > 0 && r.Height > 0
}

// Contains checks if a point lies within the region.
func (r Region) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// ToRect converts the region to an image.Rectangle.
func (r Region) ToRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// FromRect converts an image.Rectangle to a Region.
func FromRect(rect image.Rectangle) Region {
	rect = rect.Canon()
	return Region{X: rect.Min.X, Y: rect.Min.Y, Width: rect.Dx(), Height: rect.Dy()}
}

func (r Region) String() string {
	return fmt.Sprintf("Region(x=%d, y=%d, w=%d, h=%d)", r.X, r.Y, r.Width, r.Height)
}
