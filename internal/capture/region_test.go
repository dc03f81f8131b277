package capture

import (
	"image"
	"testing"
)

func TestRegionFromPoints(t *testing.T) {
	tests := []struct {
		name     string
		x1, y1   int
		x2, y2   int
		expected Region
	}{
		{
			name: "top-left to bottom-right",
			x1:   50, y1: 50, x2: 200, y2: 200,
			expected: Region{X: 50, Y: 50, Width: 150, Height: 150},
		},
		{
			name: "bottom-right to top-left",
			x1:   200, y1: 200, x2: 50, y2: 50,
			expected: Region{X: 50, Y: 50, Width: 150, Height: 150},
		},
		{
			name: "bottom-left to top-right",
			x1:   50, y1: 200, x2: 200, y2: 50,
			expected: Region{X: 50, Y: 50, Width: 150, Height: 150},
		},
		{
			name: "top-right to bottom-left",
			x1:   200, y1: 50, x2: 50, y2: 200,
			expected: Region{X: 50, Y: 50, Width: 150, Height: 150},
		},
		{
			name: "zero-size drag",
			x1:   10, y1: 10, x2: 10, y2: 10,
			expected: Region{X: 10, Y: 10, Width: 0, Height: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RegionFromPoints(tt.x1, tt.y1, tt.x2, tt.y2)
			if got != tt.expected {
				t.Errorf("RegionFromPoints(%d,%d,%d,%d) = %+v, want %+v",
					tt.x1, tt.y1, tt.x2, tt.y2, got, tt.expected)
			}
		})
	}
}

func TestRegionValid(t *testing.T) {
	tests := []struct {
		name   string
		region Region
		valid  bool
	}{
		{"normal region", Region{X: 0, Y: 0, Width: 100, Height: 100}, true},
		{"negative origin is fine", Region{X: -100, Y: -50, Width: 10, Height: 10}, true},
		{"zero width", Region{X: 0, Y: 0, Width: 0, Height: 100}, false},
		{"zero height", Region{X: 0, Y: 0, Width: 100, Height: 0}, false},
		{"negative size", Region{X: 0, Y: 0, Width: -5, Height: 10}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.region.Valid(); got != tt.valid {
				t.Errorf("%+v.Valid() = %v, want %v", tt.region, got, tt.valid)
			}
		})
	}
}

func TestRegionRectRoundTrip(t *testing.T) {
	r := Region{X: 10, Y: 20, Width: 30, Height: 40}
	rect := r.ToRect()

	expected := image.Rect(10, 20, 40, 60)
	if rect != expected {
		t.Fatalf("ToRect() = %v, want %v", rect, expected)
	}
	if back := FromRect(rect); back != r {
		t.Errorf("FromRect(ToRect()) = %+v, want %+v", back, r)
	}
}

func TestRegionContains(t *testing.T) {
	r := Region{X: 10, Y: 10, Width: 20, Height: 20}

	if !r.Contains(10, 10) {
		t.Error("expected top-left corner to be inside")
	}
	if !r.Contains(29, 29) {
		t.Error("expected last interior pixel to be inside")
	}
	if r.Contains(30, 30) {
		t.Error("expected exclusive bottom-right to be outside")
	}
	if r.Contains(9, 15) {
		t.Error("expected point left of region to be outside")
	}
}
