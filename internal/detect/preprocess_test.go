package detect

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

func TestGrayscaleLuminance(t *testing.T) {
	tests := []struct {
		name     string
		in       color.RGBA
		expected uint8
	}{
		{"black", color.RGBA{0, 0, 0, 255}, 0},
		{"white", color.RGBA{255, 255, 255, 255}, 255},
		{"pure red", color.RGBA{255, 0, 0, 255}, 76},
		{"pure green", color.RGBA{0, 255, 0, 255}, 149},
		{"pure blue", color.RGBA{0, 0, 255, 255}, 29},
		{"mid gray", color.RGBA{128, 128, 128, 255}, 128},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := image.NewRGBA(image.Rect(0, 0, 1, 1))
			img.SetRGBA(0, 0, tt.in)

			gray := Grayscale(img)
			got := gray.Pix[0]
			if absInt(int(got)-int(tt.expected)) > 1 {
				t.Errorf("Grayscale(%v) = %d, want %d", tt.in, got, tt.expected)
			}
		})
	}
}

func TestPreprocessDisabledIsGrayscaleOnly(t *testing.T) {
	cfg := testConfig()
	img := noiseGray(64, 48, 7)

	got := Preprocess(img, cfg)
	want := Grayscale(img)

	if !bytes.Equal(got.Pix, want.Pix) {
		t.Error("disabled preprocessing should be a plain grayscale conversion")
	}
}

func TestPreprocessDeterministic(t *testing.T) {
	cfg := testConfig()
	cfg.UsePreprocessing = true
	img := noiseGray(96, 96, 8)

	a := Preprocess(img, cfg)
	b := Preprocess(img, cfg)
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Error("preprocessing must be deterministic for identical input")
	}
}

func TestPreprocessEnhancesContrast(t *testing.T) {
	cfg := testConfig()
	cfg.UsePreprocessing = true

	// Low-contrast ramp confined to a narrow band.
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			v := uint8(110 + (x+y)%20)
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}

	before := Grayscale(img)
	after := Preprocess(img, cfg)

	if imgRange(after) <= imgRange(before) {
		t.Errorf("expected equalization to widen the value range: before %d, after %d",
			imgRange(before), imgRange(after))
	}
}

func imgRange(img *image.Gray) int {
	lo, hi := 255, 0
	for _, v := range img.Pix {
		if int(v) < lo {
			lo = int(v)
		}
		if int(v) > hi {
			hi = int(v)
		}
	}
	return hi - lo
}

func TestDoubleEnhancementKeepsWinningLocation(t *testing.T) {
	cfg := testConfig()
	cfg.UsePreprocessing = true
	cfg.Scales = []float64{1.0}

	tmplImg := noiseGray(32, 24, 30)
	tmpl := NewTemplateFromImage("marker", tmplImg, cfg)

	frame := noiseGray(200, 160, 31)
	pasteAt(frame, tmplImg, 70, 50)

	once := Preprocess(frame, cfg)
	twice := Preprocess(once, cfg)

	res1 := matchTemplateMultiScale(once, tmpl, cfg)
	res2 := matchTemplateMultiScale(twice, tmpl, cfg)

	if !res1.Found || !res2.Found {
		t.Fatalf("expected a best match on both scenes, got %v / %v", res1.Found, res2.Found)
	}
	// Enhancing an already-enhanced frame must not move the winner.
	if absInt(res1.Location.X-res2.Location.X) > 2 || absInt(res1.Location.Y-res2.Location.Y) > 2 {
		t.Errorf("winning location moved after re-enhancement: %v vs %v",
			res1.Location, res2.Location)
	}
}

func TestPreprocessKeepsDimensions(t *testing.T) {
	cfg := testConfig()
	cfg.UsePreprocessing = true

	img := noiseGray(123, 77, 9)
	out := Preprocess(img, cfg)
	if out.Rect.Dx() != 123 || out.Rect.Dy() != 77 {
		t.Errorf("preprocessed size = %v, want 123x77", out.Rect)
	}
}
