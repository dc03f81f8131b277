package detect

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Template is a loaded reference image plus its derived matching artifacts.
// Built once on load, replaced wholesale on the next load, never mutated.
type Template struct {
	Name   string
	Path   string
	Width  int
	Height int

	// Source is the flattened color image, kept so derived artifacts can
	// be rebuilt when preprocessing settings change.
	Source *image.RGBA

	// Gray is the preprocessed image the matchers run against.
	Gray *image.Gray

	// Precomputed feature artifacts.
	Keypoints   []Keypoint
	Descriptors []Descriptor
}

// LoadTemplate reads a template image from disk and derives its matching
// artifacts under the given config. Alpha is flattened over white first so
// transparent icon backgrounds do not leak into correlation.
func LoadTemplate(path string, cfg Config) (*Template, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load template %s: %w", path, err)
	}
	name := filepath.Base(path)
	tmpl := NewTemplateFromImage(name, img, cfg)
	tmpl.Path = path
	return tmpl, nil
}

// NewTemplateFromImage builds a template from an already-decoded image.
func NewTemplateFromImage(name string, img image.Image, cfg Config) *Template {
	flat := flattenAlpha(img)
	bounds := flat.Bounds()

	tmpl := &Template{
		Name:   name,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Source: flat,
	}
	tmpl.derive(cfg)
	return tmpl
}

// Rederive rebuilds the preprocessed image and feature artifacts for a new
// config, returning a fresh template. The source pixels are shared; they
// are never written after construction.
func (t *Template) Rederive(cfg Config) *Template {
	out := &Template{
		Name:   t.Name,
		Path:   t.Path,
		Width:  t.Width,
		Height: t.Height,
		Source: t.Source,
	}
	out.derive(cfg)
	return out
}

func (t *Template) derive(cfg Config) {
	t.Gray = Preprocess(t.Source, cfg)
	t.Keypoints = DetectKeypoints(t.Gray, cfg.MaxFeatures)
	t.Descriptors = ComputeDescriptors(t.Gray, t.Keypoints)
}

// flattenAlpha composites the image over a white background and returns
// RGBA pixels.
func flattenAlpha(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			idx := y*out.Stride + x*4
			if a == 0xffff {
				out.Pix[idx] = uint8(r >> 8)
				out.Pix[idx+1] = uint8(g >> 8)
				out.Pix[idx+2] = uint8(b >> 8)
			} else {
				// RGBA() premultiplies, so the white contribution is
				// the remaining coverage.
				rest := 0xffff - a
				out.Pix[idx] = uint8((r + rest) >> 8)
				out.Pix[idx+1] = uint8((g + rest) >> 8)
				out.Pix[idx+2] = uint8((b + rest) >> 8)
			}
			out.Pix[idx+3] = 255
		}
	}
	return out
}
