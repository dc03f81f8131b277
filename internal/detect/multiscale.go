package detect

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ScaleCandidate is one template rescaling attempt.
type ScaleCandidate struct {
	Factor float64
	Width  int
	Height int
}

// ScaleCandidatesFor derives the candidate list for a template size from the
// configured scale factors. The list preserves the normalized (ascending)
// factor order so evaluation is deterministic across runs. Candidates whose
// resized template would be degenerate are kept here and skipped at match
// time against the actual frame dimensions.
func ScaleCandidatesFor(tmplW, tmplH int, scales []float64) []ScaleCandidate {
	out := make([]ScaleCandidate, 0, len(scales))
	for _, s := range scales {
		out = append(out, ScaleCandidate{
			Factor: s,
			Width:  int(float64(tmplW) * s),
			Height: int(float64(tmplH) * s),
		})
	}
	return out
}

// matchTemplateMultiScale resizes the preprocessed template to each
// candidate scale and correlates it against the scene, keeping the overall
// best score. Ties prefer the scale closest to 1.0 (least resampling
// distortion). Scales that would not fit the scene, or fall under the
// minimum template side, are skipped rather than failed.
//
// The returned location is the geometric center of the matched area.
func matchTemplateMultiScale(scene *image.Gray, tmpl *Template, cfg Config) MatchResult {
	sw, sh := scene.Rect.Dx(), scene.Rect.Dy()

	best := MatchResult{Method: MethodTemplate}
	bestDist := math.Inf(1) // |scale-1| of the current best, for tie-breaks

	for _, cand := range ScaleCandidatesFor(tmpl.Width, tmpl.Height, cfg.Scales) {
		if cand.Width < minTemplateSide || cand.Height < minTemplateSide {
			continue
		}
		if cand.Width > sw || cand.Height > sh {
			continue
		}

		resized := tmpl.Gray
		if cand.Factor != 1.0 {
			resized = resizeGray(tmpl.Gray, cand.Width, cand.Height)
		}

		m, ok := findBestMatch(scene, resized)
		if !ok {
			continue
		}

		dist := math.Abs(cand.Factor - 1.0)
		if m.score > best.Confidence || (m.score == best.Confidence && dist < bestDist) {
			best = MatchResult{
				Found:      true,
				Location:   image.Point{X: m.loc.X + cand.Width/2, Y: m.loc.Y + cand.Height/2},
				Confidence: m.score,
				Scale:      cand.Factor,
				Size:       image.Point{X: cand.Width, Y: cand.Height},
				Method:     MethodTemplate,
			}
			bestDist = dist
		}
	}
	return best
}

// resizeGray rescales a grayscale image with Catmull-Rom (cubic)
// interpolation.
func resizeGray(src *image.Gray, w, h int) *image.Gray {
	resized := imaging.Resize(src, w, h, imaging.CatmullRom)
	gray := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Input is grayscale, so any channel carries the value.
			gray.Pix[y*gray.Stride+x] = resized.Pix[y*resized.Stride+x*4]
		}
	}
	return gray
}
