package detect

import (
	"image"
	"math"
)

// matchScore holds the best correlation found for one scanned template.
type matchScore struct {
	loc   image.Point // top-left of the best window
	score float64
}

// findBestMatch slides the template over the scene and returns the location
// with the highest normalized cross-correlation. Scores are mapped from
// [-1,1] to [0,1]. Returns ok=false when the template does not fit.
func findBestMatch(scene, tmpl *image.Gray) (matchScore, bool) {
	sw, sh := scene.Rect.Dx(), scene.Rect.Dy()
	tw, th := tmpl.Rect.Dx(), tmpl.Rect.Dy()
	if tw > sw || th > sh || tw == 0 || th == 0 {
		return matchScore{}, false
	}

	// Template statistics are constant across windows.
	n := float64(tw * th)
	var sumT, sumTT float64
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			v := float64(tmpl.Pix[y*tmpl.Stride+x])
			sumT += v
			sumTT += v * v
		}
	}
	denomT := math.Sqrt(sumTT - sumT*sumT/n)

	best := matchScore{score: -1}
	for y := 0; y <= sh-th; y++ {
		for x := 0; x <= sw-tw; x++ {
			score := nccAt(scene, tmpl, x, y, sumT, denomT, n)
			if score > best.score {
				best.score = score
				best.loc = image.Point{X: x, Y: y}
			}
		}
	}

	// Map correlation from [-1,1] to [0,1]
	best.score = (best.score + 1.0) / 2.0
	return best, true
}

// nccAt computes the correlation coefficient of the template against the
// scene window at (x, y).
func nccAt(scene, tmpl *image.Gray, x, y int, sumT, denomT, n float64) float64 {
	tw, th := tmpl.Rect.Dx(), tmpl.Rect.Dy()

	var sumS, sumSS, sumST float64
	for ty := 0; ty < th; ty++ {
		sRow := (y + ty) * scene.Stride
		tRow := ty * tmpl.Stride
		for tx := 0; tx < tw; tx++ {
			s := float64(scene.Pix[sRow+x+tx])
			t := float64(tmpl.Pix[tRow+tx])
			sumS += s
			sumSS += s * s
			sumST += s * t
		}
	}

	denomS := math.Sqrt(sumSS - sumS*sumS/n)
	if denomS == 0 || denomT == 0 {
		return 0
	}
	return (sumST - sumS*sumT/n) / (denomS * denomT)
}
