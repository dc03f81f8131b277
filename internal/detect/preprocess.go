package detect

import (
	"image"
	"math"
)

// Bilateral filter parameters, fixed to the values the detector was tuned
// with. Only the CLAHE clip limit is operator-configurable.
const (
	bilateralRadius     = 4 // 9px window
	bilateralSigmaColor = 75.0
	bilateralSigmaSpace = 75.0
	claheTileGrid       = 8
)

// Grayscale converts any image to 8-bit grayscale using the standard
// luminance weights.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < bounds.Dy(); y++ {
			row := (y + bounds.Min.Y - rgba.Rect.Min.Y) * rgba.Stride
			for x := 0; x < bounds.Dx(); x++ {
				idx := row + (x+bounds.Min.X-rgba.Rect.Min.X)*4
				r := rgba.Pix[idx]
				g := rgba.Pix[idx+1]
				b := rgba.Pix[idx+2]
				gray.Pix[y*gray.Stride+x] = uint8((int(r)*299 + int(g)*587 + int(b)*114) / 1000)
			}
		}
		return gray
	}
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			gray.Pix[y*gray.Stride+x] = uint8((int(r>>8)*299 + int(g>>8)*587 + int(b>>8)*114) / 1000)
		}
	}
	return gray
}

// Preprocess converts a frame to grayscale and, when enabled, applies
// bilateral denoising followed by CLAHE. Deterministic for a given input
// and config; identical preprocessing must be applied to the template at
// load time and to every frame at match time.
func Preprocess(img image.Image, cfg Config) *image.Gray {
	gray := Grayscale(img)
	if !cfg.UsePreprocessing {
		return gray
	}
	return clahe(bilateralFilter(gray), cfg.CLAHEClipLimit)
}

// bilateralFilter smooths noise while preserving edges. 9px window with
// fixed color/space sigmas.
func bilateralFilter(src *image.Gray) *image.Gray {
	w := src.Rect.Dx()
	h := src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))

	// Spatial weights depend only on the offset; range weights only on the
	// intensity difference. Both are precomputable.
	var spatial [2*bilateralRadius + 1][2*bilateralRadius + 1]float64
	for dy := -bilateralRadius; dy <= bilateralRadius; dy++ {
		for dx := -bilateralRadius; dx <= bilateralRadius; dx++ {
			d2 := float64(dx*dx + dy*dy)
			spatial[dy+bilateralRadius][dx+bilateralRadius] =
				math.Exp(-d2 / (2 * bilateralSigmaSpace * bilateralSigmaSpace))
		}
	}
	var rangeW [256]float64
	for d := 0; d < 256; d++ {
		rangeW[d] = math.Exp(-float64(d*d) / (2 * bilateralSigmaColor * bilateralSigmaColor))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			center := src.Pix[y*src.Stride+x]
			var sum, norm float64
			for dy := -bilateralRadius; dy <= bilateralRadius; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -bilateralRadius; dx <= bilateralRadius; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					v := src.Pix[ny*src.Stride+nx]
					diff := int(v) - int(center)
					if diff < 0 {
						diff = -diff
					}
					wgt := spatial[dy+bilateralRadius][dx+bilateralRadius] * rangeW[diff]
					sum += wgt * float64(v)
					norm += wgt
				}
			}
			dst.Pix[y*dst.Stride+x] = uint8(sum/norm + 0.5)
		}
	}
	return dst
}

// clahe applies contrast-limited adaptive histogram equalization over an
// 8x8 tile grid with bilinear blending between neighboring tile mappings.
func clahe(src *image.Gray, clipLimit float64) *image.Gray {
	w := src.Rect.Dx()
	h := src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}

	tilesX := claheTileGrid
	tilesY := claheTileGrid
	if tilesX > w {
		tilesX = w
	}
	if tilesY > h {
		tilesY = h
	}
	tileW := (w + tilesX - 1) / tilesX
	tileH := (h + tilesY - 1) / tilesY

	// Per-tile equalization lookup tables.
	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tileW, ty*tileH
			x1, y1 := minInt(x0+tileW, w), minInt(y0+tileH, h)

			var hist [256]int
			count := 0
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[src.Pix[y*src.Stride+x]]++
					count++
				}
			}
			if count == 0 {
				continue
			}

			// Clip the histogram and redistribute the excess uniformly.
			clip := int(clipLimit * float64(count) / 256.0)
			if clip < 1 {
				clip = 1
			}
			excess := 0
			for i := 0; i < 256; i++ {
				if hist[i] > clip {
					excess += hist[i] - clip
					hist[i] = clip
				}
			}
			share := excess / 256
			rem := excess % 256
			for i := 0; i < 256; i++ {
				hist[i] += share
				if i < rem {
					hist[i]++
				}
			}

			cdf := 0
			lut := &luts[ty*tilesX+tx]
			for i := 0; i < 256; i++ {
				cdf += hist[i]
				lut[i] = uint8(255 * cdf / count)
			}
		}
	}

	// Bilinear interpolation between the four surrounding tile mappings.
	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)/float64(tileH) - 0.5
		ty0 := int(math.Floor(fy))
		wy := fy - float64(ty0)
		ty1 := ty0 + 1
		ty0 = clampInt(ty0, 0, tilesY-1)
		ty1 = clampInt(ty1, 0, tilesY-1)

		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)/float64(tileW) - 0.5
			tx0 := int(math.Floor(fx))
			wx := fx - float64(tx0)
			tx1 := tx0 + 1
			tx0 = clampInt(tx0, 0, tilesX-1)
			tx1 = clampInt(tx1, 0, tilesX-1)

			v := src.Pix[y*src.Stride+x]
			top := (1-wx)*float64(luts[ty0*tilesX+tx0][v]) + wx*float64(luts[ty0*tilesX+tx1][v])
			bot := (1-wx)*float64(luts[ty1*tilesX+tx0][v]) + wx*float64(luts[ty1*tilesX+tx1][v])
			dst.Pix[y*dst.Stride+x] = uint8((1-wy)*top + wy*bot + 0.5)
		}
	}
	return dst
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
