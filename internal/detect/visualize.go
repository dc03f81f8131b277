package detect

import (
	"image"
	"image/color"
)

var (
	overlayGood   = color.RGBA{0, 255, 0, 255}
	overlayWeak   = color.RGBA{255, 255, 0, 255}
	overlayCenter = color.RGBA{255, 0, 0, 255}
)

// Annotate copies the frame and draws the detection on it: a bounding box
// colored by confidence and a cross at the reported position. The centered
// flag says whether the detection location is the box center or its
// top-left corner. Returns the frame untouched (no copy) when nothing was
// detected.
func Annotate(frame *image.RGBA, det Detection, centered bool) *image.RGBA {
	if !det.Found {
		return frame
	}

	out := image.NewRGBA(frame.Bounds())
	copy(out.Pix, frame.Pix)

	corner := det.Location
	if centered {
		corner.X -= det.Size.X / 2
		corner.Y -= det.Size.Y / 2
	}
	box := image.Rect(corner.X, corner.Y, corner.X+det.Size.X, corner.Y+det.Size.Y).
		Intersect(out.Bounds())

	boxColor := overlayWeak
	if det.Confidence > 0.8 {
		boxColor = overlayGood
	}
	drawRect(out, box, boxColor)
	drawCross(out, det.Location, 5, overlayCenter)
	return out
}

func drawRect(img *image.RGBA, rect image.Rectangle, col color.RGBA) {
	if rect.Empty() {
		return
	}
	for x := rect.Min.X; x < rect.Max.X; x++ {
		img.SetRGBA(x, rect.Min.Y, col)
		img.SetRGBA(x, rect.Max.Y-1, col)
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		img.SetRGBA(rect.Min.X, y, col)
		img.SetRGBA(rect.Max.X-1, y, col)
	}
}

func drawCross(img *image.RGBA, at image.Point, size int, col color.RGBA) {
	bounds := img.Bounds()
	for d := -size; d <= size; d++ {
		if (image.Point{X: at.X + d, Y: at.Y}).In(bounds) {
			img.SetRGBA(at.X+d, at.Y, col)
		}
		if (image.Point{X: at.X, Y: at.Y + d}).In(bounds) {
			img.SetRGBA(at.X, at.Y+d, col)
		}
	}
}
