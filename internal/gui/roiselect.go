package gui

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"ncklabs.com/monster-detector-go/internal/capture"
)

// RegionSelector is a fullscreen overlay for dragging out a capture region.
// It shows a frozen screenshot of the desktop; the user drags a rectangle
// over it and the widget maps the drag back to screen coordinates. Any
// drag direction works. Escape cancels.
type RegionSelector struct {
	widget.BaseWidget

	screenshot   *image.RGBA
	screenBounds image.Rectangle

	bg        *canvas.Image
	selection *canvas.Rectangle

	dragging       bool
	startX, startY float32
	curX, curY     float32

	onDone func(capture.Region, bool)
}

// NewRegionSelector creates a selector over a frozen desktop screenshot.
// onDone receives the selected region, or ok=false on cancel.
func NewRegionSelector(screenshot *image.RGBA, screenBounds image.Rectangle, onDone func(capture.Region, bool)) *RegionSelector {
	s := &RegionSelector{
		screenshot:   screenshot,
		screenBounds: screenBounds,
		onDone:       onDone,
	}
	s.bg = canvas.NewImageFromImage(screenshot)
	s.bg.FillMode = canvas.ImageFillStretch
	s.bg.Translucency = 0.3

	s.selection = canvas.NewRectangle(nil)
	s.selection.StrokeColor = ColorSuccess
	s.selection.StrokeWidth = 2
	s.selection.Hidden = true

	s.ExtendBaseWidget(s)
	return s
}

// ShowRegionSelector captures the full desktop, then opens a borderless
// fullscreen window running the selector. The callback fires after the
// window closes.
func ShowRegionSelector(app fyne.App, provider *capture.Provider, onDone func(capture.Region, bool)) error {
	bounds, err := capture.VirtualBounds()
	if err != nil {
		return err
	}
	frame, err := provider.Capture(capture.FromRect(bounds))
	if err != nil {
		return err
	}

	win := app.NewWindow("Select Region")
	done := func(r capture.Region, ok bool) {
		win.Close()
		onDone(r, ok)
	}

	sel := NewRegionSelector(frame.Img, bounds, done)
	win.SetContent(sel)
	win.SetPadded(false)
	win.SetFullScreen(true)
	win.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		if ev.Name == fyne.KeyEscape {
			done(capture.Region{}, false)
		}
	})
	win.Show()
	return nil
}

func (s *RegionSelector) CreateRenderer() fyne.WidgetRenderer {
	return &regionSelectorRenderer{sel: s}
}

// MouseDown starts a drag.
func (s *RegionSelector) MouseDown(ev *desktop.MouseEvent) {
	s.dragging = true
	s.startX, s.startY = ev.Position.X, ev.Position.Y
	s.curX, s.curY = ev.Position.X, ev.Position.Y
	s.selection.Hidden = false
	s.Refresh()
}

// MouseUp finishes the drag and reports the region.
func (s *RegionSelector) MouseUp(ev *desktop.MouseEvent) {
	if !s.dragging {
		return
	}
	s.dragging = false
	s.curX, s.curY = ev.Position.X, ev.Position.Y

	region := s.toScreenRegion()
	if s.onDone != nil {
		s.onDone(region, region.Valid())
	}
}

// MouseMoved tracks the drag rectangle.
func (s *RegionSelector) MouseMoved(ev *desktop.MouseEvent) {
	if !s.dragging {
		return
	}
	s.curX, s.curY = ev.Position.X, ev.Position.Y
	s.Refresh()
}

func (s *RegionSelector) MouseIn(*desktop.MouseEvent) {}
func (s *RegionSelector) MouseOut()                   {}

// toScreenRegion maps the widget-space drag to screen pixels. The widget
// fills the screen, so the mapping is proportional to the screenshot size.
func (s *RegionSelector) toScreenRegion() capture.Region {
	size := s.Size()
	if size.Width <= 0 || size.Height <= 0 {
		return capture.Region{}
	}
	sw := float32(s.screenBounds.Dx())
	sh := float32(s.screenBounds.Dy())

	mapX := func(x float32) int {
		return s.screenBounds.Min.X + int(x/size.Width*sw)
	}
	mapY := func(y float32) int {
		return s.screenBounds.Min.Y + int(y/size.Height*sh)
	}

	return capture.RegionFromPoints(mapX(s.startX), mapY(s.startY), mapX(s.curX), mapY(s.curY))
}

type regionSelectorRenderer struct {
	sel *RegionSelector
}

func (r *regionSelectorRenderer) Layout(size fyne.Size) {
	r.sel.bg.Resize(size)
	r.sel.bg.Move(fyne.NewPos(0, 0))
	r.positionSelection()
}

func (r *regionSelectorRenderer) positionSelection() {
	s := r.sel
	x1, y1 := s.startX, s.startY
	x2, y2 := s.curX, s.curY
	if x2 < x1 {
		x1, x2 = x2, x1
	}
	if y2 < y1 {
		y1, y2 = y2, y1
	}
	s.selection.Move(fyne.NewPos(x1, y1))
	s.selection.Resize(fyne.NewSize(x2-x1, y2-y1))
}

func (r *regionSelectorRenderer) MinSize() fyne.Size {
	return fyne.NewSize(200, 150)
}

func (r *regionSelectorRenderer) Refresh() {
	r.positionSelection()
	canvas.Refresh(r.sel)
}

func (r *regionSelectorRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.sel.bg, r.sel.selection}
}

func (r *regionSelectorRenderer) Destroy() {}
