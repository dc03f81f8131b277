package gui

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"ncklabs.com/monster-detector-go/internal/detect"
	"ncklabs.com/monster-detector-go/internal/logging"
)

// OptionsPanel exposes the detection tuning parameters. Every change is
// applied through the session immediately and takes effect at the next
// cycle boundary.
type OptionsPanel struct {
	controller *Controller

	thresholdSlider *widget.Slider
	thresholdValue  *widget.Label
	preprocessCheck *widget.Check
	claheEntry      *widget.Entry
	fpsSlider       *widget.Slider
	fpsValue        *widget.Label
	offsetXEntry    *widget.Entry
	offsetYEntry    *widget.Entry
	centerCheck     *widget.Check
	debugCheck      *widget.Check
}

// NewOptionsPanel creates the options panel
func NewOptionsPanel(ctrl *Controller) *OptionsPanel {
	return &OptionsPanel{controller: ctrl}
}

// Build constructs the options UI
func (o *OptionsPanel) Build() fyne.CanvasObject {
	cfg := o.controller.session.Config()

	o.thresholdValue = widget.NewLabel(fmt.Sprintf("%.2f", cfg.Threshold))
	o.thresholdSlider = widget.NewSlider(0.1, 1.0)
	o.thresholdSlider.Step = 0.01
	o.thresholdSlider.Value = cfg.Threshold
	o.thresholdSlider.OnChanged = func(v float64) {
		o.thresholdValue.SetText(fmt.Sprintf("%.2f", v))
		o.apply(func(c *detect.Config) { c.Threshold = v })
	}

	o.preprocessCheck = widget.NewCheck("Preprocessing (denoise + contrast)", func(on bool) {
		o.apply(func(c *detect.Config) { c.UsePreprocessing = on })
	})
	o.preprocessCheck.Checked = cfg.UsePreprocessing

	o.claheEntry = widget.NewEntry()
	o.claheEntry.SetText(strconv.FormatFloat(cfg.CLAHEClipLimit, 'f', -1, 64))
	o.claheEntry.OnSubmitted = func(raw string) {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			o.controller.logPanel.AddMessage(logging.LogLevelWarn, "Invalid clip limit: "+raw)
			return
		}
		o.apply(func(c *detect.Config) { c.CLAHEClipLimit = v })
	}

	o.fpsValue = widget.NewLabel(strconv.Itoa(cfg.FPS))
	o.fpsSlider = widget.NewSlider(1, 30)
	o.fpsSlider.Step = 1
	o.fpsSlider.Value = float64(cfg.FPS)
	o.fpsSlider.OnChanged = func(v float64) {
		o.fpsValue.SetText(strconv.Itoa(int(v)))
		o.apply(func(c *detect.Config) { c.FPS = int(v) })
	}

	o.offsetXEntry = widget.NewEntry()
	o.offsetXEntry.SetText(strconv.Itoa(cfg.OffsetX))
	o.offsetXEntry.OnSubmitted = func(raw string) { o.applyOffset(raw, true) }

	o.offsetYEntry = widget.NewEntry()
	o.offsetYEntry.SetText(strconv.Itoa(cfg.OffsetY))
	o.offsetYEntry.OnSubmitted = func(raw string) { o.applyOffset(raw, false) }

	o.centerCheck = widget.NewCheck("Report center position", func(on bool) {
		o.apply(func(c *detect.Config) { c.UseCenterPosition = on })
	})
	o.centerCheck.Checked = cfg.UseCenterPosition

	o.debugCheck = widget.NewCheck("Save debug images", func(on bool) {
		o.apply(func(c *detect.Config) { c.SaveDebugImages = on })
	})
	o.debugCheck.Checked = cfg.SaveDebugImages

	form := container.NewVBox(
		widget.NewLabelWithStyle("Options", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewBorder(nil, nil, widget.NewLabel("Threshold"), o.thresholdValue, o.thresholdSlider),
		o.preprocessCheck,
		container.NewBorder(nil, nil, widget.NewLabel("CLAHE clip limit"), nil, o.claheEntry),
		container.NewBorder(nil, nil, widget.NewLabel("Detections/sec"), o.fpsValue, o.fpsSlider),
		container.NewGridWithColumns(2,
			container.NewBorder(nil, nil, widget.NewLabel("Offset X"), nil, o.offsetXEntry),
			container.NewBorder(nil, nil, widget.NewLabel("Offset Y"), nil, o.offsetYEntry),
		),
		o.centerCheck,
		o.debugCheck,
	)
	return form
}

// Reload refreshes the widgets from the session's current configuration.
func (o *OptionsPanel) Reload() {
	cfg := o.controller.session.Config()
	o.thresholdSlider.Value = cfg.Threshold
	o.thresholdSlider.Refresh()
	o.thresholdValue.SetText(fmt.Sprintf("%.2f", cfg.Threshold))
	o.fpsSlider.Value = float64(cfg.FPS)
	o.fpsSlider.Refresh()
	o.fpsValue.SetText(strconv.Itoa(cfg.FPS))
	o.preprocessCheck.SetChecked(cfg.UsePreprocessing)
	o.centerCheck.SetChecked(cfg.UseCenterPosition)
	o.debugCheck.SetChecked(cfg.SaveDebugImages)
	o.claheEntry.SetText(strconv.FormatFloat(cfg.CLAHEClipLimit, 'f', -1, 64))
	o.offsetXEntry.SetText(strconv.Itoa(cfg.OffsetX))
	o.offsetYEntry.SetText(strconv.Itoa(cfg.OffsetY))
}

func (o *OptionsPanel) apply(fn func(*detect.Config)) {
	if err := o.controller.session.UpdateConfig(fn); err != nil {
		o.controller.logPanel.AddMessage(logging.LogLevelWarn, "Rejected option: "+err.Error())
	}
}

func (o *OptionsPanel) applyOffset(raw string, isX bool) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		o.controller.logPanel.AddMessage(logging.LogLevelWarn, "Invalid offset: "+raw)
		return
	}
	o.apply(func(c *detect.Config) {
		if isX {
			c.OffsetX = v
		} else {
			c.OffsetY = v
		}
	})
}
