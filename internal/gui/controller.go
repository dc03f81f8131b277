package gui

import (
	"fmt"
	"image"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"ncklabs.com/monster-detector-go/internal/capture"
	"ncklabs.com/monster-detector-go/internal/config"
	"ncklabs.com/monster-detector-go/internal/cursor"
	"ncklabs.com/monster-detector-go/internal/detect"
	"ncklabs.com/monster-detector-go/internal/events"
	"ncklabs.com/monster-detector-go/internal/logging"
	"ncklabs.com/monster-detector-go/internal/session"
	"ncklabs.com/monster-detector-go/pkg/templates"
)

// Controller manages the GUI state and the detection session
type Controller struct {
	app    fyne.App
	window fyne.Window

	session  *session.Session
	provider *capture.Provider
	library  *templates.Library
	bus      events.EventBus
	uiBus    *UIEventBus
	log      *logging.Logger

	settings     config.Settings
	settingsPath string

	// Panels
	logPanel     *LogPanel
	optionsPanel *OptionsPanel

	// Widgets
	statusLabel    *widget.Label
	detectionLabel *widget.Label
	statsLabel     *widget.Label
	regionLabel    *widget.Label
	templateLabel  *widget.Label
	previewImage   *canvas.Image
	templateSelect *widget.Select
	startBtn       *widget.Button
	stopBtn        *widget.Button
	cursorBtn      *widget.Button

	subscriptions []events.SubscriptionID
}

// NewController wires the GUI to the session, capture provider and
// template library.
func NewController(app fyne.App, window fyne.Window, sess *session.Session, provider *capture.Provider, library *templates.Library, bus events.EventBus, settings config.Settings, settingsPath string) *Controller {
	ctrl := &Controller{
		app:          app,
		window:       window,
		session:      sess,
		provider:     provider,
		library:      library,
		bus:          bus,
		uiBus:        NewUIEventBus(),
		log:          logging.NewLogger("gui"),
		settings:     settings,
		settingsPath: settingsPath,
	}

	ctrl.logPanel = NewLogPanel(ctrl)
	ctrl.optionsPanel = NewOptionsPanel(ctrl)

	ctrl.uiBus.Start()
	ctrl.setupEventHandlers()

	return ctrl
}

// BuildUI constructs the main window layout: controls and options down the
// left, preview and event log on the right.
func (c *Controller) BuildUI() fyne.CanvasObject {
	left := container.NewVBox(
		c.buildControlPanel(),
		widget.NewSeparator(),
		c.optionsPanel.Build(),
	)

	c.previewImage = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	c.previewImage.FillMode = canvas.ImageFillContain
	c.previewImage.SetMinSize(fyne.NewSize(420, 300))

	c.statsLabel = widget.NewLabel("Cycles: 0  Hits: 0  Rate: 0%")
	preview := container.NewBorder(
		widget.NewLabelWithStyle("Live Preview", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		c.statsLabel,
		nil, nil,
		c.previewImage,
	)

	right := container.NewVSplit(preview, c.logPanel.Build())
	right.SetOffset(0.65)

	split := container.NewHSplit(container.NewVScroll(left), right)
	split.SetOffset(0.36)
	return split
}

func (c *Controller) buildControlPanel() fyne.CanvasObject {
	c.statusLabel = widget.NewLabelWithStyle("Idle", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	c.detectionLabel = widget.NewLabel("No detection yet")
	c.regionLabel = widget.NewLabel("Region: not selected")
	c.templateLabel = widget.NewLabel("Template: none")

	names := c.library.List()
	c.templateSelect = widget.NewSelect(names, func(name string) {
		c.onTemplateSelected(name)
	})
	c.templateSelect.PlaceHolder = "Choose a marker"

	browseBtn := widget.NewButton("Load Image...", c.onBrowseTemplate)
	regionBtn := widget.NewButton("Select Region", c.onSelectRegion)

	c.startBtn = widget.NewButton("Start", c.onStart)
	c.stopBtn = widget.NewButton("Stop", c.onStop)
	c.stopBtn.Disable()

	c.cursorBtn = widget.NewButton("Move Cursor to Last Hit", c.onMoveCursor)
	if !cursor.Supported() {
		c.cursorBtn.Disable()
	}

	saveBtn := widget.NewButton("Save Settings", c.onSaveSettings)
	resetBtn := widget.NewButton("Reset Stats", func() {
		c.session.Stats.Reset()
		c.uiBus.Publish(UIEvent{Type: UIEventStatsUpdate})
	})

	return container.NewVBox(
		widget.NewLabelWithStyle("Detection", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		c.statusLabel,
		c.detectionLabel,
		widget.NewSeparator(),
		c.templateLabel,
		c.templateSelect,
		browseBtn,
		widget.NewSeparator(),
		c.regionLabel,
		regionBtn,
		widget.NewSeparator(),
		container.NewGridWithColumns(2, c.startBtn, c.stopBtn),
		c.cursorBtn,
		container.NewGridWithColumns(2, saveBtn, resetBtn),
	)
}

// setupEventHandlers bridges the core event bus onto the UI bus, and the
// UI bus onto widgets.
func (c *Controller) setupEventHandlers() {
	sub := func(t events.EventType, h events.EventHandler) {
		c.subscriptions = append(c.subscriptions, c.bus.Subscribe(t, h))
	}

	sub(events.EventTypeDetection, func(e events.Event) {
		c.uiBus.Publish(UIEvent{Type: UIEventDetectionUpdate, Data: e.Data})
		c.publishPreview(e.Data)
		c.uiBus.Publish(UIEvent{Type: UIEventStatsUpdate})
	})
	sub(events.EventTypeSessionStarted, func(e events.Event) {
		c.uiBus.Publish(UIEvent{Type: UIEventStatusUpdate, Data: map[string]interface{}{"text": "Running", "running": true}})
	})
	sub(events.EventTypeSessionStopped, func(e events.Event) {
		c.uiBus.Publish(UIEvent{Type: UIEventStatusUpdate, Data: map[string]interface{}{"text": "Idle", "running": false}})
	})
	sub(events.EventTypeCycleSkipped, func(e events.Event) {
		reason, _ := e.Data["reason"].(string)
		c.uiBus.Publish(UIEvent{Type: UIEventLogAdd, Data: map[string]interface{}{
			"level":   logging.LogLevelWarn,
			"message": "Cycle skipped: " + reason,
		}})
	})
	sub(events.EventTypeError, func(e events.Event) {
		msg, _ := e.Data["error"].(string)
		c.uiBus.Publish(UIEvent{Type: UIEventLogAdd, Data: map[string]interface{}{
			"level":   logging.LogLevelError,
			"message": msg,
		}})
	})

	c.uiBus.Subscribe(UIEventStatusUpdate, func(e UIEvent) {
		text, _ := e.Data["text"].(string)
		running, _ := e.Data["running"].(bool)
		c.statusLabel.SetText(text)
		if running {
			c.startBtn.Disable()
			c.stopBtn.Enable()
		} else {
			c.startBtn.Enable()
			c.stopBtn.Disable()
		}
	})
	c.uiBus.Subscribe(UIEventDetectionUpdate, func(e UIEvent) {
		c.detectionLabel.SetText(formatDetection(e.Data))
	})
	c.uiBus.Subscribe(UIEventPreviewUpdate, func(e UIEvent) {
		img, ok := e.Data["image"].(image.Image)
		if !ok {
			return
		}
		c.previewImage.Image = img
		c.previewImage.Refresh()
	})
	c.uiBus.Subscribe(UIEventStatsUpdate, func(e UIEvent) {
		snap := c.session.Stats.Snapshot()
		c.statsLabel.SetText(fmt.Sprintf("Cycles: %d  Hits: %d  Rate: %.0f%%  Cycle: %dms",
			snap.TotalCycles, snap.Hits, snap.HitRate*100, snap.LastElapsed.Milliseconds()))
	})
	c.uiBus.Subscribe(UIEventLogAdd, func(e UIEvent) {
		level, _ := e.Data["level"].(logging.LogLevel)
		msg, _ := e.Data["message"].(string)
		if level == "" {
			level = logging.LogLevelInfo
		}
		c.logPanel.Append(logging.LogEntry{
			Timestamp: time.Now(),
			Level:     level,
			Component: "session",
			Message:   msg,
		})
	})
	c.uiBus.Subscribe(UIEventDialogError, func(e UIEvent) {
		msg, _ := e.Data["message"].(string)
		dialog.ShowError(fmt.Errorf("%s", msg), c.window)
	})
}

// publishPreview annotates the cycle's frame with the detection overlay
// and queues it for the preview pane.
func (c *Controller) publishPreview(data map[string]interface{}) {
	frame, ok := data["frame"].(*image.RGBA)
	if !ok || frame == nil {
		return
	}
	var img image.Image = frame
	if det, ok := data["detection"].(detect.Detection); ok && det.Found {
		img = detect.Annotate(frame, det, c.session.Config().UseCenterPosition)
	}
	c.uiBus.Publish(UIEvent{Type: UIEventPreviewUpdate, Data: map[string]interface{}{"image": img}})
}

func formatDetection(data map[string]interface{}) string {
	found, _ := data["found"].(bool)
	if !found {
		return "No match"
	}
	conf, _ := data["confidence"].(float64)
	method, _ := data["method"].(string)
	x, _ := data["x"].(int)
	y, _ := data["y"].(int)
	scale, _ := data["scale"].(float64)
	if method == string(detect.MethodFeature) {
		return fmt.Sprintf("Found at (%d,%d) conf %.2f via features", x, y, conf)
	}
	return fmt.Sprintf("Found at (%d,%d) conf %.2f scale %.2f", x, y, conf, scale)
}

// --- Actions ---

func (c *Controller) onTemplateSelected(name string) {
	tmpl, err := c.library.Get(name)
	if err != nil {
		c.showError(err)
		return
	}
	c.session.SetTemplate(tmpl)
	if threshold, ok := c.library.ThresholdFor(name); ok {
		if err := c.session.UpdateConfig(func(cfg *detect.Config) { cfg.Threshold = threshold }); err != nil {
			c.showError(err)
		}
		c.optionsPanel.Reload()
	}
	c.templateLabel.SetText(fmt.Sprintf("Template: %s (%dx%d)", tmpl.Name, tmpl.Width, tmpl.Height))
	c.logPanel.AddMessage(logging.LogLevelInfo, "Selected marker: "+name)
}

func (c *Controller) onBrowseTemplate() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		if err := c.session.LoadTemplate(path); err != nil {
			c.showError(err)
			return
		}
		tmpl := c.session.Template()
		c.settings.TemplatePath = path
		c.templateLabel.SetText(fmt.Sprintf("Template: %s (%dx%d)", tmpl.Name, tmpl.Width, tmpl.Height))
		c.logPanel.AddMessage(logging.LogLevelInfo, "Loaded template "+path)
	}, c.window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".bmp"}))
	fd.Show()
}

func (c *Controller) onSelectRegion() {
	err := ShowRegionSelector(c.app, c.provider, func(r capture.Region, ok bool) {
		if !ok {
			c.logPanel.AddMessage(logging.LogLevelInfo, "Region selection cancelled")
			return
		}
		if err := c.session.SetRegion(r); err != nil {
			c.showError(err)
			return
		}
		c.settings.Region = r
		c.regionLabel.SetText("Region: " + r.String())
		c.logPanel.AddMessage(logging.LogLevelInfo, "Region selected: "+r.String())
	})
	if err != nil {
		c.showError(err)
	}
}

func (c *Controller) onStart() {
	if err := c.session.Start(); err != nil {
		c.showError(err)
	}
}

func (c *Controller) onStop() {
	if err := c.session.Stop(); err != nil {
		c.showError(err)
	}
}

func (c *Controller) onMoveCursor() {
	if err := c.session.MoveCursorToLast(); err != nil {
		c.showError(err)
	}
}

func (c *Controller) onSaveSettings() {
	c.settings.Detect = c.session.Config()
	if r := c.session.Region(); r.Valid() {
		c.settings.Region = r
	}
	if err := config.SaveSettings(c.settingsPath, c.settings); err != nil {
		c.showError(err)
		return
	}
	c.logPanel.AddMessage(logging.LogLevelInfo, "Settings saved to "+c.settingsPath)
}

// RestoreSettings applies persisted region and template, if any.
func (c *Controller) RestoreSettings() {
	if c.settings.Region.Valid() {
		if err := c.session.SetRegion(c.settings.Region); err == nil {
			c.regionLabel.SetText("Region: " + c.settings.Region.String())
		}
	}
	if c.settings.TemplatePath != "" {
		if err := c.session.LoadTemplate(c.settings.TemplatePath); err != nil {
			c.logPanel.AddMessage(logging.LogLevelWarn, "Could not restore template: "+err.Error())
		} else if tmpl := c.session.Template(); tmpl != nil {
			c.templateLabel.SetText(fmt.Sprintf("Template: %s (%dx%d)", tmpl.Name, tmpl.Width, tmpl.Height))
		}
	}
}

// Shutdown stops the session and UI plumbing.
func (c *Controller) Shutdown() {
	if c.session.Running() {
		_ = c.session.Stop()
	}
	for _, id := range c.subscriptions {
		c.bus.Unsubscribe(id)
	}
	c.uiBus.Stop()
}

func (c *Controller) showError(err error) {
	c.log.Error("GUI action failed", err)
	c.uiBus.Publish(UIEvent{Type: UIEventDialogError, Data: map[string]interface{}{"message": err.Error()}})
}
