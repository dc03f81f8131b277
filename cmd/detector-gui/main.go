package main

import (
	"log"
	"os"

	"fyne.io/fyne/v2/app"

	"ncklabs.com/monster-detector-go/internal/capture"
	"ncklabs.com/monster-detector-go/internal/config"
	"ncklabs.com/monster-detector-go/internal/detect"
	"ncklabs.com/monster-detector-go/internal/events"
	"ncklabs.com/monster-detector-go/internal/gui"
	"ncklabs.com/monster-detector-go/internal/logging"
	"ncklabs.com/monster-detector-go/internal/session"
	"ncklabs.com/monster-detector-go/pkg/templates"
)

const settingsPath = "Settings.ini"

func main() {
	// Create Fyne application
	myApp := app.NewWithID("com.ncklabs.monster-detector")
	myApp.Settings().SetTheme(&gui.DetectorTheme{})

	mainWindow := myApp.NewWindow("Monster Marker Detector")
	mainWindow.Resize(gui.DefaultWindowSize)

	// Load configuration
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		log.Printf("Warning: Failed to load config: %v", err)
		settings = config.DefaultSettings()
	}

	logger := logging.NewLogger("main")
	bus := events.NewEventBus(256)
	defer bus.Stop()

	provider, err := capture.DefaultProvider()
	if err != nil {
		log.Fatalf("No screen capture backend available: %v", err)
	}

	library := templates.NewLibrary("templates", settings.Detect)
	if _, statErr := os.Stat("templates"); statErr == nil {
		if err := library.LoadFromDirectory("templates"); err != nil {
			logger.Warn("Failed to load template library: " + err.Error())
		} else if err := library.PreloadAll(); err != nil {
			logger.Warn(err.Error())
		}
	}

	sess := session.New(provider, bus, logging.NewLogger("session"))
	if err := sess.UpdateConfig(func(c *detect.Config) { *c = settings.Detect }); err != nil {
		logger.Warn("Invalid saved configuration, using defaults: " + err.Error())
	}

	controller := gui.NewController(myApp, mainWindow, sess, provider, library, bus, settings, settingsPath)

	content := controller.BuildUI()
	controller.RestoreSettings()

	mainWindow.SetContent(content)
	mainWindow.SetMaster()
	mainWindow.ShowAndRun()

	controller.Shutdown()
}
