package gui

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"ncklabs.com/monster-detector-go/internal/logging"
)

// LogPanel displays session event logs
type LogPanel struct {
	controller *Controller

	logs   []logging.LogEntry
	logsMu sync.RWMutex

	logList      *widget.List
	filterSelect *widget.Select
	filterLevel  string
	maxLogs      int
}

// NewLogPanel creates a new log panel
func NewLogPanel(ctrl *Controller) *LogPanel {
	return &LogPanel{
		controller:  ctrl,
		logs:        make([]logging.LogEntry, 0, 500),
		filterLevel: "All",
		maxLogs:     500,
	}
}

// Build constructs the log viewer UI
func (l *LogPanel) Build() fyne.CanvasObject {
	header := widget.NewLabelWithStyle("Event Log", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})

	l.filterSelect = widget.NewSelect(
		[]string{"All", "DEBUG", "INFO", "WARN", "ERROR"},
		func(selected string) {
			l.logsMu.Lock()
			l.filterLevel = selected
			l.logsMu.Unlock()
			if l.logList != nil {
				l.logList.Refresh()
			}
		},
	)
	l.filterSelect.SetSelected("All")

	clearBtn := widget.NewButton("Clear", func() {
		l.logsMu.Lock()
		l.logs = l.logs[:0]
		l.logsMu.Unlock()
		l.logList.Refresh()
	})

	l.logList = widget.NewList(
		func() int {
			l.logsMu.RLock()
			defer l.logsMu.RUnlock()
			return len(l.filtered())
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("template")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			l.logsMu.RLock()
			entries := l.filtered()
			if id >= len(entries) {
				l.logsMu.RUnlock()
				return
			}
			entry := entries[id]
			l.logsMu.RUnlock()

			label := obj.(*widget.Label)
			label.SetText(fmt.Sprintf("%s [%s] %s",
				entry.Timestamp.Format("15:04:05"),
				entry.Level,
				entry.Message))
		},
	)

	toolbar := container.NewBorder(nil, nil, header, container.NewHBox(l.filterSelect, clearBtn))
	return container.NewBorder(toolbar, nil, nil, nil, l.logList)
}

// filtered returns entries matching the current filter. Caller holds logsMu.
func (l *LogPanel) filtered() []logging.LogEntry {
	if l.filterLevel == "" || l.filterLevel == "All" {
		return l.logs
	}
	out := make([]logging.LogEntry, 0, len(l.logs))
	for _, e := range l.logs {
		if string(e.Level) == l.filterLevel {
			out = append(out, e)
		}
	}
	return out
}

// Append adds a log entry, trimming the oldest past the cap. Must be
// called on the Fyne thread (the UI event bus guarantees this).
func (l *LogPanel) Append(entry logging.LogEntry) {
	l.logsMu.Lock()
	l.logs = append(l.logs, entry)
	if len(l.logs) > l.maxLogs {
		l.logs = l.logs[len(l.logs)-l.maxLogs:]
	}
	l.logsMu.Unlock()

	if l.logList != nil {
		l.logList.Refresh()
		l.logList.ScrollToBottom()
	}
}

// AddMessage appends a simple timestamped message.
func (l *LogPanel) AddMessage(level logging.LogLevel, message string) {
	l.Append(logging.LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Component: "gui",
		Message:   message,
	})
}
