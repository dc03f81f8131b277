package gui

import (
	"sync"
	"time"

	"fyne.io/fyne/v2"
)

// UIEventType represents different types of UI update events
type UIEventType int

const (
	UIEventStatusUpdate UIEventType = iota
	UIEventDetectionUpdate
	UIEventPreviewUpdate
	UIEventStatsUpdate
	UIEventLogAdd
	UIEventDialogError
)

// UIEvent represents a UI update request
type UIEvent struct {
	Type UIEventType
	Data map[string]interface{}
}

// UIEventHandler processes UI events
type UIEventHandler func(UIEvent)

// UIEventBus marshals updates from worker goroutines onto a single ticker
// goroutine so Fyne widgets are never touched concurrently.
type UIEventBus struct {
	events   chan UIEvent
	handlers map[UIEventType][]UIEventHandler
	mu       sync.RWMutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewUIEventBus creates a new UI event bus
func NewUIEventBus() *UIEventBus {
	return &UIEventBus{
		events:   make(chan UIEvent, 100),
		handlers: make(map[UIEventType][]UIEventHandler),
		stopCh:   make(chan struct{}),
	}
}

// Subscribe registers a handler for a UI event type
func (eb *UIEventBus) Subscribe(eventType UIEventType, handler UIEventHandler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
}

// Publish queues a UI event. Events are dropped when the queue is full;
// the next cycle's update supersedes them anyway.
func (eb *UIEventBus) Publish(event UIEvent) {
	select {
	case eb.events <- event:
	case <-eb.stopCh:
	default:
	}
}

// Start begins the event processing ticker. Updates are funneled through
// fyne.Do so they run on the Fyne event loop.
func (eb *UIEventBus) Start() {
	go func() {
		ticker := time.NewTicker(16 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				eb.processEvents()
			case <-eb.stopCh:
				return
			}
		}
	}()
}

// Stop stops the event bus
func (eb *UIEventBus) Stop() {
	eb.stopOnce.Do(func() { close(eb.stopCh) })
}

// processEvents drains the queue, keeping only the newest event per
// coalescable type, and dispatches the batch on the Fyne thread.
func (eb *UIEventBus) processEvents() {
	var batch []UIEvent
	latest := make(map[UIEventType]int)

	for {
		select {
		case event := <-eb.events:
			if coalescable(event.Type) {
				if idx, ok := latest[event.Type]; ok {
					batch[idx] = event
					continue
				}
				latest[event.Type] = len(batch)
			}
			batch = append(batch, event)
		default:
			if len(batch) > 0 {
				events := batch
				fyne.Do(func() {
					for _, e := range events {
						eb.dispatch(e)
					}
				})
			}
			return
		}
	}
}

// coalescable reports whether older queued events of this type are
// superseded by newer ones.
func coalescable(t UIEventType) bool {
	switch t {
	case UIEventStatusUpdate, UIEventDetectionUpdate, UIEventPreviewUpdate, UIEventStatsUpdate:
		return true
	}
	return false
}

func (eb *UIEventBus) dispatch(event UIEvent) {
	eb.mu.RLock()
	handlers := eb.handlers[event.Type]
	eb.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}
