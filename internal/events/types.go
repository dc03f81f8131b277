package events

import "time"

// EventType represents different types of events in the system
type EventType string

const (
	// Session lifecycle
	EventTypeSessionStarted EventType = "session.started"
	EventTypeSessionStopped EventType = "session.stopped"

	// Per-cycle results
	EventTypeDetection    EventType = "cycle.detection"
	EventTypeCycleSkipped EventType = "cycle.skipped"

	// Control surface actions
	EventTypeTemplateLoaded EventType = "template.loaded"
	EventTypeRegionSelected EventType = "region.selected"
	EventTypeConfigUpdated  EventType = "config.updated"
	EventTypeCursorMoved    EventType = "cursor.moved"

	// Error events
	EventTypeError EventType = "error"
)

// Event represents a system event with metadata
type Event struct {
	Type      EventType
	Source    string // Component that emitted the event
	Timestamp time.Time
	Data      map[string]interface{}
}

// EventHandler is a function that processes an event
type EventHandler func(Event)

// SubscriptionID uniquely identifies a subscription
type SubscriptionID int64

// EventBus defines the interface for event pub/sub
type EventBus interface {
	Subscribe(eventType EventType, handler EventHandler) SubscriptionID
	Unsubscribe(id SubscriptionID)
	Publish(event Event)
	PublishAsync(event Event)
	Stop()
}

// NewDetectionEvent creates a per-cycle detection result event.
func NewDetectionEvent(source string, data map[string]interface{}) Event {
	return Event{
		Type:      EventTypeDetection,
		Source:    source,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewErrorEvent creates an error event.
func NewErrorEvent(source string, err error) Event {
	return Event{
		Type:      EventTypeError,
		Source:    source,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"error": err.Error(),
		},
	}
}
