package events

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPublishReachesSubscriber(t *testing.T) {
	bus := NewEventBus(16)
	defer bus.Stop()

	var got int64
	bus.Subscribe(EventTypeDetection, func(e Event) {
		atomic.AddInt64(&got, 1)
	})

	bus.Publish(NewDetectionEvent("test", map[string]interface{}{"found": true}))
	waitFor(t, func() bool { return atomic.LoadInt64(&got) == 1 })
}

func TestSubscribersAreTypeScoped(t *testing.T) {
	bus := NewEventBus(16)
	defer bus.Stop()

	var detections, errors int64
	bus.Subscribe(EventTypeDetection, func(e Event) { atomic.AddInt64(&detections, 1) })
	bus.Subscribe(EventTypeError, func(e Event) { atomic.AddInt64(&errors, 1) })

	bus.Publish(Event{Type: EventTypeDetection, Source: "test", Timestamp: time.Now()})
	bus.Publish(Event{Type: EventTypeDetection, Source: "test", Timestamp: time.Now()})

	waitFor(t, func() bool { return atomic.LoadInt64(&detections) == 2 })
	if atomic.LoadInt64(&errors) != 0 {
		t.Errorf("error handler fired %d times for detection events", errors)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewEventBus(16)
	defer bus.Stop()

	var count int64
	id := bus.Subscribe(EventTypeDetection, func(e Event) { atomic.AddInt64(&count, 1) })

	bus.Publish(Event{Type: EventTypeDetection, Timestamp: time.Now()})
	waitFor(t, func() bool { return atomic.LoadInt64(&count) == 1 })

	bus.Unsubscribe(id)
	bus.Publish(Event{Type: EventTypeDetection, Timestamp: time.Now()})

	time.Sleep(100 * time.Millisecond)
	if atomic.LoadInt64(&count) != 1 {
		t.Errorf("handler fired after unsubscribe, count = %d", count)
	}
}

func TestPanickingHandlerDoesNotKillBus(t *testing.T) {
	bus := NewEventBus(16)
	defer bus.Stop()

	var survived int64
	bus.Subscribe(EventTypeDetection, func(e Event) { panic("handler bug") })
	bus.Subscribe(EventTypeDetection, func(e Event) { atomic.AddInt64(&survived, 1) })

	bus.Publish(Event{Type: EventTypeDetection, Timestamp: time.Now()})
	bus.Publish(Event{Type: EventTypeDetection, Timestamp: time.Now()})

	waitFor(t, func() bool { return atomic.LoadInt64(&survived) == 2 })
}

func TestConcurrentPublishers(t *testing.T) {
	bus := NewEventBus(256)
	defer bus.Stop()

	var got int64
	bus.Subscribe(EventTypeDetection, func(e Event) { atomic.AddInt64(&got, 1) })

	var wg sync.WaitGroup
	const publishers, each = 8, 20
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				bus.Publish(Event{Type: EventTypeDetection, Timestamp: time.Now()})
			}
		}()
	}
	wg.Wait()

	waitFor(t, func() bool { return atomic.LoadInt64(&got) == publishers*each })
}
