// Package events provides a lightweight pub/sub event bus for runtime observability.
//
// Backend and tool-loop telemetry flows through typed events rather than log
// lines, so observers (telemetry capture, metrics) never parse log strings.
// Delivery is synchronous and in publish order: evaluation relies on a case's
// events being fully delivered before its assertions run.
package events

import "sync"

// Sink receives events. Implementations must be safe for use from the
// publishing goroutine; Handle is called synchronously.
type Sink interface {
	Handle(*Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(*Event)

// Handle calls f(e).
func (f SinkFunc) Handle(e *Event) { f(e) }

// Bus manages event distribution to sinks.
type Bus struct {
	mu          sync.RWMutex
	sinks       map[EventType][]Sink
	globalSinks []Sink
}

// NewBus creates a new event bus.
func NewBus() *Bus {
	return &Bus{
		sinks: make(map[EventType][]Sink),
	}
}

// Subscribe registers a sink for a specific event type.
func (b *Bus) Subscribe(eventType EventType, sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks[eventType] = append(b.sinks[eventType], sink)
}

// SubscribeAll registers a sink for all event types.
func (b *Bus) SubscribeAll(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.globalSinks = append(b.globalSinks, sink)
}

// Unsubscribe removes a previously registered sink from all subscriptions.
// Detaching a capture sink after an eval case must always succeed, so
// unknown sinks are ignored. The sink must be a comparable value (a pointer
// receiver, not a SinkFunc).
func (b *Bus) Unsubscribe(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, sinks := range b.sinks {
		b.sinks[eventType] = removeSink(sinks, sink)
	}
	b.globalSinks = removeSink(b.globalSinks, sink)
}

// Publish delivers an event to all registered sinks synchronously, in
// registration order. A panicking sink is contained so observers can never
// abort the observed component.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	typeSinks := make([]Sink, len(b.sinks[event.Type]))
	copy(typeSinks, b.sinks[event.Type])

	globalSinks := make([]Sink, len(b.globalSinks))
	copy(globalSinks, b.globalSinks)
	b.mu.RUnlock()

	for _, sink := range typeSinks {
		safeHandle(sink, event)
	}
	for _, sink := range globalSinks {
		safeHandle(sink, event)
	}
}

// Clear removes all sinks (primarily for tests).
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = make(map[EventType][]Sink)
	b.globalSinks = nil
}

func removeSink(sinks []Sink, target Sink) []Sink {
	out := sinks[:0]
	for _, s := range sinks {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

func safeHandle(sink Sink, event *Event) {
	defer func() { _ = recover() }()
	sink.Handle(event)
}
