package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aic-holdings/bot-slack-core/types"
)

func providerEvent() *Event {
	return &Event{
		Type:      EventProviderCallCompleted,
		Timestamp: time.Now(),
		Data:      ProviderCallData{Model: "test-model"},
	}
}

func TestSubscribeDeliversMatchingType(t *testing.T) {
	bus := NewBus()
	var got []*Event
	bus.Subscribe(EventProviderCallCompleted, SinkFunc(func(e *Event) {
		got = append(got, e)
	}))

	bus.Publish(providerEvent())
	bus.Publish(&Event{Type: EventToolCallCompleted, Data: ToolCallData{Name: "get_weather"}})

	require.Len(t, got, 1)
	assert.Equal(t, EventProviderCallCompleted, got[0].Type)
}

func TestSubscribeAllDeliversEverything(t *testing.T) {
	bus := NewBus()
	var seen []EventType
	bus.SubscribeAll(SinkFunc(func(e *Event) {
		seen = append(seen, e.Type)
	}))

	bus.Publish(providerEvent())
	bus.Publish(&Event{Type: EventToolCallFailed, Data: ToolCallData{Name: "get_weather"}})
	bus.Publish(&Event{Type: EventLoopExhausted, Data: LoopExhaustedData{MaxIterations: 5}})

	assert.Equal(t, []EventType{
		EventProviderCallCompleted,
		EventToolCallFailed,
		EventLoopExhausted,
	}, seen)
}

func TestPublishIsSynchronous(t *testing.T) {
	bus := NewBus()
	delivered := false
	bus.SubscribeAll(SinkFunc(func(*Event) { delivered = true }))

	bus.Publish(providerEvent())

	// No goroutines involved: the sink has run by the time Publish returns.
	assert.True(t, delivered)
}

type countingSink struct {
	count int
}

func (c *countingSink) Handle(*Event) { c.count++ }

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	sink := &countingSink{}
	bus.Subscribe(EventProviderCallCompleted, sink)
	bus.SubscribeAll(sink)

	bus.Publish(providerEvent())
	require.Equal(t, 2, sink.count)

	bus.Unsubscribe(sink)
	bus.Publish(providerEvent())
	assert.Equal(t, 2, sink.count)
}

func TestUnsubscribeUnknownSinkIsNoop(t *testing.T) {
	bus := NewBus()
	bus.SubscribeAll(&countingSink{})
	bus.Unsubscribe(&countingSink{})
}

func TestPublishContainsPanickingSink(t *testing.T) {
	bus := NewBus()
	bus.SubscribeAll(SinkFunc(func(*Event) { panic("observer bug") }))
	after := false
	bus.SubscribeAll(SinkFunc(func(*Event) { after = true }))

	bus.Publish(providerEvent())

	// Later sinks still receive the event.
	assert.True(t, after)
}

func TestClearRemovesAllSinks(t *testing.T) {
	bus := NewBus()
	count := 0
	bus.Subscribe(EventProviderCallCompleted, SinkFunc(func(*Event) { count++ }))
	bus.SubscribeAll(SinkFunc(func(*Event) { count++ }))

	bus.Clear()
	bus.Publish(providerEvent())
	assert.Zero(t, count)
}

func TestEmitterStampsSharedMetadata(t *testing.T) {
	bus := NewBus()
	var got *Event
	bus.SubscribeAll(SinkFunc(func(e *Event) { got = e }))

	emitter := NewEmitter(bus, "run-42", "weather-bot")
	emitter.ProviderCallCompleted("test-model", types.Usage{Prompt: 10, Completion: 5, Total: 15}, 80*time.Millisecond)

	require.NotNil(t, got)
	assert.Equal(t, "run-42", got.RunID)
	assert.Equal(t, "weather-bot", got.BotName)
	assert.False(t, got.Timestamp.IsZero())

	data, ok := got.Data.(ProviderCallData)
	require.True(t, ok)
	assert.Equal(t, 15, data.Usage.Total)
}

func TestNilEmitterDiscardsEvents(t *testing.T) {
	var emitter *Emitter
	emitter.LoopExhausted(5)
	emitter.ToolCallFailed("get_weather", nil, 1, 0)

	NewEmitter(nil, "run", "bot").ProviderCallFailed("m", 0, assert.AnError)
}
