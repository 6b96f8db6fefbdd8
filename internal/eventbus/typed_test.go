package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayquinn/interview-scheduler/core/events"
)

func TestTypedBusPublishSubscribe(t *testing.T) {
	bus := NewTyped[string]()
	ch := bus.Subscribe()
	bus.Publish("hello")
	assert.Equal(t, "hello", <-ch)
	bus.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
}

func TestTypedBusClose(t *testing.T) {
	bus := NewTyped[int]()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	_, ok := <-ch1
	assert.False(t, ok, "expected ch1 closed")
	_, ok = <-ch2
	assert.False(t, ok, "expected ch2 closed")

	late := bus.Subscribe()
	_, ok = <-late
	assert.False(t, ok, "subscribe after close returns a closed channel")
	bus.Publish(1)
}

func TestTypedBusUnsubscribeAfterClose(t *testing.T) {
	bus := NewTyped[float64]()
	ch := bus.Subscribe()
	bus.Close()
	assert.NotPanics(t, func() { bus.Unsubscribe(ch) })
}

func TestTypedBusDropsWhenFull(t *testing.T) {
	bus := NewTypedSize[int](1)
	ch := bus.Subscribe()
	bus.Publish(1)
	bus.Publish(2)
	bus.Publish(3)
	assert.Equal(t, int64(2), bus.Dropped())
	assert.Equal(t, 1, <-ch)
}

func TestProgressObserver(t *testing.T) {
	assert.Nil(t, ProgressObserver(nil))

	bus := NewProgressBus()
	defer bus.Close()
	ch := bus.Subscribe()
	obs := ProgressObserver(bus)
	obs.Notify(events.Progress{Date: "2025-07-01", Checkpoint: events.DayDone})

	got := <-ch
	assert.Equal(t, events.DayDone, got.Checkpoint)
	require.False(t, got.At.IsZero())
}
