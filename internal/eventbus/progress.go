package eventbus

import "github.com/jayquinn/interview-scheduler/core/events"

// ProgressBus carries scheduling checkpoints.
type ProgressBus = TypedBus[events.Progress]

// NewProgressBus creates a bus for progress events.
func NewProgressBus() *ProgressBus { return NewTyped[events.Progress]() }

// ProgressObserver returns an observer publishing on bus. It never blocks the
// scheduler.
func ProgressObserver(bus *ProgressBus) events.Observer {
	if bus == nil {
		return nil
	}
	return func(p events.Progress) { bus.Publish(p) }
}
