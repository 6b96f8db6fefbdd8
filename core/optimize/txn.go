package optimize

import "github.com/jayquinn/interview-scheduler/core/model"

// Txn stages a move on a private copy of the schedule. Nothing reaches the
// caller's slice until Commit.
type Txn struct {
	items   []model.ScheduleItem
	touched []int
}

// Begin copies items into a new transaction.
func Begin(items []model.ScheduleItem) *Txn {
	return &Txn{items: append([]model.ScheduleItem(nil), items...)}
}

// Shift moves the items at idx by delta minutes, optionally into room.
func (t *Txn) Shift(idx []int, delta model.Minute, room string) *Txn {
	for _, i := range idx {
		it := &t.items[i]
		it.Start += delta
		it.End += delta
		if room != "" {
			it.Room = room
		}
		t.touched = append(t.touched, i)
	}
	return t
}

// Items returns the staged schedule.
func (t *Txn) Items() []model.ScheduleItem { return t.items }

// Touched returns the staged items that were modified.
func (t *Txn) Touched() []model.ScheduleItem {
	out := make([]model.ScheduleItem, len(t.touched))
	for i, idx := range t.touched {
		out[i] = t.items[idx]
	}
	return out
}

// Commit returns the staged schedule for adoption.
func (t *Txn) Commit() []model.ScheduleItem { return t.items }
