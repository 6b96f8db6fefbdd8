// Package batched places batched groups into rooms and time slots.
package batched

import (
	"fmt"
	"sort"
	"time"

	"github.com/jayquinn/interview-scheduler/core/logger"
	"github.com/jayquinn/interview-scheduler/core/model"
	"github.com/jayquinn/interview-scheduler/core/occupancy"
	"github.com/jayquinn/interview-scheduler/core/schederr"
	"github.com/jayquinn/interview-scheduler/core/validate"
	infralogger "github.com/jayquinn/interview-scheduler/infra/logger"
)

// Assigner places the groups of a day on a shared occupancy table.
type Assigner struct {
	date     time.Time
	table    *occupancy.Table
	check    *validate.Checker
	strategy Strategy
	cap      int
	log      logger.Logger
}

// NewAssigner creates an Assigner. capMinutes bounds the stay span of every
// real member; zero disables the check.
func NewAssigner(table *occupancy.Table, check *validate.Checker, strategy Strategy, capMinutes int, log logger.Logger) *Assigner {
	if strategy == nil {
		strategy = balanced{MinSpacing: 60, MaxSpacing: 180}
	}
	return &Assigner{
		date:     check.Day().Date,
		table:    table,
		check:    check,
		strategy: strategy,
		cap:      capMinutes,
		log:      infralogger.OrNop(log),
	}
}

// Assign places every group of one batched activity. When any group has no
// feasible slot the activity is rolled back and a CapacityExhausted error is
// returned together with the failing group.
func (a *Assigner) Assign(groups []model.Group, activity model.Activity) ([]model.ScheduleItem, []model.FailedGroup, error) {
	if len(groups) == 0 {
		return nil, nil, nil
	}
	rooms := a.table.Rooms(activity.RoomType)
	if len(rooms) == 0 {
		return nil, nil, schederr.Config(activity.Name, "no rooms of type %q", activity.RoomType)
	}
	first, last := a.startWindow(activity)
	grid := a.check.Global().Granularity
	plan := Plan{
		First:    first.CeilToGrid(grid),
		Last:     last,
		Lunch:    a.check.Global().Lunch,
		Count:    len(groups),
		Rooms:    len(rooms),
		Duration: activity.Duration,
		Grid:     grid,
	}
	if plan.First > plan.Last {
		g := groups[0]
		return nil, []model.FailedGroup{{GroupID: g.ID, Activity: activity.Name, Reason: string(validate.Window)}},
			schederr.Capacity(activity.Name, g.ID, "no start fits the operating window")
	}
	targets := a.strategy.Targets(plan)

	mark := a.table.Mark()
	var items []model.ScheduleItem
	for i, g := range groups {
		target := plan.First
		if i < len(targets) {
			target = a.snap(targets[i], plan)
		}
		placed, counts := a.place(g, activity, target, plan)
		if placed == nil {
			a.table.Undo(mark)
			reason := counts.Dominant()
			a.log.Warnf("activity %s: group %s has no slot (%s), rolling back %d groups", activity.Name, g.ID, counts, i)
			return nil, []model.FailedGroup{{GroupID: g.ID, Activity: activity.Name, Reason: string(reason)}},
				schederr.Capacity(activity.Name, g.ID, "no feasible room and time: %s", counts)
		}
		items = append(items, placed...)
	}
	a.log.Debugw("batched activity placed", map[string]any{
		"activity": activity.Name,
		"groups":   len(groups),
		"strategy": a.strategy.Name(),
	})
	return items, nil, nil
}

// snap rounds a target to the grid and moves it off the lunch interval.
func (a *Assigner) snap(t model.Minute, p Plan) model.Minute {
	t = t.RoundToGrid(p.Grid)
	d := model.Minute(p.Duration)
	if p.Lunch.Valid() && p.Lunch.Overlaps(t, t+d) {
		if t+d/2 >= p.Lunch.Start && p.Lunch.End <= p.Last {
			t = p.Lunch.End.CeilToGrid(p.Grid)
		} else {
			t = (p.Lunch.Start - d).RoundToGrid(p.Grid)
			if t > p.Lunch.Start-d {
				t -= model.Minute(p.Grid)
			}
		}
	}
	return min(max(t, p.First), p.Last)
}

// place scans outward from target: t, t+g, t-g, t+2g and so on.
func (a *Assigner) place(g model.Group, activity model.Activity, target model.Minute, p Plan) ([]model.ScheduleItem, validate.Counts) {
	counts := validate.Counts{}
	members := g.RealMembers()
	step := model.Minute(p.Grid)
	span := int(p.Last-p.First)/p.Grid + 1
	for k := 0; k <= 2*span; k++ {
		off := step * model.Minute((k+1)/2)
		if k%2 == 0 {
			off = -off
		}
		t := target + off
		if t < p.First || t > p.Last {
			continue
		}
		if items := a.tryAt(g, members, activity, t, counts); items != nil {
			return items, counts
		}
	}
	return nil, counts
}

func (a *Assigner) tryAt(g model.Group, members []string, activity model.Activity, t model.Minute, counts validate.Counts) []model.ScheduleItem {
	end := t + model.Minute(activity.Duration)
	slot := model.ScheduleItem{Date: a.date, Activity: activity.Name, Start: t, End: end}
	if r := a.check.Placement(slot); r != "" {
		counts.Add(r)
		return nil
	}
	for _, m := range members {
		slot.CandidateID = m
		placed := a.table.Items(m)
		if r := a.check.Against(slot, placed); r != "" {
			counts.Add(r)
			return nil
		}
		if a.cap > 0 && model.StayMinutes(append(placed, slot)) > a.cap {
			counts.Add(validate.StayCap)
			return nil
		}
	}
	room, ok := a.pickRoom(activity, g.Size(), t, end)
	if !ok {
		counts.Add(validate.RoomBusy)
		return nil
	}
	a.table.Reserve(room.Name, t, end, room.Capacity, g.ID)
	items := make([]model.ScheduleItem, 0, len(members))
	for _, m := range members {
		it := model.ScheduleItem{
			Date:        a.date,
			CandidateID: m,
			JobCode:     g.JobCode,
			Activity:    activity.Name,
			Room:        room.Name,
			Start:       t,
			End:         end,
			GroupID:     g.ID,
		}
		a.table.Assign(it)
		items = append(items, it)
	}
	return items
}

// pickRoom returns the least used free room large enough for the group.
func (a *Assigner) pickRoom(activity model.Activity, size int, start, end model.Minute) (model.Room, bool) {
	rooms := a.table.Rooms(activity.RoomType)
	sort.SliceStable(rooms, func(i, j int) bool { return a.table.Used(rooms[i].Name) < a.table.Used(rooms[j].Name) })
	for _, r := range rooms {
		if r.Capacity < size {
			continue
		}
		if a.table.Free(r.Name, start, end, r.Capacity) {
			return r, true
		}
	}
	return model.Room{}, false
}

// startWindow narrows the operating hours so that non-batched predecessors
// fit before the block and successors after it.
func (a *Assigner) startWindow(activity model.Activity) (model.Minute, model.Minute) {
	day := a.check.Day()
	lead := reach(day, activity.Name, true, map[string]bool{})
	tail := reach(day, activity.Name, false, map[string]bool{})
	first := day.Hours.Start + model.Minute(lead)
	last := day.Hours.End - model.Minute(activity.Duration) - model.Minute(tail)
	return first, last
}

// reach returns the longest chain of non-batched predecessors (before=true)
// or successors, in minutes including gaps.
func reach(day model.DateConfig, name string, before bool, seen map[string]bool) int {
	if seen[name] {
		return 0
	}
	seen[name] = true
	defer delete(seen, name)
	best := 0
	for _, r := range day.Precedence {
		other := r.Successor
		if before {
			other = r.Predecessor
		}
		if (before && r.Successor != name) || (!before && r.Predecessor != name) {
			continue
		}
		act, ok := day.Activity(other)
		if !ok || act.Batched() {
			continue
		}
		if n := act.Duration + r.Gap + reach(day, other, before, seen); n > best {
			best = n
		}
	}
	return best
}

// String describes the assigner for logs.
func (a *Assigner) String() string {
	return fmt.Sprintf("batched(%s, cap=%d)", a.strategy.Name(), a.cap)
}
