// Package validate checks schedules against the hard scheduling invariants.
//
// The same pairwise rules are used by the assigners while searching so that
// every placement they produce passes Schedule.
package validate

import (
	"fmt"
	"sort"

	"github.com/jayquinn/interview-scheduler/core/model"
	"github.com/jayquinn/interview-scheduler/core/schederr"
)

// Checker evaluates items of one day.
type Checker struct {
	day    model.DateConfig
	global model.GlobalConfig
	acts   map[string]model.Activity
	rooms  map[string]model.Room
}

// New builds a Checker for the day.
func New(day model.DateConfig, g model.GlobalConfig) *Checker {
	c := &Checker{
		day:    day,
		global: g,
		acts:   make(map[string]model.Activity, len(day.Activities)),
		rooms:  make(map[string]model.Room, len(day.Rooms)),
	}
	for _, a := range day.Activities {
		c.acts[a.Name] = a
	}
	for _, r := range day.Rooms {
		c.rooms[r.Name] = r
	}
	return c
}

// Day returns the day being checked.
func (c *Checker) Day() model.DateConfig { return c.day }

// Global returns the global configuration.
func (c *Checker) Global() model.GlobalConfig { return c.global }

// Pair checks two items of the same candidate. A governing precedence rule,
// in either direction, replaces the global gap.
func (c *Checker) Pair(a, b model.ScheduleItem) Reason {
	if a.CandidateID != b.CandidateID {
		return ""
	}
	if a.Overlaps(b) {
		return CandidateBusy
	}
	if r, ok := c.day.Rule(a.Activity, b.Activity); ok {
		if !r.Satisfied(a.End, b.Start) {
			return Precedence
		}
		return ""
	}
	if r, ok := c.day.Rule(b.Activity, a.Activity); ok {
		if !r.Satisfied(b.End, a.Start) {
			return Precedence
		}
		return ""
	}
	gap := model.Minute(c.global.GlobalGap)
	if a.End <= b.Start {
		if b.Start-a.End < gap {
			return Gap
		}
		return ""
	}
	if a.Start-b.End < gap {
		return Gap
	}
	return ""
}

// Against checks a proposed item against the candidate's placed items.
func (c *Checker) Against(it model.ScheduleItem, placed []model.ScheduleItem) Reason {
	for _, p := range placed {
		if p.Activity == it.Activity && p.CandidateID == it.CandidateID && p.Start == it.Start {
			continue
		}
		if r := c.Pair(it, p); r != "" {
			return r
		}
	}
	return ""
}

// Placement checks the window, grid and lunch rules of a single item.
func (c *Checker) Placement(it model.ScheduleItem) Reason {
	a, ok := c.acts[it.Activity]
	if !ok {
		return Unknown
	}
	if it.Start < c.day.Hours.Start || it.End > c.day.Hours.End || it.End-it.Start != model.Minute(a.Duration) {
		return Window
	}
	if !it.Start.OnGrid(c.global.Granularity) {
		return Grid
	}
	if a.Batched() && c.global.Lunch.Valid() && c.global.Lunch.Overlaps(it.Start, it.End) {
		return Lunch
	}
	return ""
}

// Schedule validates a complete day schedule and returns every violation.
// Stay caps are checked separately by CapViolations.
func (c *Checker) Schedule(items []model.ScheduleItem, groups []model.Group) []Violation {
	var out []Violation
	add := func(r Reason, subject, format string, args ...any) {
		out = append(out, Violation{Reason: r, Subject: subject, Detail: fmt.Sprintf(format, args...)})
	}

	for _, it := range items {
		if model.IsDummyID(it.CandidateID) {
			add(Placeholder, it.CandidateID, "placeholder in output")
		}
		if r := c.Placement(it); r != "" {
			add(r, it.CandidateID, "%s %s-%s", it.Activity, it.Start, it.End)
		}
		room, ok := c.rooms[it.Room]
		if a, known := c.acts[it.Activity]; known && (!ok || room.Type != a.RoomType) {
			add(RoomType, it.CandidateID, "%s in room %q", it.Activity, it.Room)
		}
	}

	for id, list := range model.ByCandidate(items) {
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				if r := c.Pair(list[i], list[j]); r != "" {
					add(r, id, "%s %s-%s vs %s %s-%s", list[i].Activity, list[i].Start, list[i].End,
						list[j].Activity, list[j].Start, list[j].End)
				}
			}
		}
	}

	out = append(out, c.roomLoad(items, Sizes(groups))...)
	out = append(out, c.groups(items, groups)...)
	return out
}

// Err wraps violations into a ConstraintViolation error for subject. It
// returns nil when v is empty.
func Err(subject string, v []Violation) error {
	if len(v) == 0 {
		return nil
	}
	return schederr.Constraint("", subject, "%d invariant violations, first: %s", len(v), v[0])
}

// CapViolations lists real candidates whose stay exceeds limit minutes.
func CapViolations(items []model.ScheduleItem, limit int) []model.CapViolation {
	if limit <= 0 {
		return nil
	}
	var out []model.CapViolation
	for id, stay := range model.StayByCandidate(items) {
		if stay > limit && !model.IsDummyID(id) {
			out = append(out, model.CapViolation{CandidateID: id, Stay: stay, Cap: limit})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CandidateID < out[j].CandidateID })
	return out
}

// units returns how much of a room an item occupies: exclusive modes take
// the whole room.
func (c *Checker) units(it model.ScheduleItem, room model.Room) int {
	if a, ok := c.acts[it.Activity]; ok && a.Mode == model.ModeParallel {
		return 1
	}
	return room.Capacity
}

func (c *Checker) roomLoad(items []model.ScheduleItem, sizes map[string]int) []Violation {
	var out []Violation
	byRoom := make(map[string][]model.ScheduleItem)
	for _, it := range items {
		byRoom[it.Room] = append(byRoom[it.Room], it)
	}
	names := make([]string, 0, len(byRoom))
	for n := range byRoom {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, c.room(name, byRoom[name], sizes)...)
	}
	return out
}

// Room checks the occupancy of one room given every item of the day.
func (c *Checker) Room(items []model.ScheduleItem, name string, sizes map[string]int) []Violation {
	var list []model.ScheduleItem
	for _, it := range items {
		if it.Room == name {
			list = append(list, it)
		}
	}
	return c.room(name, list, sizes)
}

func (c *Checker) room(name string, list []model.ScheduleItem, sizes map[string]int) []Violation {
	room, ok := c.rooms[name]
	if !ok {
		return nil
	}
	var out []Violation
	type edge struct {
		at    model.Minute
		delta int
	}
	edges := make([]edge, 0, 2*len(list))
	seen := make(map[string]bool)
	for _, it := range list {
		if it.GroupID != "" {
			if seen[it.GroupID] {
				continue
			}
			seen[it.GroupID] = true
			if n := sizes[it.GroupID]; n > room.Capacity {
				out = append(out, Violation{Reason: GroupSize, Subject: it.GroupID,
					Detail: fmt.Sprintf("size %d exceeds room %s capacity %d", n, name, room.Capacity)})
			}
		}
		u := c.units(it, room)
		edges = append(edges, edge{it.Start, u}, edge{it.End, -u})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].at != edges[j].at {
			return edges[i].at < edges[j].at
		}
		return edges[i].delta < edges[j].delta
	})
	cur := 0
	for _, e := range edges {
		cur += e.delta
		if cur > room.Capacity {
			out = append(out, Violation{Reason: RoomBusy, Subject: name,
				Detail: fmt.Sprintf("occupancy %d exceeds capacity %d at %s", cur, room.Capacity, e.at)})
			break
		}
	}
	return out
}

// Sizes indexes group sizes by ID.
func Sizes(groups []model.Group) map[string]int {
	sizes := make(map[string]int, len(groups))
	for _, g := range groups {
		sizes[g.ID] = g.Size()
	}
	return sizes
}

func (c *Checker) groups(items []model.ScheduleItem, groups []model.Group) []Violation {
	var out []Violation
	byGroup := make(map[string][]model.ScheduleItem)
	for _, it := range items {
		if it.GroupID != "" {
			byGroup[it.GroupID] = append(byGroup[it.GroupID], it)
		}
	}
	for _, g := range groups {
		a, ok := c.acts[g.Activity]
		if !ok {
			out = append(out, Violation{Reason: Unknown, Subject: g.ID, Detail: g.Activity})
			continue
		}
		b := c.global.BoundsFor(a)
		lo := b.Min
		if lo <= 0 {
			lo = 1
		}
		if g.Size() < lo || g.Size() > b.Max {
			out = append(out, Violation{Reason: GroupSize, Subject: g.ID,
				Detail: fmt.Sprintf("size %d outside [%d,%d]", g.Size(), lo, b.Max)})
		}
		list := byGroup[g.ID]
		for _, it := range list {
			if it.JobCode != g.JobCode || it.Start != list[0].Start || it.Room != list[0].Room {
				out = append(out, Violation{Reason: GroupSplit, Subject: g.ID,
					Detail: fmt.Sprintf("member %s diverges", it.CandidateID)})
				break
			}
		}
	}
	return out
}
