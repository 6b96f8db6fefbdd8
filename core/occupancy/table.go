package occupancy

import (
	"sort"

	"github.com/jayquinn/interview-scheduler/core/model"
)

type reservation struct {
	id    int
	start model.Minute
	end   model.Minute
	units int
	owner string
}

type roomState struct {
	room model.Room
	res  []reservation
	used int
}

type opKind int

const (
	opReserve opKind = iota
	opAssign
)

type op struct {
	kind opKind
	room string
	id   int
	cand string
}

// Table holds reservations per room and placed items per candidate.
type Table struct {
	rooms  map[string]*roomState
	byType map[string][]string
	cands  map[string][]model.ScheduleItem
	trail  []op
	nextID int
}

// NewTable creates an empty table for the given rooms.
func NewTable(rooms []model.Room) *Table {
	t := &Table{
		rooms:  make(map[string]*roomState, len(rooms)),
		byType: make(map[string][]string),
		cands:  make(map[string][]model.ScheduleItem),
	}
	for _, r := range rooms {
		if _, ok := t.rooms[r.Name]; ok {
			continue
		}
		t.rooms[r.Name] = &roomState{room: r}
		t.byType[r.Type] = append(t.byType[r.Type], r.Name)
	}
	return t
}

// Rooms returns the rooms of type typ in configured order.
func (t *Table) Rooms(typ string) []model.Room {
	names := t.byType[typ]
	out := make([]model.Room, 0, len(names))
	for _, n := range names {
		out = append(out, t.rooms[n].room)
	}
	return out
}

// Room looks up a room by name.
func (t *Table) Room(name string) (model.Room, bool) {
	rs, ok := t.rooms[name]
	if !ok {
		return model.Room{}, false
	}
	return rs.room, true
}

// Load returns the peak number of units reserved in room during [start, end).
func (t *Table) Load(room string, start, end model.Minute) int {
	rs, ok := t.rooms[room]
	if !ok {
		return 0
	}
	return peak(rs.res, start, end)
}

// Free reports whether units more can be reserved in room during [start, end).
func (t *Table) Free(room string, start, end model.Minute, units int) bool {
	rs, ok := t.rooms[room]
	if !ok || units > rs.room.Capacity {
		return false
	}
	return t.Load(room, start, end)+units <= rs.room.Capacity
}

// Used returns the reserved room-minutes, used to balance rooms of a type.
func (t *Table) Used(room string) int {
	if rs, ok := t.rooms[room]; ok {
		return rs.used
	}
	return 0
}

// Reserve books units of room during [start, end) for owner. It does not
// check capacity; callers use Free first.
func (t *Table) Reserve(room string, start, end model.Minute, units int, owner string) {
	rs, ok := t.rooms[room]
	if !ok {
		return
	}
	t.nextID++
	rs.res = append(rs.res, reservation{id: t.nextID, start: start, end: end, units: units, owner: owner})
	rs.used += int(end - start)
	t.trail = append(t.trail, op{kind: opReserve, room: room, id: t.nextID})
}

// Assign appends a placed item to its candidate's timeline.
func (t *Table) Assign(it model.ScheduleItem) {
	t.cands[it.CandidateID] = append(t.cands[it.CandidateID], it)
	t.trail = append(t.trail, op{kind: opAssign, cand: it.CandidateID})
}

// Items returns the items placed for a candidate, sorted by start.
func (t *Table) Items(candidate string) []model.ScheduleItem {
	list := append([]model.ScheduleItem(nil), t.cands[candidate]...)
	sort.Slice(list, func(i, j int) bool { return list[i].Start < list[j].Start })
	return list
}

// Mark returns the current trail position.
func (t *Table) Mark() int { return len(t.trail) }

// Undo reverts every mutation recorded after mark.
func (t *Table) Undo(mark int) {
	for len(t.trail) > mark {
		o := t.trail[len(t.trail)-1]
		t.trail = t.trail[:len(t.trail)-1]
		switch o.kind {
		case opReserve:
			rs := t.rooms[o.room]
			for i := len(rs.res) - 1; i >= 0; i-- {
				if rs.res[i].id == o.id {
					rs.used -= int(rs.res[i].end - rs.res[i].start)
					rs.res = append(rs.res[:i], rs.res[i+1:]...)
					break
				}
			}
		case opAssign:
			list := t.cands[o.cand]
			if len(list) > 0 {
				list = list[:len(list)-1]
			}
			if len(list) == 0 {
				delete(t.cands, o.cand)
			} else {
				t.cands[o.cand] = list
			}
		}
	}
}

// peak computes the maximum concurrent units over [start, end).
func peak(res []reservation, start, end model.Minute) int {
	total := 0
	var overlapping []reservation
	for _, r := range res {
		if r.start < end && start < r.end {
			overlapping = append(overlapping, r)
			total += r.units
		}
	}
	if len(overlapping) <= 1 {
		return total
	}
	type edge struct {
		at    model.Minute
		delta int
	}
	edges := make([]edge, 0, 2*len(overlapping))
	for _, r := range overlapping {
		s, e := r.start, r.end
		if s < start {
			s = start
		}
		if e > end {
			e = end
		}
		edges = append(edges, edge{s, r.units}, edge{e, -r.units})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].at != edges[j].at {
			return edges[i].at < edges[j].at
		}
		return edges[i].delta < edges[j].delta
	})
	cur, best := 0, 0
	for _, e := range edges {
		cur += e.delta
		if cur > best {
			best = cur
		}
	}
	return best
}
