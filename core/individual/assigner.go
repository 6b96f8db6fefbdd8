// Package individual places the non-batched activities of each candidate.
//
// Every candidate is searched on its own with bounded backtracking over the
// shared occupancy table. The table's undo trail restores state when a
// branch fails.
package individual

import (
	"context"
	"sort"
	"time"

	"github.com/jayquinn/interview-scheduler/core/logger"
	"github.com/jayquinn/interview-scheduler/core/model"
	"github.com/jayquinn/interview-scheduler/core/occupancy"
	"github.com/jayquinn/interview-scheduler/core/schederr"
	"github.com/jayquinn/interview-scheduler/core/validate"
	infralogger "github.com/jayquinn/interview-scheduler/infra/logger"
)

// State is the placement state of a candidate.
type State int

const (
	Unplaced State = iota
	Placed
	Failed
)

func (s State) String() string {
	switch s {
	case Placed:
		return "placed"
	case Failed:
		return "failed"
	default:
		return "unplaced"
	}
}

// Outcome is the result of placing one candidate.
type Outcome struct {
	Candidate model.Candidate
	State     State
	// Items holds the newly placed items, empty on failure.
	Items []model.ScheduleItem
	// Activity is the first unit that could not be placed.
	Activity string
	Reasons  validate.Counts
}

// Unscheduled converts a failed outcome into a diagnostic.
func (o Outcome) Unscheduled() model.Unscheduled {
	reason := string(o.Reasons.Dominant())
	if reason == "" {
		reason = "no feasible slot"
	}
	if len(o.Reasons) > 0 {
		reason += " (" + o.Reasons.String() + ")"
	}
	return model.Unscheduled{
		CandidateID: o.Candidate.ID,
		JobCode:     o.Candidate.JobCode,
		Activity:    o.Activity,
		Reason:      reason,
	}
}

// Options tune the search.
type Options struct {
	// CapMinutes bounds each candidate's stay span; zero disables it.
	CapMinutes int
	// MaxBacktrack bounds undo steps per candidate.
	MaxBacktrack int
}

// Assigner places candidates one at a time.
type Assigner struct {
	date   time.Time
	table  *occupancy.Table
	check  *validate.Checker
	opts   Options
	chains [][]string
	log    logger.Logger
}

// NewAssigner creates an Assigner on the given table.
func NewAssigner(table *occupancy.Table, check *validate.Checker, opts Options, log logger.Logger) *Assigner {
	if opts.MaxBacktrack <= 0 {
		opts.MaxBacktrack = 32
	}
	day := check.Day()
	return &Assigner{
		date:   day.Date,
		table:  table,
		check:  check,
		opts:   opts,
		chains: buildChains(day),
		log:    infralogger.OrNop(log),
	}
}

// option is one feasible placement of a unit.
type option struct {
	start model.Minute
	rooms []model.Room
	stay  int
	use   int
}

// search carries the per-candidate backtracking state.
type search struct {
	cand    model.Candidate
	units   []unit
	budget  int
	reasons validate.Counts
	failed  string
	depth   int
}

// Assign places every non-batched activity of the candidate. fixed lists
// items already decided for the candidate which are not yet on the table,
// such as batched blocks placed elsewhere; they are recorded first and kept
// even when the search fails.
func (a *Assigner) Assign(c model.Candidate, fixed []model.ScheduleItem) Outcome {
	for _, it := range fixed {
		a.record(it)
	}
	s := &search{
		cand:    c,
		units:   planUnits(a.check.Day(), a.chains, c),
		budget:  a.opts.MaxBacktrack,
		reasons: validate.Counts{},
		depth:   -1,
	}
	if len(s.units) == 0 {
		return Outcome{Candidate: c, State: Placed}
	}
	mark := a.table.Mark()
	if a.solve(s, 0) {
		items := a.table.Items(c.ID)
		var added []model.ScheduleItem
		for _, it := range items {
			if it.GroupID == "" && !contains(fixed, it) {
				added = append(added, it)
			}
		}
		return Outcome{Candidate: c, State: Placed, Items: added}
	}
	a.table.Undo(mark)
	a.log.Debugw("candidate unplaced", map[string]any{
		"candidate": c.ID,
		"activity":  s.failed,
		"reasons":   s.reasons.String(),
	})
	return Outcome{Candidate: c, State: Failed, Activity: s.failed, Reasons: s.reasons}
}

// AssignAll places candidates ordered by their earliest placed item, then ID.
// It stops with a Timeout error when ctx is done.
func (a *Assigner) AssignAll(ctx context.Context, candidates []model.Candidate) ([]Outcome, error) {
	ordered := append([]model.Candidate(nil), candidates...)
	first := make(map[string]model.Minute, len(ordered))
	for _, c := range ordered {
		first[c.ID] = model.Minute(1 << 20)
		if items := a.table.Items(c.ID); len(items) > 0 {
			first[c.ID] = items[0].Start
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		fi, fj := first[ordered[i].ID], first[ordered[j].ID]
		if fi != fj {
			return fi < fj
		}
		return ordered[i].ID < ordered[j].ID
	})
	out := make([]Outcome, 0, len(ordered))
	for _, c := range ordered {
		if err := ctx.Err(); err != nil {
			return out, schederr.Timeout("individual assignment", err)
		}
		if c.Placeholder {
			continue
		}
		out = append(out, a.Assign(c, nil))
	}
	return out, nil
}

func (a *Assigner) solve(s *search, i int) bool {
	if i == len(s.units) {
		return true
	}
	u := s.units[i]
	opts := a.options(s.cand, u, s.reasons)
	if len(opts) == 0 && i > s.depth {
		s.depth = i
		s.failed = u.steps[0].act.Name
	}
	for _, o := range opts {
		mark := a.table.Mark()
		a.apply(s.cand, u, o)
		if a.solve(s, i+1) {
			return true
		}
		a.table.Undo(mark)
		s.budget--
		if s.budget < 0 {
			if s.failed == "" {
				s.failed = u.steps[0].act.Name
			}
			return false
		}
	}
	return false
}

// options enumerates feasible starts for u ranked by stay, start, room use.
func (a *Assigner) options(c model.Candidate, u unit, reasons validate.Counts) []option {
	day := a.check.Day()
	grid := a.check.Global().Granularity
	placed := a.table.Items(c.ID)
	lo, hi, exact := a.bounds(placed, u)
	lo = max(lo, day.Hours.Start).CeilToGrid(grid)
	hi = min(hi, day.Hours.End-model.Minute(u.length()))
	if exact {
		if lo != hi || !lo.OnGrid(grid) {
			reasons.Add(validate.Precedence)
			return nil
		}
	}
	if lo > hi {
		reasons.Add(validate.Window)
		return nil
	}
	var out []option
	for t := lo; t <= hi; t += model.Minute(grid) {
		if o, ok := a.tryAt(c, u, t, placed, reasons); ok {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].stay != out[j].stay {
			return out[i].stay < out[j].stay
		}
		if out[i].start != out[j].start {
			return out[i].start < out[j].start
		}
		return out[i].use < out[j].use
	})
	return out
}

// bounds narrows the unit start using rules against placed items. exact is
// set when an adjacent rule pins the start.
func (a *Assigner) bounds(placed []model.ScheduleItem, u unit) (lo, hi model.Minute, exact bool) {
	day := a.check.Day()
	lo, hi = day.Hours.Start, day.Hours.End
	pin := func(t model.Minute) {
		if exact && t != lo {
			lo, hi = 1, 0
			return
		}
		exact = true
		lo, hi = t, t
	}
	for _, p := range placed {
		for _, s := range u.steps {
			off := model.Minute(s.offset)
			if r, ok := day.Rule(p.Activity, s.act.Name); ok {
				t := p.End + model.Minute(r.Gap) - off
				if r.Adjacent {
					pin(t)
				} else if !exact && t > lo {
					lo = t
				}
			}
			if r, ok := day.Rule(s.act.Name, p.Activity); ok {
				t := p.Start - model.Minute(r.Gap) - model.Minute(s.act.Duration) - off
				if r.Adjacent {
					pin(t)
				} else if !exact && t < hi {
					hi = t
				}
			}
		}
	}
	return lo, hi, exact
}

func (a *Assigner) tryAt(c model.Candidate, u unit, t model.Minute, placed []model.ScheduleItem, reasons validate.Counts) (option, bool) {
	o := option{start: t}
	trial := append([]model.ScheduleItem(nil), placed...)
	for _, s := range u.steps {
		start := t + model.Minute(s.offset)
		it := a.item(c, u, s, start, "")
		if r := a.check.Placement(it); r != "" {
			reasons.Add(r)
			return o, false
		}
		if r := a.check.Against(it, trial); r != "" {
			reasons.Add(r)
			return o, false
		}
		room, ok := a.pickRoom(s.act, it.Start, it.End)
		if !ok {
			reasons.Add(validate.RoomBusy)
			return o, false
		}
		o.rooms = append(o.rooms, room)
		o.use += a.table.Used(room.Name)
		trial = append(trial, it)
	}
	o.stay = model.StayMinutes(trial)
	if a.opts.CapMinutes > 0 && o.stay > a.opts.CapMinutes {
		reasons.Add(validate.StayCap)
		return o, false
	}
	return o, true
}

// pickRoom returns the least used room of the activity's type with space.
func (a *Assigner) pickRoom(act model.Activity, start, end model.Minute) (model.Room, bool) {
	rooms := a.table.Rooms(act.RoomType)
	sort.SliceStable(rooms, func(i, j int) bool { return a.table.Used(rooms[i].Name) < a.table.Used(rooms[j].Name) })
	for _, r := range rooms {
		if a.table.Free(r.Name, start, end, units(act, r)) {
			return r, true
		}
	}
	return model.Room{}, false
}

func (a *Assigner) apply(c model.Candidate, u unit, o option) {
	for i, s := range u.steps {
		start := o.start + model.Minute(s.offset)
		it := a.item(c, u, s, start, o.rooms[i].Name)
		a.table.Reserve(it.Room, it.Start, it.End, units(s.act, o.rooms[i]), c.ID)
		a.table.Assign(it)
	}
}

func (a *Assigner) record(it model.ScheduleItem) {
	for _, p := range a.table.Items(it.CandidateID) {
		if p.Activity == it.Activity && p.Start == it.Start {
			return
		}
	}
	if room, ok := a.table.Room(it.Room); ok {
		act, _ := a.check.Day().Activity(it.Activity)
		a.table.Reserve(room.Name, it.Start, it.End, units(act, room), it.CandidateID)
	}
	a.table.Assign(it)
}

func (a *Assigner) item(c model.Candidate, u unit, s step, start model.Minute, room string) model.ScheduleItem {
	it := model.ScheduleItem{
		Date:        a.date,
		CandidateID: c.ID,
		JobCode:     c.JobCode,
		Activity:    s.act.Name,
		Room:        room,
		Start:       start,
		End:         start + model.Minute(s.act.Duration),
	}
	if u.chain != "" {
		for i, x := range u.steps {
			if x.act.Name == s.act.Name {
				it.Stage = model.Stage{Chain: u.chain, Step: i + 1}
			}
		}
	}
	return it
}

// units is the room share an activity takes: parallel activities use one
// seat, the other modes hold the room exclusively.
func units(act model.Activity, r model.Room) int {
	if act.Mode == model.ModeParallel {
		return 1
	}
	return r.Capacity
}

func contains(list []model.ScheduleItem, it model.ScheduleItem) bool {
	for _, x := range list {
		if x.Activity == it.Activity && x.Start == it.Start && x.CandidateID == it.CandidateID {
			return true
		}
	}
	return false
}
