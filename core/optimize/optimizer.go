// Package optimize improves a valid day schedule by local moves that shorten
// candidate stays. Every move is revalidated in full before it is kept.
package optimize

import (
	"context"
	"sort"

	"github.com/jayquinn/interview-scheduler/core/logger"
	"github.com/jayquinn/interview-scheduler/core/model"
	"github.com/jayquinn/interview-scheduler/core/validate"
	infralogger "github.com/jayquinn/interview-scheduler/infra/logger"
)

// Score orders schedules: lower total stay wins, then lower max stay.
type Score struct {
	Total int `json:"total_stay_minutes"`
	Max   int `json:"max_stay_minutes"`
}

// Better reports whether s strictly improves on o.
func (s Score) Better(o Score) bool {
	if s.Total != o.Total {
		return s.Total < o.Total
	}
	return s.Max < o.Max
}

// ScoreOf computes the score of a schedule over real candidates.
func ScoreOf(items []model.ScheduleItem) Score {
	var s Score
	for id, stay := range model.StayByCandidate(items) {
		if model.IsDummyID(id) {
			continue
		}
		s.Total += stay
		if stay > s.Max {
			s.Max = stay
		}
	}
	return s
}

// Report summarizes an optimization run.
type Report struct {
	Passes  int   `json:"passes"`
	Tried   int   `json:"tried"`
	Applied int   `json:"applied"`
	Before  Score `json:"before"`
	After   Score `json:"after"`
}

// Optimizer applies stay-reducing moves.
type Optimizer struct {
	check  *validate.Checker
	passes int
	// window bounds how far a move may travel, in grid steps.
	window int
	cap    int
	log    logger.Logger
}

// New creates an Optimizer. capMinutes is the active stay cap; moves never
// push a candidate above it.
func New(check *validate.Checker, passes, capMinutes int, log logger.Logger) *Optimizer {
	if passes <= 0 {
		passes = 3
	}
	return &Optimizer{check: check, passes: passes, window: 24, cap: capMinutes, log: infralogger.OrNop(log)}
}

// Optimize runs up to the configured passes or until a pass applies nothing
// or ctx is done. The input is returned unchanged when no move helps.
func (o *Optimizer) Optimize(ctx context.Context, items []model.ScheduleItem, groups []model.Group) ([]model.ScheduleItem, Report) {
	rep := Report{Before: ScoreOf(items)}
	cur := items
	for p := 0; p < o.passes; p++ {
		if ctx.Err() != nil {
			break
		}
		rep.Passes++
		applied := 0
		for _, g := range groups {
			if ctx.Err() != nil {
				break
			}
			var ok bool
			cur, ok = o.shiftGroup(cur, groups, g.ID, &rep)
			if ok {
				applied++
			}
		}
		for _, id := range candidateIDs(cur) {
			if ctx.Err() != nil {
				break
			}
			var ok bool
			if cur, ok = o.pullLast(cur, groups, id, &rep); ok {
				applied++
			}
			if cur, ok = o.pushFirst(cur, groups, id, &rep); ok {
				applied++
			}
		}
		rep.Applied += applied
		if applied == 0 {
			break
		}
	}
	rep.After = ScoreOf(cur)
	o.log.Debugw("optimizer finished", map[string]any{
		"passes":  rep.Passes,
		"tried":   rep.Tried,
		"applied": rep.Applied,
		"before":  rep.Before.Total,
		"after":   rep.After.Total,
	})
	return cur, rep
}

// Enforce targets candidates above limit. It returns the schedule and the
// violators that remain.
func (o *Optimizer) Enforce(ctx context.Context, items []model.ScheduleItem, groups []model.Group, limit int) ([]model.ScheduleItem, []model.CapViolation) {
	violators := validate.CapViolations(items, limit)
	if len(violators) == 0 {
		return items, nil
	}
	prev := o.cap
	o.cap = limit
	defer func() { o.cap = prev }()
	var rep Report
	cur := items
	for p := 0; p < o.passes && ctx.Err() == nil; p++ {
		progress := false
		for _, v := range violators {
			if ctx.Err() != nil {
				break
			}
			var ok bool
			if cur, ok = o.pullLast(cur, groups, v.CandidateID, &rep); ok {
				progress = true
			}
			if cur, ok = o.pushFirst(cur, groups, v.CandidateID, &rep); ok {
				progress = true
			}
			for _, gid := range groupsOf(cur, v.CandidateID) {
				if cur, ok = o.shiftGroup(cur, groups, gid, &rep); ok {
					progress = true
				}
			}
		}
		violators = validate.CapViolations(cur, limit)
		if len(violators) == 0 || !progress {
			break
		}
	}
	if len(violators) > 0 {
		o.log.Warnf("%d candidates remain above the %d minute cap", len(violators), limit)
	}
	return cur, violators
}

// accept validates the staged move and keeps it only if it strictly improves
// the score without creating new cap violators.
func (o *Optimizer) accept(cur []model.ScheduleItem, t *Txn, groups []model.Group, rep *Report) bool {
	rep.Tried++
	next := t.Items()
	for _, it := range t.Touched() {
		if r := o.check.Placement(it); r != "" {
			return false
		}
	}
	byCand := model.ByCandidate(next)
	for _, it := range t.Touched() {
		if r := o.check.Against(it, byCand[it.CandidateID]); r != "" {
			return false
		}
	}
	sizes := validate.Sizes(groups)
	rooms := map[string]bool{}
	for _, it := range t.Touched() {
		if rooms[it.Room] {
			continue
		}
		rooms[it.Room] = true
		if len(o.check.Room(next, it.Room, sizes)) > 0 {
			return false
		}
	}
	if !ScoreOf(next).Better(ScoreOf(cur)) {
		return false
	}
	if o.cap > 0 && len(validate.CapViolations(next, o.cap)) > len(validate.CapViolations(cur, o.cap)) {
		return false
	}
	return len(o.check.Schedule(next, groups)) == 0
}

func (o *Optimizer) grid() model.Minute { return model.Minute(o.check.Global().Granularity) }

// shiftGroup moves a whole batched block to the best scoring shift within
// the window, in any room of the type.
func (o *Optimizer) shiftGroup(cur []model.ScheduleItem, groups []model.Group, gid string, rep *Report) ([]model.ScheduleItem, bool) {
	var idx []int
	for i, it := range cur {
		if it.GroupID == gid {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return cur, false
	}
	act, ok := o.check.Day().Activity(cur[idx[0]].Activity)
	if !ok {
		return cur, false
	}
	rooms := o.check.Day().RoomsOfType(act.RoomType)
	best, found := cur, false
	var bestScore Score
	for _, delta := range o.deltas() {
		for _, r := range rooms {
			t := Begin(cur).Shift(idx, delta, r.Name)
			if !o.accept(cur, t, groups, rep) {
				continue
			}
			if s := ScoreOf(t.Items()); !found || s.Better(bestScore) {
				best, bestScore, found = t.Commit(), s, true
			}
		}
	}
	return best, found
}

// pullLast moves the candidate's final non-batched unit as early as allowed.
func (o *Optimizer) pullLast(cur []model.ScheduleItem, groups []model.Group, id string, rep *Report) ([]model.ScheduleItem, bool) {
	idx := o.edgeUnit(cur, id, true)
	if idx == nil {
		return cur, false
	}
	for k := o.window; k >= 1; k-- {
		if t, ok := o.tryUnit(cur, groups, idx, -model.Minute(k)*o.grid(), rep); ok {
			return t, true
		}
	}
	return cur, false
}

// pushFirst moves the candidate's first non-batched unit as late as allowed.
func (o *Optimizer) pushFirst(cur []model.ScheduleItem, groups []model.Group, id string, rep *Report) ([]model.ScheduleItem, bool) {
	idx := o.edgeUnit(cur, id, false)
	if idx == nil {
		return cur, false
	}
	for k := o.window; k >= 1; k-- {
		if t, ok := o.tryUnit(cur, groups, idx, model.Minute(k)*o.grid(), rep); ok {
			return t, true
		}
	}
	return cur, false
}

// tryUnit shifts a unit keeping its rooms, or for single items any room of
// the same type.
func (o *Optimizer) tryUnit(cur []model.ScheduleItem, groups []model.Group, idx []int, delta model.Minute, rep *Report) ([]model.ScheduleItem, bool) {
	rooms := []string{""}
	if len(idx) == 1 {
		if act, ok := o.check.Day().Activity(cur[idx[0]].Activity); ok {
			for _, r := range o.check.Day().RoomsOfType(act.RoomType) {
				if r.Name != cur[idx[0]].Room {
					rooms = append(rooms, r.Name)
				}
			}
		}
	}
	for _, room := range rooms {
		t := Begin(cur).Shift(idx, delta, room)
		if o.accept(cur, t, groups, rep) {
			return t.Commit(), true
		}
	}
	return cur, false
}

// edgeUnit returns the indexes of the candidate's last (or first) item when
// it is non-batched, widened to its whole chain.
func (o *Optimizer) edgeUnit(cur []model.ScheduleItem, id string, last bool) []int {
	var mine []int
	for i, it := range cur {
		if it.CandidateID == id {
			mine = append(mine, i)
		}
	}
	if len(mine) < 2 {
		return nil
	}
	sort.Slice(mine, func(a, b int) bool { return cur[mine[a]].Start < cur[mine[b]].Start })
	edge := cur[mine[0]]
	if last {
		edge = cur[mine[len(mine)-1]]
	}
	if edge.GroupID != "" {
		return nil
	}
	if edge.Stage.Chain == "" {
		for _, i := range mine {
			if cur[i].Activity == edge.Activity {
				return []int{i}
			}
		}
	}
	var out []int
	for _, i := range mine {
		if cur[i].Stage.Chain == edge.Stage.Chain {
			out = append(out, i)
		}
	}
	return out
}

// deltas lists signed shifts, nearest first, earlier before later.
func (o *Optimizer) deltas() []model.Minute {
	out := make([]model.Minute, 0, 2*o.window)
	for k := 1; k <= o.window; k++ {
		out = append(out, -model.Minute(k)*o.grid(), model.Minute(k)*o.grid())
	}
	return out
}

func candidateIDs(items []model.ScheduleItem) []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range items {
		if !seen[it.CandidateID] {
			seen[it.CandidateID] = true
			out = append(out, it.CandidateID)
		}
	}
	sort.Strings(out)
	return out
}

func groupsOf(items []model.ScheduleItem, id string) []string {
	var out []string
	for _, it := range items {
		if it.CandidateID == id && it.GroupID != "" {
			out = append(out, it.GroupID)
		}
	}
	return out
}
