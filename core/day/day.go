// Package day runs the full placement pipeline for one interview day:
// grouping, batched placement, per-candidate placement, stay optimization
// and final validation.
package day

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jayquinn/interview-scheduler/core/batched"
	"github.com/jayquinn/interview-scheduler/core/events"
	"github.com/jayquinn/interview-scheduler/core/grouping"
	"github.com/jayquinn/interview-scheduler/core/individual"
	"github.com/jayquinn/interview-scheduler/core/logger"
	"github.com/jayquinn/interview-scheduler/core/model"
	"github.com/jayquinn/interview-scheduler/core/occupancy"
	"github.com/jayquinn/interview-scheduler/core/optimize"
	"github.com/jayquinn/interview-scheduler/core/schederr"
	"github.com/jayquinn/interview-scheduler/core/stats"
	"github.com/jayquinn/interview-scheduler/core/validate"
	infralogger "github.com/jayquinn/interview-scheduler/infra/logger"
)

// RunContext carries what a run shares with each of its days. Nothing in it
// outlives the run.
type RunContext struct {
	RunID    string
	Cache    *grouping.Cache
	Observer events.Observer
	Log      logger.Logger
}

// Scheduler schedules single days.
type Scheduler struct {
	global model.GlobalConfig
	run    RunContext
	log    logger.Logger
}

// New creates a Scheduler. A nil cache is replaced by a private one.
func New(g model.GlobalConfig, run RunContext) *Scheduler {
	if run.Cache == nil {
		run.Cache = grouping.NewCache()
	}
	return &Scheduler{global: g, run: run, log: infralogger.OrNop(run.Log)}
}

// Run schedules day under a stay cap in minutes; zero disables the cap. It
// never returns an error: failures are reflected in the result status.
func (s *Scheduler) Run(ctx context.Context, day model.DateConfig, capMinutes int) model.DayResult {
	start := time.Now()
	res := model.DayResult{Date: day.Date}
	res.Diagnostics.HardCap = capMinutes
	res.Diagnostics.AdoptedCap = capMinutes
	notify := func(cp events.Checkpoint, placed int, detail string) {
		s.run.Observer.Notify(events.Progress{
			RunID:      s.run.RunID,
			Date:       day.Key(),
			Checkpoint: cp,
			Placed:     placed,
			Total:      res.Diagnostics.Candidates,
			Status:     res.Status,
			Detail:     detail,
		})
	}
	finish := func() model.DayResult {
		res.Diagnostics.Elapsed = time.Since(start)
		notify(events.DayDone, res.Diagnostics.Placed, res.Diagnostics.Error)
		return res
	}

	out, err := s.schedule(ctx, day, capMinutes, &res, notify)
	if err != nil {
		res.Items, res.Groups = nil, nil
		res.Diagnostics.Placed = 0
		res.Diagnostics.Error = err.Error()
		switch schederr.KindOf(err) {
		case schederr.KindTimeout:
			res.Status = model.StatusFailed
		default:
			res.Status = model.StatusError
		}
		s.log.Errorf("day %s: %v", day.Key(), err)
		return finish()
	}
	res.Items = out
	switch {
	case res.Diagnostics.Candidates == 0 || res.Diagnostics.Placed == res.Diagnostics.Candidates:
		res.Status = model.StatusSuccess
	case res.Diagnostics.Placed > 0:
		res.Status = model.StatusPartial
	default:
		res.Status = model.StatusFailed
	}
	s.log.Infof("day %s: %s, %d/%d placed, cap %d", day.Key(), res.Status,
		res.Diagnostics.Placed, res.Diagnostics.Candidates, capMinutes)
	return finish()
}

func (s *Scheduler) schedule(ctx context.Context, day model.DateConfig, capMinutes int, res *model.DayResult,
	notify func(events.Checkpoint, int, string)) ([]model.ScheduleItem, error) {
	if err := day.Validate(s.global); err != nil {
		return nil, err
	}
	strategy, err := batched.NewStrategy(s.global.Strategy, s.global.StrategyConf)
	if err != nil {
		return nil, schederr.Config("", "strategy: %v", err)
	}
	roster := day.Candidates()
	diag := &res.Diagnostics
	diag.Candidates = len(roster)

	former := grouping.NewFormer(s.run.Cache, s.log)
	formation, err := former.FormDay(day, s.global, roster)
	if err != nil {
		return nil, err
	}
	diag.Dummies = formation.Dummies
	notify(events.GroupsFormed, 0, fmt.Sprintf("%d dummies", formation.Dummies))
	if err := deadline(ctx, "grouping"); err != nil {
		return nil, err
	}

	check := validate.New(day, s.global)
	table := occupancy.NewTable(day.Rooms)
	lost := make(map[string]string)
	var items []model.ScheduleItem
	ba := batched.NewAssigner(table, check, strategy, capMinutes, s.log)
	for _, act := range day.Activities {
		if !act.Batched() {
			continue
		}
		groups := formation.Groups[act.Name]
		placed, failed, err := ba.Assign(groups, act)
		if err != nil && !errors.Is(err, schederr.ErrCapacityExhausted) {
			return nil, err
		}
		if err != nil {
			diag.FailedGroups = append(diag.FailedGroups, failed...)
			for _, g := range groups {
				for _, m := range g.RealMembers() {
					if _, ok := lost[m]; !ok {
						lost[m] = act.Name
					}
				}
			}
			continue
		}
		items = append(items, placed...)
		res.Groups = append(res.Groups, groups...)
	}
	diag.Groups = len(res.Groups)
	notify(events.BatchedAssigned, 0, fmt.Sprintf("%d groups", diag.Groups))
	if err := deadline(ctx, "batched assignment"); err != nil {
		return nil, err
	}

	var pending []model.Candidate
	for _, c := range roster {
		if act, ok := lost[c.ID]; ok {
			diag.Unscheduled = append(diag.Unscheduled, model.Unscheduled{
				CandidateID: c.ID, JobCode: c.JobCode, Activity: act, Reason: "batched activity could not be placed",
			})
			continue
		}
		pending = append(pending, c)
	}
	ia := individual.NewAssigner(table, check, individual.Options{
		CapMinutes:   capMinutes,
		MaxBacktrack: s.global.MaxBacktrack,
	}, s.log)
	outcomes, err := ia.AssignAll(ctx, pending)
	if err != nil {
		return nil, err
	}
	for _, o := range outcomes {
		if o.State == individual.Failed {
			diag.Unscheduled = append(diag.Unscheduled, o.Unscheduled())
			continue
		}
		diag.Placed++
		items = append(items, o.Items...)
	}
	notify(events.IndividualAssigned, diag.Placed, "")

	opt := optimize.New(check, s.global.OptimizerPasses, capMinutes, s.log)
	items, rep := opt.Optimize(ctx, items, res.Groups)
	if err := deadline(ctx, "optimization"); err != nil {
		return nil, err
	}
	s.log.Debugw("day optimized", map[string]any{
		"date":         day.Key(),
		"stay_before":  rep.Before.Total,
		"stay_after":   rep.After.Total,
		"moves":        rep.Applied,
		"room_balance": stats.RoomBalance(day.Rooms, items),
	})

	if violations := check.Schedule(items, res.Groups); len(violations) > 0 {
		for _, v := range violations {
			diag.Violations = append(diag.Violations, v.String())
		}
		return nil, validate.Err(day.Key(), violations)
	}
	model.SortItems(items)
	complete := completeItems(items, diag.Unscheduled)
	diag.Stats = stats.Summarize(stats.StaysOf(complete))
	diag.CapViolations = validate.CapViolations(complete, capMinutes)
	return items, nil
}

func deadline(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return schederr.Timeout(stage, err)
	}
	return nil
}

// Complete returns the items of candidates that were fully placed.
func Complete(res model.DayResult) []model.ScheduleItem {
	return completeItems(res.Items, res.Diagnostics.Unscheduled)
}

func completeItems(items []model.ScheduleItem, unscheduled []model.Unscheduled) []model.ScheduleItem {
	if len(unscheduled) == 0 {
		return items
	}
	skip := make(map[string]bool, len(unscheduled))
	for _, u := range unscheduled {
		skip[u.CandidateID] = true
	}
	out := make([]model.ScheduleItem, 0, len(items))
	for _, it := range items {
		if !skip[it.CandidateID] {
			out = append(out, it)
		}
	}
	return out
}
