// Package iterative derives a stay cap from a baseline schedule and reruns
// the day under progressively tighter caps.
//
// Phase 1 runs with a permissive cap. Each later phase uses the configured
// percentile of the adopted result's stays, rounded up to the grid, and is
// adopted only when it is valid and places at least as many candidates.
package iterative

import (
	"context"
	"fmt"

	"github.com/jayquinn/interview-scheduler/core/day"
	"github.com/jayquinn/interview-scheduler/core/events"
	"github.com/jayquinn/interview-scheduler/core/grouping"
	"github.com/jayquinn/interview-scheduler/core/logger"
	"github.com/jayquinn/interview-scheduler/core/model"
	"github.com/jayquinn/interview-scheduler/core/optimize"
	"github.com/jayquinn/interview-scheduler/core/stats"
	"github.com/jayquinn/interview-scheduler/core/validate"
	infralogger "github.com/jayquinn/interview-scheduler/infra/logger"
)

// PhaseRunner schedules one day under a stay cap for the given phase.
type PhaseRunner func(ctx context.Context, d model.DateConfig, phase, capMinutes int) model.DayResult

// Scheduler runs the phases of one day.
type Scheduler struct {
	global model.GlobalConfig
	runner PhaseRunner
	run    day.RunContext
	log    logger.Logger
}

// New creates a Scheduler backed by the day scheduler. Checkpoints of each
// phase reach the run observer tagged with the phase number.
func New(g model.GlobalConfig, run day.RunContext) *Scheduler {
	if run.Cache == nil {
		run.Cache = grouping.NewCache()
	}
	s := &Scheduler{global: g, run: run, log: infralogger.OrNop(run.Log)}
	s.runner = func(ctx context.Context, d model.DateConfig, phase, capMinutes int) model.DayResult {
		inner := run
		inner.Observer = run.Observer.WithPhase(phase)
		return day.New(g, inner).Run(ctx, d, capMinutes)
	}
	return s
}

// WithRunner replaces the per-phase runner.
func (s *Scheduler) WithRunner(r PhaseRunner) *Scheduler {
	if r != nil {
		s.runner = r
	}
	return s
}

// PermissiveCap returns the phase 1 cap in minutes.
func (s *Scheduler) PermissiveCap() int {
	c := model.PermissiveCapHours * 60
	if m := s.global.MaxStayMinutes(); m > 0 && m < c {
		c = m
	}
	return c
}

// Run executes the phases and returns the adopted result with its phase
// comparison.
func (s *Scheduler) Run(ctx context.Context, d model.DateConfig) model.DayResult {
	limit := s.PermissiveCap()
	best := s.runPhase(ctx, d, 1, limit)
	phases := []model.PhaseStats{s.row(1, limit, best, true)}
	s.phaseDone(d, phases[0], best)
	if best.Status == model.StatusError || best.Status == model.StatusFailed {
		best.Phases = phases
		return best
	}

	target := limit
	prev := limit
	adoptedCap := limit
	override := d.StayCapOverride
	for phase := 2; phase <= s.global.MaxIterations+1; phase++ {
		if ctx.Err() != nil {
			break
		}
		var next int
		if override > 0 {
			if phase > 2 {
				break
			}
			next = override
		} else {
			next = stats.DeriveCap(stats.StaysOf(day.Complete(best)), s.global.HardCapPercentile, s.global.Granularity)
			if next <= 0 || prev-next < s.global.MinCapDecrease {
				s.log.Debugf("day %s: cap %d does not drop enough from %d, stopping", d.Key(), next, prev)
				break
			}
		}
		target = next
		res := s.runPhase(ctx, d, phase, next)
		adopted := res.Status != model.StatusError && res.Status != model.StatusFailed &&
			res.Diagnostics.Placed >= best.Diagnostics.Placed
		row := s.row(phase, next, res, adopted)
		phases = append(phases, row)
		s.phaseDone(d, row, res)
		if !adopted {
			s.log.Warnf("day %s: phase %d (%s, %d placed) discarded, keeping phase %d",
				d.Key(), phase, res.Status, res.Diagnostics.Placed, phase-1)
			break
		}
		best = res
		prev = next
		adoptedCap = next
	}

	best.Diagnostics.AdoptedCap = adoptedCap
	best = s.enforce(ctx, d, best, target)
	best.Phases = phases
	return best
}

func (s *Scheduler) runPhase(ctx context.Context, d model.DateConfig, phase, limit int) model.DayResult {
	s.log.Debugf("day %s: phase %d under cap %d", d.Key(), phase, limit)
	return s.runner(ctx, d, phase, limit)
}

// enforce moves residual violators under target and records who remains.
func (s *Scheduler) enforce(ctx context.Context, d model.DateConfig, res model.DayResult, target int) model.DayResult {
	res.Diagnostics.HardCap = target
	complete := day.Complete(res)
	if len(validate.CapViolations(complete, target)) == 0 {
		res.Diagnostics.CapViolations = nil
		return res
	}
	check := validate.New(d, s.global)
	opt := optimize.New(check, s.global.OptimizerPasses, 0, s.log)
	items, _ := opt.Enforce(ctx, res.Items, res.Groups, target)
	model.SortItems(items)
	res.Items = items
	complete = day.Complete(res)
	res.Diagnostics.CapViolations = validate.CapViolations(complete, target)
	res.Diagnostics.Stats = stats.Summarize(stats.StaysOf(complete))
	if n := len(res.Diagnostics.CapViolations); n > 0 {
		s.log.Warnf("day %s: %d candidates above cap %d after enforcement", d.Key(), n, target)
	}
	return res
}

func (s *Scheduler) row(phase, limit int, res model.DayResult, adopted bool) model.PhaseStats {
	ph := stats.Phase(phase, limit, res.Status, day.Complete(res))
	ph.Placed = res.Diagnostics.Placed
	ph.Adopted = adopted
	return ph
}

func (s *Scheduler) phaseDone(d model.DateConfig, ph model.PhaseStats, res model.DayResult) {
	s.run.Observer.Notify(events.Progress{
		RunID:      s.run.RunID,
		Date:       d.Key(),
		Phase:      ph.Phase,
		Checkpoint: events.PhaseDone,
		Placed:     ph.Placed,
		Total:      res.Diagnostics.Candidates,
		Status:     res.Status,
		Detail:     fmt.Sprintf("cap=%d adopted=%t", ph.Cap, ph.Adopted),
	})
}
