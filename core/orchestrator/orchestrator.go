// Package orchestrator schedules several interview days and merges their
// results.
package orchestrator

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jayquinn/interview-scheduler/core/day"
	"github.com/jayquinn/interview-scheduler/core/events"
	"github.com/jayquinn/interview-scheduler/core/grouping"
	"github.com/jayquinn/interview-scheduler/core/iterative"
	"github.com/jayquinn/interview-scheduler/core/logger"
	"github.com/jayquinn/interview-scheduler/core/model"
	infralogger "github.com/jayquinn/interview-scheduler/infra/logger"
)

// DayRunner schedules one day within a run.
type DayRunner func(ctx context.Context, run day.RunContext, d model.DateConfig) model.DayResult

// Orchestrator fans days out to a bounded worker pool.
type Orchestrator struct {
	global   model.GlobalConfig
	log      logger.Logger
	observer events.Observer
	runner   DayRunner
	cpus     int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.log = infralogger.OrNop(l) }
}

// WithObserver sets the progress observer. It may be called from several
// goroutines at once.
func WithObserver(obs events.Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithDayRunner replaces the iterative day scheduler.
func WithDayRunner(r DayRunner) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.runner = r
		}
	}
}

// New creates an Orchestrator.
func New(g model.GlobalConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		global: g,
		log:    infralogger.NopLogger{},
		cpus:   runtime.NumCPU(),
	}
	o.runner = func(ctx context.Context, run day.RunContext, d model.DateConfig) model.DayResult {
		return iterative.New(o.global, run).Run(ctx, d)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Parallel reports whether days are scheduled on several workers.
func (o *Orchestrator) Parallel(days []model.DateConfig) bool {
	total := 0
	for _, d := range days {
		total += d.TotalCandidates()
	}
	return len(days) > 1 && len(days)*total > o.global.ParallelThreshold
}

// Workers returns the pool size for days.
func (o *Orchestrator) Workers(days []model.DateConfig) int {
	if !o.Parallel(days) {
		return 1
	}
	n := len(days)
	if o.global.MaxWorkers > 0 && o.global.MaxWorkers < n {
		n = o.global.MaxWorkers
	}
	if o.cpus-1 < n {
		n = o.cpus - 1
	}
	if n < 1 {
		n = 1
	}
	return n
}

type dayOutcome struct {
	index  int
	result model.DayResult
}

// Run schedules every day and returns the merged result. Days never share
// occupancy; only the grouping cache spans the run.
func (o *Orchestrator) Run(ctx context.Context, days []model.DateConfig) model.ScheduleResult {
	res := model.ScheduleResult{RunID: uuid.NewString()}
	if len(days) == 0 {
		res.Status = model.StatusError
		o.log.Warnf("run %s: no days to schedule", res.RunID)
		return res
	}
	start := time.Now()
	run := day.RunContext{
		RunID:    res.RunID,
		Cache:    grouping.NewCache(),
		Observer: o.observer,
		Log:      o.log,
	}
	workers := o.Workers(days)
	o.log.Infof("run %s: %d days on %d workers", res.RunID, len(days), workers)

	out := make(chan dayOutcome, len(days))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, d := range days {
		g.Go(func() error {
			out <- dayOutcome{index: i, result: o.runDay(ctx, run, d)}
			return nil
		})
	}
	_ = g.Wait()
	close(out)

	res.Days = make([]model.DayResult, len(days))
	for oc := range out {
		res.Days[oc.index] = oc.result
	}
	sort.SliceStable(res.Days, func(i, j int) bool { return res.Days[i].Date.Before(res.Days[j].Date) })
	for _, d := range res.Days {
		res.Items = append(res.Items, d.Items...)
	}
	model.SortItems(res.Items)
	res.Status = Aggregate(res.Days)

	hits, misses := run.Cache.Stats()
	o.log.Infof("run %s: %s in %s (grouping cache %d hits, %d misses)",
		res.RunID, res.Status, time.Since(start).Round(time.Millisecond), hits, misses)
	return res
}

// runDay isolates one day: its own deadline and panic recovery.
func (o *Orchestrator) runDay(ctx context.Context, run day.RunContext, d model.DateConfig) (res model.DayResult) {
	dctx, cancel := context.WithTimeout(ctx, o.global.TimeLimit())
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			o.log.Errorf("day %s panicked: %v", d.Key(), r)
			res = model.DayResult{Date: d.Date, Status: model.StatusError}
			res.Diagnostics.Candidates = d.TotalCandidates()
			res.Diagnostics.Error = fmt.Sprintf("panic: %v", r)
		}
	}()
	return o.runner(dctx, run, d)
}

// Aggregate folds day statuses. Every day ERROR, or no days, is ERROR; all
// SUCCESS is SUCCESS; some SUCCESS is PARTIAL; otherwise FAILED.
func Aggregate(days []model.DayResult) model.Status {
	if len(days) == 0 {
		return model.StatusError
	}
	success, errs := 0, 0
	for _, d := range days {
		switch d.Status {
		case model.StatusSuccess:
			success++
		case model.StatusError:
			errs++
		}
	}
	switch {
	case errs == len(days):
		return model.StatusError
	case success == len(days):
		return model.StatusSuccess
	case success > 0:
		return model.StatusPartial
	default:
		return model.StatusFailed
	}
}
