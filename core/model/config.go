package model

import (
	"fmt"
	"sort"
	"time"

	"github.com/jayquinn/interview-scheduler/core/schederr"
)

// DateLayout is the canonical date format used in keys and output.
const DateLayout = "2006-01-02"

// PermissiveCapHours is the stay cap used by baseline runs.
const PermissiveCapHours = 12

// Bounds is a batched group-size range.
type Bounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Validate rejects impossible bounds.
func (b Bounds) Validate() error {
	if b.Max <= 0 {
		return fmt.Errorf("max capacity must be positive")
	}
	if b.Min > b.Max {
		return fmt.Errorf("min capacity %d exceeds max capacity %d", b.Min, b.Max)
	}
	return nil
}

// DateConfig is the normalized input for one interview day.
type DateConfig struct {
	Date       time.Time      `json:"date"`
	Headcounts map[string]int `json:"job_headcounts"`
	// Activities is the activity catalog in configured order.
	Activities []Activity       `json:"activities"`
	Rooms      []Room           `json:"rooms"`
	Hours      Window           `json:"operating_hours"`
	Precedence []PrecedenceRule `json:"precedence_rules"`
	// JobActivities optionally restricts the activities of a job code.
	JobActivities map[string][]string `json:"job_activities,omitempty"`
	// StayCapOverride, in minutes, replaces the derived stay cap when positive.
	StayCapOverride int `json:"stay_cap_override,omitempty"`
}

// Key returns the date formatted with DateLayout.
func (d DateConfig) Key() string { return d.Date.Format(DateLayout) }

// Activity looks up an activity by name.
func (d DateConfig) Activity(name string) (Activity, bool) {
	for _, a := range d.Activities {
		if a.Name == name {
			return a, true
		}
	}
	return Activity{}, false
}

// RoomsOfType returns rooms of type t in configured order.
func (d DateConfig) RoomsOfType(t string) []Room {
	var out []Room
	for _, r := range d.Rooms {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

// Rule returns the precedence rule governing pred -> succ.
func (d DateConfig) Rule(pred, succ string) (PrecedenceRule, bool) {
	for _, r := range d.Precedence {
		if r.Predecessor == pred && r.Successor == succ {
			return r, true
		}
	}
	return PrecedenceRule{}, false
}

// TotalCandidates sums the job headcounts.
func (d DateConfig) TotalCandidates() int {
	n := 0
	for _, c := range d.Headcounts {
		n += c
	}
	return n
}

// JobCodes returns the job codes in sorted order.
func (d DateConfig) JobCodes() []string {
	codes := make([]string, 0, len(d.Headcounts))
	for c := range d.Headcounts {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// ActivitiesFor returns the ordered activity names performed by a job code.
func (d DateConfig) ActivitiesFor(job string) []string {
	if list, ok := d.JobActivities[job]; ok && len(list) > 0 {
		out := make([]string, 0, len(list))
		for _, a := range d.Activities {
			for _, name := range list {
				if name == a.Name {
					out = append(out, a.Name)
					break
				}
			}
		}
		return out
	}
	out := make([]string, len(d.Activities))
	for i, a := range d.Activities {
		out[i] = a.Name
	}
	return out
}

// Candidates builds the real candidate roster. IDs are "<job>-<nnn>".
func (d DateConfig) Candidates() []Candidate {
	var out []Candidate
	for _, job := range d.JobCodes() {
		acts := d.ActivitiesFor(job)
		for i := 0; i < d.Headcounts[job]; i++ {
			out = append(out, Candidate{
				ID:         fmt.Sprintf("%s-%03d", job, i+1),
				JobCode:    job,
				Activities: append([]string(nil), acts...),
			})
		}
	}
	return out
}

// Validate checks the day against the global configuration. All failures are
// ConfigErrors.
func (d DateConfig) Validate(g GlobalConfig) error {
	if !d.Hours.Valid() {
		return schederr.Config("", "operating hours %s are empty", d.Hours)
	}
	if len(d.Activities) == 0 {
		return schederr.Config("", "no activities configured")
	}
	seen := make(map[string]bool, len(d.Activities))
	for _, a := range d.Activities {
		if seen[a.Name] {
			return schederr.Config(a.Name, "duplicate activity")
		}
		seen[a.Name] = true
		if a.Batched() {
			b := g.BoundsFor(a)
			if err := b.Validate(); err != nil {
				return schederr.Config(a.Name, "%v", err)
			}
		} else if err := a.Validate(); err != nil {
			return schederr.Config(a.Name, "%v", err)
		}
		if a.Duration <= 0 {
			return schederr.Config(a.Name, "duration must be positive")
		}
		if len(d.RoomsOfType(a.RoomType)) == 0 {
			return schederr.Config(a.Name, "unknown room type %q", a.RoomType)
		}
		if a.Duration > d.Hours.Len() {
			return schederr.Config(a.Name, "duration %d exceeds operating hours %s", a.Duration, d.Hours)
		}
	}
	for _, r := range d.Precedence {
		if !seen[r.Predecessor] || !seen[r.Successor] {
			return schederr.Config("", "precedence %s -> %s references an unknown activity", r.Predecessor, r.Successor)
		}
		if r.Predecessor == r.Successor {
			return schederr.Config(r.Predecessor, "precedence rule references itself")
		}
		if r.Gap < 0 {
			return schederr.Config("", "precedence %s -> %s has a negative gap", r.Predecessor, r.Successor)
		}
	}
	for job, n := range d.Headcounts {
		if n < 0 {
			return schederr.Config("", "job %s has negative headcount", job)
		}
		if IsDummyID(job + "-") {
			return schederr.Config("", "job code %s collides with the placeholder prefix %s", job, DummyPrefix)
		}
	}
	return nil
}

// GlobalConfig carries cross-day defaults and tuning knobs.
type GlobalConfig struct {
	Hours Window `json:"operating_hours"`
	// Lunch is kept free of batched blocks.
	Lunch Window `json:"lunch"`
	// GlobalGap is the minimum gap between two activities of a candidate that
	// no precedence rule governs.
	GlobalGap    int               `json:"global_gap_minutes"`
	MaxStayHours float64           `json:"max_stay_hours"`
	GroupBounds  map[string]Bounds `json:"group_bounds"`
	Granularity  int               `json:"scheduling_granularity_minutes"`
	// TimeLimitSeconds is the wall-clock budget of one day.
	TimeLimitSeconds  int     `json:"time_limit_seconds"`
	HardCapPercentile float64 `json:"hard_cap_percentile"`
	Strategy          string  `json:"strategy"`
	// StrategyConf carries raw parameters decoded by the chosen strategy.
	StrategyConf map[string]any `json:"strategy_conf,omitempty"`
	// MaxBacktrack bounds undo steps per candidate in the individual search.
	MaxBacktrack int `json:"max_backtrack"`
	// MaxIterations bounds the capped reruns after the baseline phase.
	MaxIterations int `json:"max_iterations"`
	// MinCapDecrease is the cap drop, in minutes, required to run another phase.
	MinCapDecrease    int `json:"min_cap_decrease_minutes"`
	OptimizerPasses   int `json:"optimizer_passes"`
	ParallelThreshold int `json:"parallel_threshold"`
	MaxWorkers        int `json:"max_workers"`
}

// SetDefaults applies sane defaults.
func (g *GlobalConfig) SetDefaults() {
	if !g.Hours.Valid() {
		g.Hours = Window{Start: Clock(9, 0), End: Clock(17, 30)}
	}
	if !g.Lunch.Valid() {
		g.Lunch = Window{Start: Clock(12, 0), End: Clock(13, 0)}
	}
	if g.GlobalGap < 0 {
		g.GlobalGap = 0
	}
	if g.MaxStayHours <= 0 {
		g.MaxStayHours = PermissiveCapHours
	}
	if g.Granularity <= 0 {
		g.Granularity = 5
	}
	if g.TimeLimitSeconds <= 0 {
		g.TimeLimitSeconds = 60
	}
	if g.HardCapPercentile <= 0 || g.HardCapPercentile > 100 {
		g.HardCapPercentile = 90
	}
	if g.Strategy == "" {
		g.Strategy = "balanced"
	}
	if g.MaxBacktrack <= 0 {
		g.MaxBacktrack = 32
	}
	if g.MaxIterations <= 0 {
		g.MaxIterations = 2
	}
	if g.MinCapDecrease <= 0 {
		g.MinCapDecrease = 10
	}
	if g.OptimizerPasses <= 0 {
		g.OptimizerPasses = 3
	}
	if g.ParallelThreshold <= 0 {
		g.ParallelThreshold = 1000
	}
	if g.MaxWorkers <= 0 {
		g.MaxWorkers = 4
	}
}

// Validate checks mandatory fields.
func (g GlobalConfig) Validate() error {
	if !g.Hours.Valid() {
		return schederr.Config("", "operating hours %s are empty", g.Hours)
	}
	for name, b := range g.GroupBounds {
		if err := b.Validate(); err != nil {
			return schederr.Config(name, "%v", err)
		}
	}
	if g.Granularity <= 0 || 60%g.Granularity != 0 {
		return schederr.Config("", "granularity %d must divide 60", g.Granularity)
	}
	return nil
}

// BoundsFor returns the group-size bounds of a batched activity; GroupBounds
// overrides the activity's own capacities.
func (g GlobalConfig) BoundsFor(a Activity) Bounds {
	if b, ok := g.GroupBounds[a.Name]; ok {
		return b
	}
	return Bounds{Min: a.MinCapacity, Max: a.MaxCapacity}
}

// TimeLimit returns the per-day budget.
func (g GlobalConfig) TimeLimit() time.Duration {
	return time.Duration(g.TimeLimitSeconds) * time.Second
}

// MaxStayMinutes returns the absolute stay limit in minutes.
func (g GlobalConfig) MaxStayMinutes() int {
	return int(g.MaxStayHours * 60)
}
