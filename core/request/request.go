// Package request decodes scheduling requests and converts them into typed
// day configurations.
package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jayquinn/interview-scheduler/core/model"
	"github.com/jayquinn/interview-scheduler/core/schederr"
)

// Format is the encoding of a request document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf guesses the format from a file extension.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ActivitySpec describes one catalog entry.
type ActivitySpec struct {
	Mode        string `json:"mode" yaml:"mode" validate:"omitempty,oneof=individual parallel batched batch"`
	Duration    int    `json:"duration_minutes" yaml:"duration_minutes" validate:"required,min=1"`
	RoomType    string `json:"room_type" yaml:"room_type" validate:"required"`
	MinCapacity int    `json:"min_capacity,omitempty" yaml:"min_capacity" validate:"min=0"`
	MaxCapacity int    `json:"max_capacity,omitempty" yaml:"max_capacity" validate:"min=0"`
}

// ClockWindow is a window written as "HH:MM" clocks.
type ClockWindow struct {
	Start string `json:"start" yaml:"start" validate:"required"`
	End   string `json:"end" yaml:"end" validate:"required"`
}

// Window parses the clocks.
func (w ClockWindow) Window() (model.Window, error) {
	start, err := model.ParseClock(w.Start)
	if err != nil {
		return model.Window{}, err
	}
	end, err := model.ParseClock(w.End)
	if err != nil {
		return model.Window{}, err
	}
	return model.Window{Start: start, End: end}, nil
}

// PrecedenceSpec orders two activities.
type PrecedenceSpec struct {
	Predecessor string `json:"predecessor" yaml:"predecessor" validate:"required"`
	Successor   string `json:"successor" yaml:"successor" validate:"required,nefield=Predecessor"`
	Gap         int    `json:"gap_minutes" yaml:"gap_minutes" validate:"min=0"`
	Adjacent    bool   `json:"adjacent" yaml:"adjacent"`
}

// Tuning overrides global knobs. Zero values keep the base configuration.
type Tuning struct {
	GlobalGap         *int                    `json:"global_gap_minutes,omitempty" yaml:"global_gap_minutes" validate:"omitempty,min=0"`
	MaxStayHours      float64                 `json:"max_stay_hours,omitempty" yaml:"max_stay_hours" validate:"min=0"`
	Granularity       int                     `json:"scheduling_granularity_minutes,omitempty" yaml:"scheduling_granularity_minutes" validate:"min=0,max=60"`
	TimeLimitSeconds  int                     `json:"time_limit_seconds,omitempty" yaml:"time_limit_seconds" validate:"min=0"`
	HardCapPercentile float64                 `json:"hard_cap_percentile,omitempty" yaml:"hard_cap_percentile" validate:"min=0,max=100"`
	Strategy          string                  `json:"strategy,omitempty" yaml:"strategy"`
	StrategyConf      map[string]any          `json:"strategy_conf,omitempty" yaml:"strategy_conf"`
	MaxBacktrack      int                     `json:"max_backtrack,omitempty" yaml:"max_backtrack" validate:"min=0"`
	MaxIterations     int                     `json:"max_iterations,omitempty" yaml:"max_iterations" validate:"min=0"`
	MinCapDecrease    int                     `json:"min_cap_decrease_minutes,omitempty" yaml:"min_cap_decrease_minutes" validate:"min=0"`
	Lunch             *ClockWindow            `json:"lunch,omitempty" yaml:"lunch"`
	GroupBounds       map[string]model.Bounds `json:"group_bounds,omitempty" yaml:"group_bounds"`
}

// DaySpec is one interview day with optional overrides.
type DaySpec struct {
	Date           string                    `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	JobHeadcounts  map[string]int            `json:"job_headcounts" yaml:"job_headcounts" validate:"required,min=1,dive,min=0"`
	OperatingHours *ClockWindow              `json:"operating_hours,omitempty" yaml:"operating_hours"`
	Rooms          map[string]model.RoomSpec `json:"rooms,omitempty" yaml:"rooms"`
	HardCapHours   float64                   `json:"hard_cap_hours,omitempty" yaml:"hard_cap_hours" validate:"min=0"`
	JobActivities  map[string][]string       `json:"job_activities,omitempty" yaml:"job_activities"`
}

// Request is a multi-day scheduling request.
type Request struct {
	Activities     map[string]ActivitySpec   `json:"activities" yaml:"activities" validate:"required,min=1,dive"`
	ActivityOrder  []string                  `json:"activity_order,omitempty" yaml:"activity_order"`
	Rooms          map[string]model.RoomSpec `json:"rooms" yaml:"rooms" validate:"required,min=1"`
	Precedence     []PrecedenceSpec          `json:"precedence_rules,omitempty" yaml:"precedence_rules" validate:"dive"`
	OperatingHours *ClockWindow              `json:"operating_hours,omitempty" yaml:"operating_hours"`
	JobActivities  map[string][]string       `json:"job_activities,omitempty" yaml:"job_activities"`
	Tuning         Tuning                    `json:"tuning" yaml:"tuning"`
	Days           []DaySpec                 `json:"days" yaml:"days" validate:"required,min=1,dive"`
}

var validate = validator.New()

// Decode reads a request and validates its shape.
func Decode(r io.Reader, f Format) (*Request, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}
	var req Request
	switch f {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return nil, schederr.Config("", "decode yaml request: %v", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return nil, schederr.Config("", "decode json request: %v", err)
		}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Load decodes the request file at path.
func Load(path string) (*Request, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open request: %w", err)
	}
	defer f.Close()
	return Decode(f, FormatOf(path))
}

// Validate checks field constraints.
func (r *Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
			}
			return schederr.Config("", "invalid request: %s", strings.Join(msgs, "; "))
		}
		return schederr.Config("", "invalid request: %v", err)
	}
	return nil
}

// Global applies the request tuning and hours on top of base.
func (r *Request) Global(base model.GlobalConfig) (model.GlobalConfig, error) {
	g := base
	t := r.Tuning
	if r.OperatingHours != nil {
		w, err := r.OperatingHours.Window()
		if err != nil {
			return g, schederr.Config("", "operating hours: %v", err)
		}
		g.Hours = w
	}
	if t.Lunch != nil {
		w, err := t.Lunch.Window()
		if err != nil {
			return g, schederr.Config("", "lunch: %v", err)
		}
		g.Lunch = w
	}
	if t.GlobalGap != nil {
		g.GlobalGap = *t.GlobalGap
	}
	if t.MaxStayHours > 0 {
		g.MaxStayHours = t.MaxStayHours
	}
	if t.Granularity > 0 {
		g.Granularity = t.Granularity
	}
	if t.TimeLimitSeconds > 0 {
		g.TimeLimitSeconds = t.TimeLimitSeconds
	}
	if t.HardCapPercentile > 0 {
		g.HardCapPercentile = t.HardCapPercentile
	}
	if t.Strategy != "" {
		g.Strategy = t.Strategy
		g.StrategyConf = nil
	}
	if t.StrategyConf != nil {
		g.StrategyConf = t.StrategyConf
	}
	if t.MaxBacktrack > 0 {
		g.MaxBacktrack = t.MaxBacktrack
	}
	if t.MaxIterations > 0 {
		g.MaxIterations = t.MaxIterations
	}
	if t.MinCapDecrease > 0 {
		g.MinCapDecrease = t.MinCapDecrease
	}
	if len(t.GroupBounds) > 0 {
		bounds := make(map[string]model.Bounds, len(base.GroupBounds)+len(t.GroupBounds))
		for k, v := range base.GroupBounds {
			bounds[k] = v
		}
		for k, v := range t.GroupBounds {
			bounds[k] = v
		}
		g.GroupBounds = bounds
	}
	g.SetDefaults()
	if err := g.Validate(); err != nil {
		return g, err
	}
	return g, nil
}

// Catalog returns the activities in configured order. Activities missing
// from activity_order follow in name order.
func (r *Request) Catalog() ([]model.Activity, error) {
	names := make([]string, 0, len(r.Activities))
	listed := make(map[string]bool, len(r.ActivityOrder))
	for _, n := range r.ActivityOrder {
		if _, ok := r.Activities[n]; !ok {
			return nil, schederr.Config(n, "activity_order references an unknown activity")
		}
		if listed[n] {
			return nil, schederr.Config(n, "activity listed twice in activity_order")
		}
		listed[n] = true
		names = append(names, n)
	}
	var rest []string
	for n := range r.Activities {
		if !listed[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	names = append(names, rest...)

	out := make([]model.Activity, 0, len(names))
	for _, n := range names {
		spec := r.Activities[n]
		mode, err := model.ParseMode(spec.Mode)
		if err != nil {
			return nil, schederr.Config(n, "%v", err)
		}
		out = append(out, model.Activity{
			Name:        n,
			Mode:        mode,
			Duration:    spec.Duration,
			RoomType:    spec.RoomType,
			MinCapacity: spec.MinCapacity,
			MaxCapacity: spec.MaxCapacity,
		})
	}
	return out, nil
}

// DateConfigs converts every day into a model.DateConfig, sorted by date.
// Only request-level faults fail here. Each day's semantics are left to
// DateConfig.Validate so one bad day does not reject the others.
func (r *Request) DateConfigs(g model.GlobalConfig) ([]model.DateConfig, error) {
	catalog, err := r.Catalog()
	if err != nil {
		return nil, err
	}
	rules := make([]model.PrecedenceRule, len(r.Precedence))
	for i, p := range r.Precedence {
		rules[i] = model.PrecedenceRule{Predecessor: p.Predecessor, Successor: p.Successor, Gap: p.Gap, Adjacent: p.Adjacent}
	}

	seen := make(map[string]bool, len(r.Days))
	out := make([]model.DateConfig, 0, len(r.Days))
	for _, spec := range r.Days {
		date, err := time.Parse(model.DateLayout, spec.Date)
		if err != nil {
			return nil, schederr.Config("", "day %q: %v", spec.Date, err)
		}
		if seen[spec.Date] {
			return nil, schederr.Config("", "day %s listed twice", spec.Date)
		}
		seen[spec.Date] = true

		hours := g.Hours
		if spec.OperatingHours != nil {
			if hours, err = spec.OperatingHours.Window(); err != nil {
				return nil, schederr.Config("", "day %s operating hours: %v", spec.Date, err)
			}
		}
		rooms := r.Rooms
		if len(spec.Rooms) > 0 {
			rooms = spec.Rooms
		}
		jobActs := r.JobActivities
		if len(spec.JobActivities) > 0 {
			jobActs = spec.JobActivities
		}
		for job, acts := range jobActs {
			for _, a := range acts {
				if _, ok := r.Activities[a]; !ok {
					return nil, schederr.Config(a, "day %s: job %s references an unknown activity", spec.Date, job)
				}
			}
		}

		d := model.DateConfig{
			Date:            date,
			Headcounts:      copyCounts(spec.JobHeadcounts),
			Activities:      append([]model.Activity(nil), catalog...),
			Rooms:           model.ExpandRooms(rooms),
			Hours:           hours,
			Precedence:      append([]model.PrecedenceRule(nil), rules...),
			JobActivities:   jobActs,
			StayCapOverride: int(spec.HardCapHours * 60),
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
