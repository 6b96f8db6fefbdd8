package batched

import (
	"math"

	"github.com/jayquinn/interview-scheduler/core/factory"
	"github.com/jayquinn/interview-scheduler/core/model"
)

// Plan describes the start window a batched activity is spread over.
type Plan struct {
	// First and Last bound the group start times.
	First    model.Minute
	Last     model.Minute
	Lunch    model.Window
	Count    int
	Rooms    int
	Duration int
	Grid     int
}

func (p Plan) avail() int { return int(p.Last - p.First) }

// Strategy proposes one target start per group. Targets are hints: the
// assigner snaps them to the grid, moves them off lunch and scans outward.
type Strategy interface {
	Name() string
	Targets(p Plan) []model.Minute
}

var strategies = factory.NewRegistry[Strategy]()

func init() {
	_ = strategies.Register("balanced", func(conf map[string]any) (Strategy, error) {
		s := balanced{MinSpacing: 60, MaxSpacing: 180}
		if err := factory.Decode(conf, &s); err != nil {
			return nil, err
		}
		return s, nil
	})
	_ = strategies.Register("early_heavy", func(conf map[string]any) (Strategy, error) {
		s := weighted{name: "early_heavy", MorningShare: 0.7}
		if err := factory.Decode(conf, &s); err != nil {
			return nil, err
		}
		return s, nil
	})
	_ = strategies.Register("late_heavy", func(conf map[string]any) (Strategy, error) {
		s := weighted{name: "late_heavy", MorningShare: 0.3}
		if err := factory.Decode(conf, &s); err != nil {
			return nil, err
		}
		return s, nil
	})
	_ = strategies.Register("capacity_optimized", func(conf map[string]any) (Strategy, error) {
		s := waves{name: "capacity_optimized", Spacing: 60}
		if err := factory.Decode(conf, &s); err != nil {
			return nil, err
		}
		return s, nil
	})
	_ = strategies.Register("stay_time_optimized", func(conf map[string]any) (Strategy, error) {
		s := waves{name: "stay_time_optimized", Spacing: 120, Fixed: true}
		if err := factory.Decode(conf, &s); err != nil {
			return nil, err
		}
		return s, nil
	})
}

// NewStrategy builds a registered strategy from its name and raw params.
func NewStrategy(name string, conf map[string]any) (Strategy, error) {
	if name == "" {
		name = "balanced"
	}
	return strategies.Create(factory.ModuleConfig{Type: name, Conf: conf})
}

// Strategies lists the registered strategy names.
func Strategies() []string { return strategies.Names() }

type balanced struct {
	MinSpacing int `json:"min_spacing"`
	MaxSpacing int `json:"max_spacing"`
}

func (balanced) Name() string { return "balanced" }

// Targets spaces groups evenly, clamped to
// [max(MinSpacing, d+10), min(MaxSpacing, avail/2)].
func (b balanced) Targets(p Plan) []model.Minute {
	if p.Count <= 0 {
		return nil
	}
	if p.Count == 1 {
		return []model.Minute{p.First}
	}
	avail := p.avail()
	spacing := avail / (p.Count - 1)
	lo := max(b.MinSpacing, p.Duration+10)
	hi := min(b.MaxSpacing, avail/2)
	spacing = min(max(spacing, lo), hi)
	if spacing < p.Grid {
		spacing = p.Grid
	}
	out := make([]model.Minute, p.Count)
	for i := range out {
		t := p.First + model.Minute(i*spacing)
		if t > p.Last {
			t = p.First + model.Minute((i*spacing)%(avail+1))
		}
		out[i] = t
	}
	return out
}

type weighted struct {
	name         string
	MorningShare float64 `json:"morning_share"`
}

func (w weighted) Name() string { return w.name }

// Targets splits groups between the morning before lunch and the afternoon
// after it and spreads each share evenly.
func (w weighted) Targets(p Plan) []model.Minute {
	if p.Count <= 0 {
		return nil
	}
	d := model.Minute(p.Duration)
	morning := model.Window{Start: p.First, End: min(p.Lunch.Start-d, p.Last)}
	afternoon := model.Window{Start: max(p.Lunch.End, p.First), End: p.Last}
	if !p.Lunch.Valid() {
		return spread(p.First, p.Last, p.Count)
	}
	nm := int(math.Round(float64(p.Count) * w.MorningShare))
	switch {
	case morning.End < morning.Start:
		nm = 0
	case afternoon.End < afternoon.Start:
		nm = p.Count
	}
	out := spread(morning.Start, morning.End, nm)
	return append(out, spread(afternoon.Start, afternoon.End, p.Count-nm)...)
}

type waves struct {
	name    string
	Spacing int  `json:"wave_spacing"`
	Fixed   bool `json:"-"`
}

func (w waves) Name() string { return w.name }

// Targets launches up to Rooms concurrent groups per wave. Waves with a fixed
// spacing that overrun the window fall back to balanced spacing.
func (w waves) Targets(p Plan) []model.Minute {
	if p.Count <= 0 {
		return nil
	}
	rooms := max(p.Rooms, 1)
	n := (p.Count + rooms - 1) / rooms
	spacing := max(w.Spacing, 60)
	if !w.Fixed {
		spacing = max(spacing, p.Duration)
	}
	if n > 1 && p.First+model.Minute((n-1)*spacing) > p.Last {
		if w.Fixed {
			return balanced{MinSpacing: 60, MaxSpacing: 180}.Targets(p)
		}
		spacing = max(p.avail()/(n-1), p.Duration)
	}
	out := make([]model.Minute, 0, p.Count)
	for i := 0; i < p.Count; i++ {
		out = append(out, p.First+model.Minute((i/rooms)*spacing))
	}
	return out
}

// spread places n targets evenly over [first, last].
func spread(first, last model.Minute, n int) []model.Minute {
	if n <= 0 {
		return nil
	}
	out := make([]model.Minute, n)
	if n == 1 {
		out[0] = first
		return out
	}
	step := float64(last-first) / float64(n-1)
	for i := range out {
		out[i] = first + model.Minute(math.Round(step*float64(i)))
	}
	return out
}
