// Package stats computes stay-time statistics and the derived stay cap.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/jayquinn/interview-scheduler/core/model"
)

// Percentile returns the p-th percentile (0..100) of values using linear
// interpolation between closest ranks: rank = (n-1)·p/100. It returns 0 for
// an empty slice.
func Percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	rank := float64(n-1) * p / 100
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Summarize describes a set of stay durations in minutes.
func Summarize(stays []int) model.StayStats {
	if len(stays) == 0 {
		return model.StayStats{}
	}
	xs := toFloats(stays)
	return model.StayStats{
		Count:  len(xs),
		Mean:   round2(stat.Mean(xs, nil)),
		Median: round2(Percentile(xs, 50)),
		P90:    round2(Percentile(xs, 90)),
		Max:    floats.Max(xs),
		StdDev: round2(stat.PopStdDev(xs, nil)),
	}
}

// StaysOf returns the stay of every real candidate present in items, ordered
// by candidate ID.
func StaysOf(items []model.ScheduleItem) []int {
	byCand := model.StayByCandidate(items)
	ids := make([]string, 0, len(byCand))
	for id := range byCand {
		if model.IsDummyID(id) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = byCand[id]
	}
	return out
}

// DeriveCap returns the p-th percentile of stays, in minutes, rounded up to
// the grid. It returns 0 when there is nothing to derive from.
func DeriveCap(stays []int, p float64, grid int) int {
	if len(stays) == 0 {
		return 0
	}
	v := Percentile(toFloats(stays), p)
	c := model.Minute(int(math.Ceil(v - 1e-9)))
	if grid > 1 {
		c = c.CeilToGrid(grid)
	}
	return int(c)
}

// Phase builds the comparison row of one iterative phase.
func Phase(phase, limit int, status model.Status, items []model.ScheduleItem) model.PhaseStats {
	stays := StaysOf(items)
	return model.PhaseStats{
		Phase:  phase,
		Cap:    limit,
		Status: status,
		Placed: len(stays),
		Stats:  Summarize(stays),
	}
}

// RoomBalance returns the coefficient of variation of booked minutes across
// the given rooms. 0 means perfectly even use.
func RoomBalance(rooms []model.Room, items []model.ScheduleItem) float64 {
	if len(rooms) == 0 {
		return 0
	}
	type slot struct {
		room  string
		start model.Minute
	}
	booked := make(map[string]float64, len(rooms))
	seen := make(map[slot]bool)
	for _, it := range items {
		k := slot{it.Room, it.Start}
		if it.GroupID != "" {
			if seen[k] {
				continue
			}
			seen[k] = true
		}
		booked[it.Room] += float64(it.End - it.Start)
	}
	xs := make([]float64, len(rooms))
	for i, r := range rooms {
		xs[i] = booked[r.Name]
	}
	mean := stat.Mean(xs, nil)
	if mean == 0 {
		return 0
	}
	return round2(stat.PopStdDev(xs, nil) / mean)
}

func toFloats(v []int) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
