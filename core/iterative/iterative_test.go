package iterative

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayquinn/interview-scheduler/core/day"
	"github.com/jayquinn/interview-scheduler/core/events"
	"github.com/jayquinn/interview-scheduler/core/model"
)

var testDate = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func globalConfig(iterations int) model.GlobalConfig {
	g := model.GlobalConfig{GlobalGap: 5, MaxIterations: iterations}
	g.SetDefaults()
	return g
}

func simpleDay() model.DateConfig {
	return model.DateConfig{
		Date:       testDate,
		Headcounts: map[string]int{"JOB01": 6},
		Hours:      model.Window{Start: model.Clock(9, 0), End: model.Clock(17, 30)},
		Activities: []model.Activity{
			{Name: "discussion", Mode: model.ModeBatched, Duration: 30, RoomType: "discussion_room", MinCapacity: 4, MaxCapacity: 6},
			{Name: "prep", Mode: model.ModeParallel, Duration: 5, RoomType: "prep_room"},
			{Name: "interview", Mode: model.ModeIndividual, Duration: 15, RoomType: "interview_room"},
		},
		Rooms: model.ExpandRooms(map[string]model.RoomSpec{
			"discussion_room": {Count: 2, Capacity: 6},
			"prep_room":       {Count: 1, Capacity: 2},
			"interview_room":  {Count: 2, Capacity: 1},
		}),
		Precedence: []model.PrecedenceRule{{Predecessor: "prep", Successor: "interview", Adjacent: true}},
	}
}

// result fakes a day result with one item per candidate lasting stay minutes.
func result(stays ...int) model.DayResult {
	res := model.DayResult{Date: testDate, Status: model.StatusSuccess}
	for i, s := range stays {
		res.Items = append(res.Items, model.ScheduleItem{
			Date:        testDate,
			CandidateID: fmt.Sprintf("JOB01-%03d", i+1),
			JobCode:     "JOB01",
			Activity:    "interview",
			Room:        "interview_room-1",
			Start:       model.Clock(9, 0),
			End:         model.Clock(9, 0) + model.Minute(s),
		})
	}
	res.Diagnostics.Candidates = len(stays)
	res.Diagnostics.Placed = len(stays)
	return res
}

type recorder struct {
	caps    []int
	results []model.DayResult
}

func (r *recorder) run(_ context.Context, _ model.DateConfig, phase, capMinutes int) model.DayResult {
	r.caps = append(r.caps, capMinutes)
	res := r.results[len(r.results)-1]
	if phase-1 < len(r.results) {
		res = r.results[phase-1]
	}
	res.Diagnostics.HardCap = capMinutes
	return res
}

func hours(h ...int) []int {
	out := make([]int, len(h))
	for i, v := range h {
		out[i] = v * 60
	}
	return out
}

func TestDerivedCapTightensSecondPhase(t *testing.T) {
	rec := &recorder{results: []model.DayResult{
		result(hours(2, 2, 3, 3, 4, 8)...),
		result(hours(2, 2, 3, 3, 4, 6)...),
	}}
	var done []events.Progress
	obs := func(p events.Progress) {
		if p.Checkpoint == events.PhaseDone {
			done = append(done, p)
		}
	}
	s := New(globalConfig(1), day.RunContext{Observer: obs}).WithRunner(rec.run)
	res := s.Run(context.Background(), simpleDay())

	assert.Equal(t, []int{720, 360}, rec.caps)
	assert.Equal(t, 360, res.Diagnostics.HardCap)
	assert.Equal(t, 360, res.Diagnostics.AdoptedCap)
	assert.Empty(t, res.Diagnostics.CapViolations)
	require.Len(t, res.Phases, 2)
	assert.True(t, res.Phases[0].Adopted)
	assert.True(t, res.Phases[1].Adopted)
	assert.Equal(t, 360, res.Phases[1].Cap)
	assert.LessOrEqual(t, res.Phases[1].Stats.Max, 360.0)
	assert.Equal(t, 480.0, res.Phases[0].Stats.Max)

	require.Len(t, done, 2)
	assert.Equal(t, 1, done[0].Phase)
	assert.Equal(t, 2, done[1].Phase)
	assert.Equal(t, "cap=360 adopted=true", done[1].Detail)
}

func TestDegradedPhaseFallsBack(t *testing.T) {
	rec := &recorder{results: []model.DayResult{
		result(hours(2, 2, 3, 3, 4, 8)...),
		result(hours(2, 2, 3, 3, 4)...),
	}}
	s := New(globalConfig(2), day.RunContext{}).WithRunner(rec.run)
	res := s.Run(context.Background(), simpleDay())

	assert.Equal(t, []int{720, 360}, rec.caps)
	require.Len(t, res.Phases, 2)
	assert.False(t, res.Phases[1].Adopted)
	assert.Equal(t, 6, res.Diagnostics.Placed)
	assert.Len(t, res.Items, 6)

	// The eight hour stay cannot shrink by moving its only activity.
	require.Len(t, res.Diagnostics.CapViolations, 1)
	v := res.Diagnostics.CapViolations[0]
	assert.Equal(t, "JOB01-006", v.CandidateID)
	assert.Equal(t, 480, v.Stay)
	assert.Equal(t, 360, v.Cap)
	assert.Equal(t, 360, res.Diagnostics.HardCap)
	assert.Equal(t, 720, res.Diagnostics.AdoptedCap, "items come from the permissive phase")
}

func TestStopsWhenCapStalls(t *testing.T) {
	rec := &recorder{results: []model.DayResult{result(300, 300, 300, 300)}}
	s := New(globalConfig(3), day.RunContext{}).WithRunner(rec.run)
	res := s.Run(context.Background(), simpleDay())

	assert.Equal(t, []int{720, 300}, rec.caps)
	assert.Len(t, res.Phases, 2)
	assert.Equal(t, 300, res.Diagnostics.HardCap)
}

func TestOverrideReplacesDerivedCap(t *testing.T) {
	rec := &recorder{results: []model.DayResult{result(hours(2, 2, 3, 3, 4, 8)...)}}
	d := simpleDay()
	d.StayCapOverride = 500
	s := New(globalConfig(3), day.RunContext{}).WithRunner(rec.run)
	res := s.Run(context.Background(), d)

	assert.Equal(t, []int{720, 500}, rec.caps)
	assert.Len(t, res.Phases, 2)
	assert.Equal(t, 500, res.Diagnostics.HardCap)
	assert.Equal(t, 500, res.Diagnostics.AdoptedCap)
}

func TestFailedBaselineSkipsPhases(t *testing.T) {
	failed := result()
	failed.Status = model.StatusFailed
	rec := &recorder{results: []model.DayResult{failed}}
	s := New(globalConfig(2), day.RunContext{}).WithRunner(rec.run)
	res := s.Run(context.Background(), simpleDay())

	assert.Equal(t, []int{720}, rec.caps)
	assert.Equal(t, model.StatusFailed, res.Status)
	require.Len(t, res.Phases, 1)
}

func TestPermissiveCapHonorsMaxStay(t *testing.T) {
	g := globalConfig(1)
	g.MaxStayHours = 6
	assert.Equal(t, 360, New(g, day.RunContext{}).PermissiveCap())
	assert.Equal(t, 720, New(globalConfig(1), day.RunContext{}).PermissiveCap())
}

func TestRunRealDay(t *testing.T) {
	var tagged []events.Progress
	obs := func(p events.Progress) { tagged = append(tagged, p) }
	s := New(globalConfig(2), day.RunContext{RunID: "run", Observer: obs})
	res := s.Run(context.Background(), simpleDay())

	require.Equal(t, model.StatusSuccess, res.Status, res.Diagnostics.Error)
	assert.Equal(t, 6, res.Diagnostics.Placed)
	require.NotEmpty(t, res.Phases)
	assert.Equal(t, 720, res.Phases[0].Cap)
	assert.True(t, res.Phases[0].Adopted)

	phaseDone := 0
	for _, p := range tagged {
		assert.Positive(t, p.Phase)
		assert.Equal(t, "run", p.RunID)
		if p.Checkpoint == events.PhaseDone {
			phaseDone++
		}
	}
	assert.Equal(t, len(res.Phases), phaseDone)
}
