package optimize

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayquinn/interview-scheduler/core/model"
	"github.com/jayquinn/interview-scheduler/core/validate"
)

var date = time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

func checker() *validate.Checker {
	g := model.GlobalConfig{GlobalGap: 5}
	g.SetDefaults()
	day := model.DateConfig{
		Date:  date,
		Hours: model.Window{Start: model.Clock(9, 0), End: model.Clock(17, 30)},
		Activities: []model.Activity{
			{Name: "discussion", Mode: model.ModeBatched, Duration: 30, RoomType: "discussion_room", MinCapacity: 1, MaxCapacity: 6},
			{Name: "prep", Mode: model.ModeParallel, Duration: 5, RoomType: "prep_room"},
			{Name: "interview", Mode: model.ModeIndividual, Duration: 15, RoomType: "interview_room"},
		},
		Rooms: model.ExpandRooms(map[string]model.RoomSpec{
			"discussion_room": {Count: 1, Capacity: 6},
			"prep_room":       {Count: 1, Capacity: 4},
			"interview_room":  {Count: 1, Capacity: 1},
		}),
	}
	return validate.New(day, g)
}

func block(cand, act, room string, start model.Minute, d int, group string) model.ScheduleItem {
	return model.ScheduleItem{Date: date, CandidateID: cand, JobCode: "JOB01", Activity: act, Room: room,
		Start: start, End: start + model.Minute(d), GroupID: group}
}

func oneGroup(members ...string) []model.Group {
	return []model.Group{{ID: "g1", JobCode: "JOB01", Activity: "discussion", Members: members}}
}

func TestScoreBetter(t *testing.T) {
	assert.True(t, Score{Total: 10, Max: 9}.Better(Score{Total: 11, Max: 1}))
	assert.True(t, Score{Total: 10, Max: 5}.Better(Score{Total: 10, Max: 6}))
	assert.False(t, Score{Total: 10, Max: 6}.Better(Score{Total: 10, Max: 6}))
}

func TestOptimizeShortensStay(t *testing.T) {
	c := checker()
	items := []model.ScheduleItem{
		block("a", "discussion", "discussion_room-1", model.Clock(9, 0), 30, "g1"),
		block("a", "interview", "interview_room-1", model.Clock(11, 0), 15, ""),
	}
	groups := oneGroup("a")
	require.Empty(t, c.Schedule(items, groups))

	out, rep := New(c, 3, 0, nil).Optimize(context.Background(), items, groups)
	assert.Empty(t, c.Schedule(out, groups))
	assert.Equal(t, 135, rep.Before.Total)
	assert.Equal(t, 50, rep.After.Total)
	assert.Positive(t, rep.Applied)
	assert.Equal(t, model.Clock(11, 0), items[1].Start, "input is not modified")
}

func TestOptimizeKeepsOptimalSchedule(t *testing.T) {
	c := checker()
	items := []model.ScheduleItem{
		block("a", "discussion", "discussion_room-1", model.Clock(9, 0), 30, "g1"),
		block("a", "interview", "interview_room-1", model.Clock(9, 35), 15, ""),
	}
	out, rep := New(c, 3, 0, nil).Optimize(context.Background(), items, oneGroup("a"))
	assert.Equal(t, items, out)
	assert.Zero(t, rep.Applied)
	assert.Equal(t, rep.Before, rep.After)
}

func TestOptimizeRespectsRoomCapacity(t *testing.T) {
	c := checker()
	items := []model.ScheduleItem{
		block("a", "prep", "prep_room-1", model.Clock(9, 0), 5, ""),
		block("a", "interview", "interview_room-1", model.Clock(11, 0), 15, ""),
		block("b", "interview", "interview_room-1", model.Clock(9, 10), 15, ""),
	}
	out, rep := New(c, 3, 0, nil).Optimize(context.Background(), items, nil)
	assert.Empty(t, c.Schedule(out, nil))
	assert.True(t, rep.After.Better(rep.Before))
	var ai, bi model.ScheduleItem
	for _, it := range out {
		if it.Activity == "interview" && it.CandidateID == "a" {
			ai = it
		}
		if it.CandidateID == "b" {
			bi = it
		}
	}
	assert.False(t, ai.Overlaps(bi))
}

func TestOptimizeStopsOnCancelledContext(t *testing.T) {
	c := checker()
	items := []model.ScheduleItem{
		block("a", "discussion", "discussion_room-1", model.Clock(9, 0), 30, "g1"),
		block("a", "interview", "interview_room-1", model.Clock(11, 0), 15, ""),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, rep := New(c, 3, 0, nil).Optimize(ctx, items, oneGroup("a"))
	assert.Equal(t, items, out)
	assert.Zero(t, rep.Passes)
}

func TestEnforceResolvesViolator(t *testing.T) {
	c := checker()
	items := []model.ScheduleItem{
		block("a", "discussion", "discussion_room-1", model.Clock(9, 0), 30, "g1"),
		block("a", "interview", "interview_room-1", model.Clock(11, 0), 15, ""),
	}
	out, left := New(c, 3, 0, nil).Enforce(context.Background(), items, oneGroup("a"), 60)
	assert.Empty(t, left)
	assert.Empty(t, c.Schedule(out, oneGroup("a")))
	assert.LessOrEqual(t, model.StayMinutes(out), 60)
}

func TestEnforceReportsResidualViolators(t *testing.T) {
	c := checker()
	items := []model.ScheduleItem{
		block("a", "discussion", "discussion_room-1", model.Clock(9, 0), 30, "g1"),
		block("a", "interview", "interview_room-1", model.Clock(11, 0), 15, ""),
	}
	for i := 0; i < 7; i++ {
		start := model.Clock(9, 10) + model.Minute(15*i)
		items = append(items, block(fmt.Sprintf("c%d", i), "interview", "interview_room-1", start, 15, ""))
	}
	groups := oneGroup("a")
	require.Empty(t, c.Schedule(items, groups))

	out, left := New(c, 3, 0, nil).Enforce(context.Background(), items, groups, 40)
	require.Len(t, left, 1)
	assert.Equal(t, "a", left[0].CandidateID)
	assert.Equal(t, 50, left[0].Stay)
	assert.Empty(t, c.Schedule(out, groups))
}

func TestTxnDoesNotTouchInput(t *testing.T) {
	items := []model.ScheduleItem{block("a", "prep", "prep_room-1", model.Clock(9, 0), 5, "")}
	tx := Begin(items).Shift([]int{0}, 10, "prep_room-2")
	assert.Equal(t, model.Clock(9, 10), tx.Items()[0].Start)
	assert.Equal(t, "prep_room-2", tx.Touched()[0].Room)
	assert.Equal(t, model.Clock(9, 0), items[0].Start)
}
