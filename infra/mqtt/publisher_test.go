package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jayquinn/interview-scheduler/core/events"
	"github.com/jayquinn/interview-scheduler/core/model"
)

type message struct {
	kind, topic string
	payload     []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (f *fakePublisher) PublishJSON(kind, topic string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, message{kind, topic, b})
	return f.err
}

func (f *fakePublisher) messages() []message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]message(nil), f.msgs...)
}

func TestPublishProgress(t *testing.T) {
	fp := &fakePublisher{}
	p := NewProgressPublisher(fp, "")
	ev := events.Progress{RunID: "r", Date: "2025-07-01", Checkpoint: events.GroupsFormed, Placed: 0, Total: 6,
		Status: model.StatusPartial}
	require.NoError(t, p.PublishProgress(ev))

	msgs := fp.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "progress", msgs[0].kind)
	assert.Equal(t, "scheduler/2025-07-01/progress", msgs[0].topic)
	var got events.Progress
	require.NoError(t, json.Unmarshal(msgs[0].payload, &got))
	assert.Equal(t, events.GroupsFormed, got.Checkpoint)
	assert.Equal(t, model.StatusPartial, got.Status)
}

func TestPublishSummary(t *testing.T) {
	fp := &fakePublisher{}
	p := NewProgressPublisher(fp, "site-a")
	date := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	rooms := []model.Room{{Name: "r1", Type: "interview_room", Capacity: 1}, {Name: "r2", Type: "interview_room", Capacity: 1}}
	res := model.DayResult{Date: date, Status: model.StatusPartial, Items: []model.ScheduleItem{
		{Date: date, CandidateID: "c1", Room: "r1", Start: model.Clock(9, 0), End: model.Clock(9, 30)},
	}}
	res.Diagnostics.Candidates = 2
	res.Diagnostics.Placed = 1
	res.Diagnostics.Unscheduled = []model.Unscheduled{{CandidateID: "c2"}}
	s := Summarize("run", rooms, res)
	assert.Equal(t, 1, s.Unscheduled)
	assert.Greater(t, s.RoomBalance, 0.0)

	require.NoError(t, p.PublishSummary(s))
	msgs := fp.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "site-a/2025-07-01/summary", msgs[0].topic)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].payload, &decoded))
	assert.Equal(t, "PARTIAL", decoded["status"])
	assert.Equal(t, "run", decoded["run_id"])
}

func TestConsumeStopsWhenChannelCloses(t *testing.T) {
	fp := &fakePublisher{err: errors.New("offline")}
	p := NewProgressPublisher(fp, "x")
	ch := make(chan events.Progress, 2)
	ch <- events.Progress{Date: "2025-07-01", Checkpoint: events.DayDone}
	ch <- events.Progress{Date: "2025-07-02", Checkpoint: events.DayDone}
	close(ch)

	var errs []error
	p.Consume(context.Background(), ch, func(err error) { errs = append(errs, err) })
	assert.Len(t, fp.messages(), 2)
	assert.Len(t, errs, 2)
}

func TestConsumeStopsOnCancel(t *testing.T) {
	p := NewProgressPublisher(&fakePublisher{}, "x")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Consume(ctx, make(chan events.Progress), nil)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("consume did not stop")
	}
}
