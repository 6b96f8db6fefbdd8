package mqtt

import (
	"context"
	"fmt"

	"github.com/jayquinn/interview-scheduler/core/events"
	"github.com/jayquinn/interview-scheduler/core/model"
	"github.com/jayquinn/interview-scheduler/core/stats"
)

// Publisher is the part of Client used by ProgressPublisher.
type Publisher interface {
	PublishJSON(kind, topic string, v any) error
}

// ProgressPublisher sends progress checkpoints and day summaries to
// "<prefix>/<date>/progress" and "<prefix>/<date>/summary".
type ProgressPublisher struct {
	pub    Publisher
	prefix string
}

// NewProgressPublisher wraps pub. An empty prefix defaults to "scheduler".
func NewProgressPublisher(pub Publisher, prefix string) *ProgressPublisher {
	if prefix == "" {
		prefix = "scheduler"
	}
	return &ProgressPublisher{pub: pub, prefix: prefix}
}

// DaySummary is the payload published once per scheduled day.
type DaySummary struct {
	RunID       string             `json:"run_id,omitempty"`
	Date        string             `json:"date"`
	Status      model.Status       `json:"status"`
	Candidates  int                `json:"candidates"`
	Placed      int                `json:"placed"`
	Unscheduled int                `json:"unscheduled"`
	HardCap     int                `json:"hard_cap_minutes"`
	AdoptedCap  int                `json:"adopted_cap_minutes"`
	Stats       model.StayStats    `json:"stats"`
	Phases      []model.PhaseStats `json:"phases,omitempty"`
	RoomBalance float64            `json:"room_balance"`
}

// Summarize builds the summary of one day.
func Summarize(runID string, rooms []model.Room, res model.DayResult) DaySummary {
	return DaySummary{
		RunID:       runID,
		Date:        res.Key(),
		Status:      res.Status,
		Candidates:  res.Diagnostics.Candidates,
		Placed:      res.Diagnostics.Placed,
		Unscheduled: len(res.Diagnostics.Unscheduled),
		HardCap:     res.Diagnostics.HardCap,
		AdoptedCap:  res.Diagnostics.AdoptedCap,
		Stats:       res.Diagnostics.Stats,
		Phases:      res.Phases,
		RoomBalance: stats.RoomBalance(rooms, res.Items),
	}
}

// PublishProgress publishes one checkpoint.
func (p *ProgressPublisher) PublishProgress(ev events.Progress) error {
	return p.pub.PublishJSON("progress", fmt.Sprintf("%s/%s/progress", p.prefix, ev.Date), ev)
}

// PublishSummary publishes a day summary.
func (p *ProgressPublisher) PublishSummary(s DaySummary) error {
	return p.pub.PublishJSON("summary", fmt.Sprintf("%s/%s/summary", p.prefix, s.Date), s)
}

// Consume publishes progress received on ch until it closes or ctx is done.
// Failed publishes are reported to onErr when set.
func (p *ProgressPublisher) Consume(ctx context.Context, ch <-chan events.Progress, onErr func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := p.PublishProgress(ev); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}
