package events

import (
	"time"

	"github.com/jayquinn/interview-scheduler/core/model"
)

// Checkpoint names a point in the scheduling pipeline.
type Checkpoint string

const (
	GroupsFormed       Checkpoint = "groups_formed"
	BatchedAssigned    Checkpoint = "batched_assigned"
	IndividualAssigned Checkpoint = "individual_assigned"
	DayDone            Checkpoint = "day_done"
	PhaseDone          Checkpoint = "phase_done"
)

// Progress is one observed checkpoint.
type Progress struct {
	RunID      string       `json:"run_id,omitempty"`
	Date       string       `json:"date"`
	Phase      int          `json:"phase,omitempty"`
	Checkpoint Checkpoint   `json:"checkpoint"`
	Placed     int          `json:"placed"`
	Total      int          `json:"total"`
	Status     model.Status `json:"status"`
	Detail     string       `json:"detail,omitempty"`
	At         time.Time    `json:"at"`
}

// Observer receives progress synchronously and must not block.
type Observer func(Progress)

// Notify calls o when it is set, stamping the time if missing.
func (o Observer) Notify(p Progress) {
	if o == nil {
		return
	}
	if p.At.IsZero() {
		p.At = time.Now()
	}
	o(p)
}

// Multi fans a notification out to every non-nil observer.
func Multi(obs ...Observer) Observer {
	var live []Observer
	for _, o := range obs {
		if o != nil {
			live = append(live, o)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return func(p Progress) {
		for _, o := range live {
			o(p)
		}
	}
}

// WithPhase returns an observer that tags every notification with phase.
func (o Observer) WithPhase(phase int) Observer {
	if o == nil {
		return nil
	}
	return func(p Progress) {
		if p.Phase == 0 {
			p.Phase = phase
		}
		o(p)
	}
}
