package model

import "time"

// Unscheduled explains why a candidate could not be fully placed.
type Unscheduled struct {
	CandidateID string `json:"candidate_id"`
	JobCode     string `json:"job_code"`
	Activity    string `json:"activity"`
	Reason      string `json:"reason"`
}

// FailedGroup explains why a batched group could not be placed.
type FailedGroup struct {
	GroupID  string `json:"group_id"`
	Activity string `json:"activity"`
	Reason   string `json:"reason"`
}

// CapViolation records a candidate whose stay exceeds the day cap.
type CapViolation struct {
	CandidateID string `json:"candidate_id"`
	Stay        int    `json:"stay_minutes"`
	Cap         int    `json:"cap_minutes"`
}

// StayStats summarizes the stay-time distribution of a schedule, in minutes.
type StayStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

// Diagnostics describes a day result.
type Diagnostics struct {
	Candidates int `json:"candidates"`
	Placed     int `json:"placed"`
	Dummies    int `json:"dummies"`
	Groups     int `json:"groups"`
	// HardCap is the last stay cap, in minutes, attempted for the day.
	// CapViolations are measured against it.
	HardCap int `json:"hard_cap_minutes"`
	// AdoptedCap is the cap the returned items were computed under. It is
	// looser than HardCap when a tighter phase was discarded.
	AdoptedCap    int            `json:"adopted_cap_minutes"`
	Stats         StayStats      `json:"stats"`
	Unscheduled   []Unscheduled  `json:"unscheduled,omitempty"`
	FailedGroups  []FailedGroup  `json:"failed_groups,omitempty"`
	CapViolations []CapViolation `json:"cap_violations,omitempty"`
	Violations    []string       `json:"violations,omitempty"`
	Error         string         `json:"error,omitempty"`
	Elapsed       time.Duration  `json:"elapsed"`
}

// PhaseStats compares the outcome of one iterative phase.
type PhaseStats struct {
	Phase   int       `json:"phase"`
	Cap     int       `json:"cap_minutes"`
	Status  Status    `json:"status"`
	Placed  int       `json:"placed"`
	Stats   StayStats `json:"stats"`
	Adopted bool      `json:"adopted"`
}

// DayResult is the scheduling outcome of one day.
type DayResult struct {
	Date        time.Time      `json:"date"`
	Status      Status         `json:"status"`
	Items       []ScheduleItem `json:"items"`
	Groups      []Group        `json:"groups,omitempty"`
	Diagnostics Diagnostics    `json:"diagnostics"`
	Phases      []PhaseStats   `json:"phases,omitempty"`
}

// Key returns the result date formatted with DateLayout.
func (r DayResult) Key() string { return r.Date.Format(DateLayout) }

// ScheduleResult is the overall multi-day outcome.
type ScheduleResult struct {
	RunID  string         `json:"run_id"`
	Status Status         `json:"status"`
	Items  []ScheduleItem `json:"items"`
	Days   []DayResult    `json:"days"`
}
