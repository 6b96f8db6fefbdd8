package model

import (
	"sort"
	"time"
)

// Stage tags an item that belongs to an atomic chain of adjacent activities.
// The zero value marks a standalone item.
type Stage struct {
	Chain string `json:"chain,omitempty"`
	Step  int    `json:"step,omitempty"`
}

// ScheduleItem is the atomic output unit: one candidate performing one
// activity in one room.
type ScheduleItem struct {
	Date        time.Time `json:"date"`
	CandidateID string    `json:"candidate_id"`
	JobCode     string    `json:"job_code"`
	Activity    string    `json:"activity_name"`
	Room        string    `json:"room_name"`
	Start       Minute    `json:"start"`
	End         Minute    `json:"end"`
	GroupID     string    `json:"group_id,omitempty"`
	Stage       Stage     `json:"stage,omitempty"`
}

// Overlaps reports whether two items intersect in time.
func (it ScheduleItem) Overlaps(o ScheduleItem) bool {
	return it.Start < o.End && o.Start < it.End
}

// SortItems orders items by date, start, room and candidate.
func SortItems(items []ScheduleItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Room != b.Room {
			return a.Room < b.Room
		}
		if a.CandidateID != b.CandidateID {
			return a.CandidateID < b.CandidateID
		}
		return a.Activity < b.Activity
	})
}

// ByCandidate indexes items per candidate, each list sorted by start.
func ByCandidate(items []ScheduleItem) map[string][]ScheduleItem {
	out := make(map[string][]ScheduleItem)
	for _, it := range items {
		out[it.CandidateID] = append(out[it.CandidateID], it)
	}
	for _, list := range out {
		sort.Slice(list, func(i, j int) bool { return list[i].Start < list[j].Start })
	}
	return out
}

// StayMinutes returns the span between the earliest start and latest end of
// the items. It returns 0 for an empty list.
func StayMinutes(items []ScheduleItem) int {
	if len(items) == 0 {
		return 0
	}
	first, last := items[0].Start, items[0].End
	for _, it := range items[1:] {
		if it.Start < first {
			first = it.Start
		}
		if it.End > last {
			last = it.End
		}
	}
	return int(last - first)
}

// StayByCandidate computes stay minutes for every candidate present in items.
func StayByCandidate(items []ScheduleItem) map[string]int {
	out := make(map[string]int)
	for id, list := range ByCandidate(items) {
		out[id] = StayMinutes(list)
	}
	return out
}
