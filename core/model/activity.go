package model

import (
	"fmt"
	"sort"
	"strings"
)

// Activity is an immutable catalog entry describing one interview step.
type Activity struct {
	Name     string `json:"name"`
	Mode     Mode   `json:"mode"`
	Duration int    `json:"duration_minutes"`
	RoomType string `json:"room_type"`
	// MinCapacity and MaxCapacity bound the group size of batched activities.
	MinCapacity int `json:"min_capacity,omitempty"`
	MaxCapacity int `json:"max_capacity,omitempty"`
}

// Batched reports whether the activity is performed by groups.
func (a Activity) Batched() bool { return a.Mode == ModeBatched }

// Validate checks the activity configuration.
func (a Activity) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("activity name is required")
	}
	if a.Duration <= 0 {
		return fmt.Errorf("activity %s: duration must be positive", a.Name)
	}
	if a.RoomType == "" {
		return fmt.Errorf("activity %s: room type is required", a.Name)
	}
	if a.Batched() {
		if a.MaxCapacity <= 0 {
			return fmt.Errorf("activity %s: max capacity must be positive", a.Name)
		}
		if a.MinCapacity > a.MaxCapacity {
			return fmt.Errorf("activity %s: min capacity %d exceeds max capacity %d", a.Name, a.MinCapacity, a.MaxCapacity)
		}
	}
	return nil
}

// Room is a physical room of a given type.
type Room struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Capacity int    `json:"capacity"`
}

// RoomSpec describes a homogeneous pool of rooms.
type RoomSpec struct {
	Count    int `json:"count" yaml:"count"`
	Capacity int `json:"capacity" yaml:"capacity"`
}

// ExpandRooms turns per-type specs into named rooms, sorted by type then index.
// Rooms are named "<type>-<n>" starting at 1.
func ExpandRooms(specs map[string]RoomSpec) []Room {
	types := make([]string, 0, len(specs))
	for t := range specs {
		types = append(types, t)
	}
	sort.Strings(types)
	var rooms []Room
	for _, t := range types {
		spec := specs[t]
		capacity := spec.Capacity
		if capacity <= 0 {
			capacity = 1
		}
		for i := 0; i < spec.Count; i++ {
			rooms = append(rooms, Room{Name: fmt.Sprintf("%s-%d", t, i+1), Type: t, Capacity: capacity})
		}
	}
	return rooms
}

// Candidate is a person attending the interview day.
type Candidate struct {
	ID         string   `json:"id"`
	JobCode    string   `json:"job_code"`
	Activities []string `json:"activities"`
	// Placeholder candidates only pad batched groups to their minimum size.
	Placeholder bool `json:"-"`
}

// Needs reports whether the candidate performs the named activity.
func (c Candidate) Needs(activity string) bool {
	for _, a := range c.Activities {
		if a == activity {
			return true
		}
	}
	return false
}

// DummyPrefix marks placeholder candidate IDs.
const DummyPrefix = "DUMMY-"

// IsDummyID reports whether id belongs to a placeholder candidate.
func IsDummyID(id string) bool { return strings.HasPrefix(id, DummyPrefix) }

// Group is a capacity-bounded, single-job-code set of candidates sharing one
// batched activity block.
type Group struct {
	ID       string   `json:"id"`
	JobCode  string   `json:"job_code"`
	Activity string   `json:"activity"`
	Members  []string `json:"members"`
	Dummies  int      `json:"dummies"`
}

// Size returns the group size including placeholders.
func (g Group) Size() int { return len(g.Members) }

// RealMembers returns members that are not placeholders.
func (g Group) RealMembers() []string {
	out := make([]string, 0, len(g.Members)-g.Dummies)
	for _, m := range g.Members {
		if !IsDummyID(m) {
			out = append(out, m)
		}
	}
	return out
}

// PrecedenceRule orders two activities of the same candidate.
type PrecedenceRule struct {
	Predecessor string `json:"predecessor"`
	Successor   string `json:"successor"`
	Gap         int    `json:"gap_minutes"`
	// Adjacent requires the successor to start exactly Gap minutes after the
	// predecessor ends.
	Adjacent bool `json:"adjacent"`
}

// Satisfied reports whether a predecessor ending at predEnd and a successor
// starting at succStart honor the rule.
func (r PrecedenceRule) Satisfied(predEnd, succStart Minute) bool {
	d := int(succStart - predEnd)
	if r.Adjacent {
		return d == r.Gap
	}
	return d >= r.Gap
}
