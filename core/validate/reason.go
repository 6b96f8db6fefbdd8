package validate

import (
	"fmt"
	"sort"
	"strings"
)

// Reason names the constraint a placement or schedule breaks.
type Reason string

const (
	RoomBusy      Reason = "room_busy"
	CandidateBusy Reason = "candidate_busy"
	Precedence    Reason = "precedence"
	Gap           Reason = "global_gap"
	Window        Reason = "window"
	Grid          Reason = "grid"
	Lunch         Reason = "lunch"
	StayCap       Reason = "stay_cap"
	GroupSize     Reason = "group_size"
	GroupSplit    Reason = "group_split"
	RoomType      Reason = "room_type"
	Placeholder   Reason = "placeholder"
	Unknown       Reason = "unknown_activity"
)

// Violation is one broken invariant.
type Violation struct {
	Reason  Reason
	Subject string
	Detail  string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s: %s", v.Reason, v.Subject, v.Detail)
}

// Counts tallies blocking reasons while searching for a placement.
type Counts map[Reason]int

// Add records one occurrence of r.
func (c Counts) Add(r Reason) {
	if r != "" {
		c[r]++
	}
}

// Dominant returns the most frequent reason, ties broken by name.
func (c Counts) Dominant() Reason {
	var best Reason
	n := -1
	for r, k := range c {
		if k > n || (k == n && r < best) {
			best, n = r, k
		}
	}
	return best
}

// String renders "reason=count" pairs sorted by reason.
func (c Counts) String() string {
	keys := make([]string, 0, len(c))
	for r := range c {
		keys = append(keys, string(r))
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, c[Reason(k)])
	}
	return strings.Join(parts, " ")
}
