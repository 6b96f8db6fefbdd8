package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Minute is a time of day expressed in minutes since midnight.
type Minute int

// Clock builds a Minute from hours and minutes.
func Clock(h, m int) Minute { return Minute(h*60 + m) }

// ParseClock parses "HH:MM" or "H:MM".
func ParseClock(s string) (Minute, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", s, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("clock out of range %q", s)
	}
	return Clock(h, m), nil
}

// String renders the minute as HH:MM.
func (m Minute) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// MarshalText implements encoding.TextMarshaler.
func (m Minute) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Minute) UnmarshalText(b []byte) error {
	v, err := ParseClock(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// OnGrid reports whether m is a multiple of the grid size g.
func (m Minute) OnGrid(g int) bool {
	if g <= 1 {
		return true
	}
	return int(m)%g == 0
}

// RoundToGrid rounds to the nearest multiple of g, halves rounding up.
func (m Minute) RoundToGrid(g int) Minute {
	if g <= 1 {
		return m
	}
	r := int(m) % g
	if r*2 >= g {
		return m + Minute(g-r)
	}
	return m - Minute(r)
}

// CeilToGrid rounds up to the next multiple of g.
func (m Minute) CeilToGrid(g int) Minute {
	if g <= 1 {
		return m
	}
	if r := int(m) % g; r != 0 {
		return m + Minute(g-r)
	}
	return m
}

// Window is a half-open interval [Start, End).
type Window struct {
	Start Minute `json:"start"`
	End   Minute `json:"end"`
}

// Len returns the window length in minutes.
func (w Window) Len() int { return int(w.End - w.Start) }

// Valid reports whether the window is non-empty.
func (w Window) Valid() bool { return w.End > w.Start }

// Contains reports whether [start, end) lies inside the window.
func (w Window) Contains(start, end Minute) bool {
	return start >= w.Start && end <= w.End
}

// Overlaps reports whether [start, end) intersects the window.
func (w Window) Overlaps(start, end Minute) bool {
	return start < w.End && w.Start < end
}

func (w Window) String() string { return w.Start.String() + "-" + w.End.String() }
