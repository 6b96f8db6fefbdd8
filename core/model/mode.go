package model

import (
	"fmt"
	"strings"
)

// Mode defines how candidates perform an activity.
type Mode int

const (
	// ModeIndividual activities hold a room exclusively for one candidate.
	ModeIndividual Mode = iota
	// ModeParallel activities share a room with other candidates up to its capacity.
	ModeParallel
	// ModeBatched activities are performed by a whole group at once.
	ModeBatched
)

// String returns a human-readable representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeIndividual:
		return "individual"
	case ModeParallel:
		return "parallel"
	case ModeBatched:
		return "batched"
	default:
		return "unknown"
	}
}

// ParseMode converts a textual mode. Matching is case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "individual", "":
		return ModeIndividual, nil
	case "parallel":
		return ModeParallel, nil
	case "batched", "batch":
		return ModeBatched, nil
	default:
		return 0, fmt.Errorf("unknown activity mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Status is the outcome of a scheduling run. The zero value is
// StatusUnknown: a result nobody has decided yet.
type Status int

const (
	StatusUnknown Status = iota
	StatusSuccess
	StatusPartial
	StatusFailed
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "UNKNOWN"
	case StatusSuccess:
		return "SUCCESS"
	case StatusPartial:
		return "PARTIAL"
	case StatusFailed:
		return "FAILED"
	case StatusError:
		return "ERROR"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	switch strings.ToUpper(string(b)) {
	case "UNKNOWN", "":
		*s = StatusUnknown
	case "SUCCESS":
		*s = StatusSuccess
	case "PARTIAL":
		*s = StatusPartial
	case "FAILED":
		*s = StatusFailed
	case "ERROR":
		*s = StatusError
	default:
		return fmt.Errorf("unknown status %q", string(b))
	}
	return nil
}
