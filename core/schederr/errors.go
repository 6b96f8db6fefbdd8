// Package schederr defines the error taxonomy shared by the scheduling engine.
package schederr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies scheduling failures.
type Kind int

const (
	// KindConfig flags impossible or inconsistent configuration.
	KindConfig Kind = iota + 1
	// KindCapacity flags a group or candidate without any feasible room/time.
	KindCapacity
	// KindConstraint flags a placement that would break precedence or gap rules.
	KindConstraint
	// KindTimeout flags a day that exceeded its wall-clock budget.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "ConfigError"
	case KindCapacity:
		return "CapacityExhausted"
	case KindConstraint:
		return "ConstraintViolation"
	case KindTimeout:
		return "Timeout"
	default:
		return "UnknownError"
	}
}

// Sentinels usable with errors.Is.
var (
	ErrConfig              = &Error{Kind: KindConfig, Msg: "invalid configuration"}
	ErrCapacityExhausted   = &Error{Kind: KindCapacity, Msg: "capacity exhausted"}
	ErrConstraintViolation = &Error{Kind: KindConstraint, Msg: "constraint violation"}
	ErrTimeout             = &Error{Kind: KindTimeout, Msg: "time budget exceeded"}
)

// Error is a typed scheduling error.
type Error struct {
	Kind Kind
	// Activity names the activity involved, if any.
	Activity string
	// Subject names the group, candidate or day involved, if any.
	Subject string
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Activity != "" {
		b.WriteString(" [")
		b.WriteString(e.Activity)
		b.WriteString("]")
	}
	if e.Subject != "" {
		b.WriteString(" ")
		b.WriteString(e.Subject)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors of the same kind so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Config returns a ConfigError.
func Config(activity, format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Activity: activity, Msg: fmt.Sprintf(format, args...)}
}

// Capacity returns a CapacityExhausted error for the given subject.
func Capacity(activity, subject, format string, args ...any) *Error {
	return &Error{Kind: KindCapacity, Activity: activity, Subject: subject, Msg: fmt.Sprintf(format, args...)}
}

// Constraint returns a ConstraintViolation error.
func Constraint(activity, subject, format string, args ...any) *Error {
	return &Error{Kind: KindConstraint, Activity: activity, Subject: subject, Msg: fmt.Sprintf(format, args...)}
}

// Timeout wraps err as a Timeout for the given day.
func Timeout(subject string, err error) *Error {
	return &Error{Kind: KindTimeout, Subject: subject, Msg: "day wall-clock budget exceeded", Err: err}
}

// KindOf returns the kind of err or 0 when err is not a scheduling error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
