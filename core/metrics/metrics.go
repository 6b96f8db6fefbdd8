package metrics

import (
	"errors"

	"github.com/jayquinn/interview-scheduler/core/model"
)

// Sink records the outcome of each scheduled day.
type Sink interface {
	RecordDay(res model.DayResult) error
}

// PhaseRecorder is implemented by sinks able to record iterative phases.
type PhaseRecorder interface {
	RecordPhase(date string, ph model.PhaseStats) error
}

// NopSink implements Sink and PhaseRecorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDay(model.DayResult) error            { return nil }
func (NopSink) RecordPhase(string, model.PhaseStats) error { return nil }

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordDay forwards to every sink and joins their errors.
func (m *MultiSink) RecordDay(res model.DayResult) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordDay(res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordPhase forwards to sinks that support phases.
func (m *MultiSink) RecordPhase(date string, ph model.PhaseStats) error {
	var errs []error
	for _, s := range m.Sinks {
		if pr, ok := s.(PhaseRecorder); ok {
			if err := pr.RecordPhase(date, ph); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordResult records every day of a run and, when supported, its phases.
func RecordResult(s Sink, res model.ScheduleResult) error {
	if s == nil {
		return nil
	}
	var errs []error
	pr, _ := s.(PhaseRecorder)
	for _, d := range res.Days {
		if err := s.RecordDay(d); err != nil {
			errs = append(errs, err)
		}
		if pr == nil {
			continue
		}
		for _, ph := range d.Phases {
			if err := pr.RecordPhase(d.Key(), ph); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
