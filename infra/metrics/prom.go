package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/jayquinn/interview-scheduler/core/metrics"
	"github.com/jayquinn/interview-scheduler/core/day"
	"github.com/jayquinn/interview-scheduler/core/model"
	"github.com/jayquinn/interview-scheduler/core/stats"
)

// PromSink records day outcomes in Prometheus metrics.
type PromSink struct {
	days        *prometheus.CounterVec
	placed      prometheus.Counter
	unscheduled prometheus.Counter
	stay        prometheus.Histogram
	hardCap     *prometheus.GaugeVec
	phases      *prometheus.CounterVec
}

var (
	_ coremetrics.Sink          = (*PromSink)(nil)
	_ coremetrics.PhaseRecorder = (*PromSink)(nil)
)

// NewPromSink registers scheduler metrics on the default Prometheus registerer.
// The Prometheus server should be started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.days, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_days_total",
		Help: "Scheduled days by status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.placed, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_candidates_placed_total",
		Help: "Candidates with a complete schedule",
	})); err != nil {
		return nil, err
	}
	if s.unscheduled, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_candidates_unscheduled_total",
		Help: "Candidates that could not be fully placed",
	})); err != nil {
		return nil, err
	}
	if s.stay, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_stay_minutes",
		Help:    "Stay time of placed candidates in minutes",
		Buckets: prometheus.LinearBuckets(60, 60, 12),
	})); err != nil {
		return nil, err
	}
	if s.hardCap, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scheduler_hard_cap_minutes",
		Help: "Stay cap applied to the adopted schedule of a day",
	}, []string{"date"})); err != nil {
		return nil, err
	}
	if s.phases, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_phase_total",
		Help: "Iterative phases by number and status",
	}, []string{"phase", "status"})); err != nil {
		return nil, err
	}
	return s, nil
}

// register reuses an already registered collector of the same description.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

// RecordDay updates the counters and stay histogram for one day.
func (s *PromSink) RecordDay(res model.DayResult) error {
	s.days.WithLabelValues(res.Status.String()).Inc()
	s.placed.Add(float64(res.Diagnostics.Placed))
	s.unscheduled.Add(float64(len(res.Diagnostics.Unscheduled)))
	for _, st := range stats.StaysOf(day.Complete(res)) {
		s.stay.Observe(float64(st))
	}
	if res.Diagnostics.HardCap > 0 {
		s.hardCap.WithLabelValues(res.Key()).Set(float64(res.Diagnostics.HardCap))
	}
	return nil
}

// RecordPhase counts one iterative phase.
func (s *PromSink) RecordPhase(_ string, ph model.PhaseStats) error {
	s.phases.WithLabelValues(strconv.Itoa(ph.Phase), ph.Status.String()).Inc()
	return nil
}
