// Package app wires configuration, logging, metrics, progress publishing and
// the scheduling engine into a Service.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/jayquinn/interview-scheduler/config"
	"github.com/jayquinn/interview-scheduler/core/events"
	coremetrics "github.com/jayquinn/interview-scheduler/core/metrics"
	"github.com/jayquinn/interview-scheduler/core/model"
	"github.com/jayquinn/interview-scheduler/core/orchestrator"
	"github.com/jayquinn/interview-scheduler/core/request"
	"github.com/jayquinn/interview-scheduler/infra/logger"
	"github.com/jayquinn/interview-scheduler/infra/metrics"
	"github.com/jayquinn/interview-scheduler/infra/mqtt"
	"github.com/jayquinn/interview-scheduler/internal/eventbus"
)

// Service schedules requests with the configured stack.
type Service struct {
	cfg       *config.Config
	log       logger.Logger
	sink      coremetrics.Sink
	bus       *eventbus.ProgressBus
	client    *mqtt.Client
	pub       *mqtt.ProgressPublisher
	observer  events.Observer
	stop      context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option customizes a Service.
type Option func(*Service)

// WithSink replaces the configured metrics sinks.
func WithSink(s coremetrics.Sink) Option {
	return func(svc *Service) { svc.sink = s }
}

// WithPublisher replaces the MQTT client used for progress publishing.
func WithPublisher(p mqtt.Publisher) Option {
	return func(svc *Service) {
		if p != nil {
			svc.pub = mqtt.NewProgressPublisher(p, svc.cfg.MQTT.TopicPrefix)
		}
	}
}

// WithObserver adds an observer called synchronously at every checkpoint.
func WithObserver(obs events.Observer) Option {
	return func(svc *Service) { svc.observer = events.Multi(svc.observer, obs) }
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	svc := &Service{cfg: cfg, log: logger.New("service"), bus: eventbus.NewProgressBus()}
	for _, opt := range opts {
		opt(svc)
	}

	if svc.sink == nil {
		sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
		svc.sink = sink
	}
	if svc.pub == nil && cfg.MQTT.Enabled {
		client, err := mqtt.NewClient(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.client = client
		svc.pub = mqtt.NewProgressPublisher(client, cfg.MQTT.TopicPrefix)
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc.stop = cancel
	if svc.pub != nil {
		sub := svc.bus.Subscribe()
		svc.wg.Add(1)
		go func() {
			defer svc.wg.Done()
			svc.pub.Consume(ctx, sub, func(err error) { svc.log.Warnf("publish progress: %v", err) })
		}()
	}
	return svc, nil
}

// ServeMetrics exposes Prometheus metrics until ctx is done when a port is
// configured.
func (s *Service) ServeMetrics(ctx context.Context) {
	port := s.cfg.Metrics.PrometheusPort
	if port == "" {
		return
	}
	go func() {
		if err := metrics.StartPromServer(ctx, port); err != nil {
			s.log.Errorf("prom server: %v", err)
		}
	}()
}

// Plan converts a request into the effective global configuration and days.
func (s *Service) Plan(req *request.Request) (model.GlobalConfig, []model.DateConfig, error) {
	g, err := req.Global(s.cfg.Scheduler)
	if err != nil {
		return g, nil, err
	}
	days, err := req.DateConfigs(g)
	if err != nil {
		return g, nil, err
	}
	return g, days, nil
}

// Schedule converts the request, runs every day, records metrics, publishes
// day summaries and returns the merged result.
func (s *Service) Schedule(ctx context.Context, req *request.Request) (model.ScheduleResult, error) {
	g, days, err := s.Plan(req)
	if err != nil {
		return model.ScheduleResult{}, err
	}
	orch := orchestrator.New(g,
		orchestrator.WithLogger(logger.New("orchestrator")),
		orchestrator.WithObserver(events.Multi(eventbus.ProgressObserver(s.bus), s.observer)),
	)
	res := orch.Run(ctx, days)

	if err := coremetrics.RecordResult(s.sink, res); err != nil {
		s.log.Warnf("record metrics: %v", err)
	}
	if s.pub != nil {
		rooms := make(map[string][]model.Room, len(days))
		for _, d := range days {
			rooms[d.Key()] = d.Rooms
		}
		for _, d := range res.Days {
			if err := s.pub.PublishSummary(mqtt.Summarize(res.RunID, rooms[d.Key()], d)); err != nil {
				s.log.Warnf("publish summary %s: %v", d.Key(), err)
			}
		}
	}
	s.log.Infof("run %s finished: %s, %d days, %d items", res.RunID, res.Status, len(res.Days), len(res.Items))
	return res, nil
}

// Close releases the bus, the progress consumer and the MQTT client.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		s.bus.Close()
		s.wg.Wait()
		s.stop()
		if s.client != nil {
			s.client.Disconnect()
		}
		if c, ok := s.sink.(interface{ Close() }); ok {
			c.Close()
		}
	})
	return nil
}
