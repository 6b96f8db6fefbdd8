package metrics

import "github.com/jayquinn/interview-scheduler/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// PrometheusPort starts a /metrics listener when set.
	PrometheusPort string `json:"prometheus_port"`
}
