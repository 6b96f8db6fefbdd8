// Package infra holds the technical adapters of the scheduler: the zerolog
// logger, Prometheus and InfluxDB metrics sinks and the MQTT progress
// publisher. They implement contracts declared under core.
package infra
