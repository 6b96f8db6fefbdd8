// Package metrics defines the sinks that record scheduling outcomes. Sinks
// like PromSink and InfluxSink live in infra/metrics and register themselves
// by type name; NewSink builds one from configuration and wraps several in a
// MultiSink.
package metrics
