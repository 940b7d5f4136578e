// Package otel bridges goAccount counters and the authentication latency
// histogram to OpenTelemetry observable instruments.
//
// All engine counters share the [EventsName] counter, one series per "event"
// attribute value. Each histogram becomes a cumulative bucket gauge with an
// "le" attribute plus a count gauge. One callback reads
// [goAccount.Engine.MetricsSnapshot] per collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
