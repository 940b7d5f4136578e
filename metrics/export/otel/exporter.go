package otel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument names. Engine counters share one instrument and are told apart
// by the EventKey attribute.
const (
	EventsName = "goaccount_auth_events_total"
	EventKey   = attribute.Key("event")
	BucketKey  = attribute.Key("le")
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no snapshot source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goAccount.MetricsSnapshot
	AuditDropped() uint64
}

type eventSeries struct {
	id   goAccount.MetricID
	attr metric.ObserveOption
}

type latencySeries struct {
	id      goAccount.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// Exporter reads engine snapshots on every collection and reports them through
// observable instruments. Close releases the callback.
type Exporter struct {
	source       metricsSource
	registration metric.Registration

	events       metric.Int64ObservableCounter
	eventSeries  []eventSeries
	latency      []latencySeries
	bucketAttrs  []metric.ObserveOption
	auditDropped metric.Int64ObservableCounter
}

// NewExporter registers instruments on meter that read from engine.
func NewExporter(meter metric.Meter, engine *goAccount.Engine) (*Exporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewExporterFromSource(meter, engine)
}

// NewExporterFromSource registers instruments on meter that read from source.
// Each latency histogram becomes a cumulative bucket gauge keyed by BucketKey
// and a count gauge.
func NewExporterFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	var err error

	e.events, err = meter.Int64ObservableCounter(EventsName,
		metric.WithDescription("Authentication outcomes by event."),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create events counter: %w", err)
	}
	for _, def := range internaldefs.CounterDefs {
		e.eventSeries = append(e.eventSeries, eventSeries{
			id:   def.ID,
			attr: metric.WithAttributes(EventKey.String(eventName(def.Name))),
		})
	}

	for _, label := range internaldefs.HistogramBucketLabels {
		e.bucketAttrs = append(e.bucketAttrs, metric.WithAttributes(BucketKey.String(label)))
	}
	observables := []metric.Observable{e.events}
	for _, def := range internaldefs.HistogramDefs {
		s := latencySeries{id: def.ID}
		if s.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket", metric.WithDescription(def.Help)); err != nil {
			return nil, fmt.Errorf("create bucket gauge %s: %w", def.Name, err)
		}
		if s.count, err = meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription(def.Help)); err != nil {
			return nil, fmt.Errorf("create count gauge %s: %w", def.Name, err)
		}
		e.latency = append(e.latency, s)
		observables = append(observables, s.buckets, s.count)
	}

	e.auditDropped, err = meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription(internaldefs.AuditDroppedHelp),
	)
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	observables = append(observables, e.auditDropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()

	for _, s := range e.eventSeries {
		if v, ok := snapshot.Counters[s.id]; ok {
			o.ObserveInt64(e.events, int64(v), s.attr)
		}
	}
	for _, s := range e.latency {
		raw, ok := snapshot.Histograms[s.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, v := range cumulative {
			o.ObserveInt64(s.buckets, int64(v), e.bucketAttrs[i])
		}
		o.ObserveInt64(s.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}

// eventName turns "goaccount_login_success_total" into "login_success".
func eventName(metricName string) string {
	return strings.TrimSuffix(strings.TrimPrefix(metricName, "goaccount_"), "_total")
}
