package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics records counters as Float64Counters and timers as
// Float64Histograms in seconds. It uses the global MeterProvider unless one
// is given.
type OTelMetrics struct {
	meter metric.Meter

	counters   sync.Map
	histograms sync.Map
}

func NewOTelMetrics(provider metric.MeterProvider) *OTelMetrics {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	return &OTelMetrics{meter: provider.Meter(scopeName)}
}

func (m *OTelMetrics) IncCounter(name string, value float64, tags ...string) {
	counter, err := m.counter(name)
	if err != nil {
		return
	}
	counter.Add(context.Background(), value, metric.WithAttributes(tagsToAttrs(tags)...))
}

func (m *OTelMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	histogram, err := m.histogram(name)
	if err != nil {
		return
	}
	histogram.Record(context.Background(), duration.Seconds(), metric.WithAttributes(tagsToAttrs(tags)...))
}

func (m *OTelMetrics) counter(name string) (metric.Float64Counter, error) {
	if cached, ok := m.counters.Load(name); ok {
		return cached.(metric.Float64Counter), nil
	}
	counter, err := m.meter.Float64Counter(name)
	if err != nil {
		return nil, err
	}
	m.counters.Store(name, counter)
	return counter, nil
}

func (m *OTelMetrics) histogram(name string) (metric.Float64Histogram, error) {
	if cached, ok := m.histograms.Load(name); ok {
		return cached.(metric.Float64Histogram), nil
	}
	histogram, err := m.meter.Float64Histogram(name, metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	m.histograms.Store(name, histogram)
	return histogram, nil
}

func tagsToAttrs(tags []string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for key, value := range TagMap(tags) {
		attrs = append(attrs, attribute.String(key, value))
	}
	return attrs
}
