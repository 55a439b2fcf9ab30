package telemetry

import (
	"reflect"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"
)

type panickingMetrics struct{}

func (panickingMetrics) IncCounter(string, float64, ...string) { panic("boom") }

func (panickingMetrics) RecordTimer(string, time.Duration, ...string) { panic("boom") }

func TestSafeSwallowsPanics(t *testing.T) {
	metrics := Safe(panickingMetrics{})

	metrics.IncCounter("sync.turn_started", 1)
	metrics.RecordTimer("sync.turn_completed", time.Second)
}

func TestSafeNilIsNoop(t *testing.T) {
	if _, ok := Safe(nil).(NoopMetrics); !ok {
		t.Fatalf("expected nil sink to become NoopMetrics")
	}
}

func TestTags(t *testing.T) {
	testCases := []struct {
		name     string
		keyvals  []any
		expected []string
	}{
		{name: "strings", keyvals: []any{"turnId", "srv-1"}, expected: []string{"turnId", "srv-1"}},
		{name: "bool values", keyvals: []any{"cancelled", true, "hasAppliedPatch", false}, expected: []string{"cancelled", "true", "hasAppliedPatch", "false"}},
		{name: "odd key", keyvals: []any{"turnId"}, expected: []string{"turnId", ""}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := Tags(testCase.keyvals...); !reflect.DeepEqual(got, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, got)
			}
		})
	}
}

func TestRecorderForwardsAndFilters(t *testing.T) {
	inner := NewRecorder(nil)
	recorder := NewRecorder(inner)

	recorder.IncCounter("sync.turn_started", 1, "turnId", "a")
	recorder.RecordTimer("sync.turn_completed", 2*time.Second, "turnId", "a", "cancelled", "true")

	if got := len(recorder.Samples("")); got != 2 {
		t.Fatalf("expected two samples, got %d", got)
	}
	last, ok := recorder.Last("sync.turn_completed")
	if !ok || last.Duration != 2*time.Second || last.Tags["cancelled"] != "true" {
		t.Fatalf("unexpected timer sample %+v", last)
	}
	if got := len(inner.Samples("")); got != 2 {
		t.Fatalf("expected samples to be forwarded, got %d", got)
	}
}

func TestOTelMetricsAcceptsCalls(t *testing.T) {
	metrics := NewOTelMetrics(noop.NewMeterProvider())

	metrics.IncCounter("sync.turn_started", 1, "turnId", "a")
	metrics.IncCounter("sync.turn_started", 1, "turnId", "b")
	metrics.RecordTimer("sync.turn_completed", time.Second, "turnId", "a")
}
