// Package telemetry is the metrics sink used by the conversation controller.
// Tags are flat key/value string pairs (k1, v1, k2, v2, ...).
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const scopeName = "github.com/barringtb-hash/Exact-Virtual-Assistant-for-Project-Management-sub007/core/telemetry"

var logger = otelslog.NewLogger(scopeName)

// Metrics records counters and timers. Implementations must not block.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
}

type NoopMetrics struct{}

func (NoopMetrics) IncCounter(string, float64, ...string) {}

func (NoopMetrics) RecordTimer(string, time.Duration, ...string) {}

// Safe wraps a sink so a panicking implementation never reaches the caller.
// A nil sink becomes NoopMetrics.
func Safe(metrics Metrics) Metrics {
	switch typed := metrics.(type) {
	case nil:
		return NoopMetrics{}
	case safeMetrics, NoopMetrics:
		return typed
	}
	return safeMetrics{next: metrics}
}

type safeMetrics struct {
	next Metrics
}

func (m safeMetrics) IncCounter(name string, value float64, tags ...string) {
	defer recoverMetric(name)
	m.next.IncCounter(name, value, tags...)
}

func (m safeMetrics) RecordTimer(name string, duration time.Duration, tags ...string) {
	defer recoverMetric(name)
	m.next.RecordTimer(name, duration, tags...)
}

func recoverMetric(name string) {
	if r := recover(); r != nil {
		logger.WarnContext(context.Background(), "metrics sink panicked", "metric", name, "panic", fmt.Sprint(r))
	}
}

// Tags builds a tag list from alternating keys and values, formatting
// non-string values.
func Tags(keyvals ...any) []string {
	tags := make([]string, 0, len(keyvals)+len(keyvals)%2)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		value := ""
		if i+1 < len(keyvals) {
			value = fmt.Sprint(keyvals[i+1])
		}
		tags = append(tags, key, value)
	}
	return tags
}

// TagMap turns a tag list back into a map. An odd trailing key maps to "".
func TagMap(tags []string) map[string]string {
	m := make(map[string]string, len(tags)/2+1)
	for i := 0; i < len(tags); i += 2 {
		value := ""
		if i+1 < len(tags) {
			value = tags[i+1]
		}
		m[tags[i]] = value
	}
	return m
}
