package telemetry

import (
	"slices"
	"sync"
	"time"
)

type SampleKind string

const (
	SampleCounter SampleKind = "counter"
	SampleTimer   SampleKind = "timer"
)

// Sample is one recorded metric call.
type Sample struct {
	Kind     SampleKind
	Name     string
	Value    float64
	Duration time.Duration
	Tags     map[string]string
}

// Recorder keeps every metric call in memory and optionally forwards it.
type Recorder struct {
	mu      sync.Mutex
	samples []Sample
	next    Metrics
}

func NewRecorder(next Metrics) *Recorder {
	return &Recorder{next: next}
}

func (r *Recorder) IncCounter(name string, value float64, tags ...string) {
	r.record(Sample{Kind: SampleCounter, Name: name, Value: value, Tags: TagMap(tags)})
	if r.next != nil {
		r.next.IncCounter(name, value, tags...)
	}
}

func (r *Recorder) RecordTimer(name string, duration time.Duration, tags ...string) {
	r.record(Sample{Kind: SampleTimer, Name: name, Duration: duration, Tags: TagMap(tags)})
	if r.next != nil {
		r.next.RecordTimer(name, duration, tags...)
	}
}

func (r *Recorder) record(sample Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, sample)
}

// Samples returns the samples recorded under name, oldest first. An empty
// name returns all of them.
func (r *Recorder) Samples(name string) []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return slices.Clone(r.samples)
	}
	var filtered []Sample
	for _, sample := range r.samples {
		if sample.Name == name {
			filtered = append(filtered, sample)
		}
	}
	return filtered
}

// Last returns the most recent sample recorded under name.
func (r *Recorder) Last(name string) (Sample, bool) {
	samples := r.Samples(name)
	if len(samples) == 0 {
		return Sample{}, false
	}
	return samples[len(samples)-1], true
}
