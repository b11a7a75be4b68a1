// Package prommetrics records crmquery metrics as Prometheus collectors.
package prommetrics

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-crmquery/core"
)

// DurationBuckets are milliseconds, sized for remote query round trips.
var DurationBuckets = []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

type Recorder struct {
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	labels     map[string][]string
}

// NewRecorder registers collectors lazily on registerer, one per metric
// name. The label set of a metric is fixed by its first observation.
func NewRecorder(registerer prometheus.Registerer) *Recorder {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Recorder{
		registerer: registerer,
		counters:   map[string]*prometheus.CounterVec{},
		histograms: map[string]*prometheus.HistogramVec{},
		labels:     map[string][]string{},
	}
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	vec, ok := r.counters[name]
	if !ok {
		labels := labelNames(tags)
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricName(name),
			Help: "crmquery counter " + name,
		}, labels)
		vec = registerCollector(r.registerer, vec)
		r.counters[name] = vec
		r.labels[name] = labels
	}
	vec.With(project(r.labels[name], tags)).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	vec, ok := r.histograms[name]
	if !ok {
		labels := labelNames(tags)
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricName(name),
			Help:    "crmquery histogram " + name,
			Buckets: DurationBuckets,
		}, labels)
		vec = registerCollector(r.registerer, vec)
		r.histograms[name] = vec
		r.labels[name] = labels
	}
	vec.With(project(r.labels[name], tags)).Observe(value)
}

// MetricName maps "crmquery.query.total" to "crmquery_query_total".
func MetricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(strings.TrimSpace(name))
}

func registerCollector[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return collector
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for key := range tags {
		names = append(names, key)
	}
	sort.Strings(names)
	return names
}

func project(names []string, tags map[string]string) prometheus.Labels {
	labels := make(prometheus.Labels, len(names))
	for _, name := range names {
		labels[name] = tags[name]
	}
	return labels
}

var _ core.MetricsRecorder = (*Recorder)(nil)
