package prommetrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-crmquery/core"
)

func TestRecorder_CountsByOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry)
	ctx := context.Background()

	recorder.IncCounter(ctx, core.MetricQueryTotal, 1, map[string]string{"outcome": "ok"})
	recorder.IncCounter(ctx, core.MetricQueryTotal, 1, map[string]string{"outcome": "ok"})
	recorder.IncCounter(ctx, core.MetricQueryTotal, 1, map[string]string{"outcome": "retried"})
	recorder.IncCounter(ctx, core.MetricQueryRetryTotal, 1, nil)

	vec := recorder.counters[core.MetricQueryTotal]
	if got := testutil.ToFloat64(vec.WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected 2 ok queries, got %v", got)
	}
	if got := testutil.ToFloat64(vec.WithLabelValues("retried")); got != 1 {
		t.Fatalf("expected 1 retried query, got %v", got)
	}
	if got := testutil.ToFloat64(recorder.counters[core.MetricQueryRetryTotal].WithLabelValues()); got != 1 {
		t.Fatalf("expected 1 retry, got %v", got)
	}
}

func TestRecorder_ObservesDurations(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry)
	recorder.ObserveHistogram(context.Background(), core.MetricQueryDuration, 120, map[string]string{"outcome": "ok"})

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 1 || families[0].GetName() != "crmquery_query_duration_ms" {
		t.Fatalf("unexpected families %v", families)
	}
	histogram := families[0].GetMetric()[0].GetHistogram()
	if histogram.GetSampleCount() != 1 || histogram.GetSampleSum() != 120 {
		t.Fatalf("unexpected histogram %v", histogram)
	}
}

func TestRecorder_ReusesRegisteredCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := NewRecorder(registry)
	second := NewRecorder(registry)
	ctx := context.Background()

	first.IncCounter(ctx, core.MetricTokenGrantTotal, 1, map[string]string{"outcome": "ok"})
	second.IncCounter(ctx, core.MetricTokenGrantTotal, 1, map[string]string{"outcome": "ok"})

	if got := testutil.ToFloat64(first.counters[core.MetricTokenGrantTotal].WithLabelValues("ok")); got != 2 {
		t.Fatalf("expected shared collector with 2 grants, got %v", got)
	}
}

func TestRecorder_MissingTagsBecomeEmptyLabels(t *testing.T) {
	recorder := NewRecorder(prometheus.NewRegistry())
	ctx := context.Background()
	recorder.IncCounter(ctx, core.MetricQueryTotal, 1, map[string]string{"outcome": "ok"})
	recorder.IncCounter(ctx, core.MetricQueryTotal, 1, map[string]string{"other": "x"})

	if got := testutil.ToFloat64(recorder.counters[core.MetricQueryTotal].WithLabelValues("")); got != 1 {
		t.Fatalf("expected projected empty outcome label, got %v", got)
	}
}

func TestMetricName(t *testing.T) {
	if got := MetricName("crmquery.query.retry.total"); got != "crmquery_query_retry_total" {
		t.Fatalf("unexpected metric name %q", got)
	}
}
