package core

import "context"

const (
	MetricQueryTotal      = "crmquery.query.total"
	MetricQueryRetryTotal = "crmquery.query.retry.total"
	MetricQueryDuration   = "crmquery.query.duration_ms"
	MetricTokenGrantTotal = "crmquery.token.grant.total"
)

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func CloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

var _ MetricsRecorder = NopMetricsRecorder{}
