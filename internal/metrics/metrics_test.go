package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMLDelegationsTotal_Increments(t *testing.T) {
	MLDelegationsTotal.Reset()

	MLDelegationsTotal.WithLabelValues("/api/fraud/detect", "unavailable").Inc()
	MLDelegationsTotal.WithLabelValues("/api/fraud/detect", "unavailable").Inc()

	m := &dto.Metric{}
	counter, err := MLDelegationsTotal.GetMetricWithLabelValues("/api/fraud/detect", "unavailable")
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues failed: %v", err)
	}
	_ = counter.Write(m)

	if m.Counter.GetValue() != 2.0 {
		t.Errorf("expected counter value 2, got %f", m.Counter.GetValue())
	}
}

func TestFraudScoreDistribution_Observes(t *testing.T) {
	FraudScoreDistribution.Observe(85)

	ch := make(chan prometheus.Metric, 10)
	FraudScoreDistribution.Collect(ch)
	close(ch)

	found := false
	for metric := range ch {
		m := &dto.Metric{}
		_ = metric.Write(m)
		if m.Histogram != nil && m.Histogram.GetSampleCount() >= 1 {
			found = true
		}
	}
	if !found {
		t.Error("expected histogram with at least 1 sample")
	}
}

func TestStatusBucket(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{500, "5xx"},
	}
	for _, tt := range tests {
		if got := statusBucket(tt.code); got != tt.want {
			t.Errorf("statusBucket(%d) = %s, want %s", tt.code, got, tt.want)
		}
	}
}
