package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/alnah/go-narrate/internal/metrics"
)

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())

	m.RecordJob(true)
	m.RecordJob(true)
	m.RecordJob(false)
	m.RecordPrompt(1.2)
	m.RecordPrompt(0.8)
	m.RecordSubtitles(2.0, 7)
	m.RecordHTTPRequest("POST", "/run", "200", 0.1)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"jobs success", testutil.ToFloat64(m.Jobs.WithLabelValues(metrics.StatusSuccess)), 2},
		{"jobs failure", testutil.ToFloat64(m.Jobs.WithLabelValues(metrics.StatusFailure)), 1},
		{"prompts", testutil.ToFloat64(m.Prompts), 2},
		{"blocks", testutil.ToFloat64(m.SubtitleBlocks), 7},
		{"http", testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/run", "200")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if n := testutil.CollectAndCount(m.SynthesisDuration); n != 1 {
		t.Errorf("synthesis histogram series = %d, want 1", n)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	m.RecordJob(true)
	m.RecordPrompt(1)
	m.RecordSubtitles(1, 1)
	m.RecordHTTPRequest("GET", "/health", "200", 0)
}

func TestNew_SeparateRegistries(t *testing.T) {
	t.Parallel()

	// Registering twice on distinct registries must not panic.
	metrics.New(prometheus.NewRegistry())
	metrics.New(prometheus.NewRegistry())
}
