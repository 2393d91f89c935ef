package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	buildsTotal   *prom.CounterVec
	buildDuration prom.Histogram
	docsWritten   prom.Counter
	warnings      prom.Counter
}

// NewPrometheusRecorder registers the docwright collectors on reg.
// A nil registry uses the default registerer.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	r := &PrometheusRecorder{
		buildsTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "docwright_builds_total",
			Help: "Completed build invocations by outcome.",
		}, []string{"outcome"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Name:    "docwright_build_duration_seconds",
			Help:    "Wall-clock duration of build invocations.",
			Buckets: prom.ExponentialBuckets(0.1, 2, 12),
		}),
		docsWritten: prom.NewCounter(prom.CounterOpts{
			Name: "docwright_documents_written_total",
			Help: "Documents written across all builds.",
		}),
		warnings: prom.NewCounter(prom.CounterOpts{
			Name: "docwright_warnings_total",
			Help: "Non-suppressed warnings emitted across all builds.",
		}),
	}
	reg.MustRegister(r.buildsTotal, r.buildDuration, r.docsWritten, r.warnings)
	return r
}

func (r *PrometheusRecorder) BuildStarted(string) {}

func (r *PrometheusRecorder) BuildCompleted(_ string, succeeded bool, duration time.Duration) {
	outcome := "success"
	if !succeeded {
		outcome = "failure"
	}
	r.buildsTotal.WithLabelValues(outcome).Inc()
	r.buildDuration.Observe(duration.Seconds())
}

func (r *PrometheusRecorder) DocumentsWritten(n int) {
	r.docsWritten.Add(float64(n))
}

func (r *PrometheusRecorder) WarningsEmitted(n int) {
	r.warnings.Add(float64(n))
}

var _ Recorder = (*PrometheusRecorder)(nil)
