package setupmetrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts the outcome of every processed repository. A run is a
// short lived process, so the metrics are written to a node_exporter
// textfile instead of being served.
type Recorder struct {
	registry  *prometheus.Registry
	outcomes  *prometheus.CounterVec
	failures  prometheus.Counter
	duration  prometheus.Histogram
	lastRunAt prometheus.Gauge
}

func NewRecorder() (*Recorder, error) {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Subsystem: "renovate_setup",
				Name:      "repositories_total",
				Help:      "Number of processed repositories by outcome",
			},
			[]string{"status"},
		),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Subsystem: "renovate_setup",
			Name:      "failures_total",
			Help:      "Number of repositories that could not be processed",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Subsystem: "renovate_setup",
			Name:      "repository_duration_seconds",
			Help:      "Time spent on a single repository",
			Buckets:   prometheus.DefBuckets,
		}),
		lastRunAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Subsystem: "renovate_setup",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the metrics were written",
		}),
	}
	for _, c := range []prometheus.Collector{r.outcomes, r.failures, r.duration, r.lastRunAt} {
		if err := r.registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return r, nil
}

func (r *Recorder) CountOutcome(status string, elapsed time.Duration) {
	r.outcomes.WithLabelValues(status).Inc()
	r.duration.Observe(elapsed.Seconds())
}

func (r *Recorder) CountFailure(elapsed time.Duration) {
	r.failures.Inc()
	r.duration.Observe(elapsed.Seconds())
}

func (r *Recorder) WriteTextfile(path string) error {
	r.lastRunAt.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
