package metricsvc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
)

const namespace = "notification"

// PrometheusRecorder exports the scheduling counters of a Materializer.
type PrometheusRecorder struct {
	scheduled *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	cancelled prometheus.Counter
	pass      *prometheus.HistogramVec
}

var _ notification.Recorder = (*PrometheusRecorder)(nil)

func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		scheduled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduled_total",
			Help:      "Scheduled notifications created, by scheduling mode.",
		}, []string{"mode"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_total",
			Help:      "Candidate notifications not persisted, by scheduling mode and reason.",
		}, []string{"mode", "reason"}),
		cancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancelled_total",
			Help:      "Scheduled notifications cancelled with their session.",
		}),
		pass: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of one scheduling pass, by scheduling mode.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
	}
}

func (r *PrometheusRecorder) Scheduled(mode string, n int) {
	r.scheduled.WithLabelValues(mode).Add(float64(n))
}

func (r *PrometheusRecorder) Skipped(mode, reason string) {
	r.skipped.WithLabelValues(mode, reason).Inc()
}

func (r *PrometheusRecorder) Cancelled(n int64) {
	r.cancelled.Add(float64(n))
}

func (r *PrometheusRecorder) ObservePass(mode string, d time.Duration) {
	r.pass.WithLabelValues(mode).Observe(d.Seconds())
}
