package metricsvc

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/aminpamelo/mudeerbedaie-sub010/core/notification"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.Scheduled(notification.ModeTimetable, 3)
	rec.Scheduled(notification.ModeTimetable, 0)
	rec.Scheduled(notification.ModeSession, 2)
	rec.Skipped(notification.ModeSession, notification.SkipPast)
	rec.Skipped(notification.ModeSession, notification.SkipPast)
	rec.Skipped(notification.ModeTimetable, notification.SkipDuplicate)
	rec.Cancelled(4)
	rec.ObservePass(notification.ModeSession, 20*time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(rec.scheduled.WithLabelValues(notification.ModeTimetable)))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.scheduled.WithLabelValues(notification.ModeSession)))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.skipped.WithLabelValues(notification.ModeSession, notification.SkipPast)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.skipped.WithLabelValues(notification.ModeTimetable, notification.SkipDuplicate)))
	assert.Equal(t, 4.0, testutil.ToFloat64(rec.cancelled))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.pass))
}
