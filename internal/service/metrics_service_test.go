package service

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCountsDomainEvents(t *testing.T) {
	m := NewMetricsService()
	m.RecordApplicationTransition("submitted", "approved")
	m.RecordApplicationTransition("submitted", "approved")
	m.RecordOutboxDelivery("email", "sent")
	m.RecordWebhookEvent("user.created", "processed")
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.applicationTransitions.WithLabelValues("submitted", "approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outboxDeliveries.WithLabelValues("email", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhookEvents.WithLabelValues("user.created", "processed")))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.cacheHitRatio))

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.CacheHits)
	assert.Equal(t, 0.5, snap.CacheHitRatio)
}

func TestSnapshotAveragesDurations(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest("GET", "/a", 200, 10*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/a", 500, 30*time.Millisecond)
	m.ObserveDBQuery("outbox_claim", 4*time.Millisecond)

	snap := m.Snapshot()
	assert.EqualValues(t, 2, snap.RequestsTotal)
	assert.InDelta(t, 20.0, snap.AverageRequestDurationMs, 0.001)
	assert.EqualValues(t, 1, snap.DBQueryCount)
	assert.InDelta(t, 4.0, snap.AverageDBQueryDurationMs, 0.001)
	assert.Zero(t, snap.CacheHitRatio)
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	m := NewMetricsService()
	m.RecordOutboxDelivery("sms", "failed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
	assert.True(t, strings.Contains(rec.Body.String(), `foundation_outbox_deliveries_total{channel="sms",status="failed"} 1`))
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	m.RecordApplicationTransition("a", "b")
	m.RecordWebhookEvent("x", "y")
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())
}
