package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshotAggregates(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/timetable/class/:id", http.StatusOK, 10*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/timetable/generate", http.StatusOK, 30*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveDBQuery("timetable_snapshot", 4*time.Millisecond)
	m.ObserveGenerationRun("SUCCEEDED", time.Second, 12)
	m.ObserveGenerationRun("FAILED", time.Second, 0)
	m.TrackQueueDepth(func() int { return 2 })

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 20.0, snap.AverageRequestDurationMs, 0.001)
	assert.InDelta(t, 1.0/3.0, snap.CacheHitRatio, 0.001)
	assert.Equal(t, uint64(1), snap.DBQueryCount)
	assert.InDelta(t, 4.0, snap.AverageDBQueryDurationMs, 0.001)
	assert.Equal(t, uint64(2), snap.GenerationRuns)
	assert.Equal(t, uint64(1), snap.GenerationFailures)
	assert.Equal(t, uint64(12), snap.LastGenerationEntries)
	assert.Equal(t, 2, snap.QueuedGenerations)
}

func TestMetricsPrometheusExposition(t *testing.T) {
	m := NewMetricsService()
	m.RecordGenerationWarning("NO_SUITABLE_ROOM")
	m.ObserveGenerationRun("SUCCEEDED", 200*time.Millisecond, 5)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `timetable_api_generation_warnings_total{kind="NO_SUITABLE_ROOM"} 1`)
	assert.Contains(t, body, `timetable_api_generation_runs_total{status="SUCCEEDED"} 1`)
	assert.Contains(t, body, "timetable_api_generation_entries 5")
	assert.Contains(t, body, "timetable_api_generation_queue_depth 0")
}

func TestMetricsNilReceiver(t *testing.T) {
	var m *MetricsService
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.ObserveGenerationRun("FAILED", time.Second, 0)
	m.TrackQueueDepth(func() int { return 1 })
	assert.Equal(t, SystemMetrics{}, m.Snapshot())

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
