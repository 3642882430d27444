package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestRecordLoad(t *testing.T) {
	m := New()
	m.RecordLoad("scores", 4, 1, 2)
	m.RecordLoad("scores", 1, 0, 0)

	body := scrape(t, m)
	assert.Contains(t, body, `etl_rows_inserted_total{table="scores"} 5`)
	assert.Contains(t, body, `etl_rows_failed_total{table="scores"} 1`)
	assert.Contains(t, body, `etl_rows_dropped_total{table="scores"} 2`)
}

func TestRecordExtraction(t *testing.T) {
	m := New()
	m.RecordExtraction(120, []string{"MH_1", "MH_3"})
	m.RecordExtraction(80, []string{"MH_1"})

	body := scrape(t, m)
	assert.Contains(t, body, "etl_indicator_records 80")
	assert.Contains(t, body, `etl_indicator_fetch_failures_total{code="MH_1"} 2`)
	assert.Contains(t, body, `etl_indicator_fetch_failures_total{code="MH_3"} 1`)
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRun("success", time.Second)
		m.ObserveStage("extract", time.Second)
		m.RecordExtraction(1, []string{"MH_1"})
		m.RecordUnresolved(3)
		m.RecordLoad("t", 1, 0, 0)
	})
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveRun("success", 2*time.Second)
	m.RecordUnresolved(7)

	body := scrape(t, m)
	assert.Contains(t, body, `etl_runs_total{status="success"} 1`)
	assert.Contains(t, body, "etl_unresolved_countries 7")
	assert.Contains(t, body, "etl_run_duration_seconds_count 1")
}

func TestSeparateRegistries(t *testing.T) {
	// Два экземпляра не конфликтуют при регистрации
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
