package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveUpstream(t *testing.T) {
	m := New()

	m.ObserveUpstream("visits", 200, 50*time.Millisecond)
	m.ObserveUpstream("visits", 200, 20*time.Millisecond)
	m.ObserveUpstream("visits-duration", 0, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("visits", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("visits-duration", "error")))
}

func TestObserveRun(t *testing.T) {
	m := New()

	m.ObserveRun(OutcomeSuccess, 6, 2*time.Second)
	m.ObserveRun(OutcomeGatewayError, 0, time.Second)

	assert.Equal(t, 6.0, testutil.ToFloat64(m.RowsInserted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues(OutcomeGatewayError)))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveUpstream("visits", 200, time.Millisecond)
	m.ObserveRun(OutcomeSuccess, 1, time.Millisecond)
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRun(OutcomeSuccess, 3, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "similarweb_rows_inserted_total 3")
}
