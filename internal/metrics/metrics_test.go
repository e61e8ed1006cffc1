package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/loteamento/internal/domain"
)

func scrape(t *testing.T, m *Metrics) (int, string) {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rr.Code, rr.Body.String()
}

func TestHandlerNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.ObserveRegistryRequest("list", http.StatusOK, time.Millisecond)
	m.SetLotCounts(1, nil)

	code, body := scrape(t, m)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "metrics unavailable")
}

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodGet, "/healthz", http.StatusOK, 12*time.Millisecond)
	m.ObserveRegistryRequest("add_lot", http.StatusOK, 3*time.Millisecond)
	m.ObserveRegistryRequest("list", 0, time.Millisecond)
	m.SetLotCounts(5, map[domain.Status]int{
		domain.StatusSold:    2,
		domain.StatusVacant:  2,
		domain.StatusPending: 1,
	})

	code, body := scrape(t, m)
	require.Equal(t, http.StatusOK, code, body)

	assert.Contains(t, body, `loteamento_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
	assert.Contains(t, body, `loteamento_registry_requests_total{op="add_lot",status="200"} 1`)
	assert.Contains(t, body, `loteamento_registry_requests_total{op="list",status="error"} 1`)
	assert.Contains(t, body, `loteamento_registry_request_duration_seconds_count{op="add_lot"} 1`)
	assert.Contains(t, body, `loteamento_lots{status="total"} 5`)
	assert.Contains(t, body, `loteamento_lots{status="vendido"} 2`)
	assert.Contains(t, body, `loteamento_lots{status="pendente"} 1`)
}
