package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New("orders", reg)

	m.OrdersPlaced.WithLabelValues("success").Inc()
	m.OrdersPlaced.WithLabelValues("conflict").Add(2)
	m.Requests.WithLabelValues("POST /api/orders", "201").Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `cafe_orders_orders_placed_total{outcome="success"} 1`)
	assert.Contains(t, string(body), `cafe_orders_orders_placed_total{outcome="conflict"} 2`)
	assert.Contains(t, string(body), `cafe_orders_http_requests_total{handler="POST /api/orders",status="201"} 1`)
}
