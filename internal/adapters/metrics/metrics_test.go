package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/adapters/metrics"
)

func scrape(t *testing.T, reg *metrics.Registry) string {
	t.Helper()
	rr := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	return string(body)
}

func TestBusinessCounters(t *testing.T) {
	reg := metrics.NewRegistry()
	reg.OrderPlaced("r1")
	reg.OrderPlaced("r1")
	reg.DuplicateOrderSuppressed("r1")
	reg.OrderTransitioned("CONFIRMED")
	reg.OutboxBatch(3, 1, 0)
	reg.Housekeeping("archive_orders", 5)
	reg.RateLimited("ip")

	body := scrape(t, reg)
	assert.Contains(t, body, `restaurant_ordering_orders_placed_total{restaurant_id="r1"} 2`)
	assert.Contains(t, body, `restaurant_ordering_orders_duplicates_suppressed_total{restaurant_id="r1"} 1`)
	assert.Contains(t, body, `restaurant_ordering_orders_transitions_total{to="CONFIRMED"} 1`)
	assert.Contains(t, body, `restaurant_ordering_outbox_events_total{outcome="published"} 3`)
	assert.Contains(t, body, `restaurant_ordering_housekeeping_rows_total{job="archive_orders"} 5`)
	assert.Contains(t, body, `restaurant_ordering_http_rate_limited_total{scope="ip"} 1`)
}

func TestInstrumentLabelsByRoutePattern(t *testing.T) {
	reg := metrics.NewRegistry()
	router := chi.NewRouter()
	router.Use(reg.Instrument)
	router.Get("/v1/restaurants/{restaurantID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	router.Handle("/metrics", reg.Handler())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/restaurants/abc", nil))
	require.Equal(t, http.StatusTeapot, rr.Code)

	assert.Contains(t, scrape(t, reg), `restaurant_ordering_http_requests_total{method="GET",route="/v1/restaurants/{restaurantID}",status="418"} 1`)
}
