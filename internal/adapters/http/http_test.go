package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	httpadapter "github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/adapters/metrics"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/application/apptest"
	"github.com/viralforge/mesh/services/hospitality/M60-restaurant-ordering-service/internal/ports"
)

type envelope struct {
	Status  string            `json:"status"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
	Data    json.RawMessage   `json:"data"`
}

type testServer struct {
	t       *testing.T
	harness *apptest.Harness
	fixture apptest.Fixture
	router  http.Handler
}

func newTestServer(t *testing.T, opts httpadapter.Options) *testServer {
	t.Helper()
	h := apptest.NewHarness(application.Config{})
	f, err := h.Seed(context.Background(), "bistro")
	require.NoError(t, err)
	return &testServer{
		t:       t,
		harness: h,
		fixture: f,
		router:  httpadapter.NewRouter(httpadapter.NewHandler(h.Service, opts)),
	}
}

func (s *testServer) do(method, path, token string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:41000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (s *testServer) ownerToken() string {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/v1/auth/login", "", map[string]string{
		"email":    "owner@bistro.test",
		"password": apptest.OwnerPassword,
	})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var res application.LoginResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &res))
	return res.Token
}

func (s *testServer) customerToken() string {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/v1/public/tables/"+s.fixture.Table.Code+"/sessions", "", nil)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var res application.TableSessionResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &res))
	return res.Token
}

func (s *testServer) restaurantPath(suffix string) string {
	return "/v1/restaurants/" + s.fixture.Restaurant.ID.String() + suffix
}

func TestHealthAndReadiness(t *testing.T) {
	t.Parallel()

	ready := errors.New("db down")
	srv := newTestServer(t, httpadapter.Options{
		Readiness: func(context.Context) error { return ready },
	})

	rec, env := srv.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", env.Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec, env = srv.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "NOT_READY", env.Code)
}

func TestJWKSPublishesKeys(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, httpadapter.Options{
		JWKS: func() []map[string]any { return []map[string]any{{"kid": "k1", "kty": "RSA"}} },
	})
	rec, _ := srv.do(http.MethodGet, "/.well-known/jwks.json", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Keys, 1)
	assert.Equal(t, "k1", body.Keys[0]["kid"])
}

func TestLoginErrorsUseEnvelope(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, httpadapter.Options{})

	rec, env := srv.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "owner@bistro.test", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Code)

	rec, env = srv.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "nope", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
	assert.Contains(t, env.Fields, "email")

	rec, env = srv.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "owner@bistro.test", "password": "x", "extra": "y"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
}

func TestAuthGuards(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, httpadapter.Options{})
	owner := srv.ownerToken()
	customer := srv.customerToken()

	rec, env := srv.do(http.MethodGet, srv.restaurantPath("/tables"), "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Code)

	rec, _ = srv.do(http.MethodGet, srv.restaurantPath("/tables"), "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env = srv.do(http.MethodGet, srv.restaurantPath("/tables"), customer, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Code)

	rec, _ = srv.do(http.MethodGet, "/v1/public/menu", owner, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = srv.do(http.MethodGet, "/v1/auth/me", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me application.StaffView
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "owner@bistro.test", me.Email)

	rec, env = srv.do(http.MethodGet, "/v1/restaurants/not-a-uuid/tables", owner, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)
}

func TestCustomerOrderFlow(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, httpadapter.Options{})
	customer := srv.customerToken()
	owner := srv.ownerToken()
	f := srv.fixture

	rec, env := srv.do(http.MethodGet, "/v1/public/menu", customer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var menu application.MenuView
	require.NoError(t, json.Unmarshal(env.Data, &menu))
	assert.Equal(t, f.Restaurant.ID, menu.Restaurant.ID)

	body := application.PlaceOrderRequest{
		CustomerName: "Ada",
		Items: []application.OrderLineRequest{
			{MenuItemID: f.Burger.ID.String(), Quantity: 2},
		},
	}
	rec, env = srv.do(http.MethodPost, "/v1/public/orders", customer, body, "Idempotency-Key", "basket-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed application.OrderView
	require.NoError(t, json.Unmarshal(env.Data, &placed))
	assert.Equal(t, int64(2500), placed.TotalCents)

	rec, env = srv.do(http.MethodPost, "/v1/public/orders", customer, body, "Idempotency-Key", "basket-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))
	var replay application.OrderView
	require.NoError(t, json.Unmarshal(env.Data, &replay))
	assert.Equal(t, placed.ID, replay.ID)

	rec, env = srv.do(http.MethodPost, "/v1/public/orders", customer, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DUPLICATE_ORDER", env.Code)

	rec, _ = srv.do(http.MethodGet, "/v1/public/orders/"+placed.ID.String(), customer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = srv.do(http.MethodGet, "/v1/public/orders", customer, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	orderPath := srv.restaurantPath("/orders/" + placed.ID.String())
	rec, env = srv.do(http.MethodPost, orderPath+"/status", owner, map[string]string{"status": "READY"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", env.Code)

	rec, env = srv.do(http.MethodPost, orderPath+"/archive", owner, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ORDER_NOT_ARCHIVABLE", env.Code)

	rec, env = srv.do(http.MethodDelete, orderPath, owner, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ORDER_NOT_DELETABLE", env.Code)

	rec, env = srv.do(http.MethodPost, orderPath+"/status", owner, map[string]string{"status": "CANCELLED", "reason": "kitchen closed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var cancelled application.OrderView
	require.NoError(t, json.Unmarshal(env.Data, &cancelled))
	assert.Equal(t, "CANCELLED", string(cancelled.Status))

	rec, _ = srv.do(http.MethodGet, srv.restaurantPath("/orders?status=CANCELLED"), owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = srv.do(http.MethodDelete, orderPath, owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = srv.do(http.MethodGet, srv.restaurantPath("/audit-logs?entity_type=order"), owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaffMenuManagement(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, httpadapter.Options{})
	owner := srv.ownerToken()
	f := srv.fixture

	rec, env := srv.do(http.MethodPost, srv.restaurantPath("/categories"), owner, map[string]any{"name": "Desserts"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var desserts application.CategoryView
	require.NoError(t, json.Unmarshal(env.Data, &desserts))

	rec, env = srv.do(http.MethodPut, srv.restaurantPath("/categories/order"), owner, map[string]any{
		"category_ids": []string{desserts.ID.String(), f.Category.ID.String()},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = srv.do(http.MethodPost, srv.restaurantPath("/menu-items"), owner, map[string]any{
		"category_id": desserts.ID.String(),
		"name":        "Tiramisu",
		"price_cents": -5,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Fields, "price_cents")

	itemPath := srv.restaurantPath("/menu-items/" + f.Burger.ID.String())
	rec, env = srv.do(http.MethodPut, itemPath+"/availability", owner, map[string]any{"is_available": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var burger application.MenuItemView
	require.NoError(t, json.Unmarshal(env.Data, &burger))
	assert.False(t, burger.IsAvailable)

	rec, _ = srv.do(http.MethodPut, itemPath+"/modifiers/"+f.Size.ID.String(), owner, map[string]any{"sort_order": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec, _ = srv.do(http.MethodGet, itemPath+"/modifiers", owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = srv.do(http.MethodDelete, itemPath+"/modifiers/"+f.Size.ID.String(), owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = srv.do(http.MethodGet, srv.restaurantPath("/modifier-templates/"+f.Size.ID.String()), owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = srv.do(http.MethodGet, srv.restaurantPath("/menu"), owner, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = srv.do(http.MethodDelete, itemPath, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted struct {
		Archived bool `json:"archived"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &deleted))
	assert.False(t, deleted.Archived)
}

func TestTableCodeAndQR(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, httpadapter.Options{})
	owner := srv.ownerToken()
	tablePath := srv.restaurantPath("/tables/" + srv.fixture.Table.ID.String())

	rec, env := srv.do(http.MethodPost, tablePath+"/regenerate-code", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var table application.TableView
	require.NoError(t, json.Unmarshal(env.Data, &table))
	assert.NotEqual(t, srv.fixture.Table.Code, table.Code)

	rec, env = srv.do(http.MethodPost, "/v1/public/tables/"+srv.fixture.Table.Code+"/sessions", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Code)

	rec, _ = srv.do(http.MethodGet, tablePath+"/qr", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), table.Code)

	srv.harness.Codes.Always = table.Code
	rec, env = srv.do(http.MethodPost, srv.restaurantPath("/tables"), owner, map[string]any{"label": "T2"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "CODE_SPACE_EXHAUSTED", env.Code)
}

func TestTenantIsolationOverHTTP(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, httpadapter.Options{})
	other, err := srv.harness.Seed(context.Background(), "rival")
	require.NoError(t, err)
	owner := srv.ownerToken()

	rec, env := srv.do(http.MethodGet, "/v1/restaurants/"+other.Restaurant.ID.String()+"/orders", owner, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Code)

	rec, env = srv.do(http.MethodGet, "/v1/restaurants", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Restaurants []application.RestaurantView `json:"restaurants"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Restaurants, 1)
	assert.Equal(t, srv.fixture.Restaurant.ID, list.Restaurants[0].ID)
}

type countingLimiter struct {
	mu    sync.Mutex
	limit int
	hits  map[string]int
	fail  bool
}

func (l *countingLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (ports.RateDecision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return ports.RateDecision{}, errors.New("redis unavailable")
	}
	l.hits[key]++
	n := l.hits[key]
	if n > limit {
		return ports.RateDecision{Allowed: false, Limit: limit, RetryAfter: 1500 * time.Millisecond}, nil
	}
	return ports.RateDecision{Allowed: true, Limit: limit, Remaining: limit - n}, nil
}

func TestPublicRateLimit(t *testing.T) {
	t.Parallel()

	limiter := &countingLimiter{hits: map[string]int{}}
	reg := metrics.NewRegistry()
	srv := newTestServer(t, httpadapter.Options{
		RateLimiter: limiter,
		PublicLimit: httpadapter.RateLimitRule{Limit: 2, Window: time.Minute},
		Metrics:     reg,
	})
	path := "/v1/public/tables/" + srv.fixture.Table.Code + "/sessions"

	for i := 0; i < 2; i++ {
		rec, _ := srv.do(http.MethodPost, path, "", nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec, env := srv.do(http.MethodPost, path, "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", env.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Contains(t, limiter.hits, "public:ip:203.0.113.7")

	metricsRec, _ := srv.do(http.MethodGet, "/metrics", "", nil)
	assert.Contains(t, metricsRec.Body.String(), `restaurant_ordering_http_rate_limited_total{scope="public"} 1`)

	limiter.mu.Lock()
	limiter.fail = true
	limiter.mu.Unlock()
	rec, _ = srv.do(http.MethodPost, path, "", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPublicRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	t.Parallel()

	limiter := &countingLimiter{hits: map[string]int{}}
	srv := newTestServer(t, httpadapter.Options{
		RateLimiter: limiter,
		PublicLimit: httpadapter.RateLimitRule{Limit: 2, Window: time.Minute},
	})
	path := "/v1/public/tables/" + srv.fixture.Table.Code + "/sessions"

	admitted := 0
	for i := 0; i < 20; i++ {
		rec, _ := srv.do(http.MethodPost, path, "", nil, "X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		if rec.Code == http.StatusCreated {
			admitted++
		}
	}
	assert.Equal(t, 2, admitted)
	assert.Len(t, limiter.hits, 1)
	assert.Contains(t, limiter.hits, "public:ip:203.0.113.7")
}

func TestPublicRateLimitUsesRightmostUntrustedHop(t *testing.T) {
	t.Parallel()

	trusted, err := httpadapter.ParseTrustedProxies([]string{"203.0.113.0/24", "10.1.2.3"})
	require.NoError(t, err)
	limiter := &countingLimiter{hits: map[string]int{}}
	srv := newTestServer(t, httpadapter.Options{
		RateLimiter:    limiter,
		PublicLimit:    httpadapter.RateLimitRule{Limit: 5, Window: time.Minute},
		TrustedProxies: trusted,
	})
	path := "/v1/public/tables/" + srv.fixture.Table.Code + "/sessions"

	for _, spoofed := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		rec, _ := srv.do(http.MethodPost, path, "", nil, "X-Forwarded-For", spoofed+", 192.0.2.44, 10.1.2.3")
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, map[string]int{"public:ip:192.0.2.44": 3}, limiter.hits)

	_, err = httpadapter.ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, httpadapter.Options{AllowedOrigins: []string{"https://kitchen.example.test"}})

	req := httptest.NewRequest(http.MethodOptions, "/v1/public/orders", nil)
	req.Header.Set("Origin", "https://kitchen.example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,idempotency-key")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	assert.Equal(t, "https://kitchen.example.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRoutesRegistered(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, httpadapter.Options{Metrics: metrics.NewRegistry()})
	routes, ok := srv.router.(chi.Routes)
	require.True(t, ok)

	seen := map[string]bool{}
	require.NoError(t, chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}))
	for _, want := range []string{
		"GET /metrics",
		"POST /v1/auth/login",
		"PUT /v1/auth/password",
		"GET /v1/public/menu",
		"POST /v1/restaurants/{restaurant_id}/tables/{table_id}/regenerate-code",
		"PUT /v1/restaurants/{restaurant_id}/menu-items/{item_id}/modifiers/{template_id}",
		"POST /v1/restaurants/{restaurant_id}/orders/{order_id}/archive",
		"GET /v1/restaurants/{restaurant_id}/audit-logs",
	} {
		assert.True(t, seen[want], "missing route %s", want)
	}
}
