package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/portal"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/results"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/testutil"
)

type recordedHTTP struct {
	method string
	route  string
	status int
}

type mockMetrics struct {
	mu           sync.Mutex
	requests     []recordedHTTP
	authFailures []string
}

func (m *mockMetrics) RecordHTTPRequest(_ context.Context, method, route string, statusCode int, _ float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, recordedHTTP{method, route, statusCode})
}

func (m *mockMetrics) RecordAuthFailure(_ context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authFailures = append(m.authFailures, reason)
}

func setupTestServer(t *testing.T) (*testutil.FakeBackend, *mockMetrics, *httptest.Server) {
	t.Helper()

	backend := testutil.NewFakeBackend(t)
	client := portal.NewClient(portal.ClientConfig{BaseURL: backend.URL(), Timeout: 2 * time.Second}, nil, nil)
	svc := portal.NewService(client, results.NewGrouper(), testutil.NewMockPublisher(), nil, 10)
	metrics := &mockMetrics{}

	router := SetupRouter(portal.NewHandler(svc), Options{
		AllowedOrigins: []string{"https://portal.example.com"},
		Metrics:        metrics,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return backend, metrics, srv
}

func TestHealth(t *testing.T) {
	_, _, srv := setupTestServer(t)

	resp := testutil.NewHTTPTestClient(srv.URL, "").GET(t, "/health")
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var body map[string]string
	testutil.DecodeJSON(t, resp, &body)
	if body["service"] != "lab-portal" {
		t.Errorf("Expected service 'lab-portal', got '%s'", body["service"])
	}
}

func TestProtectedRoute_RequiresToken(t *testing.T) {
	backend, metrics, srv := setupTestServer(t)

	resp := testutil.NewHTTPTestClient(srv.URL, "").GET(t, "/api/orders")
	testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = testutil.NewHTTPTestClient(srv.URL, testutil.GenerateExpiredToken(t, 42)).GET(t, "/api/orders")
	testutil.AssertStatusCode(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	if len(backend.Requests()) != 0 {
		t.Errorf("Expected no backend calls, got %d", len(backend.Requests()))
	}
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if len(metrics.authFailures) != 2 || metrics.authFailures[0] != "missing_authorization" || metrics.authFailures[1] != "invalid_token" {
		t.Errorf("Unexpected auth failures: %v", metrics.authFailures)
	}
}

func TestOrders_ForwardsBearerToken(t *testing.T) {
	backend, metrics, srv := setupTestServer(t)
	backend.HandleJSON("GET /ordenes", http.StatusOK, map[string]interface{}{
		"items": []interface{}{map[string]interface{}{"id": 1, "fecha": "2024-03-01"}},
		"total": 1,
	})
	token := testutil.GenerateValidToken(t, 42)

	resp := testutil.NewHTTPTestClient(srv.URL, token).GET(t, "/api/orders?page=1")
	testutil.AssertStatusCode(t, resp, http.StatusOK)

	var body map[string]interface{}
	testutil.DecodeJSON(t, resp, &body)
	if body["total"] != float64(1) {
		t.Errorf("Expected total 1, got %v", body["total"])
	}

	last := backend.LastRequest()
	if last == nil || last.Authorization != "Bearer "+token {
		t.Fatalf("Expected bearer token forwarded, got %+v", last)
	}
	if last.Query["personaId"][0] != "42" {
		t.Errorf("Expected personaId 42, got %v", last.Query["personaId"])
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	found := false
	for _, r := range metrics.requests {
		if r.route == "/api/orders" && r.status == http.StatusOK {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected /api/orders request metric, got %v", metrics.requests)
	}
}

func TestResults_RouteTemplateMetric(t *testing.T) {
	backend, metrics, srv := setupTestServer(t)
	backend.HandleJSON("GET /ordenes/7/resultados", http.StatusOK, map[string]interface{}{"grupos": []interface{}{}})
	backend.HandleJSON("GET /perfil", http.StatusOK, map[string]interface{}{})

	resp := testutil.NewHTTPTestClient(srv.URL, testutil.GenerateValidToken(t, 42)).GET(t, "/api/orders/7/results")
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if len(metrics.requests) == 0 || metrics.requests[len(metrics.requests)-1].route != "/api/orders/{id}/results" {
		t.Errorf("Expected templated route, got %v", metrics.requests)
	}
}

func TestCORS_Preflight(t *testing.T) {
	_, _, srv := setupTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/orders", nil)
	req.Header.Set("Origin", "https://portal.example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://portal.example.com" {
		t.Errorf("Expected allowed origin echoed, got '%s'", got)
	}
}

func TestCORS_UnknownOrigin(t *testing.T) {
	h := CORSMiddleware([]string{"https://portal.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no allowed origin, got '%s'", got)
	}
	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
}
