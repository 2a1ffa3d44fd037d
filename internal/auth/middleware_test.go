package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/testutil"
	"go.uber.org/zap"
)

type mockMetrics struct {
	mu      sync.Mutex
	reasons []string
}

func (m *mockMetrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reasons = append(m.reasons, reason)
}

// TestMiddleware_ValidToken tests that a live token reaches the handler with a session
func TestMiddleware_ValidToken(t *testing.T) {
	tokenString := testutil.GenerateValidToken(t, 42)

	middleware := Middleware(zap.NewNop())

	called := false
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		session, ok := FromContext(r.Context())
		if !ok {
			t.Error("Expected session in context, got none")
			return
		}
		id, ok := session.PersonaID()
		if !ok || id != 42 {
			t.Errorf("Expected personaId 42, got %d (ok=%v)", id, ok)
		}
		if session.Token() != tokenString {
			t.Error("Expected session to carry the request token")
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rec := httptest.NewRecorder()

	middleware(testHandler).ServeHTTP(rec, req)

	if !called {
		t.Error("Expected handler to be called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

// TestMiddleware_MissingAuthorizationHeader tests that missing header returns 401
func TestMiddleware_MissingAuthorizationHeader(t *testing.T) {
	metrics := &mockMetrics{}
	middleware := MiddlewareWithMetrics(zap.NewNop(), metrics, time.Now)

	called := false
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()

	middleware(testHandler).ServeHTTP(rec, req)

	if called {
		t.Error("Expected handler NOT to be called")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
	expectedBody := "missing authorization\n"
	if rec.Body.String() != expectedBody {
		t.Errorf("Expected body '%s', got '%s'", expectedBody, rec.Body.String())
	}
	if len(metrics.reasons) != 1 || metrics.reasons[0] != "missing_authorization" {
		t.Errorf("Expected one missing_authorization failure, got %v", metrics.reasons)
	}
}

// TestMiddleware_InvalidAuthorizationHeader tests malformed headers
func TestMiddleware_InvalidAuthorizationHeader(t *testing.T) {
	testCases := []struct {
		name   string
		header string
	}{
		{"No Bearer prefix", "some-token"},
		{"Wrong prefix", "Basic dXNlcjpwYXNz"},
		{"Only Bearer", "Bearer"},
		{"Empty after Bearer", "Bearer "},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			metrics := &mockMetrics{}
			middleware := MiddlewareWithMetrics(zap.NewNop(), metrics, time.Now)

			called := false
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			req.Header.Set("Authorization", tc.header)
			rec := httptest.NewRecorder()

			middleware(testHandler).ServeHTTP(rec, req)

			if called {
				t.Error("Expected handler NOT to be called")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", rec.Code)
			}
			if len(metrics.reasons) != 1 || metrics.reasons[0] != "invalid_header_format" {
				t.Errorf("Expected invalid_header_format failure, got %v", metrics.reasons)
			}
		})
	}
}

// TestMiddleware_RejectedTokens tests that expired and malformed tokens are rejected
func TestMiddleware_RejectedTokens(t *testing.T) {
	testCases := []struct {
		name  string
		token string
	}{
		{"expired", testutil.GenerateExpiredToken(t, 42)},
		{"garbage", "not-a-jwt"},
		{"two segments", "abc.def"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			metrics := &mockMetrics{}
			middleware := MiddlewareWithMetrics(zap.NewNop(), metrics, time.Now)

			called := false
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})

			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			req.Header.Set("Authorization", "Bearer "+tc.token)
			rec := httptest.NewRecorder()

			middleware(testHandler).ServeHTTP(rec, req)

			if called {
				t.Error("Expected handler NOT to be called")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", rec.Code)
			}
			if rec.Body.String() != "invalid token\n" {
				t.Errorf("Expected body 'invalid token', got '%s'", rec.Body.String())
			}
			if len(metrics.reasons) != 1 || metrics.reasons[0] != "invalid_token" {
				t.Errorf("Expected invalid_token failure, got %v", metrics.reasons)
			}
		})
	}
}

// TestMiddleware_UsesClock tests that expiry is judged against the injected clock
func TestMiddleware_UsesClock(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	token := testutil.GeneratePatientToken(t, 7, exp)

	for _, tc := range []struct {
		now  time.Time
		code int
	}{
		{exp.Add(-time.Second), http.StatusOK},
		{exp, http.StatusUnauthorized},
	} {
		now := tc.now
		middleware := MiddlewareWithMetrics(zap.NewNop(), nil, func() time.Time { return now })
		handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != tc.code {
			t.Errorf("At %v: expected status %d, got %d", tc.now, tc.code, rec.Code)
		}
	}
}

func TestFromContext_Empty(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("Expected no session in empty context")
	}
}
