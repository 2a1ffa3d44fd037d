package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/portal"
)

// MetricsRecorder records request and authentication metrics.
type MetricsRecorder interface {
	RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64)
	RecordAuthFailure(ctx context.Context, reason string)
}

// Options configures the router.
type Options struct {
	ServiceName    string
	AllowedOrigins []string
	Metrics        MetricsRecorder
	Log            *zap.Logger
	Now            func() time.Time
}

// SetupRouter wires the portal JSON API.
func SetupRouter(handler *portal.Handler, opts Options) *mux.Router {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "lab-portal"
	}

	var authMetrics auth.MetricsRecorder
	if opts.Metrics != nil {
		authMetrics = opts.Metrics
	}
	protect := auth.MiddlewareWithMetrics(opts.Log, authMetrics, opts.Now)

	r := mux.NewRouter()
	r.Use(otelmux.Middleware(opts.ServiceName))
	r.Use(CORSMiddleware(opts.AllowedOrigins))
	r.Use(MetricsMiddleware(opts.Metrics))
	r.Use(LoggingMiddleware(opts.Log))

	// Public health endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"` + opts.ServiceName + `"}`))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/login", handler.Login).Methods(http.MethodPost, http.MethodOptions)

	api.Handle("/auth/logout", protect(http.HandlerFunc(handler.Logout))).Methods(http.MethodPost, http.MethodOptions)
	api.Handle("/session", protect(http.HandlerFunc(handler.Session))).Methods(http.MethodGet, http.MethodOptions)
	api.Handle("/profile", protect(http.HandlerFunc(handler.Profile))).Methods(http.MethodGet, http.MethodOptions)

	api.Handle("/orders", protect(http.HandlerFunc(handler.ListOrders))).Methods(http.MethodGet, http.MethodOptions)
	api.Handle("/orders/{id}/results", protect(http.HandlerFunc(handler.OrderResults))).Methods(http.MethodGet, http.MethodOptions)
	api.Handle("/orders/{id}/results/export", protect(http.HandlerFunc(handler.ExportResults))).Methods(http.MethodGet, http.MethodOptions)

	api.Handle("/notifications", protect(http.HandlerFunc(handler.ListNotifications))).Methods(http.MethodGet, http.MethodOptions)
	api.Handle("/notifications/unread-count", protect(http.HandlerFunc(handler.UnreadCount))).Methods(http.MethodGet, http.MethodOptions)
	api.Handle("/notifications/{id}/read", protect(http.HandlerFunc(handler.MarkRead))).Methods(http.MethodPost, http.MethodOptions)

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

// MetricsMiddleware records count and duration of every routed request.
func MetricsMiddleware(metrics MetricsRecorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			metrics.RecordHTTPRequest(r.Context(), r.Method, routeTemplate(r), rec.status, float64(time.Since(start).Milliseconds()))
		})
	}
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("route", routeTemplate(r)),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
