package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey string

const sessionKey ctxKey = "auth_session"

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/lab-portal/auth")

// MetricsRecorder interface for recording auth metrics
type MetricsRecorder interface {
	RecordAuthFailure(ctx context.Context, reason string)
}

// Middleware builds a request-scoped Session from the bearer token and
// rejects requests whose token is missing, malformed or expired.
func Middleware(log *zap.Logger) func(http.Handler) http.Handler {
	return MiddlewareWithMetrics(log, nil, time.Now)
}

// MiddlewareWithMetrics is Middleware with metrics recording and a clock.
func MiddlewareWithMetrics(log *zap.Logger, metrics MetricsRecorder, now func() time.Time) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx, span := tracer.Start(ctx, "auth.Middleware",
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			fail := func(reason, msg string) {
				span.SetStatus(codes.Error, msg)
				span.SetAttributes(attribute.String("error.type", reason))
				if metrics != nil {
					metrics.RecordAuthFailure(ctx, reason)
				}
				http.Error(w, msg, http.StatusUnauthorized)
			}

			tok, ok := BearerToken(r)
			if !ok {
				if r.Header.Get("Authorization") == "" {
					fail("missing_authorization", "missing authorization")
				} else {
					fail("invalid_header_format", "invalid authorization header")
				}
				return
			}

			session := NewSession(NewMemoryStorage(), WithClock(now))
			if err := session.SetToken(ctx, tok); err != nil {
				log.Error("failed to build request session", zap.Error(err))
				fail("session_error", "invalid token")
				return
			}
			if !session.IsAuthenticated() {
				log.Debug("rejected unauthenticated token", zap.String("path", r.URL.Path))
				fail("invalid_token", "invalid token")
				return
			}

			if id, ok := session.Identity(); ok {
				span.SetAttributes(attribute.Int64("patient.id", id))
			}
			span.SetStatus(codes.Ok, "authentication successful")

			ctx = ContextWithSession(ctx, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return "", false
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	tok := strings.TrimSpace(parts[1])
	return tok, tok != ""
}

// FromContext extracts the request Session from context.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey).(*Session)
	return s, ok
}
