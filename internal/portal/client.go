package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/normalize"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/orders"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/pagination"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/results"
)

// DefaultTimeout applies when ClientConfig.Timeout is zero.
const DefaultTimeout = 15 * time.Second

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/lab-portal/portal")

// ClientConfig configures the lab backend client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// MetricsRecorder records lab backend calls.
type MetricsRecorder interface {
	RecordBackendRequest(ctx context.Context, operation string, statusCode int, durationMs float64)
}

// TokenSource supplies the bearer token for outgoing requests.
type TokenSource interface {
	Token() string
}

// Client talks to the lab backend REST API. It never retries.
type Client struct {
	http    *resty.Client
	tokens  TokenSource
	log     *zap.Logger
	metrics MetricsRecorder
}

func NewClient(cfg ClientConfig, log *zap.Logger, metrics MetricsRecorder) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	h := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetLogger(log.Sugar())

	return &Client{http: h, log: log, metrics: metrics}
}

// WithTokens returns a copy of the client that authenticates with ts.
func (c *Client) WithTokens(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// call describes one backend request.
type call struct {
	op        string
	method    string
	path      string
	pathParam map[string]string
	query     map[string]string
	body      interface{}
	anonymous bool
	fallback  string
}

// do sends the request and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "portal."+cl.op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", cl.method),
			attribute.String("http.route", cl.path),
		),
	)
	defer span.End()

	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString())
	if !cl.anonymous && c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.SetAuthToken(tok)
		}
	}
	if len(cl.pathParam) > 0 {
		req.SetPathParams(cl.pathParam)
	}
	if len(cl.query) > 0 {
		req.SetQueryParams(cl.query)
	}
	if cl.body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(cl.body)
	}

	start := time.Now()
	resp, err := req.Execute(cl.method, cl.path)
	status := 0
	if resp != nil && resp.RawResponse != nil {
		status = resp.StatusCode()
	}
	if c.metrics != nil {
		c.metrics.RecordBackendRequest(ctx, cl.op, status, float64(time.Since(start).Milliseconds()))
	}
	span.SetAttributes(attribute.Int("http.status_code", status))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		c.log.Warn("lab backend request failed", zap.String("op", cl.op), zap.Error(err))
		return nil, &APIError{Message: cl.fallback, Err: err}
	}
	if resp.IsError() {
		apiErr := newAPIError(status, resp.Body(), cl.fallback)
		span.SetStatus(codes.Error, apiErr.Message)
		c.log.Info("lab backend rejected request",
			zap.String("op", cl.op),
			zap.Int("status", status),
			zap.String("message", apiErr.Message),
		)
		return nil, apiErr
	}

	span.SetStatus(codes.Ok, "")
	return resp.Body(), nil
}

// doJSON is do plus a lenient JSON decode. An empty body decodes to nil.
func (c *Client) doJSON(ctx context.Context, cl call) (any, error) {
	body, err := c.do(ctx, cl)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, &APIError{Status: http.StatusOK, Message: cl.fallback, Err: fmt.Errorf("failed to decode %s response: %w", cl.op, err)}
	}
	return v, nil
}

// LoginRequest is the patient login payload.
type LoginRequest struct {
	Type      string `json:"tipo"`
	Number    string `json:"numero"`
	BirthDate string `json:"fechaNacimiento"`
}

// LoginResponse is the backend answer to a successful login. PersonaID is
// left undecoded because the backend sends it as a number or a string.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	PersonaID   any    `json:"personaId"`
}

// Login authenticates a patient. It is sent without Authorization.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	body, err := c.do(ctx, call{
		op:        "login",
		method:    http.MethodPost,
		path:      "/auth/login-paciente",
		body:      req,
		anonymous: true,
		fallback:  MsgLoginFailed,
	})
	if err != nil {
		return nil, err
	}

	var out LoginResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &APIError{Status: http.StatusOK, Message: MsgLoginFailed, Err: fmt.Errorf("failed to decode login response: %w", err)}
	}
	return &out, nil
}

// FetchProfile loads and normalizes the patient profile.
func (c *Client) FetchProfile(ctx context.Context, personaID int64) (normalize.Profile, error) {
	v, err := c.doJSON(ctx, call{
		op:       "profile",
		method:   http.MethodGet,
		path:     "/perfil",
		query:    map[string]string{"personaId": strconv.FormatInt(personaID, 10)},
		fallback: MsgProfileFailed,
	})
	if err != nil {
		return normalize.Profile{}, err
	}
	return normalize.NormalizeProfile(normalize.NewRecord(v)), nil
}

// FetchOrders loads one page of orders. Empty filters are not sent.
func (c *Client) FetchOrders(ctx context.Context, q orders.Query) (*orders.Listing, error) {
	query := map[string]string{
		"personaId": strconv.FormatInt(q.PersonaID, 10),
		"pagina":    strconv.Itoa(q.Page),
		"limite":    strconv.Itoa(q.Limit),
	}
	for k, v := range map[string]string{"busca": q.Search, "desde": q.From, "hasta": q.To} {
		if v = strings.TrimSpace(v); v != "" {
			query[k] = v
		}
	}

	v, err := c.doJSON(ctx, call{
		op:       "orders",
		method:   http.MethodGet,
		path:     "/ordenes",
		query:    query,
		fallback: MsgOrdersFailed,
	})
	if err != nil {
		return nil, err
	}
	return orders.NewListing(v), nil
}

// FetchOrderResults loads the results payload of one order.
func (c *Client) FetchOrderResults(ctx context.Context, orderID string) (*results.Payload, error) {
	body, err := c.do(ctx, call{
		op:        "order_results",
		method:    http.MethodGet,
		path:      "/ordenes/{id}/resultados",
		pathParam: map[string]string{"id": orderID},
		fallback:  MsgResultsFailed,
	})
	if err != nil {
		return nil, err
	}
	p, err := results.Decode(body)
	if err != nil {
		return nil, &APIError{Status: http.StatusOK, Message: MsgResultsFailed, Err: err}
	}
	return p, nil
}

// NotificationList is one page of notifications.
type NotificationList struct {
	Items []normalize.Record `json:"items"`
	Page  int                `json:"page"`
	Total int                `json:"total"`
}

// ListNotifications loads one page of a user's notifications.
func (c *Client) ListNotifications(ctx context.Context, userID int64, params pagination.Params) (*NotificationList, error) {
	v, err := c.doJSON(ctx, call{
		op:     "notifications",
		method: http.MethodGet,
		path:   "/notificaciones",
		query: map[string]string{
			"idUsuario": strconv.FormatInt(userID, 10),
			"pagina":    strconv.Itoa(params.Page),
			"limite":    strconv.Itoa(params.Limit),
		},
		fallback: MsgNotifyFailed,
	})
	if err != nil {
		return nil, err
	}

	env := pagination.NormalizeEnvelope(v)
	list := &NotificationList{Items: make([]normalize.Record, 0, len(env.Items)), Page: env.Page, Total: env.Total}
	for _, item := range env.Items {
		list.Items = append(list.Items, normalize.NewRecord(item))
	}
	return list, nil
}

// UnreadCount returns the number of unread notifications, 0 when the
// backend omits it.
func (c *Client) UnreadCount(ctx context.Context, userID int64) (int, error) {
	v, err := c.doJSON(ctx, call{
		op:        "notifications_unread",
		method:    http.MethodGet,
		path:      "/notificaciones/conteo-no-leidas/{id}",
		pathParam: map[string]string{"id": strconv.FormatInt(userID, 10)},
		fallback:  MsgNotifyFailed,
	})
	if err != nil {
		return 0, err
	}
	n, ok := normalize.NewRecord(v).Number("total")
	if !ok || n < 0 {
		return 0, nil
	}
	return int(n), nil
}

// MarkRead marks one notification as read.
func (c *Client) MarkRead(ctx context.Context, notificationID string) error {
	_, err := c.do(ctx, call{
		op:        "notifications_mark_read",
		method:    http.MethodPost,
		path:      "/notificaciones/{id}/leida",
		pathParam: map[string]string{"id": notificationID},
		fallback:  MsgNotifyFailed,
	})
	return err
}

var _ orders.Fetcher = (*Client)(nil)
