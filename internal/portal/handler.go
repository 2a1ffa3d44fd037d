package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/normalize"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/orders"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/pagination"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/report"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/results"
)

// NotificationPageSize is the default notifications page size.
const NotificationPageSize = 10

// ServiceInterface defines the contract for portal operations
type ServiceInterface interface {
	Login(ctx context.Context, session *auth.Session, creds Credentials) (*SessionInfo, error)
	Logout(ctx context.Context, session *auth.Session) error
	Status(session *auth.Session) SessionInfo
	Profile(ctx context.Context, session *auth.Session) (normalize.Profile, error)
	Orders(ctx context.Context, session *auth.Session, params pagination.Params, filter orders.Filter) (*OrderPage, error)
	OrderResults(ctx context.Context, session *auth.Session, orderID string) (*results.View, error)
	PatientCard(ctx context.Context, session *auth.Session, view *results.View) results.PatientCard
	ExportResults(ctx context.Context, session *auth.Session, orderID string, w io.Writer) error
	Notifications(ctx context.Context, session *auth.Session, params pagination.Params) (*NotificationList, error)
	UnreadCount(ctx context.Context, session *auth.Session) (int, error)
	MarkRead(ctx context.Context, session *auth.Session, notificationID string) error
	PageSize() int
}

var _ ServiceInterface = (*Service)(nil)

type Handler struct {
	service ServiceInterface
}

func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

type SessionResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Session *SessionInfo `json:"session,omitempty"`
}

type ProfileResponse struct {
	Success bool              `json:"success"`
	Profile normalize.Profile `json:"profile"`
}

type OrdersResponse struct {
	Success bool `json:"success"`
	*OrderPage
}

type ResultsResponse struct {
	Success     bool                `json:"success"`
	Results     *results.View       `json:"results"`
	PatientCard results.PatientCard `json:"patientCard"`
	Empty       bool                `json:"empty"`
}

type NotificationsResponse struct {
	Success bool `json:"success"`
	*NotificationList
}

type UnreadCountResponse struct {
	Success bool `json:"success"`
	Total   int  `json:"total"`
}

type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	session := auth.NewSession(auth.NewMemoryStorage())
	info, err := h.service.Login(r.Context(), session, creds)
	if err != nil {
		writeError(w, err, MsgLoginFailed)
		return
	}

	respondJSON(w, http.StatusOK, SessionResponse{
		Success: true,
		Message: "Login successful",
		Session: info,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	if err := h.service.Logout(r.Context(), session); err != nil {
		writeError(w, err, "Error al cerrar sesión")
		return
	}
	respondJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Logged out"})
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	info := h.service.Status(session)
	respondJSON(w, http.StatusOK, SessionResponse{Success: true, Session: &info})
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	profile, err := h.service.Profile(r.Context(), session)
	if err != nil {
		writeError(w, err, MsgProfileFailed)
		return
	}
	respondJSON(w, http.StatusOK, ProfileResponse{Success: true, Profile: profile})
}

// ListOrders serves GET /api/orders?page=&limit=&search=&from=&to=
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	params := pagination.ParseParamsWithLimit(r, h.service.PageSize())
	q := r.URL.Query()
	filter := orders.Filter{
		Search: firstQuery(q.Get("search"), q.Get("busca")),
		From:   firstQuery(q.Get("from"), q.Get("desde")),
		To:     firstQuery(q.Get("to"), q.Get("hasta")),
	}

	page, err := h.service.Orders(r.Context(), session, params, filter)
	if err != nil {
		writeError(w, err, MsgOrdersFailed)
		return
	}
	respondJSON(w, http.StatusOK, OrdersResponse{Success: true, OrderPage: page})
}

func (h *Handler) OrderResults(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	orderID := mux.Vars(r)["id"]
	view, err := h.service.OrderResults(r.Context(), session, orderID)
	if err != nil {
		writeError(w, err, MsgResultsFailed)
		return
	}

	respondJSON(w, http.StatusOK, ResultsResponse{
		Success:     true,
		Results:     view,
		PatientCard: h.service.PatientCard(r.Context(), session, view),
		Empty:       view.Empty(),
	})
}

// ExportResults serves the order's results as an xlsx download.
func (h *Handler) ExportResults(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	orderID := mux.Vars(r)["id"]
	var buf bytes.Buffer
	if err := h.service.ExportResults(r.Context(), session, orderID, &buf); err != nil {
		writeError(w, err, MsgResultsFailed)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+report.Filename(orderID))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	params := pagination.ParseParamsWithLimit(r, NotificationPageSize)
	list, err := h.service.Notifications(r.Context(), session, params)
	if err != nil {
		writeError(w, err, MsgNotifyFailed)
		return
	}
	respondJSON(w, http.StatusOK, NotificationsResponse{Success: true, NotificationList: list})
}

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	total, err := h.service.UnreadCount(r.Context(), session)
	if err != nil {
		writeError(w, err, MsgNotifyFailed)
		return
	}
	respondJSON(w, http.StatusOK, UnreadCountResponse{Success: true, Total: total})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	if err := h.service.MarkRead(r.Context(), session, mux.Vars(r)["id"]); err != nil {
		writeError(w, err, MsgNotifyFailed)
		return
	}
	respondJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "Notification marked as read"})
}

func sessionFrom(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	session, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return nil, false
	}
	return session, true
}

func firstQuery(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// writeError maps err to a status and a user-facing message.
func writeError(w http.ResponseWriter, err error, fallback string) {
	status := StatusFor(err)

	errorType := "internal_error"
	switch {
	case IsValidation(err):
		errorType = "validation_error"
	case errors.Is(err, ErrNoIdentity):
		errorType = "no_identity"
	case status == http.StatusUnauthorized:
		errorType = "unauthenticated"
	case status == http.StatusForbidden:
		errorType = "forbidden"
	case status == http.StatusNotFound:
		errorType = "not_found"
	case status == http.StatusBadRequest:
		errorType = "rejected"
	case status == http.StatusBadGateway:
		errorType = "backend_error"
	}
	respondError(w, status, errorType, UserMessage(err, fallback))
}

func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	respondJSON(w, statusCode, map[string]interface{}{
		"error":   errorType,
		"message": message,
	})
}
