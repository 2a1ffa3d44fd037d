package portal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/auth"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/messaging"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/normalize"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/orders"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/pagination"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/report"
	"github.com/WailSalutem-Health-Care/lab-portal/internal/results"
)

// Credentials are the identity-document fields a patient logs in with.
type Credentials struct {
	Type      string `json:"tipo"`
	Number    string `json:"numero"`
	BirthDate string `json:"fechaNacimiento"`
}

// Normalize trims every field and upper-cases the document type.
func (c Credentials) Normalize() Credentials {
	return Credentials{
		Type:      strings.ToUpper(strings.TrimSpace(c.Type)),
		Number:    strings.TrimSpace(c.Number),
		BirthDate: strings.TrimSpace(c.BirthDate),
	}
}

// Validate checks a normalized credential set.
func (c Credentials) Validate() error {
	if c.Type == "" {
		return ErrMissingDocumentType
	}
	if !slices.Contains(DocumentTypes, c.Type) {
		return fmt.Errorf("%w: %s", ErrInvalidDocumentType, c.Type)
	}
	if c.Number == "" {
		return ErrMissingNumber
	}
	if c.BirthDate == "" {
		return ErrMissingBirthDate
	}
	if _, err := time.Parse("2006-01-02", c.BirthDate); err != nil {
		return ErrInvalidBirthDate
	}
	return nil
}

// SessionInfo describes a session's state.
type SessionInfo struct {
	Authenticated bool       `json:"authenticated"`
	AccessToken   string     `json:"access_token,omitempty"`
	PersonaID     *int64     `json:"personaId,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// OrderPage is one page of orders with navigation metadata.
type OrderPage struct {
	Items      []normalize.Order `json:"items"`
	Page       int               `json:"page"`
	Total      int               `json:"total"`
	Filter     orders.Filter     `json:"filter"`
	Pagination pagination.Meta   `json:"pagination"`
}

// SessionMetrics records session and results activity.
type SessionMetrics interface {
	RecordSessionOperation(ctx context.Context, operation string)
	RecordResultsViewed(ctx context.Context, grouped bool)
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetrics records session and results metrics.
func WithMetrics(m SessionMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLocation sets the zone order dates are shown in.
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithChannel tags session events with the surface that produced them.
func WithChannel(channel string) ServiceOption {
	return func(s *Service) { s.channel = channel }
}

// WithServiceClock replaces time.Now.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service runs the portal use cases against one patient session.
type Service struct {
	client   *Client
	grouper  *results.Grouper
	events   messaging.PublisherInterface
	log      *zap.Logger
	metrics  SessionMetrics
	pageSize int
	loc      *time.Location
	channel  string
	now      func() time.Time
}

func NewService(client *Client, grouper *results.Grouper, events messaging.PublisherInterface, log *zap.Logger, pageSize int, opts ...ServiceOption) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if grouper == nil {
		grouper = results.NewGrouper()
	}
	if events == nil {
		events = messaging.NoopPublisher{}
	}
	if pageSize <= 0 {
		pageSize = pagination.DefaultLimit
	}
	s := &Service{
		client:   client,
		grouper:  grouper,
		events:   events,
		log:      log,
		pageSize: pageSize,
		loc:      time.Local,
		channel:  "api",
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PageSize is the default number of orders per page.
func (s *Service) PageSize() int {
	return s.pageSize
}

func (s *Service) clientFor(session *auth.Session) *Client {
	return s.client.WithTokens(session)
}

func (s *Service) personaID(session *auth.Session) (int64, error) {
	id, ok := session.PersonaID()
	if !ok {
		return 0, ErrNoIdentity
	}
	return id, nil
}

func (s *Service) publish(ctx context.Context, routingKey string, event interface{}) {
	if err := s.events.Publish(ctx, routingKey, event); err != nil {
		s.log.Warn("failed to publish event", zap.String("routing_key", routingKey), zap.Error(err))
	}
}

// Login authenticates the patient and stores the token and personaId in
// session.
func (s *Service) Login(ctx context.Context, session *auth.Session, creds Credentials) (*SessionInfo, error) {
	creds = creds.Normalize()
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	resp, err := s.client.Login(ctx, LoginRequest(creds))
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, &APIError{Status: http.StatusOK, Message: MsgLoginFailed, Err: ErrMissingAccessToken}
	}

	if err := session.ClearPersonaID(ctx); err != nil {
		return nil, err
	}
	if err := session.SetToken(ctx, resp.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}
	if id, ok := auth.CoerceID(resp.PersonaID); ok {
		if err := session.SetPersonaID(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to store persona id: %w", err)
		}
	}

	info := s.Status(session)
	info.AccessToken = resp.AccessToken

	var personaID int64
	if info.PersonaID != nil {
		personaID = *info.PersonaID
	}
	s.log.Info("patient logged in", zap.Int64("persona_id", personaID), zap.String("document_type", creds.Type))
	if s.metrics != nil {
		s.metrics.RecordSessionOperation(ctx, "login")
	}
	s.publish(ctx, messaging.EventSessionStarted, messaging.SessionStartedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventSessionStarted),
		Data: messaging.SessionStartedData{
			PersonaID:    personaID,
			DocumentType: creds.Type,
			Channel:      s.channel,
			StartedAt:    s.now().UTC(),
		},
	})
	return &info, nil
}

// Logout clears the session. It never calls the backend.
func (s *Service) Logout(ctx context.Context, session *auth.Session) error {
	personaID, _ := session.PersonaID()
	if err := session.Logout(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordSessionOperation(ctx, "logout")
	}
	s.publish(ctx, messaging.EventSessionEnded, messaging.SessionEndedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventSessionEnded),
		Data: messaging.SessionEndedData{
			PersonaID: personaID,
			EndedAt:   s.now().UTC(),
		},
	})
	return nil
}

// Status reports whether the session is authenticated and who it belongs to.
func (s *Service) Status(session *auth.Session) SessionInfo {
	info := SessionInfo{Authenticated: session.IsAuthenticated()}
	if id, ok := session.PersonaID(); ok {
		info.PersonaID = &id
	}
	if p, err := session.Principal(); err == nil && !p.ExpiresAt.IsZero() {
		exp := p.ExpiresAt
		info.ExpiresAt = &exp
	}
	return info
}

// Profile loads the patient's normalized profile.
func (s *Service) Profile(ctx context.Context, session *auth.Session) (normalize.Profile, error) {
	id, err := s.personaID(session)
	if err != nil {
		return normalize.Profile{}, err
	}
	return s.clientFor(session).FetchProfile(ctx, id)
}

// Orders loads one page of the patient's orders. The pagination metadata
// uses the requested page.
func (s *Service) Orders(ctx context.Context, session *auth.Session, params pagination.Params, filter orders.Filter) (*OrderPage, error) {
	id, err := s.personaID(session)
	if err != nil {
		return nil, err
	}
	if params.Limit <= 0 {
		params.Limit = s.pageSize
	}
	params.Validate()

	listing, err := s.clientFor(session).FetchOrders(ctx, orders.Query{
		PersonaID: id,
		Page:      params.Page,
		Limit:     params.Limit,
		Filter:    filter,
	})
	if err != nil {
		return nil, err
	}
	return &OrderPage{
		Items:      listing.Items,
		Page:       listing.Page,
		Total:      listing.Total,
		Filter:     filter,
		Pagination: params.CalculateMeta(listing.Total),
	}, nil
}

// Pager returns an order pager for the session's patient.
func (s *Service) Pager(session *auth.Session) (*orders.Pager, error) {
	id, err := s.personaID(session)
	if err != nil {
		return nil, err
	}
	return orders.NewPager(s.clientFor(session), id, s.pageSize), nil
}

// OrderResults loads and groups one order's results.
func (s *Service) OrderResults(ctx context.Context, session *auth.Session, orderID string) (*results.View, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, ErrMissingOrderID
	}

	payload, err := s.clientFor(session).FetchOrderResults(ctx, orderID)
	if err != nil {
		return nil, err
	}
	view := s.grouper.BuildView(orderID, payload, s.loc)

	testCount := len(view.Flat)
	for _, g := range view.Groups {
		testCount += len(g.Rows)
	}
	personaID, _ := session.PersonaID()
	if s.metrics != nil {
		s.metrics.RecordResultsViewed(ctx, len(view.Groups) > 0)
	}
	s.publish(ctx, messaging.EventResultsViewed, messaging.ResultsViewedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventResultsViewed),
		Data: messaging.ResultsViewedData{
			PersonaID:  personaID,
			OrderID:    orderID,
			GroupCount: len(view.Groups),
			TestCount:  testCount,
			ViewedAt:   s.now().UTC(),
		},
	})
	return view, nil
}

// PatientCard builds the summary shown above an order's results. A failed
// profile load degrades to the results header alone.
func (s *Service) PatientCard(ctx context.Context, session *auth.Session, view *results.View) results.PatientCard {
	var profile normalize.Profile
	if id, ok := session.PersonaID(); ok {
		p, err := s.clientFor(session).FetchProfile(ctx, id)
		if err != nil {
			s.log.Warn("profile unavailable for patient card", zap.Error(err))
		} else {
			profile = p
		}
	}
	return results.BuildPatientCard(profile, view.Patient, view.Order, s.now().In(s.loc))
}

// ExportResults writes an order's results as an xlsx workbook to w.
func (s *Service) ExportResults(ctx context.Context, session *auth.Session, orderID string, w io.Writer) error {
	view, err := s.OrderResults(ctx, session, orderID)
	if err != nil {
		return err
	}
	card := s.PatientCard(ctx, session, view)
	if err := report.WriteResults(w, view, card); err != nil {
		return fmt.Errorf("failed to export results: %w", err)
	}

	personaID, _ := session.PersonaID()
	s.publish(ctx, messaging.EventResultsExported, messaging.ResultsExportedEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventResultsExported),
		Data: messaging.ResultsExportedData{
			PersonaID:  personaID,
			OrderID:    view.OrderID,
			Format:     "xlsx",
			ExportedAt: s.now().UTC(),
		},
	})
	return nil
}

// Notifications loads one page of the patient's notifications.
func (s *Service) Notifications(ctx context.Context, session *auth.Session, params pagination.Params) (*NotificationList, error) {
	id, err := s.personaID(session)
	if err != nil {
		return nil, err
	}
	params.Validate()
	return s.clientFor(session).ListNotifications(ctx, id, params)
}

// UnreadCount returns the patient's unread notification count.
func (s *Service) UnreadCount(ctx context.Context, session *auth.Session) (int, error) {
	id, err := s.personaID(session)
	if err != nil {
		return 0, err
	}
	return s.clientFor(session).UnreadCount(ctx, id)
}

// MarkRead marks a notification as read.
func (s *Service) MarkRead(ctx context.Context, session *auth.Session, notificationID string) error {
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return ErrMissingNotificationID
	}
	if err := s.clientFor(session).MarkRead(ctx, notificationID); err != nil {
		return err
	}

	personaID, _ := session.PersonaID()
	s.publish(ctx, messaging.EventNotificationRead, messaging.NotificationReadEvent{
		BaseEvent: messaging.NewBaseEvent(messaging.EventNotificationRead),
		Data: messaging.NotificationReadData{
			PersonaID:      personaID,
			NotificationID: notificationID,
			ReadAt:         s.now().UTC(),
		},
	})
	return nil
}
