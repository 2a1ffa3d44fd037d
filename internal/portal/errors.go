package portal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Fallback messages shown when the backend gives no usable message.
const (
	MsgLoginFailed   = "Error al iniciar sesión"
	MsgProfileFailed = "Error al cargar el perfil"
	MsgOrdersFailed  = "Error al cargar las órdenes"
	MsgResultsFailed = "Error al cargar los resultados"
	MsgNotifyFailed  = "Error al cargar las notificaciones"
)

var (
	// ErrNoIdentity means the session token carries no usable patient id.
	ErrNoIdentity = errors.New("No se pudo obtener la información del usuario")

	ErrMissingDocumentType   = errors.New("document type is required")
	ErrMissingNumber         = errors.New("document number is required")
	ErrMissingBirthDate      = errors.New("birth date is required")
	ErrInvalidDocumentType   = errors.New("invalid document type")
	ErrInvalidBirthDate      = errors.New("birth date must be YYYY-MM-DD")
	ErrMissingAccessToken    = errors.New("login response has no access token")
	ErrMissingOrderID        = errors.New("order id is required")
	ErrMissingNotificationID = errors.New("notification id is required")
)

// DocumentTypes accepted by the patient login.
var DocumentTypes = []string{"CC", "CE", "PA", "TI"}

// APIError is a failed call to the lab backend. Status is 0 when no response
// arrived.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("lab backend unreachable: %s", e.Message)
	}
	return fmt.Sprintf("lab backend returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a login input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingDocumentType) ||
		errors.Is(err, ErrMissingNumber) ||
		errors.Is(err, ErrMissingBirthDate) ||
		errors.Is(err, ErrInvalidDocumentType) ||
		errors.Is(err, ErrInvalidBirthDate) ||
		errors.Is(err, ErrMissingOrderID) ||
		errors.Is(err, ErrMissingNotificationID)
}

// UserMessage returns the message to show for err: the backend message of an
// APIError, the text of a known portal error, else fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, ErrNoIdentity) {
		return ErrNoIdentity.Error()
	}
	if IsValidation(err) {
		return err.Error()
	}
	return fallback
}

// newAPIError builds an APIError from a non-2xx response body. The backend
// sends {"message": "..."} or {"message": ["...", "..."]}.
func newAPIError(status int, body []byte, fallback string) *APIError {
	e := &APIError{Status: status, Message: fallback}

	var payload struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Message) == 0 {
		return e
	}

	var s string
	if err := json.Unmarshal(payload.Message, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			e.Message = s
		}
		return e
	}

	var list []string
	if err := json.Unmarshal(payload.Message, &list); err == nil && len(list) > 0 {
		e.Message = strings.Join(list, ", ")
	}
	return e
}

// StatusFor maps an error to the HTTP status the API answers with.
func StatusFor(err error) int {
	var apiErr *APIError
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoIdentity):
		return http.StatusUnprocessableEntity
	case errors.As(err, &apiErr):
		switch apiErr.Status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return apiErr.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
