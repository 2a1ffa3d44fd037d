package results

import (
	"strconv"
	"strings"
	"time"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/normalize"
)

// Patient is the header block of a results payload.
type Patient struct {
	ID             string `json:"id"`
	DocumentType   string `json:"tipoDocumento"`
	DocumentNumber string `json:"numeroDocumento"`
	FirstNames     string `json:"nombres"`
	LastNames      string `json:"apellidos"`
	BirthDate      string `json:"fechaNacimiento"`
	Gender         string `json:"genero"`
	Phone          string `json:"telefono,omitempty"`
	Email          string `json:"email,omitempty"`
	Address        string `json:"direccion,omitempty"`
	Insurer        string `json:"eps,omitempty"`
	InsurerCode    string `json:"codigoEps,omitempty"`
}

func newPatient(p *RawPatient) *Patient {
	if p == nil {
		return nil
	}
	return &Patient{
		ID:             p.ID.Value,
		DocumentType:   p.DocumentType.Value,
		DocumentNumber: p.DocumentNumber.Value,
		FirstNames:     p.FirstNames.Value,
		LastNames:      p.LastNames.Value,
		BirthDate:      p.BirthDate.Value,
		Gender:         p.Gender.Value,
		Phone:          p.Phone.Value,
		Email:          p.Email.Value,
		Address:        p.Address.Value,
		Insurer:        p.InsurerName.Value,
		InsurerCode:    p.InsurerCode.Value,
	}
}

// FullName joins first and last names.
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstNames + " " + p.LastNames)
}

// Age returns completed years at now, or 0 for a missing or unreadable
// birth date.
func (p *Patient) Age(now time.Time) int {
	age, _ := AgeAt(p.BirthDate, now)
	return age
}

// OrderInfo is the order block of a results payload.
type OrderInfo struct {
	ID                   string `json:"id,omitempty"`
	Number               string `json:"numero,omitempty"`
	Date                 string `json:"fecha,omitempty"`
	ExternalProfessional string `json:"profesional_externo,omitempty"`
}

func newOrderInfo(o *RawOrder) *OrderInfo {
	if o == nil {
		return nil
	}
	return &OrderInfo{
		ID:                   o.ID.Value,
		Number:               o.Number.Value,
		Date:                 o.Date.Value,
		ExternalProfessional: o.ExternalProfessional.Value,
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate reads the date formats the backend emits. Date-only and
// zone-less values are read in loc.
func ParseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// AgeAt returns completed years between birthDate and now. A birthday not
// yet reached this year does not count.
func AgeAt(birthDate string, now time.Time) (int, bool) {
	birth, ok := ParseDate(birthDate, now.Location())
	if !ok {
		return 0, false
	}
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age, true
}

// FormatOrderDate renders an order date as "dd/mm/yyyy, hh:mm" in loc.
// Unreadable dates are returned unchanged.
func FormatOrderDate(s string, loc *time.Location) string {
	t, ok := ParseDate(s, loc)
	if !ok {
		return s
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("02/01/2006, 15:04")
}

// NotSpecified fills card fields with no source value.
const NotSpecified = "No especificado"

// PatientCard is the patient summary shown above an order's results.
type PatientCard struct {
	Name           string `json:"paciente"`
	Identification string `json:"identificacion"`
	SexAge         string `json:"sexoEdad"`
	Insurer        string `json:"administradora"`
	Phone          string `json:"telefono"`
	Physician      string `json:"medico"`
	OrderDate      string `json:"fechaOrden"`
}

// BuildPatientCard combines the normalized profile with the results header.
// header and order may be nil.
func BuildPatientCard(profile normalize.Profile, header *Patient, order *OrderInfo, now time.Time) PatientCard {
	raw := profile.Raw
	loc := now.Location()

	card := PatientCard{
		Name:           first(ptr(profile.FullName), rawString(raw, "nombre1", "nombre2", "apellido1", "apellido2")),
		Identification: first(ptr(profile.Number), rawFirst(raw, "numeroid", "num_documento")),
		Insurer:        first(ptr(profile.Insurer), ptr(profile.InsurerName)),
		Phone:          first(ptr(profile.Mobile), rawFirst(raw, "telefono", "tel_movil")),
		Physician:      rawFirst(raw, "medico"),
	}

	if header != nil && card.Insurer == "" {
		card.Insurer = header.Insurer
	}
	if card.Insurer == "" {
		card.Insurer = rawFirst(raw, "eps", "administradora", "aseguradora", "entidad")
	}

	sex := first(ptr(profile.Sex), "N/A")
	age := "N/A"
	if n, ok := AgeAt(ptr(profile.BirthDate), now); ok {
		age = strconv.Itoa(n)
	}
	card.SexAge = sex + "/" + age + " años"

	if order != nil {
		card.Physician = first(order.ExternalProfessional, card.Physician)
	}
	if order != nil && order.Date != "" {
		card.OrderDate = FormatOrderDate(order.Date, loc)
	} else {
		card.OrderDate = now.Format("02/01/2006")
	}

	for _, f := range []*string{&card.Name, &card.Identification, &card.Insurer, &card.Phone, &card.Physician} {
		if *f == "" {
			*f = NotSpecified
		}
	}
	return card
}

func ptr(s *string) string {
	return normalize.Value(s, "")
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func rawFirst(r normalize.Record, keys ...string) string {
	for _, k := range keys {
		if s, ok := r.String(k); ok && s != "" {
			return s
		}
	}
	return ""
}

func rawString(r normalize.Record, keys ...string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if s, ok := r.String(k); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
