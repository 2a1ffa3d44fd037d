package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/WailSalutem-Health-Care/lab-portal/internal/normalize"
)

// Principal holds identity extracted from a session token.
type Principal struct {
	PersonaID   int64
	HasIdentity bool
	ExpiresAt   time.Time
	Claims      jwt.MapClaims
}

var (
	ErrNoToken      = errors.New("no token provided")
	ErrInvalidToken = errors.New("invalid token")
)

// identityClaims is the claim priority for the patient identity.
var identityClaims = []string{"personaId", "sub", "id_persona", "id"}

// ParseClaims decodes the second dot-separated segment of a token. The
// header and signature are ignored; the backend that issued the token is the
// one that checks them.
func ParseClaims(token string) (jwt.MapClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoToken
	}
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: expected at least two segments", ErrInvalidToken)
	}
	payload, err := jwt.DecodeSegment(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// ResolveIdentity returns the patient id carried by the token. Any decode
// failure yields false.
func ResolveIdentity(token string) (int64, bool) {
	claims, err := ParseClaims(token)
	if err != nil {
		return 0, false
	}
	return IdentityFromClaims(claims)
}

// IdentityFromClaims picks the first non-null identity claim and coerces it.
// Later claims are not consulted when the first one fails to coerce.
func IdentityFromClaims(claims jwt.MapClaims) (int64, bool) {
	for _, key := range identityClaims {
		v, ok := claims[key]
		if !ok || v == nil {
			continue
		}
		return CoerceID(v)
	}
	return 0, false
}

// CoerceID converts a claim or response value to a patient id. Zero,
// fractional and non-numeric values are not ids.
func CoerceID(v any) (int64, bool) {
	f, ok := normalize.Number(v)
	if !ok || f == 0 || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}

// ExpiresAt returns the exp claim as a time.
func ExpiresAt(claims jwt.MapClaims) (time.Time, bool) {
	v, ok := claims["exp"]
	if !ok {
		return time.Time{}, false
	}
	exp, ok := normalize.Number(v)
	if !ok {
		return time.Time{}, false
	}
	sec, frac := math.Modf(exp)
	return time.Unix(int64(sec), int64(frac*1e9)), true
}

// NotExpired reports whether exp lies strictly after now.
func NotExpired(claims jwt.MapClaims, now time.Time) bool {
	exp, ok := ExpiresAt(claims)
	return ok && exp.After(now)
}

// NewPrincipal decodes a token into a principal. Expiry is not checked.
func NewPrincipal(token string) (*Principal, error) {
	claims, err := ParseClaims(token)
	if err != nil {
		return nil, err
	}
	pr := &Principal{Claims: claims}
	pr.PersonaID, pr.HasIdentity = IdentityFromClaims(claims)
	pr.ExpiresAt, _ = ExpiresAt(claims)
	return pr, nil
}
