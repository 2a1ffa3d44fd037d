package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// signingKey signs test tokens. The portal never verifies signatures, so any
// key works.
var signingKey = []byte("lab-portal-test-key")

// GenerateTestJWT signs the given claims with HS256.
func GenerateTestJWT(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(signingKey)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tokenString
}

// GeneratePatientToken creates a token for personaID expiring at exp.
func GeneratePatientToken(t *testing.T, personaID any, exp time.Time) string {
	t.Helper()
	return GenerateTestJWT(t, jwt.MapClaims{
		"personaId": personaID,
		"exp":       exp.Unix(),
		"iat":       exp.Add(-time.Hour).Unix(),
	})
}

// GenerateValidToken creates a patient token valid for one hour.
func GenerateValidToken(t *testing.T, personaID any) string {
	t.Helper()
	return GeneratePatientToken(t, personaID, time.Now().Add(time.Hour))
}

// GenerateExpiredToken creates a patient token that expired an hour ago.
func GenerateExpiredToken(t *testing.T, personaID any) string {
	t.Helper()
	return GeneratePatientToken(t, personaID, time.Now().Add(-time.Hour))
}
