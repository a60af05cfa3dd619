package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"plazadatos/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testUser() models.User {
	return models.User{ID: 12, Email: "ana@example.com", RoleID: models.RoleAdmin}
}

func TestIssueParseRoundTrip(t *testing.T) {
	iss := NewTokenIssuer(testSecret, time.Hour)
	tok, exp, err := iss.Issue(testUser())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	c, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", c.Email())
	assert.Equal(t, 12, c.UserID)
	assert.Equal(t, models.RoleAdmin, c.RoleID)
	assert.Equal(t, "access", c.Kind)
}

func TestParseRejectsExpired(t *testing.T) {
	iss := NewTokenIssuer(testSecret, time.Minute)
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, _, err := iss.Issue(testUser())
	require.NoError(t, err)

	_, err = NewTokenIssuer(testSecret, time.Minute).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, _, err := NewTokenIssuer(testSecret, time.Hour).Issue(testUser())
	require.NoError(t, err)
	_, err = NewTokenIssuer("another-secret-another-secret-xx", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "x@example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewTokenIssuer(testSecret, time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsMissingUser(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "x@example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = NewTokenIssuer(testSecret, time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("Secreta123")
	require.NoError(t, err)
	assert.True(t, CheckPassword(h, "Secreta123"))
	assert.False(t, CheckPassword(h, "secreta123"))
	assert.False(t, CheckPassword("", "Secreta123"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Segura2024"))
	for _, p := range []string{"Ab1", "minusculas123", "MAYUSCULAS123", "SinNumeros"} {
		assert.Error(t, ValidatePassword(p), p)
	}

	longest := "Aa1" + strings.Repeat("x", 69)
	assert.NoError(t, ValidatePassword(longest))
	_, err := HashPassword(longest)
	assert.NoError(t, err)
	assert.Error(t, ValidatePassword(longest+"x"))
	// multi-byte runes count by bytes
	assert.Error(t, ValidatePassword("Aa1"+strings.Repeat("ñ", 35)))
}

func TestGoogleVerifier(t *testing.T) {
	ctx := context.Background()
	_, err := NewGoogleVerifier("").Verify(ctx, "tok")
	assert.ErrorIs(t, err, ErrGoogleDisabled)

	v := &IDTokenVerifier{clientID: "client", validate: func(ctx context.Context, token, aud string) (*idtoken.Payload, error) {
		if token != "good" {
			return nil, errors.New("bad signature")
		}
		return &idtoken.Payload{
			Issuer:  "https://accounts.google.com",
			Subject: "g-123",
			Claims: map[string]interface{}{
				"email":          "luis@gmail.com",
				"email_verified": true,
				"given_name":     "Luis",
				"family_name":    "Rojas",
			},
		}, nil
	}}
	id, err := v.Verify(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, GoogleIdentity{Subject: "g-123", Email: "luis@gmail.com", FirstName: "Luis", LastName: "Rojas"}, id)

	_, err = v.Verify(ctx, "bad")
	assert.Error(t, err)
}

func TestIdentityFromPayload_Unverified(t *testing.T) {
	_, err := identityFromPayload(&idtoken.Payload{Issuer: "accounts.google.com", Subject: "s", Claims: map[string]interface{}{"email": "a@b.c"}})
	assert.Error(t, err)
	_, err = identityFromPayload(&idtoken.Payload{Issuer: "evil.example.com", Subject: "s"})
	assert.Error(t, err)
}
