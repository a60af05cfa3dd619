package auth

import (
	"errors"
	"fmt"
	"time"

	"plazadatos/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const accessTokenKind = "access"

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID int    `json:"usuario_id"`
	RoleID int    `json:"rol_id"`
	Kind   string `json:"tipo"`
	jwt.RegisteredClaims
}

// Email is carried in the subject claim.
func (c Claims) Email() string { return c.Subject }

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TokenIssuer) TTL() time.Duration { return t.ttl }

func (t *TokenIssuer) Issue(u models.User) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := Claims{
		UserID: u.ID,
		RoleID: u.RoleID,
		Kind:   accessTokenKind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

func (t *TokenIssuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.UserID == 0 {
		return nil, fmt.Errorf("%w: missing subject or user id", ErrInvalidToken)
	}
	if claims.Kind != "" && claims.Kind != accessTokenKind {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.Kind)
	}
	return claims, nil
}
