package auth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/idtoken"
)

var ErrGoogleDisabled = errors.New("google login not configured")

type GoogleIdentity struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
	Picture   string
}

type GoogleVerifier interface {
	Verify(ctx context.Context, credential string) (GoogleIdentity, error)
}

type validateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// IDTokenVerifier checks Google ID tokens against the OAuth client id.
type IDTokenVerifier struct {
	clientID string
	validate validateFunc
}

func NewGoogleVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{clientID: clientID, validate: idtoken.Validate}
}

func (v *IDTokenVerifier) Verify(ctx context.Context, credential string) (GoogleIdentity, error) {
	if v == nil || v.clientID == "" {
		return GoogleIdentity{}, ErrGoogleDisabled
	}
	p, err := v.validate(ctx, credential, v.clientID)
	if err != nil {
		return GoogleIdentity{}, fmt.Errorf("validate google token: %w", err)
	}
	return identityFromPayload(p)
}

func identityFromPayload(p *idtoken.Payload) (GoogleIdentity, error) {
	if p.Issuer != "accounts.google.com" && p.Issuer != "https://accounts.google.com" {
		return GoogleIdentity{}, fmt.Errorf("unexpected issuer %q", p.Issuer)
	}
	claim := func(k string) string {
		s, _ := p.Claims[k].(string)
		return s
	}
	verified, _ := p.Claims["email_verified"].(bool)
	if !verified {
		return GoogleIdentity{}, errors.New("google email not verified")
	}
	id := GoogleIdentity{
		Subject:   p.Subject,
		Email:     claim("email"),
		FirstName: claim("given_name"),
		LastName:  claim("family_name"),
		Picture:   claim("picture"),
	}
	if id.Subject == "" || id.Email == "" {
		return GoogleIdentity{}, errors.New("google token missing subject or email")
	}
	if id.FirstName == "" {
		id.FirstName = claim("name")
	}
	return id, nil
}
