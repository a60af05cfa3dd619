package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"plazadatos/internal/auth"
	"plazadatos/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	googleLoginTimeout   = 10 * time.Second
	DefaultWatchInterval = 30 * time.Second
)

// LoginResponse is the body of /auth/login and /auth/google.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	User        models.User `json:"user"`
}

// DecodeClaims reads the token payload without checking the signature;
// only the server can verify it.
func DecodeClaims(token string) (*auth.Claims, error) {
	claims := &auth.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func expired(c *auth.Claims, now time.Time) bool {
	if c == nil || c.ExpiresAt == nil {
		return true
	}
	return !c.ExpiresAt.Time.After(now)
}

// Session tracks the logged-in user on top of a Client's token store.
type Session struct {
	client *Client
	now    func() time.Time

	mu     sync.RWMutex
	user   *models.User
	claims *auth.Claims
}

func NewSession(c *Client) *Session {
	s := &Session{client: c, now: time.Now}
	c.OnUnauthorized(s.reset)
	return s
}

func (s *Session) reset() {
	s.mu.Lock()
	s.user, s.claims = nil, nil
	s.mu.Unlock()
}

func (s *Session) establish(resp LoginResponse) error {
	claims, err := DecodeClaims(resp.AccessToken)
	if err != nil {
		return err
	}
	u := resp.User
	if err := s.client.store.Save(Credentials{Token: resp.AccessToken, User: &u}); err != nil {
		return err
	}
	s.mu.Lock()
	s.user, s.claims = &u, claims
	s.mu.Unlock()
	return nil
}

func (s *Session) Login(ctx context.Context, email, password string) (models.User, error) {
	var resp LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := s.client.Do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return models.User{}, err
	}
	if err := s.establish(resp); err != nil {
		return models.User{}, err
	}
	return resp.User, nil
}

func (s *Session) LoginWithGoogle(ctx context.Context, credential string) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, googleLoginTimeout)
	defer cancel()
	var resp LoginResponse
	if err := s.client.Do(ctx, http.MethodPost, "/auth/google", map[string]string{"credential": credential}, &resp); err != nil {
		return models.User{}, err
	}
	if err := s.establish(resp); err != nil {
		return models.User{}, err
	}
	return resp.User, nil
}

// Restore loads a stored session. Expired or unreadable tokens are discarded.
func (s *Session) Restore() (bool, error) {
	creds, err := s.client.store.Load()
	if err != nil || creds.Token == "" {
		if err != nil {
			s.client.log.Warnf("discarding unreadable session: %v", err)
			_ = s.client.store.Clear()
		}
		return false, nil
	}
	claims, err := DecodeClaims(creds.Token)
	if err != nil || expired(claims, s.now()) {
		return false, s.Logout()
	}
	s.mu.Lock()
	s.user, s.claims = creds.User, claims
	s.mu.Unlock()
	return true, nil
}

func (s *Session) Logout() error {
	s.reset()
	return s.client.store.Clear()
}

func (s *Session) Claims() (*auth.Claims, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims, s.claims != nil
}

func (s *Session) User() (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.user != nil
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.claims != nil && !expired(s.claims, s.now())
}

func (s *Session) IsAdmin() bool {
	c, ok := s.Claims()
	return ok && c.RoleID == models.RoleAdmin
}

// Watch polls the token expiry until ctx ends or the token expires, in which
// case it logs out and calls onExpire.
func (s *Session) Watch(ctx context.Context, interval time.Duration, onExpire func()) {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c, ok := s.Claims()
			if !ok {
				continue
			}
			if expired(c, s.now()) {
				s.client.log.Info("session expired, logging out")
				if err := s.Logout(); err != nil {
					s.client.log.Warnf("logout: %v", err)
				}
				if onExpire != nil {
					onExpire()
				}
				return
			}
		}
	}
}
