// Package client is the HTTP client for the Plaza de Datos API. It carries
// the bearer token on every call and turns error statuses into typed errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server error")
	ErrNetwork      = errors.New("network error")
)

// Messages shown through the notifier for failures the user cannot fix inline.
const (
	MsgSessionExpired = "Sesión expirada. Por favor, inicia sesión nuevamente."
	MsgForbidden      = "No tienes permisos para esta acción"
	MsgServer         = "Error del servidor. Intenta nuevamente más tarde"
	MsgNetwork        = "Error de conexión. Verifica tu conexión a internet"
)

// APIError is returned for every non-2xx response and for transport failures (Status 0).
type APIError struct {
	Status int
	Detail string
	kind   error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%v: %s", e.kind, e.Detail)
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Detail)
}

func (e *APIError) Unwrap() error { return e.kind }

type Client struct {
	baseURL string
	http    *http.Client
	store   TokenStore
	notify  func(string)
	log     *logrus.Logger

	mu             sync.Mutex
	onUnauthorized []func()
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithTokenStore(s TokenStore) Option { return func(c *Client) { c.store = s } }

// WithNotifier sets the sink for user-facing error messages.
func WithNotifier(fn func(string)) Option { return func(c *Client) { c.notify = fn } }

func WithLogger(l *logrus.Logger) Option { return func(c *Client) { c.log = l } }

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		store:   NewMemoryStore(),
		notify:  func(string) {},
		log:     logrus.New(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Store() TokenStore { return c.store }

// OnUnauthorized registers fn to run after a 401 has cleared the stored session.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = append(c.onUnauthorized, fn)
	c.mu.Unlock()
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    interface{}
	headers map[string]string
}

// Do sends a JSON request and decodes a JSON response into out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	return c.send(ctx, request{method: method, path: path, body: body}, out)
}

func (c *Client) send(ctx context.Context, r request, out interface{}) error {
	data, err := c.raw(ctx, r)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

// raw performs the request and returns the body of a 2xx response.
func (c *Client) raw(ctx context.Context, r request) ([]byte, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	var rd io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	authed := false
	if creds, err := c.store.Load(); err == nil && creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+creds.Token)
		authed = true
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warnf("%s %s: %v", r.method, r.path, err)
		c.notify(MsgNetwork)
		return nil, &APIError{Detail: err.Error(), kind: ErrNetwork}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.notify(MsgNetwork)
		return nil, &APIError{Status: resp.StatusCode, Detail: err.Error(), kind: ErrNetwork}
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return data, nil
	}
	return nil, c.statusError(resp.StatusCode, data, authed)
}

// statusError maps a non-2xx response. authed tells whether the request
// carried a session token, so a rejected login is not reported as expiry.
func (c *Client) statusError(status int, body []byte, authed bool) error {
	e := &APIError{Status: status, Detail: detailOf(body, status)}
	switch {
	case status == http.StatusUnauthorized:
		e.kind = ErrUnauthorized
		if err := c.store.Clear(); err != nil {
			c.log.Warnf("clear session: %v", err)
		}
		c.mu.Lock()
		hooks := append([]func(){}, c.onUnauthorized...)
		c.mu.Unlock()
		for _, fn := range hooks {
			fn()
		}
		if authed {
			c.notify(MsgSessionExpired)
		}
	case status == http.StatusForbidden:
		e.kind = ErrForbidden
		c.notify(MsgForbidden)
	case status == http.StatusNotFound:
		e.kind = ErrNotFound
	case status >= 500:
		e.kind = ErrServer
		c.notify(MsgServer)
	}
	return e
}

// detailOf extracts the server's "detail" field, which is a string or a list
// of validation errors.
func detailOf(body []byte, status int) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			return s
		}
		var list []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(payload.Detail, &list) == nil {
			msgs := make([]string, 0, len(list))
			for _, it := range list {
				msgs = append(msgs, it.Msg)
			}
			return strings.Join(msgs, "; ")
		}
		return string(payload.Detail)
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) < 200 {
		return s
	}
	return http.StatusText(status)
}
