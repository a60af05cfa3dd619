package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"plazadatos/internal/auth"
	"plazadatos/internal/database"
	"plazadatos/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notes struct {
	mu   sync.Mutex
	msgs []string
}

func (n *notes) add(m string) {
	n.mu.Lock()
	n.msgs = append(n.msgs, m)
	n.mu.Unlock()
}

func (n *notes) list() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.msgs...)
}

func statusServer(status int, body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   error
		detail string
		note   string
	}{
		{http.StatusForbidden, `{"detail":"No tienes permisos de administrador"}`, ErrForbidden, "No tienes permisos de administrador", MsgForbidden},
		{http.StatusInternalServerError, `{"detail":"Error interno del servidor"}`, ErrServer, "Error interno del servidor", MsgServer},
		{http.StatusNotFound, `{"detail":"Encuesta no encontrada"}`, ErrNotFound, "Encuesta no encontrada", ""},
		{http.StatusBadRequest, `{"detail":"El email ya está registrado."}`, nil, "El email ya está registrado.", ""},
		{http.StatusUnprocessableEntity, `{"detail":[{"msg":"campo requerido"},{"msg":"otro"}]}`, nil, "campo requerido; otro", ""},
	}
	for _, tc := range cases {
		srv := statusServer(tc.status, tc.body)
		n := &notes{}
		c := New(srv.URL, WithNotifier(n.add))
		err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil)
		srv.Close()

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr), "status %d", tc.status)
		assert.Equal(t, tc.status, apiErr.Status)
		assert.Equal(t, tc.detail, apiErr.Detail)
		if tc.want != nil {
			assert.ErrorIs(t, err, tc.want)
		}
		if tc.note == "" {
			assert.Empty(t, n.list())
		} else {
			assert.Equal(t, []string{tc.note}, n.list())
		}
	}
}

func TestUnauthorizedClearsStore(t *testing.T) {
	srv := statusServer(http.StatusUnauthorized, `{"detail":"Token inválido o expirado"}`)
	defer srv.Close()
	store := NewMemoryStore()
	require.NoError(t, store.Save(Credentials{Token: "abc"}))
	n := &notes{}
	c := New(srv.URL, WithTokenStore(store), WithNotifier(n.add))
	fired := false
	c.OnUnauthorized(func() { fired = true })

	err := c.Do(context.Background(), http.MethodGet, "/usuario/me", nil, nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
	creds, _ := store.Load()
	assert.Empty(t, creds.Token)
	assert.True(t, fired)
	assert.Equal(t, []string{MsgSessionExpired}, n.list())
}

func TestRejectedLoginIsNotSessionExpiry(t *testing.T) {
	srv := statusServer(http.StatusUnauthorized, `{"detail":"Email o contraseña incorrectos"}`)
	defer srv.Close()
	n := &notes{}
	c := New(srv.URL, WithNotifier(n.add))

	_, err := NewSession(c).Login(context.Background(), "ana@plaza.cl", "mala")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Email o contraseña incorrectos", apiErr.Detail)
	assert.Empty(t, n.list())
}

func TestNetworkError(t *testing.T) {
	srv := statusServer(http.StatusOK, `{}`)
	url := srv.URL
	srv.Close()
	n := &notes{}
	c := New(url, WithNotifier(n.add))
	err := c.Do(context.Background(), http.MethodGet, "/health", nil, nil)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, []string{MsgNetwork}, n.list())
}

func TestBearerHeaderAndRedeemKey(t *testing.T) {
	var gotAuth, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotKey = r.Header.Get("Idempotency-Key")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"mensaje":"ok","canje":{"id_canje":5,"estado":"solicitado"}}`))
	}))
	defer srv.Close()
	store := NewMemoryStore()
	require.NoError(t, store.Save(Credentials{Token: "tok-1"}))
	c := New(srv.URL, WithTokenStore(store))

	res, err := c.Redeem(context.Background(), database.RedeemRequest{PrizeID: 2}, "key-7")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.Equal(t, "key-7", gotKey)
	assert.Equal(t, 5, res.Redemption.ID)
}

func TestSurveyQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`[{"id_encuesta":1,"titulo":"A","puede_participar":true}]`))
	}))
	defer srv.Close()
	c := New(srv.URL)
	list, err := c.ActiveSurveys(context.Background(), SurveyQuery{Limit: 5, OrderBy: "titulo"})
	require.NoError(t, err)
	assert.Equal(t, "limit=5&order_by=titulo", gotQuery)
	require.Len(t, list, 1)
	assert.True(t, list[0].CanParticipate)
}

func loginServer(t *testing.T, issuer *auth.TokenIssuer) *httptest.Server {
	u := models.User{ID: 7, Email: "ana@plaza.cl", RoleID: models.RoleAdmin, Active: true}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/usuario/me" {
			if r.Header.Get("Authorization") == "" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(u)
			return
		}
		token, _, err := issuer.Issue(u)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(LoginResponse{AccessToken: token, TokenType: "bearer", User: u})
	}))
}

func TestSessionLoginRestoreLogout(t *testing.T) {
	issuer := auth.NewTokenIssuer(strings.Repeat("x", 32), time.Hour)
	srv := loginServer(t, issuer)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "plaza", "session.json")
	store := NewFileStore(path)
	s := NewSession(New(srv.URL, WithTokenStore(store)))

	u, err := s.Login(context.Background(), "ana@plaza.cl", "Secreto123")
	require.NoError(t, err)
	assert.Equal(t, 7, u.ID)
	assert.True(t, s.IsAuthenticated())
	assert.True(t, s.IsAdmin())
	claims, ok := s.Claims()
	require.True(t, ok)
	assert.Equal(t, "ana@plaza.cl", claims.Email())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again := NewSession(New(srv.URL, WithTokenStore(NewFileStore(path))))
	restored, err := again.Restore()
	require.NoError(t, err)
	assert.True(t, restored)
	user, ok := again.User()
	require.True(t, ok)
	assert.Equal(t, "ana@plaza.cl", user.Email)

	require.NoError(t, s.Logout())
	assert.False(t, s.IsAuthenticated())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestRestoreDiscardsExpiredAndMalformed(t *testing.T) {
	issuer := auth.NewTokenIssuer(strings.Repeat("x", 32), time.Minute)
	token, _, err := issuer.Issue(models.User{ID: 1, Email: "a@b.cl"})
	require.NoError(t, err)

	store := NewMemoryStore()
	require.NoError(t, store.Save(Credentials{Token: token}))
	s := NewSession(New("http://unused", WithTokenStore(store)))
	s.now = func() time.Time { return time.Now().Add(time.Hour) }
	ok, err := s.Restore()
	require.NoError(t, err)
	assert.False(t, ok)
	creds, _ := store.Load()
	assert.Empty(t, creds.Token)

	require.NoError(t, store.Save(Credentials{Token: "not-a-jwt"}))
	ok, err = s.Restore()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWatchLogsOutOnExpiry(t *testing.T) {
	issuer := auth.NewTokenIssuer(strings.Repeat("x", 32), time.Hour)
	srv := loginServer(t, issuer)
	defer srv.Close()
	store := NewMemoryStore()
	s := NewSession(New(srv.URL, WithTokenStore(store)))
	_, err := s.Login(context.Background(), "ana@plaza.cl", "Secreto123")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	done := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go s.Watch(ctx, 5*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("watch did not fire")
	}
	creds, _ := store.Load()
	assert.Empty(t, creds.Token)
	assert.False(t, s.IsAuthenticated())
}

func TestSessionResetOn401(t *testing.T) {
	issuer := auth.NewTokenIssuer(strings.Repeat("x", 32), time.Hour)
	srv := loginServer(t, issuer)
	defer srv.Close()
	store := NewMemoryStore()
	c := New(srv.URL, WithTokenStore(store))
	s := NewSession(c)
	_, err := s.Login(context.Background(), "ana@plaza.cl", "Secreto123")
	require.NoError(t, err)

	_, err = c.Me(context.Background())
	require.NoError(t, err)

	require.NoError(t, store.Clear())
	_, err = c.Me(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, s.IsAuthenticated())
}
