package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"plazadatos/internal/auth"
	"plazadatos/internal/client"
	"plazadatos/internal/database"
	"plazadatos/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T) *httptest.Server {
	issuer := auth.NewTokenIssuer(strings.Repeat("c", 32), time.Hour)
	admin := models.User{ID: 1, FirstName: "Ada", LastName: "Admin", Email: "admin@plaza.cl", RoleID: models.RoleAdmin, Active: true}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			token, _, _ := issuer.Issue(admin)
			_ = json.NewEncoder(w).Encode(client.LoginResponse{AccessToken: token, TokenType: "bearer", User: admin})
		case "/admin/encuestas-resumen":
			_ = json.NewEncoder(w).Encode([]database.SurveySummary{{ID: 3, Title: "Hábitos", TotalParticipation: 2}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newApp(url, sessionPath string) (*app, *bytes.Buffer) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	c := client.New(url, client.WithTokenStore(client.NewFileStore(sessionPath)), client.WithLogger(log))
	var out bytes.Buffer
	return &app{client: c, session: client.NewSession(c), out: &out, log: log}, &out
}

func TestLoginAndExport(t *testing.T) {
	srv := fakeAPI(t)
	defer srv.Close()
	dir := t.TempDir()
	a, out := newApp(srv.URL, filepath.Join(dir, "session.json"))
	ctx := context.Background()

	require.NoError(t, a.run(ctx, "login", []string{"-email", "admin@plaza.cl", "-password", "x"}))
	assert.Contains(t, out.String(), "Ada Admin")

	target := filepath.Join(dir, "encuestas.csv")
	require.NoError(t, a.run(ctx, "exportar", []string{"-dataset", "encuestas", "-format", "csv", "-out", target}))
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Hábitos")

	require.NoError(t, a.run(ctx, "logout", nil))
	assert.Error(t, a.run(ctx, "exportar", []string{"-dataset", "encuestas"}))
}

func TestUnknownCommand(t *testing.T) {
	a, _ := newApp("http://localhost:0", filepath.Join(t.TempDir(), "s.json"))
	assert.Error(t, a.run(context.Background(), "bailar", nil))
}
