package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"plazadatos/internal/database"
	"plazadatos/internal/models"

	"github.com/shopspring/decimal"
)

type SurveyQuery struct {
	Skip       int
	Limit      int
	OrderBy    string
	Direction  string
	Visibility string
}

func (q SurveyQuery) values() url.Values {
	v := url.Values{}
	if q.Skip > 0 {
		v.Set("skip", strconv.Itoa(q.Skip))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.OrderBy != "" {
		v.Set("order_by", q.OrderBy)
	}
	if q.Direction != "" {
		v.Set("order_direction", q.Direction)
	}
	if q.Visibility != "" {
		v.Set("visible_para", q.Visibility)
	}
	return v
}

type CreatedSurvey struct {
	Message string `json:"mensaje"`
	ID      int    `json:"id_encuesta"`
	Title   string `json:"titulo"`
}

type SurveyAdminStats struct {
	Total        int             `json:"total_encuestas"`
	Active       int             `json:"encuestas_activas"`
	Inactive     int             `json:"encuestas_inactivas"`
	ActivityRate decimal.Decimal `json:"tasa_actividad"`
}

type PrizeListing struct {
	models.Prize
	Available bool `json:"esta_disponible"`
}

type RedeemResult struct {
	Message    string            `json:"mensaje"`
	Redemption models.Redemption `json:"canje"`
}

type ProfileStatus struct {
	Complete bool            `json:"perfil_completo"`
	Missing  []string        `json:"campos_faltantes"`
	Points   int             `json:"puntos_por_completar"`
	Settings models.Settings `json:"configuracion"`
}

type ProfileResult struct {
	Message string `json:"mensaje"`
	Points  int    `json:"puntos_obtenidos"`
}

type ExportData struct {
	Stats          database.DashboardStats        `json:"stats"`
	Participations []database.RecentParticipation `json:"participaciones"`
	GeneratedAt    string                         `json:"fechaGeneracion"`
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	return c.send(ctx, request{method: http.MethodGet, path: path, query: q}, out)
}

// Surveys

func (c *Client) ActiveSurveys(ctx context.Context, q SurveyQuery) ([]models.SurveyListing, error) {
	var res []models.SurveyListing
	err := c.get(ctx, "/encuestas/", q.values(), &res)
	return res, err
}

func (c *Client) Survey(ctx context.Context, id int) (models.Survey, error) {
	var s models.Survey
	err := c.get(ctx, fmt.Sprintf("/encuestas/%d", id), nil, &s)
	return s, err
}

func (c *Client) CreateSurvey(ctx context.Context, s models.Survey) (CreatedSurvey, error) {
	var res CreatedSurvey
	err := c.Do(ctx, http.MethodPost, "/encuestas/", s, &res)
	return res, err
}

func (c *Client) UpdateSurvey(ctx context.Context, id int, p database.SurveyPatch) (models.Survey, error) {
	var s models.Survey
	err := c.Do(ctx, http.MethodPut, fmt.Sprintf("/encuestas/%d", id), p, &s)
	return s, err
}

func (c *Client) DeleteSurvey(ctx context.Context, id int) error {
	return c.Do(ctx, http.MethodDelete, fmt.Sprintf("/encuestas/%d", id), nil, nil)
}

func (c *Client) SurveyAdminStats(ctx context.Context) (SurveyAdminStats, error) {
	var res SurveyAdminStats
	err := c.get(ctx, "/admin/encuestas/estadisticas", nil, &res)
	return res, err
}

// Responses

func (c *Client) SubmitResponses(ctx context.Context, req database.SubmitRequest) (database.SubmitResult, error) {
	var res database.SubmitResult
	err := c.Do(ctx, http.MethodPost, "/respuestas/", req, &res)
	return res, err
}

func (c *Client) HasParticipated(ctx context.Context, surveyID int) (bool, error) {
	var res struct {
		Done bool `json:"ya_participo"`
	}
	err := c.get(ctx, fmt.Sprintf("/participaciones/verificar/%d", surveyID), nil, &res)
	return res.Done, err
}

func (c *Client) History(ctx context.Context) ([]models.Participation, error) {
	var res []models.Participation
	err := c.get(ctx, "/participaciones/historial", nil, &res)
	return res, err
}

// Prizes

func (c *Client) Prizes(ctx context.Context) ([]PrizeListing, error) {
	var res []PrizeListing
	err := c.get(ctx, "/premios/", nil, &res)
	return res, err
}

// Redeem sends idempotencyKey, when set, so a retried request is not charged twice.
func (c *Client) Redeem(ctx context.Context, req database.RedeemRequest, idempotencyKey string) (RedeemResult, error) {
	r := request{method: http.MethodPost, path: "/premios/canjear", body: req}
	if idempotencyKey != "" {
		r.headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	var res RedeemResult
	err := c.send(ctx, r, &res)
	return res, err
}

func (c *Client) Redemptions(ctx context.Context) ([]models.Redemption, error) {
	var res []models.Redemption
	err := c.get(ctx, "/premios/canjes", nil, &res)
	return res, err
}

// Account

func (c *Client) Me(ctx context.Context) (models.User, error) {
	var u models.User
	err := c.get(ctx, "/usuario/me", nil, &u)
	return u, err
}

func (c *Client) UpdateMe(ctx context.Context, p database.UserPatch) (models.User, error) {
	var u models.User
	err := c.Do(ctx, http.MethodPut, "/usuario/me", p, &u)
	return u, err
}

func (c *Client) Points(ctx context.Context) (models.PointsSummary, error) {
	var p models.PointsSummary
	err := c.get(ctx, "/usuario/me/puntos", nil, &p)
	return p, err
}

func (c *Client) ChangePassword(ctx context.Context, current, next, confirm string) error {
	body := map[string]string{"contrasena_actual": current, "nueva_contrasena": next, "confirmar_contrasena": confirm}
	return c.Do(ctx, http.MethodPost, "/usuario/cambiar-contrasena", body, nil)
}

// Admin

func (c *Client) DashboardStats(ctx context.Context) (database.DashboardStats, error) {
	var st database.DashboardStats
	err := c.get(ctx, "/dashboard/stats", nil, &st)
	return st, err
}

func (c *Client) DashboardCharts(ctx context.Context) (database.DashboardCharts, error) {
	var ch database.DashboardCharts
	err := c.get(ctx, "/dashboard/charts", nil, &ch)
	return ch, err
}

func (c *Client) RecentParticipations(ctx context.Context, limit int) ([]database.RecentParticipation, error) {
	var res []database.RecentParticipation
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	err := c.get(ctx, "/dashboard/participaciones", q, &res)
	return res, err
}

func (c *Client) ExportData(ctx context.Context) (ExportData, error) {
	var res ExportData
	err := c.get(ctx, "/dashboard/export-data", nil, &res)
	return res, err
}

func (c *Client) DetailedResponses(ctx context.Context, surveyID int) ([]database.DetailedResponse, error) {
	var res []database.DetailedResponse
	err := c.get(ctx, fmt.Sprintf("/admin/respuestas-detalladas/%d", surveyID), nil, &res)
	return res, err
}

func (c *Client) SurveysSummary(ctx context.Context) ([]database.SurveySummary, error) {
	var res []database.SurveySummary
	err := c.get(ctx, "/admin/encuestas-resumen", nil, &res)
	return res, err
}

func (c *Client) AdminRedemptions(ctx context.Context, status string) ([]models.Redemption, error) {
	q := url.Values{}
	if status != "" {
		q.Set("estado", status)
	}
	var res []models.Redemption
	err := c.get(ctx, "/admin/canjes", q, &res)
	return res, err
}

// Profile

func (c *Client) ProfileStatus(ctx context.Context) (ProfileStatus, error) {
	var res ProfileStatus
	err := c.get(ctx, "/perfil/estado", nil, &res)
	return res, err
}

func (c *Client) CompleteProfile(ctx context.Context, f database.ProfileFields) (ProfileResult, error) {
	var res ProfileResult
	err := c.Do(ctx, http.MethodPost, "/perfil/completar", f, &res)
	return res, err
}
