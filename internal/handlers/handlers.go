package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"plazadatos/internal/auth"
	"plazadatos/internal/database"
	"plazadatos/internal/middleware"
	"plazadatos/internal/models"
	"plazadatos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Store is the slice of the repository the HTTP layer depends on.
type Store interface {
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, u models.User, hash string, bonus int) (int, error)
	GetUserByID(ctx context.Context, id int) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, string, error)
	UpsertGoogleUser(ctx context.Context, p database.GoogleProfile, bonus int) (models.User, bool, error)
	UpdateUserContact(ctx context.Context, id int, p database.UserPatch) (models.User, error)
	UpdatePassword(ctx context.Context, id int, hash string) error
	UpdateProfile(ctx context.Context, id int, f database.ProfileFields) (models.User, error)
	CompleteProfile(ctx context.Context, userID int, f database.ProfileFields, points int) (int, error)
	PointsLedger(ctx context.Context, userID int) ([]models.LedgerEntry, error)

	ListActiveSurveys(ctx context.Context, userID int, f database.SurveyFilter) ([]models.SurveyListing, error)
	GetSurvey(ctx context.Context, id int) (models.Survey, error)
	CreateSurvey(ctx context.Context, s models.Survey, creatorID int) (int, error)
	UpdateSurvey(ctx context.Context, id int, p database.SurveyPatch) (models.Survey, error)
	DeleteSurvey(ctx context.Context, id int) error
	SurveyCounts(ctx context.Context) (database.SurveyCounts, error)

	SubmitResponses(ctx context.Context, userID int, req database.SubmitRequest) (database.SubmitResult, error)
	HasParticipated(ctx context.Context, userID, surveyID int) (bool, error)
	ParticipationHistory(ctx context.Context, userID int) ([]database.HistoryEntry, error)
	UserParticipations(ctx context.Context, userID int) ([]models.Participation, error)
	ParticipationDetail(ctx context.Context, id int) (database.ParticipationDetail, error)

	ListPrizes(ctx context.Context, onlyActive bool) ([]models.Prize, error)
	GetPrize(ctx context.Context, id int) (models.Prize, error)
	CreatePrize(ctx context.Context, p models.Prize) (int, error)
	UpdatePrize(ctx context.Context, id int, p database.PrizePatch) (models.Prize, error)
	SetPrizeStatus(ctx context.Context, id int, status string) error
	DeletePrize(ctx context.Context, id int) error

	Redeem(ctx context.Context, userID int, req database.RedeemRequest, idempotencyKey string) (models.Redemption, bool, error)
	GetRedemption(ctx context.Context, id int) (models.Redemption, error)
	ListUserRedemptions(ctx context.Context, userID int) ([]models.Redemption, error)
	ListRedemptions(ctx context.Context, status string) ([]models.Redemption, error)
	UpdateRedemptionStatus(ctx context.Context, id int, to string, adminID int, notes *string) (models.Redemption, error)

	RecentParticipations(ctx context.Context, limit int) ([]database.RecentParticipation, error)
	SurveyStatistics(ctx context.Context, id int) (database.SurveyStatistics, error)
	DetailedResponses(ctx context.Context, id int) ([]database.DetailedResponse, error)
	SurveysSummary(ctx context.Context) ([]database.SurveySummary, error)
	SurveyTitle(ctx context.Context, id int) (string, error)

	ActiveSettings(ctx context.Context) (models.Settings, error)
	SaveSettings(ctx context.Context, s models.Settings) error
}

type Handler struct {
	store  Store
	stats  service.StatsProvider
	issuer *auth.TokenIssuer
	google auth.GoogleVerifier
	log    *logrus.Logger
	now    func() time.Time
}

func NewHandler(store Store, stats service.StatsProvider, issuer *auth.TokenIssuer, google auth.GoogleVerifier, log *logrus.Logger) *Handler {
	return &Handler{store: store, stats: stats, issuer: issuer, google: google, log: log, now: time.Now}
}

func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

// fail maps domain errors onto the status codes and messages the frontend shows.
func (h *Handler) fail(c *gin.Context, err error, op string) {
	var insufficient *database.InsufficientPointsError
	var answer *database.AnswerError
	switch {
	case errors.As(err, &insufficient):
		detail(c, http.StatusBadRequest, fmt.Sprintf("Puntos insuficientes. Necesitas %d puntos, pero tienes %d", insufficient.Need, insufficient.Have))
	case errors.As(err, &answer):
		detail(c, http.StatusUnprocessableEntity, answer.Msg)
	case errors.Is(err, database.ErrNotFound):
		detail(c, http.StatusNotFound, "Recurso no encontrado")
	case errors.Is(err, database.ErrAlreadyParticipated):
		detail(c, http.StatusBadRequest, "Ya has respondido esta encuesta")
	case errors.Is(err, database.ErrSurveyClosed):
		detail(c, http.StatusBadRequest, "La encuesta no está disponible para responder")
	case errors.Is(err, database.ErrSurveyHasResponses):
		detail(c, http.StatusConflict, "La encuesta ya tiene respuestas; no se pueden reemplazar sus preguntas")
	case errors.Is(err, database.ErrInsufficientPoints):
		detail(c, http.StatusBadRequest, "Puntos insuficientes")
	case errors.Is(err, database.ErrPrizeUnavailable):
		detail(c, http.StatusBadRequest, "El premio no está disponible")
	case errors.Is(err, database.ErrOutOfStock):
		detail(c, http.StatusBadRequest, "El premio está agotado")
	case errors.Is(err, database.ErrInvalidTransition):
		detail(c, http.StatusConflict, "Cambio de estado no permitido")
	case errors.Is(err, database.ErrDuplicateEmail):
		detail(c, http.StatusBadRequest, "El email ya está registrado.")
	case errors.Is(err, database.ErrDuplicateDocument):
		detail(c, http.StatusBadRequest, "El documento ya está registrado.")
	case errors.Is(err, database.ErrProfileComplete):
		detail(c, http.StatusBadRequest, "El perfil ya está completo")
	default:
		h.log.Errorf("%s failed: %v", op, err)
		detail(c, http.StatusInternalServerError, "Error interno del servidor")
	}
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.log.Debugf("invalid body on %s: %v", c.FullPath(), err)
	detail(c, http.StatusBadRequest, "Datos inválidos: "+err.Error())
}

func intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		detail(c, http.StatusBadRequest, "Identificador inválido: "+name)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}

// currentUser is only called behind the auth middleware.
func currentUser(c *gin.Context) models.User {
	u, _ := middleware.CurrentUser(c)
	return u
}

// ownerOrAdmin answers 403 unless the caller is userID or an administrator.
func ownerOrAdmin(c *gin.Context, userID int) bool {
	u := currentUser(c)
	if u.ID == userID || u.IsAdmin() {
		return true
	}
	detail(c, http.StatusForbidden, "No tienes permisos para ver esta información")
	return false
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.log.Warnf("health check: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "up"})
}
