package handlers

import (
	"net/http"

	"plazadatos/internal/database"
	"plazadatos/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// surveyRequest defaults estado to true when the client omits it.
type surveyRequest struct {
	models.Survey
	Active *bool `json:"estado"`
}

// premiumHidden reports whether s is restricted away from u.
func premiumHidden(u models.User, s models.Survey) bool {
	return !u.IsAdmin() && s.Visibility == models.VisiblePremium
}

// visibleTo reports whether u may open s.
func visibleTo(u models.User, s models.Survey) bool {
	if u.IsAdmin() {
		return true
	}
	return s.Active && !premiumHidden(u, s)
}

func (h *Handler) ListSurveys(c *gin.Context) {
	u := currentUser(c)
	f := database.SurveyFilter{
		Skip:        queryInt(c, "skip", 0),
		Limit:       queryInt(c, "limit", 20),
		OrderBy:     c.Query("order_by"),
		Direction:   c.Query("order_direction"),
		Visibility:  c.Query("visible_para"),
		HidePremium: !u.IsAdmin(),
	}
	list, err := h.store.ListActiveSurveys(c.Request.Context(), u.ID, f)
	if err != nil {
		h.fail(c, err, "list surveys")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) GetSurvey(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	s, err := h.store.GetSurvey(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "get survey")
		return
	}
	if !visibleTo(currentUser(c), s) {
		detail(c, http.StatusNotFound, "Encuesta no encontrada")
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) CreateSurvey(c *gin.Context) {
	var req surveyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	s := req.Survey
	s.Active = req.Active == nil || *req.Active
	if err := s.Normalize(); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.Validate(); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.store.CreateSurvey(c.Request.Context(), s, currentUser(c).ID)
	if err != nil {
		h.fail(c, err, "create survey")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"mensaje": "Encuesta creada exitosamente", "id_encuesta": id, "titulo": s.Title})
}

func (h *Handler) UpdateSurvey(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var p database.SurveyPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	if p.Visibility != nil && !models.ValidVisibility(*p.Visibility) {
		detail(c, http.StatusBadRequest, "visible_para inválido: "+*p.Visibility)
		return
	}
	if p.Points != nil && *p.Points < 0 {
		detail(c, http.StatusBadRequest, "Los puntos no pueden ser negativos")
		return
	}
	if p.Questions != nil {
		// validate the replacement questions on a throwaway survey
		tmp := models.Survey{Title: "-", Questions: *p.Questions}
		if err := tmp.Normalize(); err != nil {
			detail(c, http.StatusBadRequest, err.Error())
			return
		}
		if err := tmp.Validate(); err != nil {
			detail(c, http.StatusBadRequest, err.Error())
			return
		}
		p.Questions = &tmp.Questions
	}
	s, err := h.store.UpdateSurvey(c.Request.Context(), id, p)
	if err != nil {
		h.fail(c, err, "update survey")
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) DeleteSurvey(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteSurvey(c.Request.Context(), id); err != nil {
		h.fail(c, err, "delete survey")
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": "Encuesta desactivada exitosamente"})
}

func activityRate(c database.SurveyCounts) decimal.Decimal {
	if c.Total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(c.Active)).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(c.Total))).Round(2)
}

func (h *Handler) SurveyAdminStats(c *gin.Context) {
	counts, err := h.store.SurveyCounts(c.Request.Context())
	if err != nil {
		h.fail(c, err, "survey counts")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_encuestas":     counts.Total,
		"encuestas_activas":   counts.Active,
		"encuestas_inactivas": counts.Inactive,
		"tasa_actividad":      activityRate(counts),
	})
}
