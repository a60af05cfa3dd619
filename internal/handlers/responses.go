package handlers

import (
	"net/http"

	"plazadatos/internal/database"

	"github.com/gin-gonic/gin"
)

func (h *Handler) SubmitResponses(c *gin.Context) {
	var req database.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if len(req.Answers) == 0 {
		detail(c, http.StatusUnprocessableEntity, "Debes responder al menos una pregunta")
		return
	}
	ctx := c.Request.Context()
	u := currentUser(c)
	s, err := h.store.GetSurvey(ctx, req.SurveyID)
	if err != nil {
		h.fail(c, err, "load survey")
		return
	}
	// closed surveys fall through so the repo reports them as closed
	if premiumHidden(u, s) {
		detail(c, http.StatusNotFound, "Encuesta no encontrada")
		return
	}
	res, err := h.store.SubmitResponses(ctx, u.ID, req)
	if err != nil {
		h.fail(c, err, "submit responses")
		return
	}
	h.stats.Invalidate()
	c.JSON(http.StatusOK, gin.H{
		"mensaje":          "Respuestas guardadas exitosamente",
		"id_participacion": res.ParticipationID,
		"puntos_obtenidos": res.PointsEarned,
		"puntos_totales":   res.PointsTotal,
	})
}

func (h *Handler) ResponseHistory(c *gin.Context) {
	userID, ok := intParam(c, "id_usuario")
	if !ok || !ownerOrAdmin(c, userID) {
		return
	}
	rows, err := h.store.ParticipationHistory(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "response history")
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) UserParticipations(c *gin.Context) {
	userID, ok := intParam(c, "id_usuario")
	if !ok || !ownerOrAdmin(c, userID) {
		return
	}
	rows, err := h.store.UserParticipations(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err, "user participations")
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) CheckParticipation(c *gin.Context) {
	surveyID, ok := intParam(c, "id_encuesta")
	if !ok {
		return
	}
	done, err := h.store.HasParticipated(c.Request.Context(), currentUser(c).ID, surveyID)
	if err != nil {
		h.fail(c, err, "check participation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ya_participo": done})
}

func (h *Handler) MyParticipations(c *gin.Context) {
	rows, err := h.store.UserParticipations(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err, "my participations")
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) ParticipationDetail(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	d, err := h.store.ParticipationDetail(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "participation detail")
		return
	}
	if !ownerOrAdmin(c, d.Participation.UserID) {
		return
	}
	c.JSON(http.StatusOK, d)
}
