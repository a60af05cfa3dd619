package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const exportParticipations = 50

func (h *Handler) DashboardStats(c *gin.Context) {
	st, err := h.stats.DashboardStats(c.Request.Context())
	if err != nil {
		h.fail(c, err, "dashboard stats")
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) DashboardCharts(c *gin.Context) {
	ch, err := h.stats.DashboardCharts(c.Request.Context())
	if err != nil {
		h.fail(c, err, "dashboard charts")
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (h *Handler) RecentParticipations(c *gin.Context) {
	limit := queryInt(c, "limit", 10)
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	rows, err := h.store.RecentParticipations(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err, "recent participations")
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) DashboardExport(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.stats.DashboardStats(ctx)
	if err != nil {
		h.fail(c, err, "dashboard stats")
		return
	}
	rows, err := h.store.RecentParticipations(ctx, exportParticipations)
	if err != nil {
		h.fail(c, err, "recent participations")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":           st,
		"participaciones": rows,
		"fechaGeneracion": h.now().Format(time.RFC3339),
	})
}

func (h *Handler) SurveyStatistics(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	st, err := h.store.SurveyStatistics(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "survey statistics")
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) DetailedResponses(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	rows, err := h.store.DetailedResponses(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "detailed responses")
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) SurveysSummary(c *gin.Context) {
	rows, err := h.store.SurveysSummary(c.Request.Context())
	if err != nil {
		h.fail(c, err, "surveys summary")
		return
	}
	c.JSON(http.StatusOK, rows)
}
