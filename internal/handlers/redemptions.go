package handlers

import (
	"net/http"
	"strings"

	"plazadatos/internal/database"

	"github.com/gin-gonic/gin"
)

type redemptionStatusRequest struct {
	Status string  `json:"estado" binding:"required"`
	Notes  *string `json:"observaciones"`
}

func (h *Handler) Redeem(c *gin.Context) {
	var req database.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	key := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	u := currentUser(c)
	r, created, err := h.store.Redeem(c.Request.Context(), u.ID, req, key)
	if err != nil {
		h.fail(c, err, "redeem")
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"mensaje": "Canje ya registrado", "canje": r})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"mensaje":          "Canje solicitado exitosamente",
		"canje":            r,
		"puntos_restantes": u.PointsAvailable - r.Points,
	})
}

func (h *Handler) MyRedemptions(c *gin.Context) {
	rows, err := h.store.ListUserRedemptions(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err, "list user redemptions")
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) GetRedemption(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	r, err := h.store.GetRedemption(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "get redemption")
		return
	}
	if !ownerOrAdmin(c, r.UserID) {
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) ListRedemptions(c *gin.Context) {
	rows, err := h.store.ListRedemptions(c.Request.Context(), c.Query("estado"))
	if err != nil {
		h.fail(c, err, "list redemptions")
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) UpdateRedemption(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req redemptionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	r, err := h.store.UpdateRedemptionStatus(c.Request.Context(), id, req.Status, currentUser(c).ID, req.Notes)
	if err != nil {
		h.fail(c, err, "update redemption")
		return
	}
	c.JSON(http.StatusOK, r)
}
