package handlers

import (
	"net/http"

	"plazadatos/internal/auth"
	"plazadatos/internal/database"
	"plazadatos/internal/models"

	"github.com/gin-gonic/gin"
)

type ChangePasswordRequest struct {
	Current string `json:"contrasena_actual" binding:"required"`
	New     string `json:"nueva_contrasena" binding:"required"`
	Confirm string `json:"confirmar_contrasena" binding:"required"`
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (h *Handler) UpdateMe(c *gin.Context) {
	var p database.UserPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	u, err := h.store.UpdateUserContact(c.Request.Context(), currentUser(c).ID, p)
	if err != nil {
		h.fail(c, err, "update user")
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) MyPoints(c *gin.Context) {
	u := currentUser(c)
	c.JSON(http.StatusOK, models.PointsSummary{Total: u.PointsTotal, Available: u.PointsAvailable, Redeemed: u.PointsRedeemed})
}

func (h *Handler) MyLedger(c *gin.Context) {
	entries, err := h.store.PointsLedger(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		h.fail(c, err, "points ledger")
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if req.New != req.Confirm {
		detail(c, http.StatusBadRequest, "Las contraseñas no coinciden")
		return
	}
	if err := auth.ValidatePassword(req.New); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	ctx := c.Request.Context()
	u := currentUser(c)
	_, hash, err := h.store.GetUserByEmail(ctx, u.Email)
	if err != nil {
		h.fail(c, err, "load password")
		return
	}
	if !auth.CheckPassword(hash, req.Current) {
		detail(c, http.StatusBadRequest, "La contraseña actual es incorrecta")
		return
	}
	newHash, err := auth.HashPassword(req.New)
	if err != nil {
		h.fail(c, err, "hash password")
		return
	}
	if err := h.store.UpdatePassword(ctx, u.ID, newHash); err != nil {
		h.fail(c, err, "update password")
		return
	}
	h.log.Infof("user %d changed password", u.ID)
	c.JSON(http.StatusOK, gin.H{"mensaje": "Contraseña actualizada exitosamente"})
}
