package handlers

import (
	"net/http"

	"plazadatos/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handler) SaveSettings(c *gin.Context) {
	s := models.DefaultSettings()
	if err := c.ShouldBindJSON(&s); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := s.Validate(); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.SaveSettings(c.Request.Context(), s); err != nil {
		h.fail(c, err, "save settings")
		return
	}
	h.log.Infof("settings updated by user %d", currentUser(c).ID)
	c.JSON(http.StatusOK, gin.H{"mensaje": "Configuración guardada exitosamente", "configuracion": s})
}
