package handlers

import (
	"net/http"
	"strings"
	"time"

	"plazadatos/internal/database"
	"plazadatos/internal/models"

	"github.com/gin-gonic/gin"
)

func validateProfile(f database.ProfileFields, s models.Settings, now time.Time) string {
	if f.BirthDate.IsZero() {
		return "La fecha de nacimiento es obligatoria"
	}
	if f.BirthDate.After(now) {
		return "La fecha de nacimiento no puede ser futura"
	}
	if strings.TrimSpace(f.Sex) == "" || strings.TrimSpace(f.Location) == "" {
		return "Sexo y localización son obligatorios"
	}
	if opts := s.Defaults.SexOptions; len(opts) > 0 {
		for _, o := range opts {
			if o == f.Sex {
				return ""
			}
		}
		return "Opción de sexo inválida: " + f.Sex
	}
	return ""
}

func (h *Handler) InitialSettings(c *gin.Context) {
	s, err := h.store.ActiveSettings(c.Request.Context())
	if err != nil {
		h.fail(c, err, "load settings")
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) ProfileStatus(c *gin.Context) {
	s, err := h.store.ActiveSettings(c.Request.Context())
	if err != nil {
		h.fail(c, err, "load settings")
		return
	}
	u := currentUser(c)
	missing := u.ProfileMissing()
	c.JSON(http.StatusOK, gin.H{
		"perfil_completo":      len(missing) == 0,
		"campos_faltantes":     missing,
		"puntos_por_completar": s.ProfilePoints,
		"configuracion":        s,
	})
}

func (h *Handler) bindProfile(c *gin.Context) (database.ProfileFields, models.Settings, bool) {
	var f database.ProfileFields
	if err := c.ShouldBindJSON(&f); err != nil {
		h.badRequest(c, err)
		return f, models.Settings{}, false
	}
	s, err := h.store.ActiveSettings(c.Request.Context())
	if err != nil {
		h.fail(c, err, "load settings")
		return f, s, false
	}
	if msg := validateProfile(f, s, h.now()); msg != "" {
		detail(c, http.StatusBadRequest, msg)
		return f, s, false
	}
	return f, s, true
}

func (h *Handler) CompleteProfile(c *gin.Context) {
	f, s, ok := h.bindProfile(c)
	if !ok {
		return
	}
	awarded, err := h.store.CompleteProfile(c.Request.Context(), currentUser(c).ID, f, s.ProfilePoints)
	if err != nil {
		h.fail(c, err, "complete profile")
		return
	}
	if awarded > 0 {
		h.stats.Invalidate()
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": "Perfil completado exitosamente", "puntos_obtenidos": awarded})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	f, _, ok := h.bindProfile(c)
	if !ok {
		return
	}
	u, err := h.store.UpdateProfile(c.Request.Context(), currentUser(c).ID, f)
	if err != nil {
		h.fail(c, err, "update profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": "Perfil actualizado", "usuario": u})
}
