package handlers

import (
	"net/http"

	"plazadatos/internal/database"
	"plazadatos/internal/models"

	"github.com/gin-gonic/gin"
)

type prizeView struct {
	models.Prize
	Available bool `json:"esta_disponible"`
}

type prizeStatusRequest struct {
	Status string `json:"estado" binding:"required"`
}

func (h *Handler) ListPrizes(c *gin.Context) {
	prizes, err := h.store.ListPrizes(c.Request.Context(), true)
	if err != nil {
		h.fail(c, err, "list prizes")
		return
	}
	res := make([]prizeView, 0, len(prizes))
	for _, p := range prizes {
		res = append(res, prizeView{Prize: p, Available: p.IsAvailable()})
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) CheckAvailability(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	p, err := h.store.GetPrize(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "get prize")
		return
	}
	u := currentUser(c)
	c.JSON(http.StatusOK, gin.H{
		"puede_canjear":     p.IsAvailable() && u.CanRedeem(p.Cost),
		"puntos_usuario":    u.PointsAvailable,
		"puntos_requeridos": p.Cost,
		"stock_disponible":  p.Stock,
		"premio_disponible": p.IsAvailable(),
	})
}

func (h *Handler) CreatePrize(c *gin.Context) {
	var p models.Prize
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	if p.Type == "" {
		p.Type = models.PrizePhysical
	}
	if err := p.Validate(); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.store.CreatePrize(c.Request.Context(), p)
	if err != nil {
		h.fail(c, err, "create prize")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"mensaje": "Premio creado exitosamente", "id_premio": id})
}

func validatePrizePatch(p database.PrizePatch) string {
	switch {
	case p.Cost != nil && *p.Cost < 1:
		return "el costo en puntos debe ser al menos 1"
	case p.Stock != nil && *p.Stock < 0:
		return "el stock no puede ser negativo"
	case p.Type != nil && !models.ValidPrizeType(*p.Type):
		return "tipo de premio inválido"
	case p.Name != nil && (len([]rune(*p.Name)) < 3 || len([]rune(*p.Name)) > 255):
		return "el nombre debe tener entre 3 y 255 caracteres"
	}
	return ""
}

func (h *Handler) UpdatePrize(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var p database.PrizePatch
	if err := c.ShouldBindJSON(&p); err != nil {
		h.badRequest(c, err)
		return
	}
	if msg := validatePrizePatch(p); msg != "" {
		detail(c, http.StatusBadRequest, msg)
		return
	}
	prize, err := h.store.UpdatePrize(c.Request.Context(), id, p)
	if err != nil {
		h.fail(c, err, "update prize")
		return
	}
	c.JSON(http.StatusOK, prize)
}

func (h *Handler) SetPrizeStatus(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req prizeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if !models.ValidPrizeStatus(req.Status) {
		detail(c, http.StatusBadRequest, "Estado de premio inválido: "+req.Status)
		return
	}
	if err := h.store.SetPrizeStatus(c.Request.Context(), id, req.Status); err != nil {
		h.fail(c, err, "set prize status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": "Estado actualizado", "estado": req.Status})
}

func (h *Handler) DeletePrize(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeletePrize(c.Request.Context(), id); err != nil {
		h.fail(c, err, "delete prize")
		return
	}
	c.JSON(http.StatusOK, gin.H{"mensaje": "Premio desactivado exitosamente"})
}
