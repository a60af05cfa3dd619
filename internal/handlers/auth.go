package handlers

import (
	"errors"
	"net/http"
	"strings"

	"plazadatos/internal/auth"
	"plazadatos/internal/database"
	"plazadatos/internal/models"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	FirstName string  `json:"nombre" binding:"required"`
	LastName  string  `json:"apellido" binding:"required"`
	Document  string  `json:"documento_numero" binding:"required"`
	Phone     *string `json:"celular_numero"`
	Email     string  `json:"email" binding:"required,email"`
	Password  string  `json:"password" binding:"required"`
}

type GoogleLoginRequest struct {
	Credential string `json:"credential" binding:"required"`
}

func (h *Handler) issue(c *gin.Context, u models.User) {
	token, _, err := h.issuer.Issue(u)
	if err != nil {
		h.fail(c, err, "issue token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(h.issuer.TTL().Seconds()),
		"user":         u,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	u, hash, err := h.store.GetUserByEmail(c.Request.Context(), email)
	if errors.Is(err, database.ErrNotFound) || (err == nil && !auth.CheckPassword(hash, req.Password)) {
		h.log.Infof("failed login for %s", email)
		detail(c, http.StatusUnauthorized, "Email o contraseña incorrectos")
		return
	}
	if err != nil {
		h.fail(c, err, "login")
		return
	}
	if !u.Active {
		detail(c, http.StatusForbidden, "Cuenta desactivada")
		return
	}
	h.issue(c, u)
}

func (h *Handler) SignUp(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.fail(c, err, "hash password")
		return
	}
	ctx := c.Request.Context()
	settings, err := h.store.ActiveSettings(ctx)
	if err != nil {
		h.fail(c, err, "load settings")
		return
	}
	u := models.User{
		FirstName:        strings.TrimSpace(req.FirstName),
		LastName:         strings.TrimSpace(req.LastName),
		Document:         strings.TrimSpace(req.Document),
		Phone:            req.Phone,
		Email:            strings.ToLower(strings.TrimSpace(req.Email)),
		RegistrationKind: "email",
		AuthProvider:     "local",
		RoleID:           models.RoleGeneral,
	}
	id, err := h.store.CreateUser(ctx, u, hash, settings.RegistrationBonus)
	if err != nil {
		h.fail(c, err, "register")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"mensaje":           "Usuario registrado exitosamente",
		"usuario_id":        id,
		"puntos_bienvenida": settings.RegistrationBonus,
	})
}

func (h *Handler) GoogleLogin(c *gin.Context) {
	var req GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	id, err := h.google.Verify(ctx, req.Credential)
	if errors.Is(err, auth.ErrGoogleDisabled) {
		detail(c, http.StatusServiceUnavailable, "El inicio de sesión con Google no está configurado")
		return
	}
	if err != nil {
		h.log.Warnf("google credential rejected: %v", err)
		detail(c, http.StatusUnauthorized, "Credencial de Google inválida")
		return
	}
	settings, err := h.store.ActiveSettings(ctx)
	if err != nil {
		h.fail(c, err, "load settings")
		return
	}
	u, created, err := h.store.UpsertGoogleUser(ctx, database.GoogleProfile{
		Subject:   id.Subject,
		Email:     id.Email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Picture:   id.Picture,
	}, settings.RegistrationBonus)
	if err != nil {
		h.fail(c, err, "google login")
		return
	}
	if created {
		h.log.Infof("created google account %d for %s", u.ID, u.Email)
	}
	if !u.Active {
		detail(c, http.StatusForbidden, "Cuenta desactivada")
		return
	}
	h.issue(c, u)
}
