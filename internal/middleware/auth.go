package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"plazadatos/internal/auth"
	"plazadatos/internal/database"
	"plazadatos/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const userKey = "plaza.user"

type UserLoader interface {
	GetUserByID(ctx context.Context, id int) (models.User, error)
}

type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

func unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": detail})
}

// Auth resolves the bearer token into an active user stored on the context.
func Auth(tokens TokenParser, users UserLoader, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, raw, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			unauthorized(c, "No autenticado")
			return
		}
		claims, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			log.Debugf("rejected token: %v", err)
			unauthorized(c, "Token inválido o expirado")
			return
		}
		u, err := users.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				unauthorized(c, "Usuario no encontrado")
				return
			}
			log.Errorf("load user %d: %v", claims.UserID, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Error interno del servidor"})
			return
		}
		if !u.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "Cuenta desactivada"})
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok || !u.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "No tienes permisos de administrador"})
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return models.User{}, false
	}
	u, ok := v.(models.User)
	return u, ok
}
