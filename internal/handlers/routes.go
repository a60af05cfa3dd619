package handlers

import (
	"plazadatos/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Register mounts every endpoint. authn resolves the bearer token into a user.
func (h *Handler) Register(r gin.IRouter, authn gin.HandlerFunc) {
	r.GET("/health", h.Health)

	r.POST("/auth/login", h.Login)
	r.POST("/auth/registro", h.SignUp)
	r.POST("/auth/google", h.GoogleLogin)
	r.GET("/premios/", h.ListPrizes)
	r.GET("/perfil/configuracion-inicial", h.InitialSettings)

	u := r.Group("", authn)
	u.GET("/usuario/me", h.Me)
	u.PUT("/usuario/me", h.UpdateMe)
	u.GET("/usuario/me/puntos", h.MyPoints)
	u.GET("/usuario/me/movimientos", h.MyLedger)
	u.POST("/usuario/cambiar-contrasena", h.ChangePassword)

	u.GET("/encuestas/", h.ListSurveys)
	u.GET("/encuestas/activas", h.ListSurveys)
	u.GET("/encuestas/:id", h.GetSurvey)

	u.POST("/respuestas/", h.SubmitResponses)
	u.GET("/respuestas/historial/:id_usuario", h.ResponseHistory)
	u.GET("/respuestas/participaciones/:id_usuario", h.UserParticipations)
	u.GET("/participaciones/verificar/:id_encuesta", h.CheckParticipation)
	u.GET("/participaciones/historial", h.MyParticipations)
	u.GET("/participaciones/detalle/:id", h.ParticipationDetail)

	u.POST("/premios/canjear", h.Redeem)
	u.GET("/premios/canjes", h.MyRedemptions)
	u.GET("/premios/canjes/:id", h.GetRedemption)
	u.GET("/premios/verificar-disponibilidad/:id", h.CheckAvailability)

	u.GET("/perfil/estado", h.ProfileStatus)
	u.POST("/perfil/completar", h.CompleteProfile)
	u.PUT("/perfil/actualizar", h.UpdateProfile)

	a := u.Group("", middleware.RequireAdmin())
	a.POST("/encuestas/", h.CreateSurvey)
	a.PUT("/encuestas/:id", h.UpdateSurvey)
	a.DELETE("/encuestas/:id", h.DeleteSurvey)
	a.GET("/admin/encuestas/estadisticas", h.SurveyAdminStats)

	a.POST("/premios/", h.CreatePrize)
	a.PUT("/premios/:id", h.UpdatePrize)
	a.PATCH("/premios/:id/estado", h.SetPrizeStatus)
	a.DELETE("/premios/:id", h.DeletePrize)
	a.GET("/admin/canjes", h.ListRedemptions)
	a.PATCH("/admin/canjes/:id", h.UpdateRedemption)

	a.GET("/dashboard/stats", h.DashboardStats)
	a.GET("/dashboard/charts", h.DashboardCharts)
	a.GET("/dashboard/participaciones", h.RecentParticipations)
	a.GET("/dashboard/export-data", h.DashboardExport)

	a.GET("/admin/estadisticas-por-encuesta/:id", h.SurveyStatistics)
	a.GET("/admin/respuestas-detalladas/:id", h.DetailedResponses)
	a.GET("/admin/encuestas-resumen", h.SurveysSummary)
	a.GET("/admin/configuracion-inicial", h.InitialSettings)
	a.POST("/admin/configuracion-inicial", h.SaveSettings)
	a.GET("/admin/exportar/:dataset", h.Export)
}
