package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plazadatos/internal/auth"
	"plazadatos/internal/config"
	"plazadatos/internal/database"
	"plazadatos/internal/handlers"
	"plazadatos/internal/middleware"
	"plazadatos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)
	if cfg.Production() {
		logger.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := database.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	repo := database.New(db, logger)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Fatalf("schema: %v", err)
	}

	stats := service.NewStatsService(repo, cfg.StatsCacheTTL, logger)
	stats.Start(ctx, cfg.SurveySweepInterval)

	limiter := middleware.NewRateLimiter(cfg.RatePerMinute, cfg.LoginRatePerMinute)
	limiter.Start(ctx)

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if cfg.GoogleClientID == "" {
		logger.Warn("GOOGLE_CLIENT_ID not set; Google login disabled")
	}
	h := handlers.NewHandler(repo, stats, issuer, auth.NewGoogleVerifier(cfg.GoogleClientID), logger)

	rg := gin.New()
	rg.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.SecurityHeaders(), middleware.CORS(cfg.CORSOrigins), limiter.Handler())
	h.Register(rg, middleware.Auth(issuer, repo, logger))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           rg,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
