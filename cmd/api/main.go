package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"studioia-backend/internal/auth"
	"studioia-backend/internal/config"
	"studioia-backend/internal/database"
	"studioia-backend/internal/genai"
	"studioia-backend/internal/handlers"
	"studioia-backend/internal/middleware"
	"studioia-backend/internal/payload"
	"studioia-backend/internal/speech"
	"studioia-backend/internal/store"
	"studioia-backend/internal/studio"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate("migrations"); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	sessions := store.NewSessionStore(store.NewPostgresKV(db))
	payloads := payload.NewStore(cfg.PayloadDir)

	generator := genai.NewClient(genai.Config{
		APIKey:       cfg.GeminiAPIKey,
		PollInterval: cfg.PollInterval,
		Logger:       logger,
	}, payloads)

	st := studio.New(studio.Config{
		Generator: generator,
		Payloads:  payloads,
		Speaker:   speech.NewEspeak(logger),
		Logger:    logger,
	})

	authService := auth.NewService(sessions, cfg.JWTSecret, cfg.AdminEmail, logger)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret)
	authHandler := handlers.NewAuthHandler(authService, logger)
	adminHandler := handlers.NewAdminHandler(authService, logger)
	studioHandler := handlers.NewStudioHandler(st, logger)
	assetHandler := handlers.NewAssetHandler(st, logger)

	router := http.NewServeMux()

	router.HandleFunc("POST /api/auth/signup", authHandler.Signup)
	router.HandleFunc("POST /api/auth/verify", authHandler.Verify)
	router.HandleFunc("POST /api/auth/resend", authHandler.Resend)
	router.HandleFunc("POST /api/auth/login", authHandler.Login)
	router.HandleFunc("POST /api/auth/logout", authHandler.Logout)

	router.Handle("GET /api/auth/me", authMiddleware.RequireAuth(http.HandlerFunc(authHandler.GetMe)))

	router.Handle("GET /api/admin/users", authMiddleware.RequireAdmin(http.HandlerFunc(adminHandler.ListUsers)))

	requireAuth := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.RequireAuth(h)
	}

	router.Handle("POST /api/videos/generate", requireAuth(studioHandler.GenerateVideo))
	router.Handle("GET /api/videos/status", requireAuth(studioHandler.VideoStatus))
	router.Handle("POST /api/videos/narration", requireAuth(studioHandler.PlayNarration))
	router.Handle("DELETE /api/videos/narration", requireAuth(studioHandler.StopNarration))
	router.Handle("POST /api/videos/reference", requireAuth(studioHandler.StageReference))
	router.Handle("DELETE /api/videos/reference", requireAuth(studioHandler.RemoveReference))
	router.Handle("GET /api/videos/reference/preview", requireAuth(studioHandler.ReferencePreview))

	router.Handle("POST /api/images/generate", requireAuth(studioHandler.GenerateImages))
	router.Handle("GET /api/images/status", requireAuth(studioHandler.ImageStatus))

	router.Handle("GET /api/assets", requireAuth(assetHandler.ListAssets))
	router.Handle("DELETE /api/assets/{id}", requireAuth(assetHandler.DeleteAsset))
	router.Handle("GET /api/assets/{id}/download", requireAuth(assetHandler.DownloadAsset))

	router.Handle("PUT /api/language", requireAuth(studioHandler.SetLanguage))
	router.HandleFunc("GET /api/translations/{lang}", studioHandler.GetTranslations)

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler: corsMiddleware(router),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	if err := st.Close(); err != nil {
		logger.Error("studio shutdown released with errors", zap.Error(err))
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Must be more strict, because of http-only cookies, otherwise won't work
		w.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
