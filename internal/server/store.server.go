package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/SasLord/tma/internal/auth"
	"github.com/SasLord/tma/internal/botcmd"
	"github.com/SasLord/tma/internal/config"
	"github.com/SasLord/tma/internal/handler"
	"github.com/SasLord/tma/internal/notify"
	"github.com/SasLord/tma/internal/repository"
	"github.com/SasLord/tma/internal/router"
	"github.com/SasLord/tma/internal/telegram"
	"github.com/SasLord/tma/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewServer wires every component once and hands the composed handler
// to one http.Server. All dependencies travel by reference; there is
// no package-level bot or storage client.
func NewServer(cfg config.AppConfig) *http.Server {
	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is required")
	}
	if cfg.SuperAdminID == "" {
		log.Fatal("SUPER_ADMIN_ID is required")
	}
	if cfg.AllowTestInitData {
		log.Println("⚠️  test init-data bypass is enabled; never run this in production")
	}

	logger, _ := zap.NewProduction()

	// --- Connect Postgres ---
	dbpool, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("failed to connect DB: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repository.InitSchema(ctx, dbpool); err != nil {
		log.Fatalf("failed to init schema: %v", err)
	}

	// --- Repositories ---
	orderRepo := repository.NewOrderRepo(dbpool)
	adminRepo := repository.NewAdminRepo(dbpool, cfg.SuperAdminID)
	if err := adminRepo.EnsureSuperAdmin(ctx); err != nil {
		log.Fatalf("failed to seed super admin: %v", err)
	}

	// --- Redis (optional, rate limiting only) ---
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       0,
		})
	}

	// --- Telegram client ---
	tg, err := telegram.NewClient(cfg.BotToken, cfg.SendTimeout)
	if err != nil {
		log.Fatalf("failed to create telegram client: %v", err)
	}

	// --- Core components ---
	verifier := auth.NewVerifier(cfg.BotToken, cfg.AllowTestInitData)
	dispatcher := notify.NewDispatcher(tg, logger, cfg.SendTimeout)
	normalizer := usecase.NewNormalizer()

	orderUC := usecase.NewOrderUsecase(
		normalizer, verifier, orderRepo, adminRepo, dispatcher, tg, logger,
		cfg.RequireInitData,
	)
	adminUC := usecase.NewAdminUsecase(orderRepo, adminRepo, logger)

	// --- Handlers ---
	botRouter := botcmd.NewRouter(tg, orderUC, adminUC, cfg.WebAppURL, logger)
	adminHandler := handler.NewAdminHandler(adminUC, logger)
	webhookHandler := handler.NewWebhookHandler(orderUC, adminHandler, botRouter, dbpool, logger)

	// --- Router ---
	mux := router.SetupRoutes(chi.NewRouter(), webhookHandler, rdb, cfg)

	return &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
