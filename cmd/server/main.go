package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/komsan13/chat-center-sub001/internal/config"
	"github.com/komsan13/chat-center-sub001/internal/database"
	"github.com/komsan13/chat-center-sub001/internal/handler"
	"github.com/komsan13/chat-center-sub001/internal/middleware"
	"github.com/komsan13/chat-center-sub001/internal/platform"
	"github.com/komsan13/chat-center-sub001/internal/repository"
	"github.com/komsan13/chat-center-sub001/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.Load()

	log := newLogger(cfg)

	// Database
	db, err := database.NewPool(context.Background(), cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := database.RunMigrations(context.Background(), db, log); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Repositories
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	channelRepo := repository.NewChannelRepository(db)

	// Connection registry and delivery tiers. This process owns the live
	// sockets, so tier 1 gets the direct fan-out reference; the HTTP relay
	// tier only fires in deployments where ingest runs elsewhere.
	registry := service.NewRegistry(log)
	localTier := service.NewLocalFuncTier()
	localTier.SetFunc(registry.BroadcastRoom)
	relayTier := service.NewHTTPRelayTier(cfg.BroadcastRelayURL, cfg.InternalToken,
		time.Duration(cfg.RelayTimeoutSec)*time.Second)
	broadcastSvc := service.NewBroadcastService(log, localTier, service.NewHubTier(registry), relayTier)

	// Services
	platformClient := platform.NewClient(cfg.PlatformAPIBase)
	alerts := service.NewAlertService(cfg.AlertWebhookURL, log)
	ingestSvc := service.NewIngestService(roomRepo, messageRepo, channelRepo,
		platformClient, broadcastSvc, alerts, cfg.IsProduction(), log)
	sendSvc := service.NewSendService(roomRepo, messageRepo, channelRepo,
		platformClient, broadcastSvc, alerts, log)
	roomOps := service.NewRoomOpsService(roomRepo, messageRepo, broadcastSvc, log)

	// Fiber app
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // 1MB
	})

	app.Use(recover.New())
	app.Use(middleware.Logger(log))
	app.Use(cors.New())

	// Health + metrics
	healthH := handler.NewHealthHandler(db)
	app.Get("/health", healthH.Health)
	app.Get("/ready", healthH.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Platform webhooks (signature-authenticated, not JWT)
	webhookH := handler.NewWebhookHandler(ingestSvc, log)
	app.Post("/webhook", middleware.RateLimit(120, time.Minute), webhookH.Receive)
	app.Post("/webhook/:channelId", middleware.RateLimit(120, time.Minute), webhookH.ReceiveForChannel)

	// Cross-process broadcast relay (tier 3 receiver)
	internalH := handler.NewInternalHandler(registry, log)
	app.Post("/internal/broadcast", middleware.InternalToken(cfg.InternalToken), internalH.Broadcast)

	// Admin
	adminH := handler.NewAdminHandler(registry, broadcastSvc, channelRepo)
	admin := app.Group("/api/v1/admin", middleware.AdminKey(cfg.AdminKey))
	admin.Get("/stats", adminH.Stats)
	admin.Get("/channels", adminH.ListChannels)
	admin.Put("/channels/:id/active", adminH.SetChannelActive)

	// JWT-protected operator API
	roomH := handler.NewRoomHandler(roomRepo, messageRepo, sendSvc, roomOps, log)
	v1 := app.Group("/api/v1", middleware.Auth(cfg.JWTSecret))
	v1.Get("/rooms", roomH.List)
	v1.Get("/rooms/:id", roomH.Get)
	v1.Get("/rooms/:id/messages", roomH.History)
	v1.Post("/rooms/:id/read", roomH.MarkRead)
	v1.Patch("/rooms/:id", roomH.Update)
	v1.Delete("/rooms/:id", roomH.Delete)
	v1.Post("/messages", roomH.Send)

	// WebSocket
	wsH := handler.NewWSHandler(registry, broadcastSvc, roomOps, cfg.JWTSecret, log)
	app.Get("/ws", wsH.Upgrade)

	go registry.Run()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("chat-center relay running")

	<-quit
	log.Info().Msg("shutting down")
	_ = app.ShutdownWithTimeout(5 * time.Second)
	registry.Shutdown()
	log.Info().Msg("server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsProduction() {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Logger().Level(zerolog.DebugLevel)
}
