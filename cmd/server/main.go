package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/telenexus/gateway-server-go/internal/channel"
	"github.com/telenexus/gateway-server-go/internal/config"
	"github.com/telenexus/gateway-server-go/internal/database"
	"github.com/telenexus/gateway-server-go/internal/handler"
	"github.com/telenexus/gateway-server-go/internal/jobs"
	"github.com/telenexus/gateway-server-go/internal/middleware"
	"github.com/telenexus/gateway-server-go/internal/redis"
	"github.com/telenexus/gateway-server-go/internal/repository"
	"github.com/telenexus/gateway-server-go/internal/service"
)

const simulatedLinkDelay = 3 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	instanceRepo := repository.NewInstanceRepository(db.DB)
	deliveryRepo := repository.NewDeliveryRecordRepository(db.DB)
	webhookRepo := repository.NewWebhookRepository(db.DB)
	apiKeyRepo := repository.NewAPIKeyRepository(db.DB)
	bindingRepo := repository.NewBotpressBindingRepository(db.DB)
	activityRepo := repository.NewActivityLogRepository(db.DB)

	provider := channel.NewSimulator()

	relay := service.NewWebhookRelay(webhookRepo, cfg.WebhookWorkers, config.WebhookQueueSize, cfg.WebhookTimeout())
	relay.Start()
	defer relay.Stop()

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL())
	activityService := service.NewActivityService(activityRepo)
	instanceService := service.NewInstanceService(instanceRepo, provider, relay, simulatedLinkDelay)
	dispatchService := service.NewDispatchService(instanceRepo, deliveryRepo, provider, relay, cfg.AdapterTimeout())
	botpressService := service.NewBotpressService(bindingRepo, instanceRepo, dispatchService, cfg.WebhookTimeout())
	dispatchService.SetForwarder(botpressService)
	webhookService := service.NewWebhookService(webhookRepo, instanceRepo, relay)
	apiKeyService := service.NewAPIKeyService(apiKeyRepo)
	dashboardService := service.NewDashboardService(instanceRepo, deliveryRepo, webhookRepo, apiKeyRepo)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	apiKeyMiddleware := middleware.NewAPIKeyMiddleware(apiKeyService)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, config.DefaultRateLimitPerMin)
	loginLimiter := middleware.NewLoginRateLimiter()

	authHandler := handler.NewAuthHandler(authService, activityService, loginLimiter, authMiddleware.Handler)
	instanceHandler := handler.NewInstanceHandler(instanceService, activityService)
	messageHandler := handler.NewMessageHandler(dispatchService)
	webhookHandler := handler.NewWebhookHandler(webhookService, activityService)
	apiKeyHandler := handler.NewAPIKeyHandler(apiKeyService, activityService)
	botpressHandler := handler.NewBotpressHandler(botpressService, activityService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, activityService)
	publicAPIHandler := handler.NewPublicAPIHandler(dispatchService, instanceService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Handler)

			r.Route("/instances", func(r chi.Router) {
				r.Get("/", instanceHandler.List)
				r.Post("/", instanceHandler.Create)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", instanceHandler.Get)
					r.Delete("/", instanceHandler.Delete)
					r.Post("/connect", instanceHandler.Connect)
					r.Post("/disconnect", instanceHandler.Disconnect)
					r.Post("/confirm-link", instanceHandler.ConfirmLink)
					r.Get("/qr", instanceHandler.GetQR)
					r.Post("/qr/refresh", instanceHandler.RefreshPairing)

					r.Post("/messages/send", messageHandler.Send)
					r.Post("/messages/send-billing", messageHandler.SendBilling)
					r.Post("/messages/send-buttons", messageHandler.SendButtons)
					r.Post("/messages/receive", messageHandler.Receive)
					r.Get("/messages", messageHandler.History)

					r.Get("/webhooks", webhookHandler.List)
					r.Post("/webhooks", webhookHandler.Create)

					r.Get("/botpress", botpressHandler.Get)
					r.Post("/botpress", botpressHandler.Configure)
					r.Patch("/botpress", botpressHandler.Update)
					r.Delete("/botpress", botpressHandler.Delete)
					r.Post("/botpress/test", botpressHandler.Test)
				})
			})

			r.Delete("/webhooks/{id}", webhookHandler.Delete)
			r.Post("/webhooks/{id}/test", webhookHandler.Test)
			r.Mount("/api-keys", apiKeyHandler.Routes())
			r.Get("/dashboard/stats", dashboardHandler.Stats)
			r.Get("/logs", dashboardHandler.Logs)
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(apiKeyMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Mount("/", publicAPIHandler.Routes())
	})

	r.Post("/botpress/reply", botpressHandler.Reply)

	cleanupJob := jobs.NewCleanupJob(
		instanceRepo, activityRepo,
		cfg.PairingTTL(), cfg.LogRetention(), config.CleanupJobInterval,
	)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     r,
		ReadTimeout: config.ServerReadTimeout,
		IdleTimeout: config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
