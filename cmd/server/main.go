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

	"github.com/mockupdesk/listing-server-go/internal/artifact"
	"github.com/mockupdesk/listing-server-go/internal/config"
	"github.com/mockupdesk/listing-server-go/internal/database"
	"github.com/mockupdesk/listing-server-go/internal/handler"
	"github.com/mockupdesk/listing-server-go/internal/jobs"
	"github.com/mockupdesk/listing-server-go/internal/middleware"
	"github.com/mockupdesk/listing-server-go/internal/redis"
	"github.com/mockupdesk/listing-server-go/internal/repository"
	"github.com/mockupdesk/listing-server-go/internal/service"
)

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
	tokenRepo := repository.NewProviderTokenRepository(db.DB)
	stateRepo := repository.NewOAuthStateRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	listingRepo := repository.NewListingRepository(db.DB)
	templateRepo := repository.NewTemplateRepository(db.DB)

	artifactStore, err := artifact.NewDirStore(cfg.ArtifactDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare artifact directory")
	}

	providerFactory := service.NewProviderFactory(cfg, tokenRepo, nil)
	sessionService := service.NewSessionService(sessionRepo, userRepo, cfg.SessionSecret)
	oauthService := service.NewOAuthService(
		cfg, service.Endpoints{}, userRepo, tokenRepo, stateRepo,
		sessionService, providerFactory, nil,
	)

	var generator *service.ContentGenerator
	if cfg.OpenAIAPIKey != "" {
		generator = service.NewContentGenerator(cfg.OpenAIAPIKey)
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, content generation disabled")
	}
	mockupService := service.NewMockupService(cfg, providerFactory, generator, templateRepo)

	pipeline := service.NewPublishPipeline(listingRepo, artifact.NewTextBuilder(), artifactStore)
	listingService := service.NewListingService(listingRepo, userRepo, providerFactory, pipeline, artifactStore)
	templateService := service.NewTemplateService(db, templateRepo)

	sessionMiddleware := middleware.NewSessionMiddleware(sessionService)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, config.DefaultRateLimitPerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	authHandler := handler.NewAuthHandler(oauthService, sessionService, cfg.FrontendURL, isProduction)
	mockupHandler := handler.NewMockupHandler(mockupService)
	listingHandler := handler.NewListingHandler(listingService)
	templateHandler := handler.NewTemplateHandler(templateService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.PublishTimeout()))
	r.Use(bodyLimitMiddleware.Handler)
	r.Use(securityHeadersMiddleware.Handler)

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
			r.Use(sessionMiddleware.Handler)
			r.Use(rateLimitMiddleware.Handler)

			r.Mount("/mockups", mockupHandler.Routes())
			r.Mount("/listings", listingHandler.Routes())
			r.Mount("/templates", templateHandler.Routes())
		})
	})

	cleanupJob := jobs.NewCleanupJob(sessionRepo, stateRepo, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
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
