package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopify-merchant-link/internal/application"
	"shopify-merchant-link/internal/application/webhook_handlers"
	"shopify-merchant-link/internal/config"
	"shopify-merchant-link/internal/infrastructure/api"
	"shopify-merchant-link/internal/infrastructure/auth"
	"shopify-merchant-link/internal/infrastructure/cache"
	"shopify-merchant-link/internal/infrastructure/encryption"
	"shopify-merchant-link/internal/infrastructure/identity"
	"shopify-merchant-link/internal/infrastructure/metrics"
	"shopify-merchant-link/internal/infrastructure/repository"
	shopifyinfra "shopify-merchant-link/internal/infrastructure/shopify"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	mongoClient, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err == nil {
		err = mongoClient.Ping(connectCtx, nil)
	}
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer mongoClient.Disconnect(context.Background())
	db := mongoClient.Database(cfg.MongoDatabase)

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid REDIS_URL")
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	// Initialize infrastructure (implementations)
	encryptionService, err := encryption.NewService(cfg.EncryptionSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	repo := repository.NewMongoRepository(db, encryptionService)
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create MongoDB indexes")
	}

	correlations := cache.NewRedisCorrelationStore(redisClient)
	promMetrics := metrics.NewPrometheus()
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	signatureVerifier := shopifyinfra.NewSignatureVerifier(cfg.ShopifyAPISecret)
	oauthProvider := shopifyinfra.NewOAuthProvider(shopifyinfra.OAuthProviderConfig{
		APIKey:      cfg.ShopifyAPIKey,
		APISecret:   cfg.ShopifyAPISecret,
		Scopes:      cfg.ShopifyScopes,
		RedirectURL: cfg.RedirectURL(),
		HTTPClient:  httpClient,
	}, signatureVerifier, logger)
	shopifyClient := shopifyinfra.NewClientWithOptions(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret, shopifyinfra.DefaultAPIVersion, httpClient, logger)
	tokenManager := shopifyinfra.NewTokenManager(encryptionService, logger)
	sessionTokens := shopifyinfra.NewSessionTokenDecoder(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret)
	merchantTokens := auth.NewMerchantTokenVerifier(cfg.JWTSecret, logger)
	identityClient := identity.NewClientWithHTTP(cfg.MerchantKYCURL, httpClient, logger)

	// Initialize application services
	linker := application.NewAccountLinker(identityClient, shopifyClient, tokenManager, promMetrics, logger)
	orchestrator := application.NewOAuthOrchestrator(
		oauthProvider,
		merchantTokens,
		correlations,
		repo,
		linker,
		promMetrics,
		cfg.ShopifyAPIKey,
		logger,
	)
	loginService := application.NewLoginService(identityClient, shopifyClient, tokenManager, linker, logger)
	storeService := application.NewStoreService(identityClient, shopifyClient, tokenManager, logger)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(logger, repo))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewComplianceHandler(logger, repo))
	webhookService := application.NewWebhookService(signatureVerifier, repo, webhookDispatcher, promMetrics, logger)

	handlers := api.NewHandlers(orchestrator, loginService, storeService, webhookService, logger)
	router := api.NewRouter(handlers, api.RouterConfig{
		MerchantTokens: merchantTokens,
		SessionTokens:  sessionTokens,
		Sessions:       repo,
		Metrics:        promMetrics.Handler(),
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("host", cfg.Host).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down API server")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
