package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gameboxr/internal/auth"
	"gameboxr/internal/cache"
	"gameboxr/internal/config"
	"gameboxr/internal/database"
	"gameboxr/internal/discover"
	"gameboxr/internal/handlers"
	"gameboxr/internal/igdb"
	"gameboxr/internal/logging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Server.LogLevel, cfg.Server.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	ctx := context.Background()

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis cache (optional)
	var redisCache *cache.RedisCache
	redisCache, err = cache.NewRedisCache(ctx, cfg.GetRedisAddress(), cfg.Redis, logger)
	if err != nil {
		logger.Warn("Failed to connect to Redis, continuing without cache", zap.Error(err))
		redisCache = nil
	}
	if redisCache != nil {
		defer redisCache.Close()
	}

	// Upstream catalog
	httpClient := &http.Client{Timeout: cfg.IGDB.RequestTimeout}
	tokenCache := igdb.NewTokenCache(igdb.NewClientCredentialsSource(cfg.IGDB, httpClient), logger.Named("igdb"))
	catalog := igdb.NewClient(cfg.IGDB, httpClient, logger.Named("igdb"))

	feed := discover.NewService(tokenCache, catalog, db, cfg.Discover, logger.Named("discover"))
	if redisCache != nil {
		feed.WithPageCache(redisCache, cfg.Discover.CatalogCacheTTL)
	}

	// Identity
	tokens := auth.NewTokenIssuer(cfg.Server.JWTSecret, cfg.Server.JWTTTL)
	var login *auth.LoginService
	if cfg.LoginEnabled() {
		provider, err := auth.NewCustomProvider(cfg.OAuth2)
		if err != nil {
			logger.Fatal("Failed to initialize OAuth2 provider", zap.Error(err))
		}
		var states auth.StateStore
		if redisCache != nil {
			states = redisCache
		}
		login = auth.NewLoginService(provider, tokens, states, logger.Named("auth"))
	} else {
		logger.Info("OAuth2 login not configured, /auth/login is disabled")
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(login, tokens, db, cfg.Server.JWTTTL, logger.Named("auth"))
	discoverHandler := handlers.NewDiscoverHandler(feed, logger.Named("discover"))
	var invalidator handlers.CatalogInvalidator
	if redisCache != nil {
		invalidator = redisCache
	}
	ratingsHandler := handlers.NewRatingsHandler(db, invalidator, cfg.Server.AdminUserIDs, logger.Named("ratings"))

	// Create Gin router
	router := gin.Default()

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	if cfg.Server.EnableHealthCheck {
		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "healthy",
				"service": "gameboxr",
			})
		})
	}

	handlers.RegisterRoutes(router, cfg.Server.APIBasePath, authHandler, discoverHandler, ratingsHandler)

	// Start server with graceful shutdown
	srv := &http.Server{
		Addr:    cfg.GetServerAddress(),
		Handler: router,
	}

	go func() {
		logger.Info("Starting server", zap.String("addr", cfg.GetServerAddress()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (database.Database, error) {
	if cfg.Database.Driver == "pq" {
		db, err := database.NewPostgresDB(ctx, cfg.GetDatabaseURL(), logger.Named("postgres"))
		if err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := database.NewGormDB(cfg.GetDatabaseURL(), logger.Named("gorm"))
	if err != nil {
		return nil, err
	}
	return db, nil
}
