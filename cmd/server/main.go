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

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/AnshRaj112/civicquest-backend/internal/config"
	"github.com/AnshRaj112/civicquest-backend/internal/database"
	"github.com/AnshRaj112/civicquest-backend/internal/handlers"
	"github.com/AnshRaj112/civicquest-backend/internal/middleware"
	"github.com/AnshRaj112/civicquest-backend/internal/routes"
	"github.com/AnshRaj112/civicquest-backend/internal/services"
	"github.com/AnshRaj112/civicquest-backend/internal/store"
	"github.com/AnshRaj112/civicquest-backend/pkg/clientip"
	"github.com/AnshRaj112/civicquest-backend/pkg/utils"
)

func newLogger(level string, production bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if !production {
		cfg = zap.NewDevelopmentConfig()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// Encryption is only needed for user-supplied Gemini keys.
	cipher, err := utils.NewCipher(cfg.EncryptionKey)
	switch {
	case errors.Is(err, utils.ErrNoEncryptionKey):
		logger.Warn("⚠️  ENCRYPTION_KEY not set; users cannot store their own Gemini keys. Generate one with: openssl rand -base64 32")
	case err != nil:
		logger.Warn("⚠️  ENCRYPTION_KEY is invalid; users cannot store their own Gemini keys", zap.Error(err))
	default:
		logger.Info("✅ Encryption key configured")
	}

	if err := database.ConnectPostgres(cfg.PostgresURI, logger); err != nil {
		return err
	}
	defer database.DisconnectPostgres()

	if err := database.ConnectRedis(cfg.RedisURI, logger); err != nil {
		return err
	}
	defer database.DisconnectRedis()

	if err := database.Connect(cfg.MongoURI, logger); err != nil {
		return err
	}
	defer database.Disconnect()

	profiles := store.NewMongoRepository(database.DB)
	if err := profiles.EnsureIndexes(context.Background()); err != nil {
		logger.Warn("⚠️  failed to ensure profile indexes", zap.Error(err))
	}

	hub := services.NewEventHub(database.RedisClient, logger)
	cache := services.NewCacheService(database.RedisClient, cfg.ProfileCacheTTL)
	game := store.New(store.NewCachedRepository(profiles, cache, logger), store.Options{
		CompletionDelay: cfg.CompletionDelay,
		Publisher:       hub,
		Logger:          logger,
	})
	defer game.Close()

	deps := handlers.Deps{
		Store:       game,
		Users:       services.NewUserService(database.PostgresDB),
		Sessions:    services.NewSessionService(database.RedisClient),
		Signs:       services.NewSignService(database.PostgresDB),
		Places:      services.NewPlacesService(cfg.PlacesAPIKey, logger),
		Coach:       services.NewCoachService(services.NewGeminiGenerator(cfg.GeminiModel), cfg.GeminiAPIKey, logger),
		Presence:    services.NewPresenceService(database.RedisClient),
		Leaderboard: profiles,
		Events:      hub,
		Logger:      logger,
	}
	if cipher != nil {
		deps.Keys = services.NewSettingsService(database.PostgresDB, cipher)
	}
	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cld, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			logger.Warn("Failed to initialize Cloudinary; photo tasks cannot be verified", zap.Error(err))
		} else {
			deps.Proofs = cld
			logger.Info("✅ Cloudinary service initialized")
		}
	} else {
		logger.Warn("Cloudinary credentials not found; photo tasks cannot be verified")
	}
	if cfg.PlacesAPIKey == "" {
		logger.Info("PLACES_API_KEY not set; nearby places will be empty")
	}

	keyFn := clientip.RealClientIP
	if cfg.TrustProxy {
		keyFn = clientip.BehindProxy
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → per-IP limits (in memory).
	// Non-production: shared Redis fixed-window limit.
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost, keyFn) {
			r.Use(mw)
		}
		logger.Info("✅ Production security enabled (security headers, host check, per-IP + login rate limiting)")
	} else {
		r.Use(middleware.NewRedisRateLimiter(database.RedisClient, keyFn, logger).Middleware)
	}
	r.Use(middleware.ExpensiveRateLimit(keyFn))

	routes.SetupRoutes(r, handlers.New(deps))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		logger.Info("🚀 CivicQuest backend running", zap.String("addr", srv.Addr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
