package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/ruralpay/wallet/docs"
	"github.com/ruralpay/wallet/internal/audit"
	"github.com/ruralpay/wallet/internal/client"
	"github.com/ruralpay/wallet/internal/config"
	"github.com/ruralpay/wallet/internal/database"
	"github.com/ruralpay/wallet/internal/handlers"
	"github.com/ruralpay/wallet/internal/logger"
	"github.com/ruralpay/wallet/internal/metrics"
	mW "github.com/ruralpay/wallet/internal/middleware"
	"github.com/ruralpay/wallet/internal/services"
	"github.com/ruralpay/wallet/internal/storage"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Wallet API
// @version 1.0
// @description Wallet ledger and payment-flow service
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}

	log := logger.New("wallet", cfg.Log.Level)
	m := metrics.New()
	auditLog := audit.NewLogger(log.Component("audit"))

	docs.SwaggerInfo.Host = "localhost:" + cfg.Server.Port

	ctx := context.Background()

	redisClient := database.InitRedis(ctx, cfg.Redis, log.Component("redis"))
	if redisClient != nil {
		defer redisClient.Close()
	}

	kv, err := openStore(ctx, cfg, redisClient, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to open wallet store")
	}
	defer kv.Close()

	pin, err := services.NewPINVerifier(cfg.Payment.PIN)
	if err != nil {
		log.WithError(err).Fatal("Failed to prepare wallet PIN")
	}

	// Initialize services
	factory := services.NewTransactionFactory(nil, nil)
	seed := services.SeedConfig{
		StartingBalance: cfg.StartingBalance(),
		DemoHistory:     cfg.Wallet.SeedDemoTransactions,
	}
	wallets := services.NewWalletService(kv, seed, factory, auditLog, m, log.Component("wallet"))
	qrService := services.NewQRService(redisClient, cfg.QR.TTL, cfg.QR.Size)

	flows := services.NewFlowManager(&services.FlowDeps{
		Factory:                factory,
		Executor:               newExecutor(cfg, log),
		PIN:                    pin,
		Merchants:              qrService,
		Audit:                  auditLog,
		Metrics:                m,
		Log:                    log.Component("payment"),
		RequireSufficientFunds: cfg.Payment.RequireSufficientFunds,
	}, wallets)

	sessions := services.NewSessionService(kv, redisClient, wallets, flows,
		cfg.JWT.SecretKey, time.Duration(cfg.JWT.ExpiryHours)*time.Hour, auditLog, log.Component("session"))

	httpLog := log.Component("http")
	api := handlers.API{
		Sessions: handlers.NewSessionHandler(sessions, httpLog),
		Wallet: handlers.NewWalletHandler(wallets,
			services.NewDashboardService(wallets),
			services.NewHistoryService(wallets, nil),
			services.NewBudgetService(kv, wallets, cfg.MonthlyBudget(), log.Component("budget")),
			httpLog),
		Flows:   handlers.NewFlowHandler(flows, httpLog),
		QR:      handlers.NewQRHandler(qrService, httpLog),
		Catalog: handlers.NewCatalogHandler(services.NewCatalogService(cfg.Server.StaticDir)),
	}

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mW.RequestLogger(httpLog))
	r.Use(mW.Metrics(m))
	r.Use(middleware.Recoverer)
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Handle("/metrics", m.Handler())

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Static file server for glyphs
	r.Handle("/static/glyphs/*", http.StripPrefix("/static/glyphs/",
		mW.GlyphServer(cfg.Server.StaticDir)))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		handlers.RegisterRoutes(r, api, mW.Auth(sessions, log.Component("auth")))
	})

	// Start server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		log.WithFields(logrus.Fields{
			"port":           cfg.Server.Port,
			"storage_driver": cfg.Storage.Driver,
			"payment_mode":   cfg.Payment.Mode,
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server stopped")
}

// openStore opens the key-value backend named by storage.driver
func openStore(ctx context.Context, cfg *config.Config, redisClient *redis.Client, log *logger.Logger) (storage.KVStore, error) {
	switch cfg.Storage.Driver {
	case "memory":
		log.Component("storage").Warn("Using in-memory storage; wallets are lost on restart")
		return storage.NewMemoryStore(), nil

	case "redis":
		if redisClient == nil {
			return nil, errors.New("redis storage selected but redis is disabled or unreachable")
		}
		return storage.NewRedisStore(redisClient), nil

	case "postgres":
		db, err := database.InitPostgres(ctx, cfg.Database, log.Component("postgres"))
		if err != nil {
			return nil, err
		}
		store := storage.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return store, nil

	case "sqlite":
		db, err := database.InitSQLite(cfg.Storage, log.Component("sqlite"))
		if err != nil {
			return nil, err
		}
		store, err := storage.NewSQLiteStore(db)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func newExecutor(cfg *config.Config, log *logger.Logger) services.Executor {
	if cfg.Payment.Mode == "remote" {
		log.Component("payment").WithField("url", cfg.Payment.RemoteURL).Info("Payments execute against the remote wallet API")
		return services.NewRemoteExecutor(client.NewWalletClient(client.Config{
			BaseURL: cfg.Payment.RemoteURL,
			Token:   cfg.Payment.RemoteToken,
			Timeout: cfg.Payment.RemoteTimeout,
		}))
	}
	return services.NewSimulatedExecutor(cfg.Payment.Delay, cfg.Payment.SuccessRate, nil)
}
