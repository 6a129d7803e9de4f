package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"ridehail/internal/app"
	"ridehail/internal/auth"
	"ridehail/internal/config"
	"ridehail/internal/events"
	"ridehail/internal/handler"
	internalRedis "ridehail/internal/redis"
	"ridehail/internal/repository/postgres"
	"ridehail/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	logger := app.NewLogger(cfg.Log)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so the database and Redis clients are instrumented.
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Warn("failed to initialize New Relic")
		} else {
			logger.WithField("app", cfg.NewRelic.AppName).Info("New Relic enabled")
		}
	}

	if cfg.AutoMigrate {
		if err := app.RunMigrations(cfg.Database); err != nil {
			logger.WithError(err).Fatal("failed to migrate database")
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	publisher, closePublisher, err := app.NewPublisher(cfg.RabbitMQ, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to rabbitmq")
	}
	defer closePublisher()

	server := wireServer(db, redisClient, publisher, nrApp, cfg, logger)

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	publisher events.Publisher,
	nrApp *newrelic.Application,
	cfg *config.Config,
	logger *logrus.Logger,
) *http.Server {
	declineStore := internalRedis.NewDeclineStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	store := postgres.NewStore(db)
	tokens := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	notifications := service.NewNotificationService(publisher)
	fare := service.NewFareEngine()
	wallet := service.NewWalletLedger(store)
	otpGate := service.NewOTPGate(store, cacheStore, notifications)
	verifier := service.DriverRecordVerifier{}
	matching := service.NewMatchingPool(store, declineStore, lockStore, verifier, otpGate, cacheStore, notifications).
		WithPoolSize(cfg.Matching.PoolSize)
	settlement := service.NewSettlementEngine(store, wallet, cacheStore, notifications)
	rideService := service.NewRideService(store, fare, wallet, settlement, cacheStore, declineStore, notifications)
	driverService := service.NewDriverService(store, verifier)
	riderService := service.NewRiderService(store)
	withdrawals := service.NewWithdrawalProcessor(store, wallet, notifications)
	receipts := service.NewReceiptService(store, fare)

	router := app.NewRouter(app.RouterDeps{
		RideHandler:       handler.NewRideHandler(rideService, otpGate, receipts),
		DriverHandler:     handler.NewDriverHandler(driverService, rideService, matching, otpGate, settlement, tokens),
		RiderHandler:      handler.NewRiderHandler(riderService, tokens),
		WalletHandler:     handler.NewWalletHandler(wallet),
		WithdrawalHandler: handler.NewWithdrawalHandler(withdrawals),
		Tokens:            tokens,
		RedisClient:       redisClient,
		NewRelicApp:       nrApp,
		Logger:            logger,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.WithCORS(router, cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
