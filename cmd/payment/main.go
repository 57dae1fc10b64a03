// ==============================================================================
// PAYMENT DASHBOARD SERVICE MAIN - cmd/payment/main.go
// ==============================================================================
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"paydash/internal/handler"
	"paydash/internal/middleware"
	"paydash/internal/payment"
	"paydash/internal/realtime"
	"paydash/internal/repository/memory"
	"paydash/internal/repository/postgres"
	"paydash/pkg/cache"
	"paydash/pkg/config"
	"paydash/pkg/logger"
	"paydash/pkg/validator"
)

// store is what the service and the readiness probe need from a record store.
type store interface {
	payment.Repository
	handler.Pinger
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.NewWithLevel("payment-service", logger.ParseLevel(cfg.LogLevel), os.Stdout)

	if err := cfg.ValidateCore(); err != nil {
		log.Fatal("Invalid configuration", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Starting Payment Service", map[string]interface{}{
		"port":         cfg.Server.Port,
		"store_driver": cfg.Store.Driver,
		"redis":        cfg.Redis.Enabled(),
	})

	repo, closeStore := openStore(cfg, log)
	defer closeStore()

	// Redis is optional
	redisClient, err := cache.Connect(context.Background(), cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("Redis connected", nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Live updates
	hub := realtime.NewHub(realtime.Options{
		QueueSize:  cfg.Realtime.QueueSize,
		MaxDropped: cfg.Realtime.MaxDropped,
	}, log)

	var publisher realtime.Publisher
	if redisClient != nil {
		relay := realtime.NewRelay(redisClient, cfg.Realtime.RelayChannel, hub, log)
		publisher = relay
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error("Payment relay stopped", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	loc := cfg.Location()
	broadcaster := realtime.NewPaymentBroadcaster(hub, publisher, log)
	paymentService := payment.NewService(repo, broadcaster, validator.New(), log, payment.Options{
		MaxLimit:          cfg.Pagination.MaxLimit,
		QueryTimeout:      cfg.Store.QueryTimeout,
		Location:          loc,
		AllowPartialStats: cfg.Stats.AllowPartial,
	})

	router := handler.NewRouter(handler.RouterConfig{
		Payments: handler.NewPaymentHandler(paymentService, cfg.Pagination.DefaultLimit, loc, log),
		Realtime: handler.NewRealtimeHandler(hub, handler.RealtimeOptions{
			AllowedOrigins: cfg.Server.CORSAllowedOrigins,
			WriteTimeout:   cfg.Realtime.WriteTimeout,
			PingInterval:   cfg.Realtime.PingInterval,
		}, log),
		System:         handler.NewSystemHandler(repo, redisClient, hub.Len, log),
		Auth:           middleware.NewAuthMiddleware(cfg.JWT.Secret),
		Redis:          redisClient,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		RatePerMinute:  cfg.RateLimit.PerMinute,
		IdempotencyTTL: cfg.RateLimit.IdempotencyTTL,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("Server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...", nil)

	// Hijacked websocket connections are not tracked by Shutdown.
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", map[string]interface{}{"error": err.Error()})
	}

	// Relay publishes must finish before Redis is closed.
	broadcaster.Close()

	log.Info("Server exited", nil)
}

func openStore(cfg *config.Config, log logger.Logger) (store, func()) {
	if cfg.Store.Driver == config.DriverMemory {
		log.Warn("Using in-memory record store; data is lost on restart", nil)
		return memory.NewPaymentRepository(), func() {}
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	log.Info("Database connected", nil)
	return postgres.NewPaymentRepository(db), func() { _ = db.Close() }
}
