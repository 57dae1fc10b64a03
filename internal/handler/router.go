package handler

import (
	"net/http"
	"time"

	"paydash/internal/middleware"
	"paydash/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
)

// RouterConfig wires the handlers and middleware into one router. Redis is
// optional; without it rate limiting and idempotent replay are skipped.
type RouterConfig struct {
	Payments       *PaymentHandler
	Realtime       *RealtimeHandler
	System         *SystemHandler
	Auth           *middleware.AuthMiddleware
	Redis          *redis.Client
	AllowedOrigins []string
	RatePerMinute  int
	IdempotencyTTL time.Duration
	Logger         logger.Logger
}

// NewRouter returns the API wrapped in CORS so preflight requests are
// answered before route matching.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.CorrelationID)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Log)
	r.Use(middleware.BodyLimit(1 << 20)) // 1MB global cap

	// Health checks
	r.HandleFunc("/health", cfg.System.Health).Methods(http.MethodGet)
	r.HandleFunc("/ready", cfg.System.Ready).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(cfg.Auth.Authenticate)
	if cfg.Redis != nil && cfg.RatePerMinute > 0 {
		api.Use(middleware.NewRateLimiter(cfg.Redis, cfg.RatePerMinute, time.Minute, cfg.Logger).Limit)
	}

	api.HandleFunc("/ws", cfg.Realtime.ServeWS).Methods(http.MethodGet)

	payments := api.PathPrefix("/payments").Subrouter()
	if cfg.Redis != nil && cfg.IdempotencyTTL > 0 {
		payments.Use(middleware.NewIdempotencyMiddleware(cfg.Redis, cfg.IdempotencyTTL, cfg.Logger).Handle)
	}
	payments.HandleFunc("", cfg.Payments.CreatePayment).Methods(http.MethodPost)
	payments.HandleFunc("", cfg.Payments.ListPayments).Methods(http.MethodGet)
	// stats must be registered before the {id} pattern.
	payments.HandleFunc("/stats", cfg.Payments.GetStats).Methods(http.MethodGet)
	payments.HandleFunc("/{id}", cfg.Payments.GetPayment).Methods(http.MethodGet)

	return middleware.CORS(cfg.AllowedOrigins)(r)
}
