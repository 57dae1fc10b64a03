package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	store       Pinger
	redisClient *redis.Client
	hubSize     func() int
	logger      Logger
	startTime   time.Time
}

// NewSystemHandler builds the operational endpoints. redisClient may be nil.
func NewSystemHandler(store Pinger, redisClient *redis.Client, hubSize func() int, log Logger) *SystemHandler {
	return &SystemHandler{
		store:       store,
		redisClient: redisClient,
		hubSize:     hubSize,
		logger:      log,
		startTime:   time.Now(),
	}
}

type ServiceStatus struct {
	ID        string `json:"id"`
	Status    string `json:"status"` // operational, degraded, outage
	LatencyMs int64  `json:"latency_ms"`
}

type ReadinessResponse struct {
	Status      string          `json:"status"`
	Services    []ServiceStatus `json:"services"`
	Subscribers int             `json:"subscribers"`
	UptimeSec   int64           `json:"uptime_seconds"`
}

// Health is the liveness probe.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "payment",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready reports 503 while the record store is unreachable. Redis only
// degrades optional features, so its outage does not fail readiness.
func (h *SystemHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	store := h.check(ctx, "record_store", h.store.Ping, 200*time.Millisecond)
	resp := ReadinessResponse{
		Status:    "ready",
		Services:  []ServiceStatus{store},
		UptimeSec: int64(time.Since(h.startTime).Seconds()),
	}
	if h.redisClient != nil {
		resp.Services = append(resp.Services, h.check(ctx, "redis", func(ctx context.Context) error {
			return h.redisClient.Ping(ctx).Err()
		}, 50*time.Millisecond))
	}
	if h.hubSize != nil {
		resp.Subscribers = h.hubSize()
	}

	status := http.StatusOK
	if store.Status == "outage" {
		resp.Status = "not ready"
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}

func (h *SystemHandler) check(ctx context.Context, id string, ping func(context.Context) error, slow time.Duration) ServiceStatus {
	start := time.Now()
	err := ping(ctx)
	latency := time.Since(start)

	s := ServiceStatus{ID: id, Status: "operational", LatencyMs: latency.Milliseconds()}
	if err != nil {
		s.Status = "outage"
		h.logger.Error("Readiness check failed", map[string]interface{}{"service": id, "error": err.Error()})
	} else if latency > slow {
		s.Status = "degraded"
	}
	return s
}
