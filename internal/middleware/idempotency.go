// Package middleware provides shared HTTP middleware utilities.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	pderrors "paydash/pkg/errors"
	"paydash/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// IdempotencyMiddleware replays the first response for repeated unsafe
// requests carrying the same Idempotency-Key.
type IdempotencyMiddleware struct {
	cache        *redis.Client
	ttl          time.Duration
	lockTTL      time.Duration
	storeTimeout time.Duration
	waitStep     time.Duration
	waits        int
	logger       logger.Logger
}

// NewIdempotencyMiddleware constructs an IdempotencyMiddleware. ttl is how
// long a completed response is replayed; the in-flight lock expires sooner so
// a lost release cannot block retries for the whole replay window.
func NewIdempotencyMiddleware(cache *redis.Client, ttl time.Duration, log logger.Logger) *IdempotencyMiddleware {
	if log == nil {
		log = logger.NewNop()
	}
	lockTTL := 30 * time.Second
	if ttl > 0 && ttl < lockTTL {
		lockTTL = ttl
	}
	return &IdempotencyMiddleware{
		cache:        cache,
		ttl:          ttl,
		lockTTL:      lockTTL,
		storeTimeout: 2 * time.Second,
		waitStep:     100 * time.Millisecond,
		waits:        50,
		logger:       log,
	}
}

// Handle deduplicates POST requests that carry an Idempotency-Key header.
// Requests without the header pass through unchanged.
func (m *IdempotencyMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Idempotency-Key")
		if r.Method != http.MethodPost || key == "" {
			next.ServeHTTP(w, r)
			return
		}

		scope := r.URL.Path
		if id, ok := IdentityFromContext(r.Context()); ok {
			scope = id.Subject + ":" + scope
		}
		dataKey := fmt.Sprintf("idempotency:data:%s:%s", scope, key)
		lockKey := fmt.Sprintf("idempotency:lock:%s:%s", scope, key)

		// Fast path: cached response exists
		if m.replayCached(w, r, dataKey) {
			return
		}

		requestID := RequestIDFromContext(r.Context())
		if requestID == "" {
			requestID = "unknown"
		}

		ok, err := m.cache.SetNX(r.Context(), lockKey, requestID, m.lockTTL).Result()
		if err != nil {
			m.logger.Warn("Idempotency store unavailable", map[string]interface{}{"error": err.Error()})
			next.ServeHTTP(w, r)
			return
		}

		if !ok {
			// Another request with the same key is in flight.
			for i := 0; i < m.waits; i++ {
				select {
				case <-r.Context().Done():
					return
				case <-time.After(m.waitStep):
				}
				if m.replayCached(w, r, dataKey) {
					return
				}
			}
			jsonError(w, http.StatusConflict, pderrors.ErrDuplicateRequest.Error())
			return
		}

		cw := newCaptureWriter(w, 1<<20) // 1MB cap
		next.ServeHTTP(cw, r)

		// The outcome is recorded even if the client has gone away.
		storeCtx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), m.storeTimeout)
		defer cancel()

		if err := m.cacheResponse(storeCtx, dataKey, cw); err != nil {
			m.logger.Warn("Idempotency cache write failed", map[string]interface{}{"error": err.Error()})
		}
		if err := m.cache.Del(storeCtx, lockKey).Err(); err != nil {
			m.logger.Warn("Idempotency lock release failed", map[string]interface{}{"error": err.Error()})
		}
	})
}

type capturedResponse struct {
	Status  int               `json:"status"`
	Body    []byte            `json:"body"`
	Headers map[string]string `json:"headers"`
}

func (m *IdempotencyMiddleware) replayCached(w http.ResponseWriter, r *http.Request, dataKey string) bool {
	payload, err := m.cache.Get(r.Context(), dataKey).Bytes()
	if err != nil {
		return false
	}

	var cr capturedResponse
	if err := json.Unmarshal(payload, &cr); err != nil {
		return false
	}

	for k, v := range cr.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cr.Status)
	_, _ = w.Write(cr.Body)
	return true
}

// cacheResponse stores completed responses. Server errors are not cached so
// the client can retry them.
func (m *IdempotencyMiddleware) cacheResponse(ctx context.Context, dataKey string, cw *captureWriter) error {
	if cw.status == 0 || cw.status >= http.StatusInternalServerError || len(cw.buf) == 0 || cw.truncated {
		return nil
	}

	payload, err := json.Marshal(capturedResponse{
		Status:  cw.status,
		Body:    cw.buf,
		Headers: cw.headers,
	})
	if err != nil {
		return err
	}

	return m.cache.Set(ctx, dataKey, payload, m.ttl).Err()
}

type captureWriter struct {
	http.ResponseWriter
	buf       []byte
	limit     int
	truncated bool
	status    int
	headers   map[string]string
}

func newCaptureWriter(w http.ResponseWriter, limit int) *captureWriter {
	return &captureWriter{
		ResponseWriter: w,
		buf:            make([]byte, 0, 1024),
		limit:          limit,
		headers:        make(map[string]string),
	}
}

func (w *captureWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	for k, v := range w.ResponseWriter.Header() {
		if len(v) > 0 {
			w.headers[k] = v[0]
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	space := w.limit - len(w.buf)
	if len(p) > space {
		w.truncated = true
		if space > 0 {
			w.buf = append(w.buf, p[:space]...)
		}
	} else {
		w.buf = append(w.buf, p...)
	}
	return w.ResponseWriter.Write(p)
}
