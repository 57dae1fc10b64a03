// Package middleware hosts authentication, logging, and rate limiting middleware.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey avoids collisions when storing values in request contexts.
type contextKey string

const ctxIdentityKey contextKey = "identity"

// Identity is the authenticated caller taken from the token claims.
type Identity struct {
	Subject  string
	Username string
	Role     string
}

// AuthMiddleware validates bearer JWTs and injects the caller identity into the context.
type AuthMiddleware struct {
	jwtSecret string
}

// NewAuthMiddleware constructs an AuthMiddleware with the given secret.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: secret}
}

// Authenticate enforces bearer auth. Browsers cannot set headers on a
// websocket handshake, so a token query parameter is accepted as well.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, msg := bearerToken(r)
		if tokenString == "" {
			jsonError(w, http.StatusUnauthorized, msg)
			return
		}

		id, err := m.Parse(tokenString)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxIdentityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Parse validates an HS256 token and extracts the identity claims.
func (m *AuthMiddleware) Parse(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(m.jwtSecret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return Identity{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, jwt.ErrTokenInvalidClaims
	}
	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return Identity{}, jwt.ErrTokenInvalidClaims
	}

	id := Identity{Subject: sub}
	id.Username, _ = claims["username"].(string)
	id.Role, _ = claims["role"].(string)
	return id, nil
}

func bearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if strings.TrimSpace(authHeader) == "" {
		if t := r.URL.Query().Get("token"); t != "" {
			return t, ""
		}
		return "", "Authorization header required"
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "Invalid authorization format"
	}
	return parts[1], ""
}

// IdentityFromContext returns the authenticated caller from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentityKey).(Identity)
	return id, ok
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// CORS reflects allowed origins. An empty list allows any origin.
func CORS(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if len(allowed) > 0 {
				if OriginAllowed(allowed, origin) {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Vary", "Origin")
				}
			} else if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, Idempotency-Key")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// OriginAllowed reports whether origin is in the allow list. An empty list
// allows everything.
func OriginAllowed(allowed []string, origin string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(strings.TrimSpace(o), origin) {
			return true
		}
	}
	return false
}
