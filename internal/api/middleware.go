// internal/api/middleware.go
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"childcare-registration/internal/common/auth"
	apperrors "childcare-registration/internal/common/errors"
	"childcare-registration/internal/common/logger"
	"childcare-registration/internal/common/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// TokenValidator introspects bearer tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.TokenInfo, error)
}

type contextKeyUsername struct{}

func usernameFrom(ctx context.Context) string {
	name, _ := ctx.Value(contextKeyUsername{}).(string)
	return name
}

// requestLogger logs one line per request and records its metrics.
func requestLogger(log logger.Logger, obs *observability.Observability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			if obs != nil {
				obs.RecordRequest(r.Context(), route, r.Method, status, elapsed)
			}
			log.Info("request", map[string]interface{}{
				"method":     r.Method,
				"route":      route,
				"status":     status,
				"durationMs": elapsed.Milliseconds(),
				"requestId":  middleware.GetReqID(r.Context()),
			})
		})
	}
}

// requireRole guards case-worker routes with Keycloak token introspection.
// A nil validator leaves the route open.
func requireRole(validator TokenValidator, role string, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeError(w, apperrors.NewUnauthorizedError("missing bearer token"))
				return
			}

			info, err := validator.ValidateToken(r.Context(), strings.TrimSpace(token))
			if err != nil {
				stdErr := apperrors.AsStandardError(err)
				log.Warn("token rejected", map[string]interface{}{
					"code":      string(stdErr.Code),
					"details":   stdErr.Details,
					"requestId": middleware.GetReqID(r.Context()),
				})
				// An unreachable identity provider is our failure, not the caller's.
				writeError(w, stdErr)
				return
			}
			if role != "" && !info.HasRole(role) {
				writeError(w, apperrors.NewForbiddenError(role))
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyUsername{}, info.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
