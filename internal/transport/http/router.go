// Package http assembles the public HTTP surface: middleware chain, health
// and metrics endpoints, and the per-module route registrations.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jwttoken "cobal/internal/jwt_token"
	authmw "cobal/pkg/platform/middleware/auth"
	"cobal/pkg/platform/middleware/metadata"
	"cobal/pkg/platform/middleware/request"
	"cobal/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by every module handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker pings one downstream dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config assembles the router.
type Config struct {
	Logger    *slog.Logger
	JWT       *jwttoken.JWTService
	Public    []Registrar // registered without authentication
	Protected []Registrar // registered behind RequireAuth
	Checks    map[string]HealthChecker
}

// tokenValidator adapts the JWT service to the auth middleware.
type tokenValidator struct {
	jwt *jwttoken.JWTService
}

func (v tokenValidator) ValidateToken(tokenString string) (*authmw.TokenClaims, error) {
	claims, err := v.jwt.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &authmw.TokenClaims{OperatorID: claims.OperatorID}, nil
}

// NewRouter builds the chi router with the full middleware chain.
func NewRouter(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", healthHandler(cfg.Checks))
	r.Handle("/metrics", promhttp.Handler())

	for _, registrar := range cfg.Public {
		registrar.Register(r)
	}

	r.Group(func(protected chi.Router) {
		protected.Use(authmw.RequireAuth(tokenValidator{jwt: cfg.JWT}, cfg.Logger))
		for _, registrar := range cfg.Protected {
			registrar.Register(protected)
		}
	})

	return r
}

// healthHandler reports overall service health. Degraded dependencies are
// listed but the endpoint stays 200 as long as the process can serve; a
// failing check flips the status to 503.
func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			} else {
				body[name] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
