// Package api exposes the listing service over HTTP: account and voucher
// endpoints, the workflow lifecycle, and the generation stages. All workflow
// routes require a bearer token; the account in the token is the only
// identity the handlers trust.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/listforge/listforge/internal/app/export"
	"github.com/listforge/listforge/internal/app/ledger"
	"github.com/listforge/listforge/internal/app/pipeline"
	"github.com/listforge/listforge/internal/app/session"
	"github.com/listforge/listforge/internal/domain"
)

// Version is the API version string reported by /api/version.
const Version = "0.1.0"

// Server is the HTTP API server.
type Server struct {
	auth           *Auth
	credits        *ledger.Service
	sessions       *session.Manager
	runner         *pipeline.Runner
	exporter       *export.Service
	metricsEnabled bool
	log            *zap.Logger
}

// NewServer wires the API over the application services.
func NewServer(auth *Auth, credits *ledger.Service, sessions *session.Manager, runner *pipeline.Runner, exporter *export.Service, log *zap.Logger) *Server {
	return &Server{
		auth:     auth,
		credits:  credits,
		sessions: sessions,
		runner:   runner,
		exporter: exporter,
		log:      log,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(corsMiddleware)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": Version})
	})

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", s.auth.HandleRegister)
		r.Post("/login", s.auth.HandleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Route("/api/account", func(r chi.Router) {
			r.Get("/", s.handleAccount)
			r.Post("/redeem", s.handleRedeem)
			r.Get("/history", s.handleHistory)
		})

		r.Route("/api/workflows", func(r chi.Router) {
			r.Post("/", s.handleCreateWorkflow)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetWorkflow)
				r.Delete("/", s.handleDeleteWorkflow)
				r.Post("/stages/{stage}", s.handleRunStage)
				r.Post("/reset", s.handleReset)
				r.Get("/export", s.handleExport)
			})
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// logRequests emits one structured line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps a domain error onto an HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrInsufficientCredit):
		writeError(w, http.StatusPaymentRequired, "insufficient credit")
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrWorkflowNotFound),
		errors.Is(err, domain.ErrUnknownStage):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateAccount):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrStagePrerequisiteMissing),
		errors.Is(err, domain.ErrInvalidPhase):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidOrUsedVoucher):
		writeError(w, http.StatusUnprocessableEntity, "invalid or already used voucher")
	case errors.Is(err, domain.ErrMalformedModelOutput),
		errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// corsMiddleware adds CORS headers for browser clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
