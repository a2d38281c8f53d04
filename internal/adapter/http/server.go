package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/climavida/heatzone-service/internal/domain"
	"github.com/climavida/heatzone-service/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/felixge/httpsnoop"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ZoneService is the query and reload surface the API serves.
type ZoneService interface {
	sharedobs.ReadinessChecker
	Snapshot() *domain.ZoneSet
	Reload(ctx context.Context) (*domain.ZoneSet, error)
}

// Server exposes the zone API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	service    ZoneService
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewServer creates the HTTP server. corsOrigins lists the origins allowed to
// call the API from a browser.
func NewServer(addr string, svc ZoneService, corsOrigins []string, logger *slog.Logger, metrics *observability.Metrics) *Server {
	s := &Server{
		service: svc,
		logger:  logger,
		metrics: metrics,
	}

	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/healthz", sharedobs.LivenessHandler()).Methods(http.MethodGet)
	r.HandleFunc("/readyz", sharedobs.ReadinessHandler(svc)).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/zones", s.handleZones).Methods(http.MethodGet)
	api.HandleFunc("/zones/tier/{tier}", s.handleZonesByTier).Methods(http.MethodGet)
	api.HandleFunc("/zones/{id}", s.handleZone).Methods(http.MethodGet)
	api.HandleFunc("/statistics", s.handleStatistics).Methods(http.MethodGet)
	api.HandleFunc("/report", s.handleReport).Methods(http.MethodGet)

	r.HandleFunc("/admin/reload", s.handleReload).Methods(http.MethodPost)

	var h http.Handler = r
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError)),
		handlers.PrintRecoveryStack(true),
	)(h)
	h = handlers.CORS(
		handlers.AllowedOrigins(corsOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", roleHeader}),
	)(h)
	h = handlers.CustomLoggingHandler(io.Discard, h, accessLog(logger))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// instrument counts requests by route template so ids do not explode label cardinality.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(m.Code)).Inc()
	})
}

// accessLog writes one structured line per request instead of the Apache format.
func accessLog(logger *slog.Logger) handlers.LogFormatter {
	return func(_ io.Writer, p handlers.LogFormatterParams) {
		logger.Info("http request",
			"method", p.Request.Method,
			"path", p.URL.Path,
			"status", p.StatusCode,
			"bytes", p.Size,
			"duration", time.Since(p.TimeStamp),
		)
	}
}
