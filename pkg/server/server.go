// Package server exposes the transform engine over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"rtcontour/pkg/config"
	"rtcontour/pkg/engine"
	"rtcontour/pkg/identity"
)

// HTTPServer serves the /v1 API
type HTTPServer struct {
	server *http.Server
	router *mux.Router

	engine    *engine.Engine
	logger    *log.Logger
	anonymize identity.Options
	maxBody   int64
}

// NewHTTPServer builds a server from cfg. Routes are registered immediately.
func NewHTTPServer(cfg *config.Config, eng *engine.Engine, logger *log.Logger) *HTTPServer {
	router := mux.NewRouter()
	if logger == nil {
		logger = log.New(io.Discard)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		WriteTimeout: cfg.Server.WriteTimeout,
		ReadTimeout:  cfg.Server.ReadTimeout,
		IdleTimeout:  time.Second * 60,
		Handler:      router,
	}

	hs := &HTTPServer{
		server: srv,
		router: router,
		engine: eng,
		logger: logger,
		anonymize: identity.Options{
			Name:         cfg.Anonymize.Name,
			BirthDate:    cfg.Anonymize.BirthDate,
			OperatorName: cfg.Anonymize.OperatorName,
			CreationDate: cfg.Anonymize.CreationDate,
		},
		maxBody: cfg.Server.MaxBodyBytes,
	}
	if hs.maxBody <= 0 {
		hs.maxBody = config.DefaultConfig().Server.MaxBodyBytes
	}
	hs.registerRoutes()
	return hs
}

func (hs *HTTPServer) registerRoutes() {
	hs.router.Use(hs.logRequests)
	hs.router.HandleFunc("/healthz", hs.healthHandler).Methods("GET")
	hs.router.HandleFunc("/v1/transform", hs.transformHandler).Methods("POST")
	hs.router.HandleFunc("/v1/stats", hs.statsHandler).Methods("POST")
}

// Handler returns the routed handler, for tests and embedding.
func (hs *HTTPServer) Handler() http.Handler { return hs.router }

// Addr returns the configured listen address.
func (hs *HTTPServer) Addr() string { return hs.server.Addr }

// ListenAndServe blocks until the server fails or is shut down. A clean
// shutdown returns nil.
func (hs *HTTPServer) ListenAndServe() error {
	hs.logger.Info("http server starting", "addr", hs.server.Addr)
	if err := hs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (hs *HTTPServer) Shutdown(ctx context.Context) error {
	if err := hs.server.Shutdown(ctx); err != nil {
		return err
	}
	hs.logger.Info("http server stopped")
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (hs *HTTPServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		hs.logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", rec.status, "took", time.Since(start))
	})
}
