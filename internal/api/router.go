// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package api wires the session HTTP surface onto a gorilla/mux router:
// REST endpoints for session lifecycle, a server-sent event log stream, a
// chat snapshot endpoint, and the HTML control views.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/tonyjom/lineforge/internal/api/handlers"
	"github.com/tonyjom/lineforge/internal/api/middleware"
	"github.com/tonyjom/lineforge/internal/session"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Bind string
	Port int
}

// NewRouter builds the full route table over the given session registry.
func NewRouter(registry *session.Registry, defaultTool session.ToolKind, itermEnabled bool) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(middleware.CORS)

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	sessionHandler := handlers.NewSessionHandler(registry, defaultTool, itermEnabled)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions", sessionHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/sessions", sessionHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", sessionHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/input", sessionHandler.Input).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/resize", sessionHandler.Resize).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/stop", sessionHandler.Stop).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/logs", sessionHandler.Logs).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/chat", sessionHandler.Chat).Methods(http.MethodGet)

	pageHandler := handlers.NewPageHandler(registry)
	r.HandleFunc("/", pageHandler.List).Methods(http.MethodGet)
	r.HandleFunc("/new", pageHandler.New).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", pageHandler.Detail).Methods(http.MethodGet)

	return r
}

// Server wraps an http.Server bound to a lineforge router.
type Server struct {
	router *mux.Router
	cfg    ServerConfig
	server *http.Server
}

// NewServer creates a Server ready to listen.
func NewServer(cfg ServerConfig, registry *session.Registry, defaultTool session.ToolKind, itermEnabled bool) *Server {
	return &Server{
		router: NewRouter(registry, defaultTool, itermEnabled),
		cfg:    cfg,
	}
}

// Router returns the underlying router, mainly for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ListenAndServe starts the HTTP server on the configured bind address.
func (s *Server) ListenAndServe() error {
	addr := s.cfg.Bind + ":" + strconv.Itoa(s.cfg.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}
	return s.server.Shutdown(shutdownCtx)
}
