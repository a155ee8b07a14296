/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api provides the HTTP API server for devping
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/carverauto/devping/pkg/auth"
	"github.com/carverauto/devping/pkg/devices"
	srHttp "github.com/carverauto/devping/pkg/http"
	"github.com/carverauto/devping/pkg/logger"
	"github.com/carverauto/devping/pkg/models"
	"github.com/carverauto/devping/pkg/ping"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	readHeaderTimeout   = 5 * time.Second
)

var errNoAuthenticator = errors.New("no authenticator configured")

// NewAPIServer creates a new API server instance with the given configuration
func NewAPIServer(config models.CORSConfig, options ...func(server *APIServer)) *APIServer {
	s := &APIServer{
		router:     mux.NewRouter(),
		corsConfig: config,
		logger:     logger.NewTestLogger(),
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithLogger sets the logger used for request and error logging
func WithLogger(log logger.Logger) func(server *APIServer) {
	return func(server *APIServer) {
		server.logger = log
	}
}

// WithPingService sets the reachability service behind the ping endpoint
func WithPingService(svc ping.Service) func(server *APIServer) {
	return func(server *APIServer) {
		server.pingService = svc
	}
}

// WithDeviceRegistry sets the registry used to resolve device ids
func WithDeviceRegistry(r devices.Registry) func(server *APIServer) {
	return func(server *APIServer) {
		server.deviceRegistry = r
	}
}

// WithAuthenticator sets how API callers are authenticated
func WithAuthenticator(a auth.Authenticator) func(server *APIServer) {
	return func(server *APIServer) {
		server.authenticator = a
	}
}

// WithRequestTimeout bounds the handling time of API requests
func WithRequestTimeout(d time.Duration) func(server *APIServer) {
	return func(server *APIServer) {
		server.requestTimeout = d
	}
}

// WithVersion sets the version reported by the health endpoint
func WithVersion(v string) func(server *APIServer) {
	return func(server *APIServer) {
		server.version = v
	}
}

// setupRoutes configures the HTTP routes for the API server.
func (s *APIServer) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return srHttp.CommonMiddleware(next, s.corsConfig, s.logger)
	})

	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)

	protected := s.router.PathPrefix("/api").Subrouter()
	protected.Use(srHttp.TracingMiddleware(routeSpanName))
	protected.Use(srHttp.TimeoutMiddleware(s.requestTimeout))
	protected.Use(auth.Middleware(s.authenticatorOrDeny(), s.logger))
	protected.Use(auth.RequireAuthority(models.AuthorityTenantAdmin, models.AuthorityCustomerUser))

	protected.HandleFunc("/device/ping/{deviceId}", s.pingDevice).Methods(http.MethodGet, http.MethodOptions)
}

// routeSpanName names spans after the matched route template.
func routeSpanName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return r.Method + " " + tpl
		}
	}

	return r.Method + " " + r.URL.Path
}

type denyAll struct{}

func (denyAll) Authenticate(*http.Request) (*auth.Principal, error) {
	return nil, fmt.Errorf("%w: %w", auth.ErrUnauthenticated, errNoAuthenticator)
}

func (s *APIServer) authenticatorOrDeny() auth.Authenticator {
	if s.authenticator == nil {
		s.logger.Warn().Msg("No authenticator configured, all API requests will be rejected")

		return denyAll{}
	}

	return s.authenticator
}

// Handler returns the root handler, for embedding and tests.
func (s *APIServer) Handler() http.Handler {
	return s.router
}

// Start serves the API on addr until Shutdown is called.
func (s *APIServer) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       defaultReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}

	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()

		return nil
	}

	s.server = srv
	s.mu.Unlock()

	s.logger.Info().Str("addr", addr).Msg("Starting API server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server: %w", err)
	}

	return nil
}

// Shutdown gracefully stops a server started with Start. A later Start
// returns immediately.
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.shutdown = true
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	return srv.Shutdown(ctx)
}

func (s *APIServer) health(w http.ResponseWriter, _ *http.Request) {
	s.encodeJSON(w, http.StatusOK, models.HealthResponse{Status: "ok", Version: s.version})
}

func (s *APIServer) encodeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(statusCode)

	errResponse := models.ErrorResponse{
		Message: message,
		Status:  statusCode,
	}

	if err := json.NewEncoder(w).Encode(errResponse); err != nil {
		// Fallback in case encoding fails
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}
