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

// Package api provides the HTTP API server for sensorhub.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	shHttp "github.com/carverauto/sensorhub/pkg/http"
	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/gorilla/mux"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	defaultMaxBodyBytes = 1 << 20
	healthTimeout       = 2 * time.Second

	// DeviceSecretHeader may carry the credential instead of the body.
	DeviceSecretHeader = "X-Device-Secret"

	msgDataAdded = "Sensor data added successfully"
)

var errIngesterMissing = errors.New("ingestion is not configured")

// Ingester is the gateway the API forwards submissions to.
type Ingester interface {
	Ingest(ctx context.Context, req *models.IngestRequest) (*models.IngestResult, error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// APIServer exposes the ingestion endpoint over HTTP.
type APIServer struct {
	router       *mux.Router
	ingester     Ingester
	health       HealthChecker
	corsConfig   models.CORSConfig
	maxBodyBytes int64
	logger       logger.Logger
}

// NewAPIServer creates a new API server instance with the given configuration.
func NewAPIServer(config models.CORSConfig, options ...func(server *APIServer)) *APIServer {
	s := &APIServer{
		router:       mux.NewRouter(),
		corsConfig:   config,
		maxBodyBytes: defaultMaxBodyBytes,
		logger:       logger.NewTestLogger(),
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithIngester sets the gateway that handles submissions.
func WithIngester(i Ingester) func(server *APIServer) {
	return func(server *APIServer) {
		server.ingester = i
	}
}

// WithHealthChecker sets the dependency pinged by the health endpoint.
func WithHealthChecker(h HealthChecker) func(server *APIServer) {
	return func(server *APIServer) {
		server.health = h
	}
}

// WithLogger sets the request logger.
func WithLogger(log logger.Logger) func(server *APIServer) {
	return func(server *APIServer) {
		if log != nil {
			server.logger = log
		}
	}
}

// WithMaxBodyBytes caps the accepted request body size.
func WithMaxBodyBytes(n int64) func(server *APIServer) {
	return func(server *APIServer) {
		if n > 0 {
			server.maxBodyBytes = n
		}
	}
}

func (s *APIServer) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return shHttp.CommonMiddleware(next, s.corsConfig, s.logger)
	})

	s.router.HandleFunc("/api/sensors/data", s.handleSensorData).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
}

// Handler returns the routed handler.
func (s *APIServer) Handler() http.Handler {
	return s.router
}

// HTTPServer builds the listener for addr.
func (s *APIServer) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       defaultReadTimeout,
		ReadHeaderTimeout: defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
}

// handleSensorData accepts a telemetry submission or a configuration
// heartbeat.
func (s *APIServer) handleSensorData(w http.ResponseWriter, r *http.Request) {
	if s.ingester == nil {
		writeError(w, errIngesterMissing.Error(), http.StatusServiceUnavailable)
		return
	}

	req, err := decodeIngestRequest(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Credential == "" {
		req.Credential = r.Header.Get(DeviceSecretHeader)
	}

	result, err := s.ingester.Ingest(r.Context(), req)
	if err != nil {
		s.writeIngestError(w, req.DeviceID, err)
		return
	}

	if result.Batch == nil {
		writeJSON(w, http.StatusCreated, result.Config)
		return
	}

	writeJSON(w, http.StatusCreated, &models.IngestResponse{
		Message:  msgDataAdded,
		BatchID:  result.Batch.ID,
		Data:     result.Batch,
		Alerts:   result.Alerts,
		Config:   result.Config,
		Warnings: result.Warnings,
	})
}

func (s *APIServer) writeIngestError(w http.ResponseWriter, deviceID string, err error) {
	switch {
	case errors.Is(err, models.ErrAuthentication):
		writeError(w, "invalid credential", http.StatusUnauthorized)
	case errors.Is(err, models.ErrValidation):
		writeError(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error().Err(err).Str("device_id", deviceID).Msg("Ingestion failed")
		writeError(w, "failed to store sensor data", http.StatusInternalServerError)
	}
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := s.health.Ping(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})

			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// the status line is already sent, an encode failure cannot be reported
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, models.ErrorResponse{Error: message})
}
