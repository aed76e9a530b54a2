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

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/sensorhub/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

// Service is a background component started with the server and stopped
// after the listener has drained.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ServerOptions configures RunServer.
type ServerOptions struct {
	ServiceName     string
	Server          *http.Server
	Services        []Service
	ShutdownTimeout time.Duration
	Logger          logger.Logger
}

// RunServer starts the background services and the HTTP server, then blocks
// until ctx is cancelled, SIGINT/SIGTERM arrives or the listener fails.
// Services are stopped in reverse start order.
func RunServer(ctx context.Context, opts *ServerOptions) error {
	log := opts.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	started := make([]Service, 0, len(opts.Services))

	for _, svc := range opts.Services {
		if err := svc.Start(ctx); err != nil {
			stopServices(started, opts.shutdownTimeout(), log)

			return fmt.Errorf("failed to start %s: %w", opts.ServiceName, err)
		}

		started = append(started, svc)
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info().
			Str("service", opts.ServiceName).
			Str("listen_addr", opts.Server.Addr).
			Msg("Starting HTTP server")

		if err := opts.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	var serveErr error

	select {
	case <-ctx.Done():
		log.Info().Str("service", opts.ServiceName).Msg("Shutdown requested")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.shutdownTimeout())
	defer cancel()

	if err := opts.Server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	stopServices(started, opts.shutdownTimeout(), log)

	return serveErr
}

func (o *ServerOptions) shutdownTimeout() time.Duration {
	if o.ShutdownTimeout > 0 {
		return o.ShutdownTimeout
	}

	return defaultShutdownTimeout
}

func stopServices(services []Service, timeout time.Duration, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Stop(ctx); err != nil {
			log.Warn().Err(err).Msg("Service stop failed")
		}
	}
}
