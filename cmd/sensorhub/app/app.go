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

// Package app assembles the sensorhub service from its configuration.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/carverauto/sensorhub/pkg/alerts"
	"github.com/carverauto/sensorhub/pkg/api"
	"github.com/carverauto/sensorhub/pkg/config"
	"github.com/carverauto/sensorhub/pkg/consumers/telemetry"
	"github.com/carverauto/sensorhub/pkg/db"
	"github.com/carverauto/sensorhub/pkg/ingest"
	"github.com/carverauto/sensorhub/pkg/lifecycle"
	"github.com/carverauto/sensorhub/pkg/logger"
	"github.com/carverauto/sensorhub/pkg/models"
	"github.com/carverauto/sensorhub/pkg/natsutil"
	"github.com/carverauto/sensorhub/pkg/notify"
	"github.com/carverauto/sensorhub/pkg/reconcile"
	"github.com/carverauto/sensorhub/pkg/sensortypes"
	"github.com/nats-io/nats.go"
)

const (
	serviceName    = "sensorhub"
	serviceVersion = "1.0.0"
	natsDrainWait  = 5 * time.Second
)

// Options contains runtime configuration derived from CLI flags.
type Options struct {
	ConfigPath string
}

// Run boots the sensorhub service and blocks until it shuts down.
func Run(ctx context.Context, opts Options) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var cfg models.SensorhubConfig

	if err := config.NewConfig(nil).LoadAndValidate(ctx, opts.ConfigPath, &cfg); err != nil {
		return err
	}

	basicLogger, err := lifecycle.CreateComponentLogger(ctx, "sensorhub-main", cfg.Logging)
	if err != nil {
		return err
	}

	tp, ctxWithTrace, rootSpan, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Logger:         basicLogger,
		OTel:           &cfg.Logging.OTel,
	})
	if err != nil {
		return err
	}
	ctx = ctxWithTrace

	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			basicLogger.Error().Err(err).Msg("Error shutting down tracer provider")
		}

		rootSpan.End()
	}()

	mainLogger, err := lifecycle.CreateComponentLogger(ctx, "sensorhub-main", cfg.Logging)
	if err != nil {
		return err
	}

	if _, metricsErr := logger.InitializeMetrics(ctx, logger.MetricsConfig{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		OTel:           &cfg.Logging.OTel,
	}); metricsErr != nil && !errors.Is(metricsErr, logger.ErrOTelMetricsDisabled) {
		return metricsErr
	}

	defer func() {
		if err := lifecycle.ShutdownLogger(); err != nil {
			mainLogger.Error().Err(err).Msg("Error shutting down logger")
		}
	}()

	if safe, err := models.FilterSensitiveFields(&cfg); err == nil {
		mainLogger.Debug().Interface("config", safe).Msg("Loaded configuration")
	}

	database, err := db.New(ctx, cfg.Database, mainLogger)
	if err != nil {
		return err
	}
	defer database.Close()

	var nc *nats.Conn

	if cfg.NATS != nil {
		nc, err = natsutil.ConnectWithSecurity(cfg.NATS.URL, cfg.NATS.Security, mainLogger)
		if err != nil {
			return err
		}

		defer drainNATS(nc, mainLogger)
	}

	gateway, err := buildGateway(ctx, &cfg, database, nc, mainLogger)
	if err != nil {
		return err
	}

	apiServer := api.NewAPIServer(cfg.CORS,
		api.WithIngester(gateway),
		api.WithHealthChecker(database),
		api.WithLogger(mainLogger),
	)

	var services []lifecycle.Service

	if nc != nil && cfg.NATS.IngestEnabled {
		services = append(services, telemetry.NewService(cfg.NATS, nc, gateway, mainLogger))
	}

	mainLogger.Info().
		Str("listen_addr", cfg.ListenAddr).
		Bool("nats", nc != nil).
		Bool("smtp", cfg.Mail.Enabled).
		Msg("Starting sensorhub")

	return lifecycle.RunServer(ctx, &lifecycle.ServerOptions{
		ServiceName: serviceName,
		Server:      apiServer.HTTPServer(cfg.ListenAddr),
		Services:    services,
		Logger:      mainLogger,
	})
}

// buildGateway wires the resolve, persist, evaluate and reconcile stages.
func buildGateway(
	ctx context.Context,
	cfg *models.SensorhubConfig,
	store db.Service,
	nc *nats.Conn,
	log logger.Logger,
) (*ingest.Service, error) {
	transport, err := notify.NewTransport(&cfg.Mail, log)
	if err != nil {
		return nil, err
	}

	renderer, err := alerts.NewRenderer(cfg.Alerts.SubjectTemplate, cfg.Alerts.BodyTemplate)
	if err != nil {
		return nil, err
	}

	dispatcher := alerts.NewDispatcher(transport, log,
		alerts.WithRenderer(renderer),
		alerts.WithSendTimeout(time.Duration(cfg.Alerts.SendTimeout)),
		alerts.WithMaxConcurrentSends(cfg.Alerts.MaxConcurrentSends),
	)

	engineOpts := []alerts.EngineOption{alerts.WithWorkers(cfg.Alerts.Workers)}

	if nc != nil {
		publisher, err := natsutil.CreateEventPublisher(ctx, nc, cfg.NATS, log)
		if err != nil {
			return nil, err
		}

		engineOpts = append(engineOpts, alerts.WithEventPublisher(publisher))
	}

	engine := alerts.NewEngine(
		alerts.NewMatcher(store),
		dispatcher,
		alerts.NewAuditor(store, log),
		log,
		engineOpts...,
	)

	reconciler := reconcile.New(store, log, reconcile.WithMaxElapsed(time.Duration(cfg.Reconcile.MaxElapsed)))

	return ingest.NewService(store, sensortypes.NewResolver(store, log), engine, reconciler, log), nil
}

func drainNATS(nc *nats.Conn, log logger.Logger) {
	done := make(chan struct{})

	nc.SetClosedHandler(func(*nats.Conn) { close(done) })

	if err := nc.Drain(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain NATS connection")
		nc.Close()

		return
	}

	select {
	case <-done:
	case <-time.After(natsDrainWait):
		nc.Close()
	}
}
