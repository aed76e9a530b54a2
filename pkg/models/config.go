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

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/sensorhub/pkg/logger"
)

// Duration is a time.Duration that reads Go duration strings from JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		// parse numeric as nanoseconds
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

var (
	errInvalidDuration        = errors.New("invalid duration")
	errListenAddrRequired     = errors.New("listen address is required")
	errDatabaseRequired       = errors.New("database configuration is required")
	errDatabaseHostRequired   = errors.New("database.host is required")
	errDatabaseNameRequired   = errors.New("database.database is required")
	errNATSURLRequired        = errors.New("nats.url is required")
	errMailHostRequired       = errors.New("mail.host is required when mail is enabled")
	errMailFromRequired       = errors.New("mail.from is required when mail is enabled")
	errMailTLSPolicyInvalid   = errors.New("mail.tls must be one of ssl, starttls, none")
	errAlertsWorkersInvalid   = errors.New("alerts.workers must be non-negative")
	errAlertsSendTimeoutNeg   = errors.New("alerts.send_timeout must be non-negative")
	errReconcileMaxElapsedNeg = errors.New("reconcile.max_elapsed must be non-negative")
)

const (
	defaultListenAddr         = ":8090"
	defaultAlertWorkers       = 8
	defaultMaxConcurrentSends = 16
	defaultSendTimeout        = 10 * time.Second
	defaultReconcileElapsed   = 5 * time.Second
	defaultEventsStream       = "events"
	defaultEventsSubject      = "events.alerts.fired"
	defaultIngestStream       = "telemetry"
	defaultIngestSubject      = "telemetry.ingest.>"
	defaultIngestConsumer     = "sensorhub-ingest"
)

// CNPGDatabase describes the Postgres (CloudNativePG) cluster that holds
// devices, the type catalog, rules and telemetry.
type CNPGDatabase struct {
	Host               string            `json:"host"`
	Port               int               `json:"port"`
	Database           string            `json:"database"`
	Username           string            `json:"username"`
	Password           string            `json:"password" sensitive:"true"`
	SSLMode            string            `json:"ssl_mode"`
	ApplicationName    string            `json:"application_name"`
	CertDir            string            `json:"cert_dir"`
	TLS                *TLSConfig        `json:"tls,omitempty"`
	MaxConnections     int32             `json:"max_connections"`
	MinConnections     int32             `json:"min_connections"`
	MaxConnLifetime    Duration          `json:"max_conn_lifetime"`
	HealthCheckPeriod  Duration          `json:"health_check_period"`
	StatementTimeout   Duration          `json:"statement_timeout"`
	ExtraRuntimeParams map[string]string `json:"extra_runtime_params,omitempty"`
}

// NATSConfig configures the optional JetStream ingest consumer and the alert
// event publisher.
type NATSConfig struct {
	URL           string          `json:"url"`
	Domain        string          `json:"domain,omitempty"`
	EventsStream  string          `json:"events_stream"`
	EventsSubject string          `json:"events_subject"`
	IngestEnabled bool            `json:"ingest_enabled"`
	IngestStream  string          `json:"ingest_stream"`
	IngestSubject string          `json:"ingest_subject"`
	ConsumerName  string          `json:"consumer_name"`
	Security      *SecurityConfig `json:"security,omitempty"`
}

// MailConfig configures the SMTP transport used for alert notifications.
type MailConfig struct {
	Enabled  bool     `json:"enabled"`
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Username string   `json:"username"`
	Password string   `json:"password" sensitive:"true"`
	From     string   `json:"from"`
	TLS      string   `json:"tls"`
	Timeout  Duration `json:"timeout"`
}

// AlertsConfig tunes rule evaluation and notification fan-out.
type AlertsConfig struct {
	Workers            int      `json:"workers"`
	MaxConcurrentSends int      `json:"max_concurrent_sends"`
	SendTimeout        Duration `json:"send_timeout"`
	SubjectTemplate    string   `json:"subject_template,omitempty"`
	BodyTemplate       string   `json:"body_template,omitempty"`
}

// ReconcileConfig tunes the reported configuration compare-and-swap loop.
type ReconcileConfig struct {
	MaxElapsed Duration `json:"max_elapsed"`
}

// CORSConfig represents CORS configuration for the HTTP API.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowCredentials bool     `json:"allow_credentials"`
}

// SensorhubConfig is the configuration of the ingestion service.
type SensorhubConfig struct {
	ListenAddr string          `json:"listen_addr"`
	Database   *CNPGDatabase   `json:"database"`
	NATS       *NATSConfig     `json:"nats,omitempty"`
	Mail       MailConfig      `json:"mail"`
	Alerts     AlertsConfig    `json:"alerts"`
	Reconcile  ReconcileConfig `json:"reconcile"`
	CORS       CORSConfig      `json:"cors"`
	Logging    *logger.Config  `json:"logging"`
}

// ApplyDefaults fills in optional settings that were left empty.
func (c *SensorhubConfig) ApplyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.Alerts.Workers == 0 {
		c.Alerts.Workers = defaultAlertWorkers
	}

	if c.Alerts.MaxConcurrentSends <= 0 {
		c.Alerts.MaxConcurrentSends = defaultMaxConcurrentSends
	}

	if c.Alerts.SendTimeout == 0 {
		c.Alerts.SendTimeout = Duration(defaultSendTimeout)
	}

	if c.Reconcile.MaxElapsed == 0 {
		c.Reconcile.MaxElapsed = Duration(defaultReconcileElapsed)
	}

	if c.Mail.TLS == "" {
		c.Mail.TLS = "starttls"
	}

	if c.NATS != nil {
		c.NATS.applyDefaults()
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}
}

func (n *NATSConfig) applyDefaults() {
	if n.EventsStream == "" {
		n.EventsStream = defaultEventsStream
	}

	if n.EventsSubject == "" {
		n.EventsSubject = defaultEventsSubject
	}

	if n.IngestStream == "" {
		n.IngestStream = defaultIngestStream
	}

	if n.IngestSubject == "" {
		n.IngestSubject = defaultIngestSubject
	}

	if n.ConsumerName == "" {
		n.ConsumerName = defaultIngestConsumer
	}
}

// Validate checks the loaded configuration.
func (c *SensorhubConfig) Validate() error {
	c.ApplyDefaults()

	var errs []error

	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errListenAddrRequired)
	}

	if c.Database == nil {
		errs = append(errs, errDatabaseRequired)
	} else {
		if c.Database.Host == "" {
			errs = append(errs, errDatabaseHostRequired)
		}

		if c.Database.Database == "" {
			errs = append(errs, errDatabaseNameRequired)
		}
	}

	if c.NATS != nil && c.NATS.URL == "" {
		errs = append(errs, errNATSURLRequired)
	}

	if c.Mail.Enabled {
		if c.Mail.Host == "" {
			errs = append(errs, errMailHostRequired)
		}

		if c.Mail.From == "" {
			errs = append(errs, errMailFromRequired)
		}

		switch strings.ToLower(c.Mail.TLS) {
		case "ssl", "starttls", "none":
		default:
			errs = append(errs, errMailTLSPolicyInvalid)
		}
	}

	if c.Alerts.Workers < 0 {
		errs = append(errs, errAlertsWorkersInvalid)
	}

	if c.Alerts.SendTimeout < 0 {
		errs = append(errs, errAlertsSendTimeoutNeg)
	}

	if c.Reconcile.MaxElapsed < 0 {
		errs = append(errs, errReconcileMaxElapsedNeg)
	}

	return errors.Join(errs...)
}
