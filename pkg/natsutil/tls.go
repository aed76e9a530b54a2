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

package natsutil

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/carverauto/sensorhub/pkg/models"
)

var (
	// ErrMTLSRequired means the security block is missing or not in mtls mode.
	ErrMTLSRequired = errors.New("mtls security required")
	// ErrCAParsingFailed means the CA bundle held no usable PEM certificate.
	ErrCAParsingFailed = errors.New("failed to parse CA certificate")
	// ErrTLSFileRequired means one of cert_file, key_file or ca_file is empty.
	ErrTLSFileRequired = errors.New("tls file path is required")
)

// clientFiles are the resolved locations of the client keypair and CA bundle.
type clientFiles struct {
	cert, key, ca string
}

func resolveClientFiles(sec *models.SecurityConfig) (clientFiles, error) {
	files := clientFiles{
		cert: certPath(sec.CertDir, sec.TLS.CertFile),
		key:  certPath(sec.CertDir, sec.TLS.KeyFile),
		ca:   certPath(sec.CertDir, sec.TLS.CAFile),
	}

	for field, p := range map[string]string{"cert_file": files.cert, "key_file": files.key, "ca_file": files.ca} {
		if p == "" {
			return clientFiles{}, fmt.Errorf("%w: %s", ErrTLSFileRequired, field)
		}
	}

	return files, nil
}

// TLSConfig builds the client side of a mutual TLS connection to NATS.
// Relative file names are looked up under sec.CertDir.
func TLSConfig(sec *models.SecurityConfig) (*tls.Config, error) {
	if sec == nil || sec.Mode != models.SecurityModeMTLS {
		return nil, ErrMTLSRequired
	}

	files, err := resolveClientFiles(sec)
	if err != nil {
		return nil, err
	}

	keypair, err := tls.LoadX509KeyPair(files.cert, files.key)
	if err != nil {
		return nil, fmt.Errorf("load client certificate %s: %w", files.cert, err)
	}

	bundle, err := os.ReadFile(files.ca)
	if err != nil {
		return nil, fmt.Errorf("read CA bundle %s: %w", files.ca, err)
	}

	roots := x509.NewCertPool()
	if !roots.AppendCertsFromPEM(bundle) {
		return nil, fmt.Errorf("%w: %s", ErrCAParsingFailed, files.ca)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{keypair},
		RootCAs:      roots,
		ServerName:   sec.ServerName,
		MinVersion:   tls.VersionTLS13,
	}, nil
}

func certPath(dir, file string) string {
	if file == "" || dir == "" || filepath.IsAbs(file) {
		return file
	}

	return filepath.Join(dir, file)
}
