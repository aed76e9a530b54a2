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

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	errConfigPathRequired = errors.New("config file path is required")
	errTrailingConfigData = errors.New("unexpected data after the config object")
)

// FileConfigLoader reads a single JSON document from disk. Unknown keys are
// rejected so a misspelt option fails at startup instead of silently taking
// its default.
type FileConfigLoader struct{}

// Load decodes the file at path into dst. Errors name the file, and syntax
// errors also carry the byte offset.
func (*FileConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	if path == "" {
		return errConfigPathRequired
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("config %s at offset %d: %w", path, syntaxErr.Offset, err)
		}

		return fmt.Errorf("config %s: %w", path, err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config %s: %w", path, errTrailingConfigData)
	}

	return nil
}
