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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// DefaultConfigPath is used when neither -config nor CONFIG_PATH is set.
const DefaultConfigPath = "/etc/devping/devping.json"

var errEmptyConfigFile = errors.New("devping config file is empty")

// ResolvePath picks the config file location: an explicit path wins, then
// CONFIG_PATH, then DefaultConfigPath.
func ResolvePath(path string) string {
	if path != "" {
		return path
	}

	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}

	return DefaultConfigPath
}

// FileConfigLoader reads the devping JSON config from disk.
type FileConfigLoader struct{}

func (*FileConfigLoader) Load(_ context.Context, path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("devping config %s: %w", path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: %s", errEmptyConfigFile, path)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("devping config %s: invalid JSON at byte %d: %w", path, syntaxErr.Offset, err)
		}

		return fmt.Errorf("devping config %s: %w", path, err)
	}

	return nil
}
