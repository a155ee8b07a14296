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
	"path/filepath"

	"github.com/carverauto/devping/pkg/kv"
)

// errConfigKeyMissing means the bucket holds no config for the requested path.
var errConfigKeyMissing = errors.New("devping config not present in KV bucket")

// ConfigKey maps a config file path to its KV key, so /etc/devping/devping.json
// and ./devping.json share config/devping.json.
func ConfigKey(path string) string {
	return "config/" + filepath.Base(path)
}

// KVConfigLoader reads the devping JSON config from the KV bucket.
type KVConfigLoader struct {
	store kv.KVStore
}

func NewKVConfigLoader(store kv.KVStore) *KVConfigLoader {
	return &KVConfigLoader{store: store}
}

func (k *KVConfigLoader) Load(ctx context.Context, path string, dst interface{}) error {
	key := ConfigKey(path)

	data, found, err := k.store.Get(ctx, key)
	switch {
	case err != nil:
		return fmt.Errorf("devping config %s: kv get: %w", key, err)
	case !found:
		return fmt.Errorf("%w: %s", errConfigKeyMissing, key)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("devping config %s: %w", key, err)
	}

	return nil
}
