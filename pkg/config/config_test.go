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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/carverauto/devping/pkg/kv"
	"github.com/carverauto/devping/pkg/logger"
	"github.com/carverauto/devping/pkg/models"
)

var errKVUnavailable = errors.New("kv unavailable")

func writeJSON(t *testing.T, path string, value interface{}) {
	t.Helper()

	data, err := json.Marshal(value)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestLoadAndValidateFromFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := filepath.Join(t.TempDir(), "devping.json")
	writeJSON(t, path, map[string]interface{}{
		"listen_addr": ":9000",
		"ping":        map[string]interface{}{"timeout_ms": 30000},
		"nats":        map[string]interface{}{"url": "nats://127.0.0.1:4222"},
	})

	var cfg models.Config

	err := NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, int64(30000), cfg.Ping.TimeoutMs)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "devping-attributes", cfg.NATS.Bucket)
}

func TestLoadAndValidateAppliesEnvOverridesToFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")
	t.Setenv("DEVPING_PING_TIMEOUT_MS", "120000")
	t.Setenv("DEVPING_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DEVPING_REQUEST_TIMEOUT", "3s")

	path := filepath.Join(t.TempDir(), "devping.json")
	writeJSON(t, path, map[string]interface{}{
		"ping": map[string]interface{}{"timeout_ms": 30000},
	})

	var cfg models.Config

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))

	assert.Equal(t, int64(120000), cfg.Ping.TimeoutMs)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, models.Duration(3*time.Second), cfg.RequestTimeout)
	assert.Nil(t, cfg.Metrics, "unset optional sections stay nil")
}

func TestLoadAndValidateRejectsInvalidConfig(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	path := filepath.Join(t.TempDir(), "devping.json")
	writeJSON(t, path, map[string]interface{}{
		"ping": map[string]interface{}{"timeout_ms": -1},
	})

	var cfg models.Config

	err := NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg)
	assert.Error(t, err)
}

func TestLoadAndValidateMissingFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	var cfg models.Config

	err := NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), "/nonexistent/devping.json", &cfg)
	assert.Error(t, err)
}

func TestFileLoaderErrors(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0o600))

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"listen_addr": `), 0o600))

	var cfg models.Config

	loader := &FileConfigLoader{}

	err := loader.Load(context.Background(), empty, &cfg)
	require.ErrorIs(t, err, errEmptyConfigFile)
	assert.Contains(t, err.Error(), empty)

	err = loader.Load(context.Background(), broken, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "devping config "+broken)

	err = loader.Load(context.Background(), filepath.Join(dir, "missing.json"), &cfg)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestResolvePath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, DefaultConfigPath, ResolvePath(""))

	t.Setenv("CONFIG_PATH", "/srv/devping.json")
	assert.Equal(t, "/srv/devping.json", ResolvePath(""))
	assert.Equal(t, "/tmp/explicit.json", ResolvePath("/tmp/explicit.json"))
}

func TestLoadAndValidateInvalidSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "consul")

	var cfg models.Config

	err := NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), "devping.json", &cfg)
	assert.ErrorIs(t, err, errInvalidConfigSource)
}

func TestLoadAndValidateFromKV(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	store := kv.NewMemoryStore()
	data, err := json.Marshal(map[string]interface{}{
		"ping": map[string]interface{}{"timeout_ms": 5000},
	})
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), ConfigKey("/etc/devping/devping.json"), data, 0))

	c := NewConfig(logger.NewTestLogger())
	c.SetKVStore(store)

	var cfg models.Config

	require.NoError(t, c.LoadAndValidate(context.Background(), "/etc/devping/devping.json", &cfg))
	assert.Equal(t, int64(5000), cfg.Ping.TimeoutMs)
}

func TestLoadAndValidateKVRequiresStore(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	var cfg models.Config

	err := NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), "devping.json", &cfg)
	assert.ErrorIs(t, err, errKVStoreNotSet)
}

func TestLoadAndValidateKVFallsBackToFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	ctrl := gomock.NewController(t)
	store := kv.NewMockKVStore(ctrl)
	store.EXPECT().Get(gomock.Any(), "config/devping.json").Return(nil, false, errKVUnavailable)

	path := filepath.Join(t.TempDir(), "devping.json")
	writeJSON(t, path, map[string]interface{}{"listen_addr": ":7000"})

	c := NewConfig(logger.NewTestLogger())
	c.SetKVStore(store)

	var cfg models.Config

	require.NoError(t, c.LoadAndValidate(context.Background(), path, &cfg))
	assert.Equal(t, ":7000", cfg.ListenAddr)
}

func TestLoadAndValidateKVAndFileBothFail(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	c := NewConfig(logger.NewTestLogger())
	c.SetKVStore(kv.NewMemoryStore())

	var cfg models.Config

	err := c.LoadAndValidate(context.Background(), "/nonexistent/devping.json", &cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, errLoadConfigFailed)
	assert.ErrorIs(t, err, errConfigKeyMissing)
}

func TestValidateConfigIgnoresNonValidators(t *testing.T) {
	assert.NoError(t, ValidateConfig(&struct{ Name string }{}))
}

func TestEnvLoaderConfigJSON(t *testing.T) {
	tenantID := uuid.New()

	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("DEVPING_CONFIG_JSON", `{"listen_addr":":8181","auth":{"api_keys":{"abcd1234":{"tenant_id":"`+
		tenantID.String()+`","authority":"TENANT_ADMIN"}}}}`)

	var cfg models.Config

	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), "", &cfg))
	assert.Equal(t, ":8181", cfg.ListenAddr)
	assert.Equal(t, tenantID, cfg.Auth.APIKeys["abcd1234"].TenantID)
}

func TestEnvLoaderIndividualVariables(t *testing.T) {
	t.Setenv("DEVPING_LISTEN_ADDR", ":8282")
	t.Setenv("DEVPING_NATS_URL", "nats://nats:4222")
	t.Setenv("DEVPING_NATS_BUCKET_HISTORY", "3")
	t.Setenv("DEVPING_NATS_CONNECT_WAIT", "2s")
	t.Setenv("DEVPING_METRICS_ENABLED", "true")
	t.Setenv("DEVPING_METRICS_ENDPOINT", "otel:4317")
	t.Setenv("DEVPING_LOGGING_LEVEL", "debug")
	t.Setenv("DEVPING_AUTH_API_KEYS", `{"k":{"authority":"SYS_ADMIN"}}`)

	var cfg models.Config

	loader := NewEnvConfigLoader(logger.NewTestLogger(), DefaultEnvPrefix)
	require.NoError(t, loader.Load(context.Background(), "", &cfg))

	assert.Equal(t, ":8282", cfg.ListenAddr)
	assert.Equal(t, "nats://nats:4222", cfg.NATS.URL)
	assert.Equal(t, uint32(3), cfg.NATS.BucketHistory)
	assert.Equal(t, models.Duration(2*time.Second), cfg.NATS.ConnectWait)
	require.NotNil(t, cfg.Metrics)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "otel:4317", cfg.Metrics.Endpoint)
	require.NotNil(t, cfg.Logging)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, models.AuthoritySysAdmin, cfg.Auth.APIKeys["k"].Authority)
}

func TestEnvLoaderSkipsInvalidValues(t *testing.T) {
	t.Setenv("DEVPING_PING_TIMEOUT_MS", "soon")
	t.Setenv("DEVPING_LISTEN_ADDR", ":8383")

	cfg := models.Config{Ping: models.PingConfig{TimeoutMs: 1000}}

	require.NoError(t, ApplyEnvOverrides(&cfg, DefaultEnvPrefix, logger.NewTestLogger()))
	assert.Equal(t, int64(1000), cfg.Ping.TimeoutMs)
	assert.Equal(t, ":8383", cfg.ListenAddr)
}

func TestEnvLoaderTextUnmarshaler(t *testing.T) {
	id := uuid.New()

	t.Setenv("APP_TENANT", id.String())

	var dst struct {
		Tenant uuid.UUID `json:"tenant"`
		Wait   time.Duration
	}

	require.NoError(t, ApplyEnvOverrides(&dst, "APP_", nil))
	assert.Equal(t, id, dst.Tenant)
}

func TestEnvLoaderRejectsBadDestination(t *testing.T) {
	loader := NewEnvConfigLoader(nil, DefaultEnvPrefix)

	var notStruct int

	assert.ErrorIs(t, loader.Load(context.Background(), "", &notStruct), ErrDstMustBePointerToStruct)
	assert.ErrorIs(t, loader.Load(context.Background(), "", nil), ErrDstMustBeNonNilPointer)
	assert.ErrorIs(t, ApplyEnvOverrides(models.Config{}, DefaultEnvPrefix, nil), ErrDstMustBeNonNilPointer)
}

func TestEnvPrefixOverride(t *testing.T) {
	t.Setenv("CONFIG_ENV_PREFIX", "PING_")
	assert.Equal(t, "PING_", envPrefix())

	t.Setenv("CONFIG_ENV_PREFIX", "")
	assert.Equal(t, DefaultEnvPrefix, envPrefix())
}

func TestConfigKey(t *testing.T) {
	assert.Equal(t, "config/devping.json", ConfigKey("/etc/devping/devping.json"))
	assert.Equal(t, "config/devping.json", ConfigKey("devping.json"))
}
