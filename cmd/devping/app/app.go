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

// Package app wires the devping service together.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/carverauto/devping/pkg/activity"
	"github.com/carverauto/devping/pkg/api"
	"github.com/carverauto/devping/pkg/attributes"
	"github.com/carverauto/devping/pkg/auth"
	"github.com/carverauto/devping/pkg/config"
	"github.com/carverauto/devping/pkg/devices"
	"github.com/carverauto/devping/pkg/kv"
	"github.com/carverauto/devping/pkg/logger"
	"github.com/carverauto/devping/pkg/models"
	"github.com/carverauto/devping/pkg/ping"
	"github.com/carverauto/devping/pkg/version"
)

const (
	serviceName     = "devping"
	shutdownTimeout = 10 * time.Second
)

// Options contains runtime configuration derived from CLI flags.
type Options struct {
	ConfigPath string
}

// Run boots the service and blocks until ctx is cancelled or SIGINT/SIGTERM arrives.
func Run(ctx context.Context, opts Options) error {
	cfg, err := LoadConfig(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}

	mainLogger, err := logger.NewComponentLogger(serviceName, cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := initMetrics(ctx, cfg.Metrics); err != nil {
		return err
	}

	defer func() {
		if err := logger.ShutdownMetrics(context.Background()); err != nil {
			mainLogger.Error().Err(err).Msg("Error shutting down metrics")
		}
	}()

	if err := initTracing(ctx, cfg.Tracing); err != nil {
		return err
	}

	defer func() {
		if err := logger.ShutdownTracing(context.Background()); err != nil {
			mainLogger.Error().Err(err).Msg("Error shutting down tracer provider")
		}
	}()

	store, natsStore, err := openStore(ctx, &cfg, mainLogger)
	if err != nil {
		return err
	}

	defer func() {
		if err := store.Close(); err != nil {
			mainLogger.Warn().Err(err).Msg("Error closing KV store")
		}
	}()

	registry, closeRegistry, err := openRegistry(ctx, &cfg, store, mainLogger)
	if err != nil {
		return err
	}
	defer closeRegistry()

	attrs := attributes.NewKVService(store, mainLogger)
	pingService := ping.NewPingService(attrs, cfg.Ping.Timeout(), mainLogger)

	if natsStore != nil {
		recorder := activity.NewRecorder(attrs, cfg.NATS.SubjectPrefix, mainLogger)
		if err := recorder.Subscribe(natsStore.Conn()); err != nil {
			return err
		}

		defer func() {
			if err := recorder.Close(); err != nil {
				mainLogger.Warn().Err(err).Msg("Error closing activity subscription")
			}
		}()
	}

	apiServer := api.NewAPIServer(cfg.CORS,
		api.WithLogger(mainLogger),
		api.WithPingService(pingService),
		api.WithDeviceRegistry(registry),
		api.WithAuthenticator(BuildAuthenticator(&cfg.Auth)),
		api.WithRequestTimeout(time.Duration(cfg.RequestTimeout)),
		api.WithVersion(version.GetFullVersion()),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		mainLogger.Info().
			Str("listen_addr", cfg.ListenAddr).
			Int64("ping_timeout_ms", cfg.Ping.TimeoutMs).
			Str("version", version.GetFullVersion()).
			Msg("Starting devping")

		return apiServer.Start(cfg.ListenAddr)
	})

	g.Go(func() error {
		<-gCtx.Done()

		mainLogger.Info().Msg("Shutting down devping")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return apiServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// LoadConfig loads and validates the service configuration. With
// CONFIG_SOURCE=kv the bucket is located from the DEVPING_NATS_* variables.
func LoadConfig(ctx context.Context, path string) (models.Config, error) {
	var cfg models.Config

	loader := config.NewConfig(nil)

	if strings.EqualFold(os.Getenv("CONFIG_SOURCE"), "kv") {
		store, err := bootstrapStore(ctx)
		if err != nil {
			return cfg, err
		}

		defer func() { _ = store.Close() }()

		loader.SetKVStore(store)
	}

	if err := loader.LoadAndValidate(ctx, config.ResolvePath(path), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

func bootstrapStore(ctx context.Context) (*kv.NatsStore, error) {
	var boot models.Config

	if err := config.ApplyEnvOverrides(&boot, config.DefaultEnvPrefix, nil); err != nil {
		return nil, err
	}

	if err := boot.Validate(); err != nil {
		return nil, err
	}

	store, err := kv.NewNatsStore(ctx, &boot.NATS, logger.NewTestLogger())
	if err != nil {
		return nil, fmt.Errorf("failed to open config KV store: %w", err)
	}

	return store, nil
}

func initMetrics(ctx context.Context, cfg *models.MetricsConfig) error {
	if cfg == nil {
		return nil
	}

	_, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{
		Enabled:        cfg.Enabled,
		Endpoint:       cfg.Endpoint,
		Insecure:       cfg.Insecure,
		ServiceName:    serviceName,
		ServiceVersion: version.GetVersion(),
		ExportInterval: time.Duration(cfg.ExportInterval),
	})
	if err != nil && !errors.Is(err, logger.ErrOTelMetricsDisabled) {
		return err
	}

	return nil
}

func initTracing(ctx context.Context, cfg *models.TracingConfig) error {
	if cfg == nil {
		return nil
	}

	_, err := logger.InitializeTracing(ctx, logger.TracingConfig{
		Enabled:        cfg.Enabled,
		Endpoint:       cfg.Endpoint,
		Insecure:       cfg.Insecure,
		ServiceName:    serviceName,
		ServiceVersion: version.GetVersion(),
		SampleRatio:    cfg.SampleRatio,
	})
	if err != nil && !errors.Is(err, logger.ErrOTelTracingDisabled) {
		return err
	}

	return nil
}

// openStore returns the attribute store. natsStore is non-nil when the store
// is backed by NATS, whose connection the activity recorder shares.
func openStore(ctx context.Context, cfg *models.Config, log logger.Logger) (kv.KVStore, *kv.NatsStore, error) {
	if cfg.NATS.URL == "" {
		log.Warn().Msg("No NATS url configured, using in-memory attribute store")

		return kv.NewMemoryStore(), nil, nil
	}

	store, err := kv.NewNatsStore(ctx, &cfg.NATS, log)
	if err != nil {
		return nil, nil, err
	}

	return store, store, nil
}

func openRegistry(
	ctx context.Context, cfg *models.Config, store kv.KVStore, log logger.Logger,
) (devices.Registry, func(), error) {
	if cfg.Database.URL == "" {
		return devices.NewKVRegistry(store), func() {}, nil
	}

	pool, err := devices.NewPool(ctx, &cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}

	if err := devices.RunMigrations(ctx, pool, log); err != nil {
		pool.Close()

		return nil, nil, err
	}

	return devices.NewPostgresRegistry(pool), pool.Close, nil
}

// BuildAuthenticator chains the configured bearer token verifier and API keys.
// It returns nil when neither is configured.
func BuildAuthenticator(cfg *models.AuthConfig) auth.Authenticator {
	var chain auth.Chain

	if cfg.JWTSecret != "" {
		chain = append(chain, auth.NewTokenVerifier(cfg.JWTSecret, cfg.JWTIssuer))
	}

	if len(cfg.APIKeys) > 0 {
		chain = append(chain, auth.NewAPIKeyAuthenticator(cfg.APIKeys))
	}

	if len(chain) == 0 {
		return nil
	}

	return chain
}
