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

package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/devping/pkg/logger"
	"github.com/carverauto/devping/pkg/models"
)

const (
	defaultConnectWait = 5 * time.Second
	maxBucketHistory   = 64
)

type NatsStore struct {
	nc     *nats.Conn
	kv     jetstream.KeyValue
	logger logger.Logger
}

// NewNatsStore connects to NATS and opens (creating if needed) the configured KV bucket.
func NewNatsStore(ctx context.Context, cfg *models.NATSConfig, log logger.Logger) (*NatsStore, error) {
	if cfg.URL == "" {
		return nil, errNatsURLRequired
	}

	if cfg.Bucket == "" {
		return nil, errBucketRequired
	}

	connectWait := time.Duration(cfg.ConnectWait)
	if connectWait <= 0 {
		connectWait = defaultConnectWait
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("devping"),
		nats.Timeout(connectWait),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("Disconnected from NATS")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("Reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	var js jetstream.JetStream
	if cfg.Domain != "" {
		js, err = jetstream.NewWithDomain(nc, cfg.Domain)
	} else {
		js, err = jetstream.New(nc)
	}

	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	history := cfg.BucketHistory
	if history == 0 {
		history = 1
	}

	if history > maxBucketHistory {
		history = maxBucketHistory
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:  cfg.Bucket,
		History: uint8(history),
	})
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("failed to create KV bucket: %w", err)
	}

	log.Info().
		Str("bucket", cfg.Bucket).
		Str("url", nc.ConnectedUrl()).
		Msg("Connected to NATS KV bucket")

	return &NatsStore{
		nc:     nc,
		kv:     kv,
		logger: log,
	}, nil
}

// Conn exposes the underlying connection so other components can share it.
func (n *NatsStore) Conn() *nats.Conn {
	return n.nc
}

func (n *NatsStore) Get(ctx context.Context, key string) (value []byte, found bool, err error) {
	if err = ValidateKey(key); err != nil {
		return nil, false, err
	}

	var entry jetstream.KeyValueEntry

	entry, err = n.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}

	return entry.Value(), true, nil
}

func (n *NatsStore) Put(ctx context.Context, key string, value []byte, _ time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	_, err := n.kv.Put(ctx, key, value) // TTL is bucket-level
	if err != nil {
		return fmt.Errorf("failed to put key %s: %w", key, err)
	}

	return nil
}

func (n *NatsStore) PutMany(ctx context.Context, entries []KeyValueEntry, ttl time.Duration) error {
	for _, entry := range entries {
		if err := n.Put(ctx, entry.Key, entry.Value, ttl); err != nil {
			return err
		}
	}

	return nil
}

func (n *NatsStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	err := n.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}

	return nil
}

func (n *NatsStore) Close() error {
	n.nc.Close()

	return nil
}

var _ KVStore = (*NatsStore)(nil)
