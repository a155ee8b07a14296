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

//go:generate mockgen -destination=mock_kv.go -package=kv github.com/carverauto/devping/pkg/kv KVStore

// Package kv stores device attribute records and the service config in a
// key-value bucket: NATS JetStream in production, an in-memory map in tests.
package kv

import (
	"context"
	"time"
)

// KVStore is the bucket seen by the attribute service, the device registry
// and the KV config loader. Keys are built with Join.
type KVStore interface {
	// Get reports found=false with a nil error for a missing key.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Put writes value under key. A zero ttl keeps it until deleted.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// PutMany writes all entries with the same ttl. The connect/disconnect
	// handlers use it to update lastActivityTime and active together.
	PutMany(ctx context.Context, entries []KeyValueEntry, ttl time.Duration) error

	// Delete is a no-op for a missing key.
	Delete(ctx context.Context, key string) error

	Close() error
}

// KeyValueEntry is one write in a PutMany batch.
type KeyValueEntry struct {
	Key   string
	Value []byte
}
