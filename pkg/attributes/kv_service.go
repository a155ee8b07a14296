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

package attributes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/devping/pkg/kv"
	"github.com/carverauto/devping/pkg/logger"
)

const (
	keyPrefix            = "attributes"
	maxConcurrentFetches = 8
)

var (
	errInvalidScope = errors.New("invalid attribute scope")
	errNoKeys       = errors.New("no attribute keys requested")
	errEmptyKey     = errors.New("attribute key is empty")
)

// KVService stores attributes in a kv.KVStore, one entry per key under
// attributes.<tenant>.<entity>.<scope>.<key>.
type KVService struct {
	store  kv.KVStore
	logger logger.Logger
}

// NewKVService returns a Service backed by store.
func NewKVService(store kv.KVStore, log logger.Logger) *KVService {
	return &KVService{store: store, logger: log}
}

// StoreKey returns the kv key of one attribute.
func StoreKey(tenantID, entityID uuid.UUID, scope Scope, key string) string {
	return kv.Join(keyPrefix, tenantID.String(), entityID.String(), string(scope), key)
}

func (s *KVService) Find(ctx context.Context, tenantID, entityID uuid.UUID, scope Scope, keys []string) (*Result, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("%w: %q", errInvalidScope, scope)
	}

	if len(keys) == 0 {
		return nil, errNoKeys
	}

	result := NewResult()

	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	g.SetLimit(maxConcurrentFetches)

	for _, key := range uniqueKeys(keys) {
		g.Go(func() error {
			entry, found, err := s.fetch(ctx, tenantID, entityID, scope, key)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err != nil:
				result.Errors[key] = err
			case found:
				result.Entries[key] = entry
			}

			// per-key failures never abort sibling lookups
			return nil
		})
	}

	_ = g.Wait()

	return result, nil
}

func (s *KVService) fetch(ctx context.Context, tenantID, entityID uuid.UUID, scope Scope, key string) (Entry, bool, error) {
	if key == "" {
		return Entry{}, false, errEmptyKey
	}

	storeKey := StoreKey(tenantID, entityID, scope, key)

	data, found, err := s.store.Get(ctx, storeKey)
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read attribute %s: %w", key, err)
	}

	if !found {
		return Entry{}, false, nil
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.logger.Debug().
			Err(err).
			Str("key", storeKey).
			Msg("Ignoring malformed attribute value")

		return Entry{}, false, nil
	}

	if entry.Key == "" {
		entry.Key = key
	}

	return entry, true, nil
}

func (s *KVService) Save(ctx context.Context, tenantID, entityID uuid.UUID, scope Scope, entries []Entry) error {
	if !scope.Valid() {
		return fmt.Errorf("%w: %q", errInvalidScope, scope)
	}

	batch := make([]kv.KeyValueEntry, 0, len(entries))

	for _, entry := range entries {
		if entry.Key == "" {
			return errEmptyKey
		}

		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("failed to encode attribute %s: %w", entry.Key, err)
		}

		batch = append(batch, kv.KeyValueEntry{
			Key:   StoreKey(tenantID, entityID, scope, entry.Key),
			Value: data,
		})
	}

	if err := s.store.PutMany(ctx, batch, 0); err != nil {
		return fmt.Errorf("failed to save attributes: %w", err)
	}

	return nil
}

func uniqueKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))

	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		out = append(out, key)
	}

	return out
}

var _ Service = (*KVService)(nil)
