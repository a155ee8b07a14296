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

package devices

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/devping/pkg/kv"
	"github.com/carverauto/devping/pkg/models"
)

const deviceKeyPrefix = "devices"

// KVRegistry keeps devices as JSON documents under devices.<tenant>.<device>.
type KVRegistry struct {
	store kv.KVStore
	now   func() time.Time
}

// NewKVRegistry returns a Registry backed by store.
func NewKVRegistry(store kv.KVStore) *KVRegistry {
	return &KVRegistry{store: store, now: time.Now}
}

func deviceKey(tenantID, deviceID uuid.UUID) string {
	return kv.Join(deviceKeyPrefix, tenantID.String(), deviceID.String())
}

func (r *KVRegistry) GetDevice(ctx context.Context, tenantID, deviceID uuid.UUID) (*models.Device, error) {
	data, found, err := r.store.Get(ctx, deviceKey(tenantID, deviceID))
	if err != nil {
		return nil, fmt.Errorf("failed to load device %s: %w", deviceID, err)
	}

	if !found {
		return nil, ErrDeviceNotFound
	}

	var device models.Device
	if err := json.Unmarshal(data, &device); err != nil {
		return nil, fmt.Errorf("failed to decode device %s: %w", deviceID, err)
	}

	if device.TenantID != tenantID || device.ID != deviceID {
		return nil, ErrDeviceNotFound
	}

	return &device, nil
}

func (r *KVRegistry) SaveDevice(ctx context.Context, device *models.Device) error {
	if err := validateDevice(device); err != nil {
		return err
	}

	if device.CreatedAt.IsZero() {
		device.CreatedAt = r.now().UTC()
	}

	data, err := json.Marshal(device)
	if err != nil {
		return fmt.Errorf("failed to encode device %s: %w", device.ID, err)
	}

	if err := r.store.Put(ctx, deviceKey(device.TenantID, device.ID), data, 0); err != nil {
		return fmt.Errorf("failed to save device %s: %w", device.ID, err)
	}

	return nil
}

var _ Registry = (*KVRegistry)(nil)
