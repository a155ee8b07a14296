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

//go:generate mockgen -destination=mock_devices.go -package=devices github.com/carverauto/devping/pkg/devices Registry

// Package devices resolves device identities for a tenant.
package devices

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/carverauto/devping/pkg/models"
)

var (
	// ErrDeviceNotFound is returned when the device does not exist for the tenant.
	ErrDeviceNotFound = errors.New("device not found")

	errInvalidDevice = errors.New("device requires id and tenant_id")
)

// Registry looks up and stores devices. A device owned by another tenant is
// reported as ErrDeviceNotFound.
type Registry interface {
	GetDevice(ctx context.Context, tenantID, deviceID uuid.UUID) (*models.Device, error)
	SaveDevice(ctx context.Context, device *models.Device) error
}

func validateDevice(device *models.Device) error {
	if device == nil || device.ID == uuid.Nil || device.TenantID == uuid.Nil {
		return errInvalidDevice
	}

	return nil
}
