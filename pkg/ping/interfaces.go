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

//go:generate mockgen -destination=mock_ping.go -package=ping github.com/carverauto/devping/pkg/ping Service

// Package ping answers whether a device is currently reachable.
package ping

import (
	"context"

	"github.com/google/uuid"

	"github.com/carverauto/devping/pkg/models"
)

// Service checks device reachability from persisted activity attributes.
type Service interface {
	// PingDevice never fails: attribute store problems degrade the affected
	// signal to absent.
	PingDevice(ctx context.Context, tenantID uuid.UUID, device *models.Device) *models.DevicePingResponse

	// IsDeviceReachable reports whether lastActivityMs is within timeoutMs of now.
	IsDeviceReachable(lastActivityMs, timeoutMs int64) bool
}
