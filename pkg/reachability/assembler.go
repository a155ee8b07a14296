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

package reachability

import (
	"github.com/carverauto/devping/pkg/models"
)

// Assemble builds the ping response for device from an evaluation.
func Assemble(device *models.Device, ev Evaluation) *models.DevicePingResponse {
	resp := &models.DevicePingResponse{
		DeviceID:   device.ID.String(),
		DeviceName: device.Name,
		Reachable:  ev.Reachable,
	}

	if ev.LastSeen != nil && ev.InactivitySeconds != nil {
		lastSeen := *ev.LastSeen
		inactivity := *ev.InactivitySeconds
		resp.LastSeen = &lastSeen
		resp.InactivitySeconds = &inactivity
	}

	return resp
}
