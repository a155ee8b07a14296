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

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	// LastSeenLayout is the wire format of DevicePingResponse.LastSeen.
	LastSeenLayout = "2006-01-02T15:04:05Z"

	// AttributeLastActivityTime holds the last activity instant in epoch milliseconds.
	AttributeLastActivityTime = "lastActivityTime"

	// AttributeActive holds the explicit active flag of a device.
	AttributeActive = "active"

	AttributeLastConnectTime    = "lastConnectTime"
	AttributeLastDisconnectTime = "lastDisconnectTime"
)

// Device is the identity of a managed device as known by the device registry.
type Device struct {
	ID         uuid.UUID `json:"id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	CustomerID uuid.UUID `json:"customer_id,omitempty"`
	Name       string    `json:"name"`
	Type       string    `json:"type,omitempty"`
	Label      string    `json:"label,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// AssignedToCustomer reports whether the device belongs to a customer.
func (d *Device) AssignedToCustomer() bool {
	return d.CustomerID != uuid.Nil
}

// ActivitySnapshot is the read-only view of the two reachability attributes.
// Either field may be nil when the attribute is missing, malformed or could not be fetched.
type ActivitySnapshot struct {
	LastActivityTime *int64
	Active           *bool
}

// DevicePingResponse is the result of a device reachability check.
// @Description Device reachability status and activity information.
type DevicePingResponse struct {
	// Device ID (UUID format)
	DeviceID string `json:"deviceId" example:"784f394c-42b6-435a-983c-b7beff2784f9"`
	// Whether the device has been active within the configured timeout or is flagged active
	Reachable bool `json:"reachable" example:"true"`
	// Last time the device was seen; null if the device has never been active
	LastSeen *time.Time `json:"lastSeen" example:"2024-12-06T10:30:00Z"`
	// Human-readable device name
	DeviceName string `json:"deviceName" example:"Temperature Sensor 01"`
	// Seconds since last activity; null if the device has never been active
	InactivitySeconds *int64 `json:"inactivitySeconds" example:"120"`
}

type devicePingResponseJSON struct {
	DeviceID          string  `json:"deviceId"`
	Reachable         bool    `json:"reachable"`
	LastSeen          *string `json:"lastSeen"`
	DeviceName        string  `json:"deviceName"`
	InactivitySeconds *int64  `json:"inactivitySeconds"`
}

// MarshalJSON renders LastSeen in UTC with second precision.
func (r DevicePingResponse) MarshalJSON() ([]byte, error) {
	out := devicePingResponseJSON{
		DeviceID:          r.DeviceID,
		Reachable:         r.Reachable,
		DeviceName:        r.DeviceName,
		InactivitySeconds: r.InactivitySeconds,
	}

	if r.LastSeen != nil {
		ts := r.LastSeen.UTC().Format(LastSeenLayout)
		out.LastSeen = &ts
	}

	return json.Marshal(out)
}

// UnmarshalJSON parses the format produced by MarshalJSON.
func (r *DevicePingResponse) UnmarshalJSON(b []byte) error {
	var in devicePingResponseJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}

	*r = DevicePingResponse{
		DeviceID:          in.DeviceID,
		Reachable:         in.Reachable,
		DeviceName:        in.DeviceName,
		InactivitySeconds: in.InactivitySeconds,
	}

	if in.LastSeen != nil {
		ts, err := time.Parse(LastSeenLayout, *in.LastSeen)
		if err != nil {
			return err
		}

		r.LastSeen = &ts
	}

	return nil
}
