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

package api

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/carverauto/devping/pkg/auth"
)

// @Summary Ping device
// @Description Reports whether a device is reachable based on its last activity time and active flag.
// @Tags Devices
// @Produce json
// @Param deviceId path string true "Device ID (UUID)"
// @Success 200 {object} models.DevicePingResponse
// @Failure 400 {object} models.ErrorResponse "Invalid device id"
// @Failure 401 {object} models.ErrorResponse "Authentication failed"
// @Failure 403 {object} models.ErrorResponse "Insufficient permissions"
// @Failure 404 {object} models.ErrorResponse "Device not found"
// @Router /api/device/ping/{deviceId} [get]
// @Security ApiKeyAuth
func (s *APIServer) pingDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rawID := mux.Vars(r)["deviceId"]

	deviceID, err := uuid.Parse(rawID)
	if err != nil {
		writeError(w, fmt.Sprintf("Invalid device id: %q", rawID), http.StatusBadRequest)
		return
	}

	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		writeError(w, "Authentication failed", http.StatusUnauthorized)
		return
	}

	if s.deviceRegistry == nil || s.pingService == nil {
		writeError(w, "Device ping service not configured", http.StatusServiceUnavailable)
		return
	}

	device, err := s.deviceRegistry.GetDevice(ctx, principal.TenantID, deviceID)
	if err == nil {
		err = auth.CheckDeviceAccess(principal, device)
	}

	if err != nil {
		s.writeAccessError(w, deviceID, err)
		return
	}

	resp := s.pingService.PingDevice(ctx, principal.TenantID, device)

	s.encodeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) writeAccessError(w http.ResponseWriter, deviceID uuid.UUID, err error) {
	status := auth.StatusFor(err)

	switch status {
	case http.StatusNotFound:
		writeError(w, fmt.Sprintf("Device with id [%s] is not found", deviceID), status)
	case http.StatusForbidden:
		writeError(w, auth.ErrForbidden.Error(), status)
	default:
		s.logger.Error().
			Err(err).
			Str("device_id", deviceID.String()).
			Msg("Failed to resolve device")

		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}
