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

package ping

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/carverauto/devping/pkg/attributes"
	"github.com/carverauto/devping/pkg/logger"
	"github.com/carverauto/devping/pkg/models"
	"github.com/carverauto/devping/pkg/reachability"
)

// PingService evaluates the SERVER_SCOPE activity attributes of a device.
type PingService struct {
	attributes attributes.Service
	evaluator  *reachability.Evaluator
	logger     logger.Logger
}

// NewPingService returns a Service using timeout as the inactivity window.
func NewPingService(
	attrs attributes.Service, timeout time.Duration, log logger.Logger, opts ...reachability.Option,
) *PingService {
	return &PingService{
		attributes: attrs,
		evaluator:  reachability.NewEvaluator(timeout, opts...),
		logger:     log,
	}
}

func (s *PingService) PingDevice(ctx context.Context, tenantID uuid.UUID, device *models.Device) *models.DevicePingResponse {
	start := time.Now()

	ctx, span := otel.Tracer(pingMeterName).Start(ctx, "ping.PingDevice",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID.String()),
			attribute.String("device.id", device.ID.String()),
		))
	defer span.End()

	s.logger.Debug().
		Str("tenant_id", tenantID.String()).
		Str("device_id", device.ID.String()).
		Msg("Checking device reachability")

	snapshot := s.fetchSnapshot(ctx, tenantID, device.ID)
	ev := s.evaluator.Evaluate(snapshot)
	resp := reachability.Assemble(device, ev)

	recordPing(ctx, ev, time.Since(start))

	span.SetAttributes(
		attribute.Bool("device.reachable", resp.Reachable),
		attribute.String("device.reachable_via", string(ev.Via)),
	)

	s.logger.Debug().
		Str("device_id", resp.DeviceID).
		Bool("reachable", resp.Reachable).
		Str("via", string(ev.Via)).
		Msg("Device reachability evaluated")

	return resp
}

func (s *PingService) IsDeviceReachable(lastActivityMs, timeoutMs int64) bool {
	return reachability.IsReachable(lastActivityMs, timeoutMs)
}

// fetchSnapshot reads both attributes in one batch. Failures are logged and the
// affected signal is left absent.
func (s *PingService) fetchSnapshot(ctx context.Context, tenantID, deviceID uuid.UUID) models.ActivitySnapshot {
	result, err := s.attributes.Find(ctx, tenantID, deviceID, attributes.ServerScope, attributes.ActivityKeys)
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)

		s.logger.Warn().
			Err(err).
			Str("device_id", deviceID.String()).
			Msg("Failed to fetch activity attributes")

		for _, key := range attributes.ActivityKeys {
			recordAttributeError(ctx, key)
		}

		return models.ActivitySnapshot{}
	}

	if result == nil {
		result = attributes.NewResult()
	}

	for key, keyErr := range result.Errors {
		s.logger.Warn().
			Err(keyErr).
			Str("device_id", deviceID.String()).
			Str("key", key).
			Msg("Failed to fetch attribute")

		recordAttributeError(ctx, key)
	}

	return attributes.ActivitySnapshotFrom(result)
}

var _ Service = (*PingService)(nil)
