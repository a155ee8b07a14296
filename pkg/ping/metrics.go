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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/devping/pkg/reachability"
)

const (
	pingMeterName = "github.com/carverauto/devping/pkg/ping"

	metricPingTotalName       = "device_ping_total"
	metricAttributeErrorsName = "device_ping_attribute_errors_total"
	metricPingDurationName    = "device_ping_duration_seconds"

	resultReachable   = "reachable"
	resultUnreachable = "unreachable"
)

var (
	pingMetricsOnce sync.Once

	pingCounter      metric.Int64Counter
	attrErrorCounter metric.Int64Counter
	pingDuration     metric.Float64Histogram
)

func initPingMetrics() {
	meter := otel.Meter(pingMeterName)

	if counter, err := meter.Int64Counter(
		metricPingTotalName,
		metric.WithDescription("Device reachability checks by outcome and deciding signal"),
	); err != nil {
		otel.Handle(err)
	} else {
		pingCounter = counter
	}

	if counter, err := meter.Int64Counter(
		metricAttributeErrorsName,
		metric.WithDescription("Activity attribute lookups that failed and were treated as absent"),
	); err != nil {
		otel.Handle(err)
	} else {
		attrErrorCounter = counter
	}

	if hist, err := meter.Float64Histogram(
		metricPingDurationName,
		metric.WithDescription("Latency of device reachability checks"),
		metric.WithUnit("s"),
	); err != nil {
		otel.Handle(err)
	} else {
		pingDuration = hist
	}
}

func recordPing(ctx context.Context, ev reachability.Evaluation, duration time.Duration) {
	pingMetricsOnce.Do(initPingMetrics)

	result := resultUnreachable
	if ev.Reachable {
		result = resultReachable
	}

	if pingCounter != nil {
		pingCounter.Add(
			ctx,
			1,
			metric.WithAttributes(
				attribute.String("result", result),
				attribute.String("via", string(ev.Via)),
			),
		)
	}

	if pingDuration == nil {
		return
	}

	if duration < 0 {
		duration = 0
	}

	pingDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("result", result)))
}

func recordAttributeError(ctx context.Context, key string) {
	pingMetricsOnce.Do(initPingMetrics)
	if attrErrorCounter == nil {
		return
	}

	attrErrorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}
