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

// Package activity keeps the lastActivityTime and active attributes of devices
// current from device events published on NATS.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/carverauto/devping/pkg/attributes"
	"github.com/carverauto/devping/pkg/logger"
	"github.com/carverauto/devping/pkg/models"
	"github.com/carverauto/devping/pkg/tenant"
)

// Device events, the last token of a device subject.
const (
	EventActivity   = "activity"
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
)

const handleTimeout = 5 * time.Second

var (
	errUnknownEvent      = errors.New("unknown device event")
	errAlreadySubscribed = errors.New("recorder already subscribed")
)

// Event is the optional JSON payload of a device event.
type Event struct {
	// TS is the event time in epoch milliseconds; zero means receive time.
	TS int64 `json:"ts,omitempty"`
}

// Recorder writes activity attributes to the SERVER_SCOPE.
type Recorder struct {
	attrs  attributes.Service
	prefix string
	logger logger.Logger
	now    func() time.Time

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewRecorder returns a Recorder for subjects under prefix.
func NewRecorder(attrs attributes.Service, prefix string, log logger.Logger) *Recorder {
	return &Recorder{
		attrs:  attrs,
		prefix: prefix,
		logger: log,
		now:    time.Now,
	}
}

// Record marks the device active at ts (epoch ms, zero for now). Attributes
// already updated after ts are left alone.
func (r *Recorder) Record(ctx context.Context, tenantID, deviceID uuid.UUID, ts int64) error {
	ts = r.timestamp(ts)

	return r.saveNewer(ctx, tenantID, deviceID, ts,
		attributes.NewLongEntry(models.AttributeLastActivityTime, ts, ts),
		attributes.NewBooleanEntry(models.AttributeActive, true, ts),
	)
}

// SetActive overrides the active flag of the device.
func (r *Recorder) SetActive(ctx context.Context, tenantID, deviceID uuid.UUID, active bool) error {
	ts := r.timestamp(0)

	return r.save(ctx, tenantID, deviceID, attributes.NewBooleanEntry(models.AttributeActive, active, ts))
}

// Apply handles one device event.
func (r *Recorder) Apply(ctx context.Context, tenantID, deviceID uuid.UUID, event string, ev Event) error {
	ts := r.timestamp(ev.TS)

	switch event {
	case EventActivity:
		return r.Record(ctx, tenantID, deviceID, ts)
	case EventConnect:
		return r.saveNewer(ctx, tenantID, deviceID, ts,
			attributes.NewLongEntry(models.AttributeLastConnectTime, ts, ts),
			attributes.NewBooleanEntry(models.AttributeActive, true, ts),
		)
	case EventDisconnect:
		return r.saveNewer(ctx, tenantID, deviceID, ts,
			attributes.NewLongEntry(models.AttributeLastDisconnectTime, ts, ts),
			attributes.NewBooleanEntry(models.AttributeActive, false, ts),
		)
	default:
		return fmt.Errorf("%w: %q", errUnknownEvent, event)
	}
}

// Subscribe starts consuming device events from nc.
func (r *Recorder) Subscribe(nc *nats.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub != nil {
		return errAlreadySubscribed
	}

	subject := tenant.WildcardSubject(r.prefix)

	sub, err := nc.Subscribe(subject, r.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	r.sub = sub

	r.logger.Info().Str("subject", subject).Msg("Recording device activity")

	return nil
}

// Close stops consuming events.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub == nil {
		return nil
	}

	err := r.sub.Unsubscribe()
	r.sub = nil

	return err
}

func (r *Recorder) handle(msg *nats.Msg) {
	tenantID, deviceID, event, err := tenant.ParseDeviceSubject(r.prefix, msg.Subject)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Dropping device event")
		return
	}

	var ev Event

	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			r.logger.Warn().
				Err(err).
				Str("subject", msg.Subject).
				Msg("Ignoring malformed device event payload")

			ev = Event{}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := r.Apply(ctx, tenantID, deviceID, event, ev); err != nil {
		r.logger.Error().
			Err(err).
			Str("device_id", deviceID.String()).
			Str("event", event).
			Msg("Failed to record device event")
	}
}

func (r *Recorder) timestamp(ts int64) int64 {
	if ts > 0 {
		return ts
	}

	return r.now().UnixMilli()
}

// saveNewer drops entries whose stored copy was updated after ts, so a late
// event cannot move lastActivityTime or active backwards. If the stored state
// cannot be read the entries are written as is.
func (r *Recorder) saveNewer(ctx context.Context, tenantID, deviceID uuid.UUID, ts int64, entries ...attributes.Entry) error {
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, e.Key)
	}

	stored, err := r.attrs.Find(ctx, tenantID, deviceID, attributes.ServerScope, keys)
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("device_id", deviceID.String()).
			Msg("Failed to read stored activity, overwriting")

		return r.save(ctx, tenantID, deviceID, entries...)
	}

	fresh := make([]attributes.Entry, 0, len(entries))

	for _, e := range entries {
		if cur, ok := stored.Get(e.Key); ok && cur.LastUpdateTs > ts {
			continue
		}

		fresh = append(fresh, e)
	}

	if len(fresh) == 0 {
		r.logger.Debug().
			Str("device_id", deviceID.String()).
			Int64("ts", ts).
			Msg("Skipping stale device event")

		return nil
	}

	return r.save(ctx, tenantID, deviceID, fresh...)
}

func (r *Recorder) save(ctx context.Context, tenantID, deviceID uuid.UUID, entries ...attributes.Entry) error {
	if err := r.attrs.Save(ctx, tenantID, deviceID, attributes.ServerScope, entries); err != nil {
		return fmt.Errorf("failed to record activity for %s: %w", deviceID, err)
	}

	return nil
}
