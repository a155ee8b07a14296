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

package activity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/devping/pkg/attributes"
	"github.com/carverauto/devping/pkg/kv"
	"github.com/carverauto/devping/pkg/logger"
	"github.com/carverauto/devping/pkg/models"
	"github.com/carverauto/devping/pkg/tenant"
)

var (
	tenantID = uuid.MustParse("5a1f0f1e-8d52-4a53-9b8e-3c0e4a0f8c11")
	deviceID = uuid.MustParse("784f394c-42b6-435a-983c-b7beff2784f9")
	fixedNow = time.Date(2024, 12, 6, 10, 30, 0, 0, time.UTC)
)

func newRecorder(t *testing.T) (*Recorder, attributes.Service) {
	t.Helper()

	attrs := attributes.NewKVService(kv.NewMemoryStore(), logger.NewTestLogger())
	r := NewRecorder(attrs, "devices", logger.NewTestLogger())
	r.now = func() time.Time { return fixedNow }

	return r, attrs
}

func snapshot(t *testing.T, attrs attributes.Service) models.ActivitySnapshot {
	t.Helper()

	result, err := attrs.Find(context.Background(), tenantID, deviceID, attributes.ServerScope, attributes.ActivityKeys)
	require.NoError(t, err)

	return attributes.ActivitySnapshotFrom(result)
}

// currentSnapshot is safe to call from Eventually conditions.
func currentSnapshot(attrs attributes.Service) models.ActivitySnapshot {
	result, err := attrs.Find(context.Background(), tenantID, deviceID, attributes.ServerScope, attributes.ActivityKeys)
	if err != nil {
		return models.ActivitySnapshot{}
	}

	return attributes.ActivitySnapshotFrom(result)
}

func TestRecord(t *testing.T) {
	r, attrs := newRecorder(t)

	require.NoError(t, r.Record(context.Background(), tenantID, deviceID, 1733480000000))

	snap := snapshot(t, attrs)
	require.NotNil(t, snap.LastActivityTime)
	assert.Equal(t, int64(1733480000000), *snap.LastActivityTime)
	require.NotNil(t, snap.Active)
	assert.True(t, *snap.Active)

	require.NoError(t, r.Record(context.Background(), tenantID, deviceID, 0))
	assert.Equal(t, fixedNow.UnixMilli(), *snapshot(t, attrs).LastActivityTime)
}

func TestRecordIgnoresOlderEvents(t *testing.T) {
	r, attrs := newRecorder(t)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, tenantID, deviceID, 1733480000000))
	require.NoError(t, r.Record(ctx, tenantID, deviceID, 1733470000000))

	snap := snapshot(t, attrs)
	require.NotNil(t, snap.LastActivityTime)
	assert.Equal(t, int64(1733480000000), *snap.LastActivityTime, "late activity must not move lastActivityTime back")
	assert.True(t, *snap.Active)
}

func TestApplyIgnoresLateConnect(t *testing.T) {
	r, attrs := newRecorder(t)
	ctx := context.Background()

	require.NoError(t, r.Apply(ctx, tenantID, deviceID, EventDisconnect, Event{TS: 3000}))
	require.NoError(t, r.Apply(ctx, tenantID, deviceID, EventConnect, Event{TS: 2500}))
	require.NoError(t, r.Apply(ctx, tenantID, deviceID, EventActivity, Event{TS: 2800}))

	snap := snapshot(t, attrs)
	require.NotNil(t, snap.Active)
	assert.False(t, *snap.Active, "a disconnect newer than the event keeps the device inactive")
	require.NotNil(t, snap.LastActivityTime)
	assert.Equal(t, int64(2800), *snap.LastActivityTime)

	result, err := attrs.Find(ctx, tenantID, deviceID, attributes.ServerScope, []string{models.AttributeLastConnectTime})
	require.NoError(t, err)

	connect, ok := result.Get(models.AttributeLastConnectTime)
	require.True(t, ok)

	v, _ := connect.LongValue()
	assert.Equal(t, int64(2500), v)
}

func TestSetActive(t *testing.T) {
	r, attrs := newRecorder(t)

	require.NoError(t, r.SetActive(context.Background(), tenantID, deviceID, false))

	snap := snapshot(t, attrs)
	assert.Nil(t, snap.LastActivityTime)
	require.NotNil(t, snap.Active)
	assert.False(t, *snap.Active)
}

func TestApplyConnectDisconnect(t *testing.T) {
	r, attrs := newRecorder(t)
	ctx := context.Background()

	require.NoError(t, r.Apply(ctx, tenantID, deviceID, EventConnect, Event{TS: 1000}))
	assert.True(t, *snapshot(t, attrs).Active)

	require.NoError(t, r.Apply(ctx, tenantID, deviceID, EventDisconnect, Event{}))
	assert.False(t, *snapshot(t, attrs).Active)

	result, err := attrs.Find(ctx, tenantID, deviceID, attributes.ServerScope,
		[]string{models.AttributeLastConnectTime, models.AttributeLastDisconnectTime})
	require.NoError(t, err)

	connect, ok := result.Get(models.AttributeLastConnectTime)
	require.True(t, ok)

	v, _ := connect.LongValue()
	assert.Equal(t, int64(1000), v)

	disconnect, ok := result.Get(models.AttributeLastDisconnectTime)
	require.True(t, ok)

	v, _ = disconnect.LongValue()
	assert.Equal(t, fixedNow.UnixMilli(), v)

	require.ErrorIs(t, r.Apply(ctx, tenantID, deviceID, "reboot", Event{}), errUnknownEvent)
}

func runNATSServer(t *testing.T) *server.Server {
	t.Helper()

	srv, err := server.NewServer(&server.Options{Host: "127.0.0.1", Port: -1})
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	t.Cleanup(srv.Shutdown)

	return srv
}

func TestSubscribeRecordsPublishedEvents(t *testing.T) {
	srv := runNATSServer(t)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	r, attrs := newRecorder(t)
	require.NoError(t, r.Subscribe(nc))
	require.ErrorIs(t, r.Subscribe(nc), errAlreadySubscribed)

	t.Cleanup(func() { _ = r.Close() })

	info := tenant.Info{TenantID: tenantID}

	// malformed subjects and payloads are dropped without stopping the subscription
	require.NoError(t, nc.Publish("devices.acme.sensor.activity", nil))
	require.NoError(t, nc.Publish(info.DeviceSubject("devices", deviceID, EventActivity), []byte(`{"ts":1733480000000}`)))
	require.NoError(t, nc.Flush())

	assert.Eventually(t, func() bool {
		snap := currentSnapshot(attrs)
		return snap.LastActivityTime != nil && *snap.LastActivityTime == 1733480000000
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, nc.Publish(info.DeviceSubject("devices", deviceID, EventDisconnect), []byte("not json")))
	require.NoError(t, nc.Flush())

	assert.Eventually(t, func() bool {
		snap := currentSnapshot(attrs)
		return snap.Active != nil && !*snap.Active
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}
