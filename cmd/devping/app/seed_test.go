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

package app

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/devping/pkg/attributes"
	"github.com/carverauto/devping/pkg/auth"
	"github.com/carverauto/devping/pkg/devices"
	"github.com/carverauto/devping/pkg/kv"
	"github.com/carverauto/devping/pkg/logger"
	"github.com/carverauto/devping/pkg/models"
	"github.com/carverauto/devping/pkg/ping"
	"github.com/carverauto/devping/pkg/reachability"
)

var seedNow = time.Date(2024, 12, 6, 10, 30, 0, 0, time.UTC)

func newSeedFixture() (devices.Registry, attributes.Service, *ping.PingService) {
	store := kv.NewMemoryStore()
	attrs := attributes.NewKVService(store, logger.NewTestLogger())
	svc := ping.NewPingService(attrs, time.Minute, logger.NewTestLogger(),
		reachability.WithClock(func() time.Time { return seedNow }))

	return devices.NewKVRegistry(store), attrs, svc
}

func TestSeedDeviceIsPingable(t *testing.T) {
	ctx := context.Background()
	registry, attrs, svc := newSeedFixture()
	tenantID := uuid.New()

	result, err := seedDevice(ctx, registry, attrs, SeedOptions{
		TenantID:     tenantID,
		Name:         "Temperature Sensor 01",
		LastActivity: seedNow.Add(-30 * time.Second).UnixMilli(),
	}, func() time.Time { return seedNow })
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, result.Device.ID)

	device, err := registry.GetDevice(ctx, tenantID, result.Device.ID)
	require.NoError(t, err)
	assert.Equal(t, "Temperature Sensor 01", device.Name)

	resp := svc.PingDevice(ctx, tenantID, device)
	assert.True(t, resp.Reachable)
	require.NotNil(t, resp.InactivitySeconds)
	assert.Equal(t, int64(30), *resp.InactivitySeconds)
}

func TestSeedDeviceActiveFlagOnly(t *testing.T) {
	ctx := context.Background()
	registry, attrs, svc := newSeedFixture()
	tenantID := uuid.New()
	active := true

	result, err := seedDevice(ctx, registry, attrs, SeedOptions{
		TenantID:     tenantID,
		DeviceID:     uuid.MustParse("784f394c-42b6-435a-983c-b7beff2784f9"),
		LastActivity: -1,
		Active:       &active,
	}, func() time.Time { return seedNow })
	require.NoError(t, err)
	assert.Equal(t, "device-784f394c", result.Device.Name)

	resp := svc.PingDevice(ctx, tenantID, &result.Device)
	assert.True(t, resp.Reachable)
	assert.Nil(t, resp.LastSeen)
	assert.Nil(t, resp.InactivitySeconds)
}

func TestSeedDeviceDefaultsLastActivityToNow(t *testing.T) {
	ctx := context.Background()
	registry, attrs, _ := newSeedFixture()
	tenantID := uuid.New()

	result, err := seedDevice(ctx, registry, attrs, SeedOptions{TenantID: tenantID},
		func() time.Time { return seedNow })
	require.NoError(t, err)

	found, err := attrs.Find(ctx, tenantID, result.Device.ID, attributes.ServerScope, attributes.ActivityKeys)
	require.NoError(t, err)

	snapshot := attributes.ActivitySnapshotFrom(found)
	require.NotNil(t, snapshot.LastActivityTime)
	assert.Equal(t, seedNow.UnixMilli(), *snapshot.LastActivityTime)
	assert.Nil(t, snapshot.Active)
}

func TestSeedDeviceRequiresTenant(t *testing.T) {
	registry, attrs, _ := newSeedFixture()

	_, err := seedDevice(context.Background(), registry, attrs, SeedOptions{}, time.Now)
	assert.ErrorIs(t, err, errSeedTenantRequired)
}

func TestSeedRequiresNATS(t *testing.T) {
	err := Seed(context.Background(), &models.Config{}, SeedOptions{TenantID: uuid.New()}, &bytes.Buffer{})
	assert.ErrorIs(t, err, errSeedNoNATS)
}

func runJetStreamServer(t *testing.T) *server.Server {
	t.Helper()

	srv, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
	})
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(10 * time.Second) {
		srv.Shutdown()
		t.Fatalf("embedded NATS server not ready for connections")
	}

	t.Cleanup(srv.Shutdown)

	return srv
}

func TestSeedWritesToNATSAndIssuesToken(t *testing.T) {
	srv := runJetStreamServer(t)

	cfg := models.Config{
		NATS: models.NATSConfig{URL: srv.ClientURL()},
		Auth: models.AuthConfig{JWTSecret: testSecret},
	}
	require.NoError(t, cfg.Validate())

	tenantID := uuid.New()

	var out bytes.Buffer

	err := Seed(context.Background(), &cfg, SeedOptions{
		TenantID: tenantID,
		Name:     "gateway",
		TokenTTL: time.Hour,
	}, &out)
	require.NoError(t, err)

	var result SeedResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "gateway", result.Device.Name)
	require.NotEmpty(t, result.Token)

	p, err := auth.NewTokenVerifier(testSecret, "").Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, tenantID, p.TenantID)
	assert.Equal(t, models.AuthorityTenantAdmin, p.Authority)

	store, err := kv.NewNatsStore(context.Background(), &cfg.NATS, logger.NewTestLogger())
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	device, err := devices.NewKVRegistry(store).GetDevice(context.Background(), tenantID, result.Device.ID)
	require.NoError(t, err)
	assert.Equal(t, "gateway", device.Name)
}

func TestSeedTokenRequiresSecret(t *testing.T) {
	srv := runJetStreamServer(t)

	cfg := models.Config{NATS: models.NATSConfig{URL: srv.ClientURL()}}
	require.NoError(t, cfg.Validate())

	err := Seed(context.Background(), &cfg, SeedOptions{TenantID: uuid.New(), TokenTTL: time.Minute}, &bytes.Buffer{})
	assert.ErrorIs(t, err, errSeedNoJWTSecret)
}
