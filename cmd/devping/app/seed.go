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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/devping/pkg/attributes"
	"github.com/carverauto/devping/pkg/auth"
	"github.com/carverauto/devping/pkg/devices"
	"github.com/carverauto/devping/pkg/logger"
	"github.com/carverauto/devping/pkg/models"
)

var (
	errSeedTenantRequired = errors.New("tenant id is required")
	errSeedNoNATS         = errors.New("seeding requires nats.url; the in-memory store does not outlive the process")
	errSeedNoJWTSecret    = errors.New("auth.jwt_secret must be configured to issue a token")
)

// SeedOptions describes a device and its activity attributes to write.
type SeedOptions struct {
	TenantID   uuid.UUID
	CustomerID uuid.UUID
	DeviceID   uuid.UUID
	Name       string
	Type       string

	// LastActivity is epoch ms; negative leaves the attribute unset and zero means now.
	LastActivity int64
	// Active is written when non-nil.
	Active *bool

	// TokenTTL, when positive, issues a bearer token for a tenant admin of TenantID.
	TokenTTL time.Duration
}

// SeedResult is printed by the seed command.
type SeedResult struct {
	Device models.Device `json:"device"`
	Token  string        `json:"token,omitempty"`
}

// Seed writes a device and its activity attributes into the configured stores.
func Seed(ctx context.Context, cfg *models.Config, opts SeedOptions, out io.Writer) error {
	if cfg.NATS.URL == "" {
		return errSeedNoNATS
	}

	log := logger.NewTestLogger()

	store, _, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	defer func() { _ = store.Close() }()

	registry, closeRegistry, err := openRegistry(ctx, cfg, store, log)
	if err != nil {
		return err
	}
	defer closeRegistry()

	result, err := seedDevice(ctx, registry, attributes.NewKVService(store, log), opts, time.Now)
	if err != nil {
		return err
	}

	if opts.TokenTTL > 0 {
		if cfg.Auth.JWTSecret == "" {
			return errSeedNoJWTSecret
		}

		result.Token, err = auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer).Issue(&auth.Principal{
			UserID:    "seed",
			TenantID:  opts.TenantID,
			Authority: models.AuthorityTenantAdmin,
		}, opts.TokenTTL)
		if err != nil {
			return err
		}
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	return enc.Encode(result)
}

func seedDevice(
	ctx context.Context,
	registry devices.Registry,
	attrs attributes.Service,
	opts SeedOptions,
	now func() time.Time,
) (*SeedResult, error) {
	if opts.TenantID == uuid.Nil {
		return nil, errSeedTenantRequired
	}

	deviceID := opts.DeviceID
	if deviceID == uuid.Nil {
		deviceID = uuid.New()
	}

	name := opts.Name
	if name == "" {
		name = "device-" + deviceID.String()[:8]
	}

	device := models.Device{
		ID:         deviceID,
		TenantID:   opts.TenantID,
		CustomerID: opts.CustomerID,
		Name:       name,
		Type:       opts.Type,
	}

	if err := registry.SaveDevice(ctx, &device); err != nil {
		return nil, fmt.Errorf("failed to save device: %w", err)
	}

	ts := now().UnixMilli()

	var entries []attributes.Entry

	if opts.LastActivity >= 0 {
		last := opts.LastActivity
		if last == 0 {
			last = ts
		}

		entries = append(entries, attributes.NewLongEntry(models.AttributeLastActivityTime, last, ts))
	}

	if opts.Active != nil {
		entries = append(entries, attributes.NewBooleanEntry(models.AttributeActive, *opts.Active, ts))
	}

	if len(entries) > 0 {
		if err := attrs.Save(ctx, device.TenantID, device.ID, attributes.ServerScope, entries); err != nil {
			return nil, fmt.Errorf("failed to save attributes: %w", err)
		}
	}

	return &SeedResult{Device: device}, nil
}
