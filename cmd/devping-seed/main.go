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

// Command devping-seed registers a device and writes its activity attributes,
// for local testing of the ping endpoint.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"

	"github.com/google/uuid"

	"github.com/carverauto/devping/cmd/devping/app"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "", "Path to devping config file (default $CONFIG_PATH or /etc/devping/devping.json)")
	tenant := flag.String("tenant", "", "Tenant id (required)")
	customer := flag.String("customer", "", "Customer id the device is assigned to")
	device := flag.String("device", "", "Device id (random when empty)")
	name := flag.String("name", "", "Device name")
	deviceType := flag.String("type", "default", "Device type")
	lastActivity := flag.Int64("last-activity", 0, "Last activity in epoch ms (0 for now, negative to leave unset)")
	active := flag.String("active", "", "Active flag to write (true/false, empty to leave unset)")
	tokenTTL := flag.Duration("token-ttl", 0, "Issue a tenant admin bearer token valid for this long")
	flag.Parse()

	opts := app.SeedOptions{
		Name:         *name,
		Type:         *deviceType,
		LastActivity: *lastActivity,
		TokenTTL:     *tokenTTL,
	}

	var err error

	if opts.TenantID, err = uuid.Parse(*tenant); err != nil {
		return err
	}

	if *customer != "" {
		if opts.CustomerID, err = uuid.Parse(*customer); err != nil {
			return err
		}
	}

	if *device != "" {
		if opts.DeviceID, err = uuid.Parse(*device); err != nil {
			return err
		}
	}

	if *active != "" {
		v, err := strconv.ParseBool(*active)
		if err != nil {
			return err
		}

		opts.Active = &v
	}

	ctx := context.Background()

	cfg, err := app.LoadConfig(ctx, *configPath)
	if err != nil {
		return err
	}

	return app.Seed(ctx, &cfg, opts, os.Stdout)
}
