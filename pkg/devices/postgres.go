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

package devices

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carverauto/devping/pkg/logger"
	"github.com/carverauto/devping/pkg/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	selectDeviceSQL = `
SELECT id, tenant_id, customer_id, name, type, COALESCE(label, ''), created_at
FROM devices
WHERE tenant_id = $1 AND id = $2`

	upsertDeviceSQL = `
INSERT INTO devices (
	id,
	tenant_id,
	customer_id,
	name,
	type,
	label,
	created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7
)
ON CONFLICT (id) DO UPDATE SET
	customer_id = EXCLUDED.customer_id,
	name = EXCLUDED.name,
	type = EXCLUDED.type,
	label = EXCLUDED.label
WHERE devices.tenant_id = EXCLUDED.tenant_id`

	migrationsTable = "devping_schema_migrations"
)

var errDeviceTenantConflict = errors.New("device id already belongs to another tenant")

// querier is the subset of *pgxpool.Pool the registry needs.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresRegistry reads devices from the devices table.
type PostgresRegistry struct {
	db  querier
	now func() time.Time
}

// NewPostgresRegistry returns a Registry over pool.
func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{db: pool, now: time.Now}
}

// NewPool dials the configured database.
func NewPool(ctx context.Context, cfg *models.DatabaseConfig, log logger.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("devices: failed to parse connection string: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("devices: failed to initialize pool: %w", err)
	}

	log.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("Connected to device database")

	return pool, nil
}

func (r *PostgresRegistry) GetDevice(ctx context.Context, tenantID, deviceID uuid.UUID) (*models.Device, error) {
	var (
		device   models.Device
		customer uuid.NullUUID
	)

	err := r.db.QueryRow(ctx, selectDeviceSQL, tenantID, deviceID).Scan(
		&device.ID,
		&device.TenantID,
		&customer,
		&device.Name,
		&device.Type,
		&device.Label,
		&device.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query device %s: %w", deviceID, err)
	}

	if customer.Valid {
		device.CustomerID = customer.UUID
	}

	return &device, nil
}

func (r *PostgresRegistry) SaveDevice(ctx context.Context, device *models.Device) error {
	if err := validateDevice(device); err != nil {
		return err
	}

	if device.CreatedAt.IsZero() {
		device.CreatedAt = r.now().UTC()
	}

	customer := uuid.NullUUID{UUID: device.CustomerID, Valid: device.AssignedToCustomer()}

	tag, err := r.db.Exec(ctx, upsertDeviceSQL,
		device.ID,
		device.TenantID,
		customer,
		device.Name,
		device.Type,
		device.Label,
		device.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save device %s: %w", device.ID, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", errDeviceTenantConflict, device.ID)
	}

	return nil
}

// RunMigrations applies the embedded schema migrations that have not run yet.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, log logger.Logger) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("migrations: acquire connection: %w", err)
	}
	defer conn.Release()

	return runMigrations(ctx, conn, log)
}

type migrationConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func runMigrations(ctx context.Context, conn migrationConn, log logger.Logger) error {
	if _, err := conn.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		version     TEXT PRIMARY KEY,
		applied_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`, migrationsTable)); err != nil {
		return fmt.Errorf("migrations: create tracking table: %w", err)
	}

	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT version FROM %s`, migrationsTable))
	if err != nil {
		return fmt.Errorf("migrations: list applied versions: %w", err)
	}

	applied, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("migrations: scan applied versions: %w", err)
	}

	done := make(map[string]struct{}, len(applied))
	for _, v := range applied {
		done[v] = struct{}{}
	}

	names, err := migrationNames()
	if err != nil {
		return err
	}

	for _, name := range names {
		version := strings.TrimSuffix(name, ".up.sql")
		if _, ok := done[version]; ok {
			continue
		}

		log.Info().Str("migration", name).Msg("Applying device schema migration")

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("migrations: read %s: %w", name, err)
		}

		for idx, stmt := range splitStatements(string(content)) {
			if _, err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("migrations: statement %d in %s failed: %w", idx+1, name, err)
			}
		}

		if _, err := conn.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (version) VALUES ($1)`, migrationsTable), version); err != nil {
			return fmt.Errorf("migrations: record %s: %w", name, err)
		}
	}

	return nil
}

func migrationNames() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("migrations: read embedded migrations: %w", err)
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Strings(names)

	return names, nil
}

func splitStatements(content string) []string {
	parts := strings.Split(content, ";")
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}

	return out
}

var _ Registry = (*PostgresRegistry)(nil)
