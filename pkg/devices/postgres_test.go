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
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/devping/pkg/logger"
	"github.com/carverauto/devping/pkg/models"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}

	for i, d := range dest {
		switch p := d.(type) {
		case *uuid.UUID:
			*p = r.values[i].(uuid.UUID)
		case *uuid.NullUUID:
			*p = r.values[i].(uuid.NullUUID)
		case *string:
			*p = r.values[i].(string)
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return errors.New("unexpected scan target")
		}
	}

	return nil
}

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	row     fakeRow
	queries []execCall
	execs   []execCall
	tag     string
	execErr error
	applied []string
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, execCall{sql: sql, args: args})
	return f.row
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag(f.tag), f.execErr
}

func (f *fakeDB) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return &fakeRows{values: f.applied, idx: -1}, nil
}

type fakeRows struct {
	values []string
	idx    int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return []any{r.values[r.idx]}, nil }
func (r *fakeRows) RawValues() [][]byte                          { return [][]byte{[]byte(r.values[r.idx])} }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.values)
}

func (r *fakeRows) Scan(dest ...any) error {
	*dest[0].(*string) = r.values[r.idx]
	return nil
}

func TestPostgresRegistryGetDevice(t *testing.T) {
	customer := uuid.New()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	db := &fakeDB{row: fakeRow{values: []any{
		device1, tenantA, uuid.NullUUID{UUID: customer, Valid: true}, "Temperature Sensor 01", "thermostat", "", created,
	}}}
	reg := &PostgresRegistry{db: db, now: time.Now}

	got, err := reg.GetDevice(context.Background(), tenantA, device1)
	require.NoError(t, err)
	assert.Equal(t, device1, got.ID)
	assert.Equal(t, customer, got.CustomerID)
	assert.Equal(t, "Temperature Sensor 01", got.Name)
	assert.Equal(t, created, got.CreatedAt)

	require.Len(t, db.queries, 1)
	assert.Equal(t, []any{tenantA, device1}, db.queries[0].args)
}

func TestPostgresRegistryGetDeviceUnassigned(t *testing.T) {
	db := &fakeDB{row: fakeRow{values: []any{
		device1, tenantA, uuid.NullUUID{}, "d", "", "", time.Now(),
	}}}
	reg := &PostgresRegistry{db: db, now: time.Now}

	got, err := reg.GetDevice(context.Background(), tenantA, device1)
	require.NoError(t, err)
	assert.False(t, got.AssignedToCustomer())
}

func TestPostgresRegistryGetDeviceErrors(t *testing.T) {
	reg := &PostgresRegistry{db: &fakeDB{row: fakeRow{err: pgx.ErrNoRows}}, now: time.Now}

	_, err := reg.GetDevice(context.Background(), tenantB, device1)
	require.ErrorIs(t, err, ErrDeviceNotFound)

	connErr := errors.New("connection reset")
	reg = &PostgresRegistry{db: &fakeDB{row: fakeRow{err: connErr}}, now: time.Now}

	_, err = reg.GetDevice(context.Background(), tenantA, device1)
	require.ErrorIs(t, err, connErr)
}

func TestPostgresRegistrySaveDevice(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	db := &fakeDB{tag: "INSERT 0 1"}
	reg := &PostgresRegistry{db: db, now: func() time.Time { return created }}

	dev := &models.Device{ID: device1, TenantID: tenantA, Name: "d"}
	require.NoError(t, reg.SaveDevice(context.Background(), dev))

	require.Len(t, db.execs, 1)
	args := db.execs[0].args
	require.Len(t, args, 7)
	assert.Equal(t, device1, args[0])
	assert.Equal(t, uuid.NullUUID{}, args[2])
	assert.Equal(t, created, args[6])
}

func TestPostgresRegistrySaveDeviceTenantConflict(t *testing.T) {
	reg := &PostgresRegistry{db: &fakeDB{tag: "INSERT 0 0"}, now: time.Now}

	err := reg.SaveDevice(context.Background(), &models.Device{ID: device1, TenantID: tenantB, Name: "d"})
	require.ErrorIs(t, err, errDeviceTenantConflict)

	require.ErrorIs(t, reg.SaveDevice(context.Background(), &models.Device{TenantID: tenantA}), errInvalidDevice)
}

func TestRunMigrationsSkipsApplied(t *testing.T) {
	db := &fakeDB{}
	require.NoError(t, runMigrations(context.Background(), db, logger.NewTestLogger()))

	var created, recorded bool

	for _, e := range db.execs {
		if strings.Contains(e.sql, "CREATE TABLE IF NOT EXISTS devices") {
			created = true
		}

		if strings.HasPrefix(e.sql, "INSERT INTO "+migrationsTable) {
			recorded = true
			assert.Equal(t, []any{"0001_devices"}, e.args)
		}
	}

	assert.True(t, created)
	assert.True(t, recorded)

	db = &fakeDB{applied: []string{"0001_devices"}}
	require.NoError(t, runMigrations(context.Background(), db, logger.NewTestLogger()))
	assert.Len(t, db.execs, 1, "only the tracking table is ensured")
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (x int);\n\n  CREATE INDEX b ON a (x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x int)", "CREATE INDEX b ON a (x)"}, stmts)
}
