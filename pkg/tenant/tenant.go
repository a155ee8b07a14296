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

// Package tenant carries the caller's tenant identity through request
// contexts and scopes NATS subjects per tenant.
//
// Subjects follow <prefix>.<tenant_id>.<device_id>.<event>, for example
// devices.5a1f0f1e-8d52-4a53-9b8e-3c0e4a0f8c11.0e4f7a32-2b1c-4c0d-8f6a-7d8e9f0a1b2c.activity
package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ctxKey is the type for context keys in this package.
type ctxKey string

// tenantCtxKey is the context key for storing tenant info.
const tenantCtxKey ctxKey = "tenant"

// subjectTail is the number of tokens after the prefix: tenant, device, event.
const subjectTail = 3

var (
	// ErrNoTenantInContext indicates no tenant info was found in the context.
	ErrNoTenantInContext = errors.New("no tenant info in context")

	// ErrInvalidSubject indicates a subject doesn't match the expected layout.
	ErrInvalidSubject = errors.New("invalid device subject")
)

// Info identifies the tenant, and optionally the customer, a request acts for.
type Info struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	CustomerID uuid.UUID `json:"customer_id,omitempty"`
}

// String returns a human-readable representation of the tenant info.
func (i Info) String() string {
	if i.CustomerID == uuid.Nil {
		return i.TenantID.String()
	}

	return fmt.Sprintf("%s/%s", i.TenantID, i.CustomerID)
}

// WithContext returns a new context with the tenant info attached.
func WithContext(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, tenantCtxKey, info)
}

// FromContext extracts tenant info from a context.
// Returns ErrNoTenantInContext if no tenant info is present.
func FromContext(ctx context.Context) (*Info, error) {
	info, ok := ctx.Value(tenantCtxKey).(*Info)
	if !ok || info == nil {
		return nil, ErrNoTenantInContext
	}

	return info, nil
}

// MustFromContext extracts tenant info from a context or panics.
// Use only when tenant presence is guaranteed (e.g., after middleware validation).
func MustFromContext(ctx context.Context) *Info {
	info, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}

	return info
}

// IDFromContext returns the tenant ID in ctx, or uuid.Nil.
func IDFromContext(ctx context.Context) uuid.UUID {
	info, err := FromContext(ctx)
	if err != nil {
		return uuid.Nil
	}

	return info.TenantID
}

// DeviceSubject returns the subject a device publishes event on.
func (i Info) DeviceSubject(prefix string, deviceID uuid.UUID, event string) string {
	return DeviceSubject(prefix, i.TenantID, deviceID, event)
}

// DeviceSubject builds <prefix>.<tenant>.<device>.<event>.
func DeviceSubject(prefix string, tenantID, deviceID uuid.UUID, event string) string {
	return strings.Join([]string{prefix, tenantID.String(), deviceID.String(), event}, ".")
}

// WildcardSubject matches every device event of every tenant under prefix.
func WildcardSubject(prefix string) string {
	return prefix + ".*.*.*"
}

// ParseDeviceSubject splits a subject built by DeviceSubject.
func ParseDeviceSubject(prefix, subject string) (tenantID, deviceID uuid.UUID, event string, err error) {
	rest, ok := strings.CutPrefix(subject, prefix+".")
	if !ok {
		return uuid.Nil, uuid.Nil, "", fmt.Errorf("%w: %q lacks prefix %q", ErrInvalidSubject, subject, prefix)
	}

	parts := strings.Split(rest, ".")
	if len(parts) != subjectTail {
		return uuid.Nil, uuid.Nil, "", fmt.Errorf("%w: expected %d tokens after prefix, got %d in %q",
			ErrInvalidSubject, subjectTail, len(parts), subject)
	}

	tenantID, err = uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, uuid.Nil, "", fmt.Errorf("%w: tenant: %w", ErrInvalidSubject, err)
	}

	deviceID, err = uuid.Parse(parts[1])
	if err != nil {
		return uuid.Nil, uuid.Nil, "", fmt.Errorf("%w: device: %w", ErrInvalidSubject, err)
	}

	return tenantID, deviceID, parts[2], nil
}
