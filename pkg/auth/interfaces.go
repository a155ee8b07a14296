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

//go:generate mockgen -destination=mock_auth.go -package=auth github.com/carverauto/devping/pkg/auth Authenticator

// Package auth authenticates API callers and checks their access to devices.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/carverauto/devping/pkg/models"
)

var (
	// ErrUnauthenticated means the request carried no usable credentials.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrInvalidToken means a bearer token failed verification.
	ErrInvalidToken = errors.New("invalid token")

	// ErrMissingCustomer means a CUSTOMER_USER credential names no customer.
	ErrMissingCustomer = errors.New("customer user without customer id")

	// ErrInvalidAPIKey means an API key is not known.
	ErrInvalidAPIKey = errors.New("invalid api key")

	// ErrForbidden means the caller is authenticated but may not perform the operation.
	ErrForbidden = errors.New("you don't have permission to perform this operation")
)

// Authenticator turns request credentials into a Principal.
type Authenticator interface {
	Authenticate(r *http.Request) (*Principal, error)
}

// Principal is an authenticated caller.
type Principal struct {
	UserID     string           `json:"user_id"`
	TenantID   uuid.UUID        `json:"tenant_id"`
	CustomerID uuid.UUID        `json:"customer_id,omitempty"`
	Authority  models.Authority `json:"authority"`
}

// IsCustomerUser reports whether the principal is restricted to one customer.
func (p *Principal) IsCustomerUser() bool {
	return p.Authority == models.AuthorityCustomerUser
}

type ctxKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFromContext returns the principal stored by Middleware.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ctxKey{}).(*Principal)

	return p, ok && p != nil
}
