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

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/carverauto/devping/pkg/devices"
	"github.com/carverauto/devping/pkg/logger"
	"github.com/carverauto/devping/pkg/models"
	"github.com/carverauto/devping/pkg/tenant"
)

// Middleware authenticates every request and stores the principal and its
// tenant in the request context.
func Middleware(authenticator Authenticator, log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := authenticator.Authenticate(r)
			if err != nil {
				log.Debug().
					Err(err).
					Str("path", r.URL.Path).
					Msg("Rejected unauthenticated request")

				writeError(w, "Authentication failed", http.StatusUnauthorized)

				return
			}

			ctx := WithPrincipal(r.Context(), p)
			ctx = tenant.WithContext(ctx, &tenant.Info{TenantID: p.TenantID, CustomerID: p.CustomerID})

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuthority rejects principals whose authority is not listed.
func RequireAuthority(authorities ...models.Authority) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeError(w, "Authentication failed", http.StatusUnauthorized)
				return
			}

			if !slices.Contains(authorities, p.Authority) {
				writeError(w, ErrForbidden.Error(), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// CheckDeviceAccess verifies p may read device. Devices of other tenants are
// reported as devices.ErrDeviceNotFound so their existence is not disclosed.
func CheckDeviceAccess(p *Principal, device *models.Device) error {
	if p == nil {
		return ErrUnauthenticated
	}

	if device == nil || device.TenantID != p.TenantID {
		return devices.ErrDeviceNotFound
	}

	if !p.IsCustomerUser() {
		return nil
	}

	// Unassigned devices carry uuid.Nil, so a customer user without a
	// customer must never match them.
	if p.CustomerID == uuid.Nil || !device.AssignedToCustomer() || device.CustomerID != p.CustomerID {
		return ErrForbidden
	}

	return nil
}

// StatusFor maps auth and lookup errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, devices.ErrDeviceNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrInvalidAPIKey):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(models.ErrorResponse{Message: message, Status: status})
}
