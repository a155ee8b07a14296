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
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/carverauto/devping/pkg/models"
)

// APIKeyHeader carries static API keys.
const APIKeyHeader = "X-API-Key"

type apiKey struct {
	key       []byte
	principal Principal
}

// APIKeyAuthenticator maps static keys from configuration to principals.
type APIKeyAuthenticator struct {
	keys []apiKey
}

// NewAPIKeyAuthenticator builds an authenticator from the configured keys.
func NewAPIKeyAuthenticator(keys map[string]models.APIKeyConfig) *APIKeyAuthenticator {
	a := &APIKeyAuthenticator{keys: make([]apiKey, 0, len(keys))}

	for key, cfg := range keys {
		userID := cfg.UserID
		if userID == "" {
			userID = keyUserID(key)
		}

		a.keys = append(a.keys, apiKey{
			key: []byte(key),
			principal: Principal{
				UserID:     userID,
				TenantID:   cfg.TenantID,
				CustomerID: cfg.CustomerID,
				Authority:  cfg.Authority,
			},
		})
	}

	return a
}

func (a *APIKeyAuthenticator) Authenticate(r *http.Request) (*Principal, error) {
	presented := strings.TrimSpace(r.Header.Get(APIKeyHeader))
	if presented == "" {
		return nil, ErrUnauthenticated
	}

	var match *Principal

	// compare against every key so timing does not reveal which one matched
	for i := range a.keys {
		if subtle.ConstantTimeCompare(a.keys[i].key, []byte(presented)) == 1 {
			p := a.keys[i].principal
			match = &p
		}
	}

	if match == nil {
		return nil, ErrInvalidAPIKey
	}

	return match, nil
}

// Chain tries each authenticator in order. A request without credentials for one
// authenticator falls through to the next; a request with bad credentials fails.
type Chain []Authenticator

func (c Chain) Authenticate(r *http.Request) (*Principal, error) {
	for _, a := range c {
		p, err := a.Authenticate(r)
		if err == nil {
			return p, nil
		}

		if !errors.Is(err, ErrUnauthenticated) {
			return nil, err
		}
	}

	return nil, ErrUnauthenticated
}

// keyUserID names an API key in logs and traces without revealing any of it.
func keyUserID(key string) string {
	sum := sha256.Sum256([]byte(key))

	return "apikey:" + hex.EncodeToString(sum[:4])
}
