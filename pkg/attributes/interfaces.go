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

//go:generate mockgen -destination=mock_attributes.go -package=attributes github.com/carverauto/devping/pkg/attributes Service

// Package attributes reads and writes scoped device attributes.
package attributes

import (
	"context"

	"github.com/google/uuid"
)

// Scope is the namespace an attribute lives in.
type Scope string

const (
	ServerScope Scope = "SERVER_SCOPE"
	ClientScope Scope = "CLIENT_SCOPE"
	SharedScope Scope = "SHARED_SCOPE"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	switch s {
	case ServerScope, ClientScope, SharedScope:
		return true
	default:
		return false
	}
}

// Service is the attribute store boundary.
type Service interface {
	// Find fetches the requested keys independently. Missing keys are absent from
	// Result.Entries and per-key failures are reported in Result.Errors; the returned
	// error is only set for invalid arguments.
	Find(ctx context.Context, tenantID, entityID uuid.UUID, scope Scope, keys []string) (*Result, error)

	// Save writes entries, replacing any previous values for the same keys.
	Save(ctx context.Context, tenantID, entityID uuid.UUID, scope Scope, entries []Entry) error
}

// Result is the outcome of a batched Find.
type Result struct {
	Entries map[string]Entry
	Errors  map[string]error
}

// NewResult returns an empty Result.
func NewResult() *Result {
	return &Result{
		Entries: make(map[string]Entry),
		Errors:  make(map[string]error),
	}
}

// Get returns the entry for key, if it was found.
func (r *Result) Get(key string) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}

	e, ok := r.Entries[key]

	return e, ok
}

// Err returns the fetch error for key, if any.
func (r *Result) Err(key string) error {
	if r == nil {
		return nil
	}

	return r.Errors[key]
}
