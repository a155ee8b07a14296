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

package kv

import (
	"errors"
)

var (
	// ErrInvalidKey is returned for keys the JetStream KV bucket would reject.
	ErrInvalidKey = errors.New("invalid kv key")
	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("kv store closed")

	errNatsURLRequired = errors.New("nats url is required")
	errBucketRequired  = errors.New("bucket is required")
)
