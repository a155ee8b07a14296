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

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/devping/pkg/logger"
)

const (
	// DefaultPingTimeoutMs is the reachability window applied when none is configured.
	DefaultPingTimeoutMs int64 = 60000

	defaultListenAddr     = ":8090"
	defaultBucket         = "devping-attributes"
	defaultSubjectPrefix  = "devices"
	defaultRequestTimeout = 10 * time.Second
)

var (
	errInvalidDuration     = errors.New("invalid duration")
	errNegativePingTimeout = errors.New("ping.timeout_ms must be positive")
	errJWTSecretTooShort   = errors.New("auth.jwt_secret must be at least 32 bytes")
	errAPIKeyTenant        = errors.New("auth.api_keys entry requires tenant_id")
	errAPIKeyAuthority     = errors.New("auth.api_keys entry has unknown authority")
	errAPIKeyCustomer      = errors.New("auth.api_keys CUSTOMER_USER entry requires customer_id")
)

// Duration is a time.Duration that unmarshals from either a number of nanoseconds or
// a Go duration string ("10s").
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))

		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Config is the configuration of the devping service.
type Config struct {
	ListenAddr     string         `json:"listen_addr"`
	RequestTimeout Duration       `json:"request_timeout,omitempty"`
	Ping           PingConfig     `json:"ping"`
	NATS           NATSConfig     `json:"nats"`
	Database       DatabaseConfig `json:"database"`
	Auth           AuthConfig     `json:"auth"`
	CORS           CORSConfig     `json:"cors,omitempty"`
	Logging        *logger.Config `json:"logging,omitempty"`
	Metrics        *MetricsConfig `json:"metrics,omitempty"`
	Tracing        *TracingConfig `json:"tracing,omitempty"`
}

// PingConfig holds the reachability tunables.
type PingConfig struct {
	// TimeoutMs is the maximum age, in milliseconds, of the last activity for a device to count as reachable.
	TimeoutMs int64 `json:"timeout_ms"`
}

// Timeout returns the configured timeout as a duration.
func (p PingConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// NATSConfig points at the JetStream server holding the attribute bucket.
// An empty URL selects the in-memory store.
type NATSConfig struct {
	URL           string   `json:"url"`
	Domain        string   `json:"domain,omitempty"`
	Bucket        string   `json:"bucket,omitempty"`
	BucketHistory uint32   `json:"bucket_history,omitempty"`
	SubjectPrefix string   `json:"subject_prefix,omitempty"`
	ConnectWait   Duration `json:"connect_wait,omitempty"`
}

// DatabaseConfig selects the Postgres device registry when URL is set.
type DatabaseConfig struct {
	URL      string `json:"url"`
	MaxConns int32  `json:"max_conns,omitempty"`
}

// Authority is the role carried by an authenticated caller.
type Authority string

const (
	AuthoritySysAdmin     Authority = "SYS_ADMIN"
	AuthorityTenantAdmin  Authority = "TENANT_ADMIN"
	AuthorityCustomerUser Authority = "CUSTOMER_USER"
)

// Valid reports whether a is one of the known authorities.
func (a Authority) Valid() bool {
	switch a {
	case AuthoritySysAdmin, AuthorityTenantAdmin, AuthorityCustomerUser:
		return true
	default:
		return false
	}
}

// AuthConfig configures the bearer token verifier and static API keys.
type AuthConfig struct {
	JWTSecret string                  `json:"jwt_secret,omitempty"`
	JWTIssuer string                  `json:"jwt_issuer,omitempty"`
	APIKeys   map[string]APIKeyConfig `json:"api_keys,omitempty"`
}

// APIKeyConfig maps a static API key to the principal it authenticates.
type APIKeyConfig struct {
	UserID     string    `json:"user_id,omitempty"`
	TenantID   uuid.UUID `json:"tenant_id"`
	CustomerID uuid.UUID `json:"customer_id,omitempty"`
	Authority  Authority `json:"authority"`
}

// CORSConfig represents CORS configuration for the HTTP API.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins,omitempty"`
	AllowCredentials bool     `json:"allow_credentials,omitempty"`
}

// MetricsConfig enables the OTLP metrics exporter.
type MetricsConfig struct {
	Enabled        bool     `json:"enabled"`
	Endpoint       string   `json:"endpoint"`
	Insecure       bool     `json:"insecure,omitempty"`
	ExportInterval Duration `json:"export_interval,omitempty"`
}

// TracingConfig enables the OTLP trace exporter.
type TracingConfig struct {
	Enabled     bool    `json:"enabled"`
	Endpoint    string  `json:"endpoint"`
	Insecure    bool    `json:"insecure,omitempty"`
	SampleRatio float64 `json:"sample_ratio,omitempty"`
}

// Validate applies defaults and rejects invalid values.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = Duration(defaultRequestTimeout)
	}

	if c.Ping.TimeoutMs < 0 {
		return fmt.Errorf("%w: got %d", errNegativePingTimeout, c.Ping.TimeoutMs)
	}

	if c.Ping.TimeoutMs == 0 {
		c.Ping.TimeoutMs = DefaultPingTimeoutMs
	}

	if c.NATS.Bucket == "" {
		c.NATS.Bucket = defaultBucket
	}

	if c.NATS.BucketHistory == 0 {
		c.NATS.BucketHistory = 1
	}

	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = defaultSubjectPrefix
	}

	return c.Auth.Validate()
}

// Validate checks the auth section.
func (a *AuthConfig) Validate() error {
	if a.JWTSecret != "" && len(a.JWTSecret) < 32 {
		return errJWTSecretTooShort
	}

	for key, entry := range a.APIKeys {
		if entry.TenantID == uuid.Nil && entry.Authority != AuthoritySysAdmin {
			return fmt.Errorf("%w: key %s", errAPIKeyTenant, maskKey(key))
		}

		if !entry.Authority.Valid() {
			return fmt.Errorf("%w: %q", errAPIKeyAuthority, entry.Authority)
		}

		if entry.Authority == AuthorityCustomerUser && entry.CustomerID == uuid.Nil {
			return fmt.Errorf("%w: key %s", errAPIKeyCustomer, maskKey(key))
		}
	}

	return nil
}

func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}

	return key[:4] + "****"
}
