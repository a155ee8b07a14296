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

package config

import (
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/devping/pkg/logger"
)

var (
	// ErrDstMustBeNonNilPointer indicates that the destination must be a non-nil pointer.
	ErrDstMustBeNonNilPointer = errors.New("dst must be a non-nil pointer")
	// ErrDstMustBePointerToStruct indicates that the destination must be a pointer to a struct.
	ErrDstMustBePointerToStruct = errors.New("dst must be a pointer to a struct")
)

//nolint:gochecknoglobals // reflect types resolved once
var (
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
	jsonUnmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
	durationType        = reflect.TypeOf(time.Duration(0))
)

// EnvConfigLoader loads configuration from environment variables.
// Nested struct fields are joined with underscores, so with the prefix
// "DEVPING_" the variable DEVPING_PING_TIMEOUT_MS maps to Config.Ping.TimeoutMs.
type EnvConfigLoader struct {
	logger logger.Logger
	prefix string
}

// NewEnvConfigLoader creates a new environment variable config loader.
func NewEnvConfigLoader(log logger.Logger, prefix string) *EnvConfigLoader {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &EnvConfigLoader{
		logger: log,
		prefix: prefix,
	}
}

// ApplyEnvOverrides overlays any environment variables under prefix onto an
// already loaded configuration.
func ApplyEnvOverrides(dst interface{}, prefix string, log logger.Logger) error {
	loader := NewEnvConfigLoader(log, prefix)

	v, err := structValue(dst)
	if err != nil {
		return err
	}

	loader.loadStruct(v, prefix)

	return nil
}

// Load implements ConfigLoader by reading from environment variables.
// <prefix>CONFIG_JSON, when set, holds the whole configuration document.
func (e *EnvConfigLoader) Load(_ context.Context, _ string, dst interface{}) error {
	e.logger.Debug().Msg("Loading configuration from environment variables")

	if jsonConfig := os.Getenv(e.prefix + "CONFIG_JSON"); jsonConfig != "" {
		if err := json.Unmarshal([]byte(jsonConfig), dst); err != nil {
			e.logger.Error().Err(err).Msg("Failed to unmarshal CONFIG_JSON")

			return fmt.Errorf("failed to unmarshal CONFIG_JSON: %w", err)
		}

		e.logger.Info().Msg("Loaded configuration from CONFIG_JSON environment variable")

		return nil
	}

	v, err := structValue(dst)
	if err != nil {
		return err
	}

	e.loadStruct(v, e.prefix)

	e.logger.Info().Msg("Successfully loaded configuration from environment variables")

	return nil
}

func structValue(dst interface{}) (reflect.Value, error) {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return reflect.Value{}, ErrDstMustBeNonNilPointer
	}

	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, ErrDstMustBePointerToStruct
	}

	return v, nil
}

// loadStruct walks the exported, json-tagged fields of v. A field that fails
// to parse is logged and left unchanged.
func (e *EnvConfigLoader) loadStruct(v reflect.Value, prefix string) {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)

		if !field.CanSet() {
			continue
		}

		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}

		envName := envVarName(prefix, name)

		if err := e.setField(field, envName); err != nil {
			e.logger.Warn().
				Str("env", envName).
				Err(err).
				Msg("Ignoring invalid environment variable")
		}
	}
}

func envVarName(prefix, fieldName string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(fieldName, ".", "_"))
}

func (e *EnvConfigLoader) setField(field reflect.Value, envName string) error {
	if isNestedStruct(field) {
		nestedPrefix := envName + "_"

		if field.Kind() == reflect.Ptr {
			// Only allocate optional sections someone actually configured.
			if field.IsNil() {
				if !hasEnvWithPrefix(nestedPrefix) {
					return nil
				}

				field.Set(reflect.New(field.Type().Elem()))
			}

			field = field.Elem()
		}

		e.loadStruct(field, nestedPrefix)

		return nil
	}

	raw, ok := os.LookupEnv(envName)
	if !ok || raw == "" {
		return nil
	}

	if err := setValue(field, raw); err != nil {
		return fmt.Errorf("%s: %w", envName, err)
	}

	e.logger.Debug().Str("env", envName).Str("value", "[set]").Msg("Loaded value from environment variable")

	return nil
}

func isNestedStruct(field reflect.Value) bool {
	t := field.Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return false
	}

	return !reflect.PointerTo(t).Implements(textUnmarshalerType) &&
		!reflect.PointerTo(t).Implements(jsonUnmarshalerType)
}

func hasEnvWithPrefix(prefix string) bool {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, prefix) {
			return true
		}
	}

	return false
}

// setValue parses raw into field. Types that unmarshal themselves take
// precedence over the field's reflect.Kind.
func setValue(field reflect.Value, raw string) error {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}

		return setValue(field.Elem(), raw)
	}

	ptr := field.Addr()

	if ptr.Type().Implements(textUnmarshalerType) {
		return ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw))
	}

	if ptr.Type().Implements(jsonUnmarshalerType) {
		return unmarshalJSONValue(ptr.Interface(), raw)
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %w", err)
		}

		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return setInt(field, raw)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer value: %w", err)
		}

		field.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float value: %w", err)
		}

		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(raw, ",")
			slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))

			for i, part := range parts {
				slice.Index(i).SetString(strings.TrimSpace(part))
			}

			field.Set(slice)

			return nil
		}

		return unmarshalJSONValue(ptr.Interface(), raw)
	default:
		return unmarshalJSONValue(ptr.Interface(), raw)
	}

	return nil
}

func setInt(field reflect.Value, raw string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration value: %w", err)
		}

		field.SetInt(int64(d))

		return nil
	}

	i, err := strconv.ParseInt(raw, 10, field.Type().Bits())
	if err != nil {
		return fmt.Errorf("invalid integer value: %w", err)
	}

	field.SetInt(i)

	return nil
}

// unmarshalJSONValue decodes raw as JSON, retrying it as a JSON string so
// values like 10s need no quoting.
func unmarshalJSONValue(dst interface{}, raw string) error {
	err := json.Unmarshal([]byte(raw), dst)
	if err == nil {
		return nil
	}

	quoted, qerr := json.Marshal(raw)
	if qerr != nil {
		return err
	}

	if json.Unmarshal(quoted, dst) == nil {
		return nil
	}

	return fmt.Errorf("invalid value: %w", err)
}
