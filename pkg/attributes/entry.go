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

package attributes

import (
	"encoding/json"
	"fmt"
	"math"
)

// DataType is the declared type of an attribute value.
type DataType string

const (
	TypeBoolean DataType = "BOOLEAN"
	TypeLong    DataType = "LONG"
	TypeDouble  DataType = "DOUBLE"
	TypeString  DataType = "STRING"
	TypeJSON    DataType = "JSON"
)

// Entry is a typed attribute value as persisted in the store.
type Entry struct {
	Key          string          `json:"key"`
	Type         DataType        `json:"type"`
	Value        json.RawMessage `json:"value"`
	LastUpdateTs int64           `json:"lastUpdateTs"`
}

func newEntry(key string, typ DataType, value interface{}, ts int64) Entry {
	raw, err := json.Marshal(value)
	if err != nil {
		// only reachable for NaN/Inf doubles, stored as null
		raw = json.RawMessage("null")
	}

	return Entry{Key: key, Type: typ, Value: raw, LastUpdateTs: ts}
}

func NewLongEntry(key string, value, ts int64) Entry {
	return newEntry(key, TypeLong, value, ts)
}

func NewBooleanEntry(key string, value bool, ts int64) Entry {
	return newEntry(key, TypeBoolean, value, ts)
}

func NewDoubleEntry(key string, value float64, ts int64) Entry {
	return newEntry(key, TypeDouble, value, ts)
}

func NewStringEntry(key, value string, ts int64) Entry {
	return newEntry(key, TypeString, value, ts)
}

// LongValue returns the value when the entry is a LONG holding an integer.
func (e Entry) LongValue() (int64, bool) {
	if e.Type != TypeLong {
		return 0, false
	}

	var v int64
	if err := json.Unmarshal(e.Value, &v); err != nil {
		return 0, false
	}

	return v, true
}

// BooleanValue returns the value when the entry is a BOOLEAN.
func (e Entry) BooleanValue() (bool, bool) {
	if e.Type != TypeBoolean {
		return false, false
	}

	var v bool
	if err := json.Unmarshal(e.Value, &v); err != nil {
		return false, false
	}

	return v, true
}

// DoubleValue returns the value when the entry is a DOUBLE or LONG.
func (e Entry) DoubleValue() (float64, bool) {
	if e.Type != TypeDouble && e.Type != TypeLong {
		return 0, false
	}

	var v float64
	if err := json.Unmarshal(e.Value, &v); err != nil || math.IsNaN(v) {
		return 0, false
	}

	return v, true
}

// StrValue returns the value when the entry is a STRING.
func (e Entry) StrValue() (string, bool) {
	if e.Type != TypeString {
		return "", false
	}

	var v string
	if err := json.Unmarshal(e.Value, &v); err != nil {
		return "", false
	}

	return v, true
}

// ValueAsString renders any entry as text, for logs and tooling.
func (e Entry) ValueAsString() string {
	if s, ok := e.StrValue(); ok {
		return s
	}

	return string(e.Value)
}

func (e Entry) String() string {
	return fmt.Sprintf("%s(%s)=%s", e.Key, e.Type, e.ValueAsString())
}
