// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package strictframe validates inbound wire frames before they are
// unmarshalled into the runtime's typed structures.
package strictframe

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/segmentio/encoding/json"
)

// Unmarshal unmarshals JSON data into v with strict validation rules:
//   - rejects duplicate keys with different cases (e.g. "requestId" and
//     "RequestId")
//   - validates that top-level JSON field names exactly match struct tags
//     (case-sensitive); keys of nested objects are checked only for
//     case-variant duplicates, not against their struct tags
//   - rejects unknown fields not defined in the struct
//
// Frames cross a trust boundary (a peer on the other end of the transport),
// so relying on encoding/json's case-insensitive field matching would let a
// peer smuggle a field under a differently-cased key past validation that
// inspected the canonical name.
func Unmarshal(data []byte, v interface{}) error {
	if err := validateNoDuplicateKeys(data); err != nil {
		return fmt.Errorf("strictframe: %w", err)
	}
	if err := validateFieldCase(data, v); err != nil {
		return fmt.Errorf("strictframe: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("strictframe: %w", err)
	}
	return nil
}

func validateNoDuplicateKeys(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	seen := make(map[string]string)
	for key := range raw {
		lowerKey := strings.ToLower(key)
		if original, exists := seen[lowerKey]; exists && original != key {
			return fmt.Errorf("duplicate key with different case: %q and %q", original, key)
		}
		seen[lowerKey] = key
	}
	for key, val := range raw {
		if err := validateNoDuplicateKeysRecursive(val); err != nil {
			return fmt.Errorf("in field %q: %w", key, err)
		}
	}
	return nil
}

func validateNoDuplicateKeysRecursive(data json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		seen := make(map[string]string)
		for key := range obj {
			lowerKey := strings.ToLower(key)
			if original, exists := seen[lowerKey]; exists && original != key {
				return fmt.Errorf("duplicate key with different case: %q and %q", original, key)
			}
			seen[lowerKey] = key
		}
		for key, val := range obj {
			if err := validateNoDuplicateKeysRecursive(val); err != nil {
				return fmt.Errorf("in field %q: %w", key, err)
			}
		}
		return nil
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil {
		for i, elem := range arr {
			if err := validateNoDuplicateKeysRecursive(elem); err != nil {
				return fmt.Errorf("in array index %d: %w", i, err)
			}
		}
		return nil
	}
	return nil
}

func validateFieldCase(data []byte, v interface{}) error {
	expectedFields := extractExpectedFields(v)
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	for key := range raw {
		if !expectedFields[key] {
			lowerKey := strings.ToLower(key)
			for expected := range expectedFields {
				if strings.ToLower(expected) == lowerKey {
					return fmt.Errorf("field name case mismatch: got %q, expected %q", key, expected)
				}
			}
		}
	}
	return nil
}

func extractExpectedFields(v interface{}) map[string]bool {
	fields := make(map[string]bool)
	t := reflect.TypeOf(v)
	if t == nil {
		return fields
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fields
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name := tag
		if idx := strings.Index(tag, ","); idx != -1 {
			name = tag[:idx]
		}
		if name != "" {
			fields[name] = true
		}
	}
	return fields
}
