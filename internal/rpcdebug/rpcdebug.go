// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package rpcdebug parses the TARPCGODEBUG environment variable, a
// comma-separated list of key=value pairs that gate verbose tracing in the
// dispatcher and server channel without requiring a flags dependency.
package rpcdebug

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

var (
	once   sync.Once
	values map[string]string
	parse  = parseEnv
)

func parseEnv() (map[string]string, error) {
	raw := os.Getenv("TARPCGODEBUG")
	values := make(map[string]string)
	if raw == "" {
		return values, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("rpcdebug: malformed TARPCGODEBUG entry %q, want key=value", pair)
		}
		values[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return values, nil
}

func load() {
	v, err := parse()
	if err != nil {
		panic(err)
	}
	values = v
}

// Value returns the value associated with key in TARPCGODEBUG, or "" if
// unset.
func Value(key string) string {
	once.Do(load)
	return values[key]
}

// Enabled reports whether key is set to "1" in TARPCGODEBUG, the convention
// used for boolean tracing flags (e.g. TARPCGODEBUG=dispatcher=1).
func Enabled(key string) bool {
	return Value(key) == "1"
}
