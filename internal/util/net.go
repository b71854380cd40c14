// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package util holds small address helpers shared across the transport and
// executor layers.
package util

import (
	"net"
	"net/netip"
	"strings"
)

// IsLoopback reports whether addr (a host, or host:port, as returned by
// Transport.RemoteAddr) names the local machine. Executor uses it to decide
// how loudly to log an accepted channel: the core has no authentication of
// its own, so a non-loopback peer is worth an operator's attention by
// default.
func IsLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		// If SplitHostPort fails, it might be just a host without a port.
		host = strings.Trim(addr, "[]")
	}
	if host == "localhost" {
		return true
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return ip.IsLoopback()
}
