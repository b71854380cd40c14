// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tarpc

// ClientConfig holds client-side resource policy (spec §5, §6).
type ClientConfig struct {
	// MaxInFlightRequests is the hard ceiling on concurrently outstanding
	// requests; once reached, new requests block in the pending queue.
	MaxInFlightRequests int
	// PendingRequestBuffer bounds requests staged but not yet written to
	// the transport.
	PendingRequestBuffer int
}

// DefaultClientConfig returns the reference's default client resource
// policy.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxInFlightRequests:  1024,
		PendingRequestBuffer: 64,
	}
}

// ServerConfig holds server-side resource policy (spec §5, §6).
type ServerConfig struct {
	// MaxInFlightRequestsPerConnection is the hard per-channel ceiling;
	// excess requests are rejected with Overloaded.
	MaxInFlightRequestsPerConnection int
	// PendingResponseBuffer bounds responses staged but not yet written to
	// the transport.
	PendingResponseBuffer int
}

// DefaultServerConfig returns the reference's default server resource
// policy.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		MaxInFlightRequestsPerConnection: 256,
		PendingResponseBuffer:            64,
	}
}
