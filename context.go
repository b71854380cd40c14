// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tarpc

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// DefaultDeadlineOffset is applied to a CallContext whose caller did not
// supply an explicit deadline.
const DefaultDeadlineOffset = 10 * time.Second

// TraceID is the 128-bit identifier shared by every span in one call chain.
type TraceID [16]byte

// SpanID is the 64-bit identifier of a single call within a trace.
type SpanID uint64

// NewTraceID generates a random trace identifier.
func NewTraceID() TraceID {
	var id TraceID
	if _, err := rand.Read(id[:]); err != nil {
		// crypto/rand.Read on any supported platform does not fail; panicking
		// here would be unreachable in practice, so fall back to a
		// time-derived value rather than propagating an error from a
		// constructor that has none to give.
		binary.BigEndian.PutUint64(id[:8], uint64(time.Now().UnixNano()))
	}
	return id
}

// NewSpanID generates a random span identifier.
func NewSpanID() SpanID {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return SpanID(time.Now().UnixNano())
	}
	return SpanID(binary.BigEndian.Uint64(buf[:]))
}

// TraceContext is the distributed-trace metadata carried on every Request
// and Cancel frame (spec §3).
type TraceContext struct {
	TraceID  TraceID
	SpanID   SpanID
	ParentID *SpanID
}

// NewTraceContext starts a fresh trace with a root span (no parent).
func NewTraceContext() TraceContext {
	return TraceContext{TraceID: NewTraceID(), SpanID: NewSpanID()}
}

// derive produces the child trace context for a new outbound call: the
// current span becomes the parent and a fresh span id is generated. trace_id
// is preserved across the whole call chain (spec §3).
func (tc TraceContext) derive() TraceContext {
	parent := tc.SpanID
	return TraceContext{
		TraceID:  tc.TraceID,
		SpanID:   NewSpanID(),
		ParentID: &parent,
	}
}

// CallContext is the per-call envelope of deadline and trace metadata (spec
// §3).
type CallContext struct {
	Deadline     time.Time
	TraceContext TraceContext
}

// newCallContext builds a CallContext for an outbound call. If ctx carries a
// deadline, it is honored verbatim; otherwise the default offset applies.
// The trace context is derived from parent, or rooted fresh if parent is the
// zero value.
func newCallContext(ctx context.Context, parent TraceContext) CallContext {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultDeadlineOffset)
	}
	if parent.TraceID == (TraceID{}) {
		parent = NewTraceContext()
		return CallContext{Deadline: deadline, TraceContext: parent}
	}
	return CallContext{Deadline: deadline, TraceContext: parent.derive()}
}
