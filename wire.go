// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tarpc

import (
	"encoding/hex"
	"time"

	"github.com/tarpc-go/tarpc/internal/inflight"
)

// RequestID correlates a Request frame with its Response (spec §3). It is
// an alias of inflight.ID so the dispatcher and server channel can pass
// ids between the wire frames and the in-flight tables without conversion.
type RequestID = inflight.ID

// WireTraceContext is the over-the-wire shape of TraceContext: trace_id
// serializes as hex text (128 bits don't fit a JSON number), span and parent
// ids as plain integers (spec §6).
type WireTraceContext struct {
	TraceID  string  `json:"traceId"`
	SpanID   uint64  `json:"spanId"`
	ParentID *uint64 `json:"parentId,omitempty"`
}

func toWireTraceContext(tc TraceContext) WireTraceContext {
	var parent *uint64
	if tc.ParentID != nil {
		p := uint64(*tc.ParentID)
		parent = &p
	}
	return WireTraceContext{
		TraceID:  hex.EncodeToString(tc.TraceID[:]),
		SpanID:   uint64(tc.SpanID),
		ParentID: parent,
	}
}

func (w WireTraceContext) toTraceContext() TraceContext {
	tc := TraceContext{SpanID: SpanID(w.SpanID)}
	if b, err := hex.DecodeString(w.TraceID); err == nil && len(b) == 16 {
		copy(tc.TraceID[:], b)
	}
	if w.ParentID != nil {
		p := SpanID(*w.ParentID)
		tc.ParentID = &p
	}
	return tc
}

// WireCallContext is the over-the-wire shape of CallContext (spec §6).
type WireCallContext struct {
	Deadline     time.Time        `json:"deadline"`
	TraceContext WireTraceContext `json:"traceContext"`
}

func toWireCallContext(cc CallContext) WireCallContext {
	return WireCallContext{Deadline: cc.Deadline, TraceContext: toWireTraceContext(cc.TraceContext)}
}

func (w WireCallContext) toCallContext() CallContext {
	return CallContext{Deadline: w.Deadline, TraceContext: w.TraceContext.toTraceContext()}
}

// WireRequest is the `Request` variant of ClientMessage (spec §3, §6). The
// Payload is opaque to the core — it is the service-specific envelope
// produced by service.go.
type WireRequest struct {
	ID      RequestID       `json:"id"`
	Context WireCallContext `json:"context"`
	Payload []byte          `json:"payload"`
}

// WireCancel is the `Cancel` variant of ClientMessage (spec §3, §6).
type WireCancel struct {
	RequestID    RequestID        `json:"requestId"`
	TraceContext WireTraceContext `json:"traceContext"`
}

// ClientMessage is the tagged union sent client to server (spec §3).
// Exactly one of Request or Cancel is non-nil, selected by Type.
type ClientMessage struct {
	Type    string       `json:"type"`
	Request *WireRequest `json:"request,omitempty"`
	Cancel  *WireCancel  `json:"cancel,omitempty"`
}

const (
	clientMessageRequest = "request"
	clientMessageCancel  = "cancel"
)

func newRequestMessage(r WireRequest) *ClientMessage {
	return &ClientMessage{Type: clientMessageRequest, Request: &r}
}

func newCancelMessage(c WireCancel) *ClientMessage {
	return &ClientMessage{Type: clientMessageCancel, Cancel: &c}
}

// WireError is the coarse error surfaced in a Response (spec §3, §7).
type WireError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message,omitempty"`
}

// ServerMessage is the `Response` frame sent server to client (spec §3).
// Exactly one of Result or Error is non-nil.
type ServerMessage struct {
	RequestID RequestID  `json:"requestId"`
	Result    []byte     `json:"result,omitempty"`
	Error     *WireError `json:"error,omitempty"`
}
