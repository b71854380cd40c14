// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tarpc

import "fmt"

// Kind is the stable error taxonomy of spec §7.
type Kind string

const (
	// KindTransport marks an I/O failure on read or write; fatal to the
	// dispatcher or server channel that observed it.
	KindTransport Kind = "transport"
	// KindDisconnected marks a pending-queue send that failed because the
	// dispatcher is gone.
	KindDisconnected Kind = "disconnected"
	// KindDeadlineExceeded marks a local deadline timer firing before a
	// response arrived.
	KindDeadlineExceeded Kind = "deadline_exceeded"
	// KindCancelled marks a caller dropping its response handle.
	KindCancelled Kind = "cancelled"
	// KindResponseLost marks a dispatcher that died while holding the
	// in-flight entry for a call.
	KindResponseLost Kind = "response_lost"
	// KindOverloaded marks a server channel refusing a request due to
	// capacity.
	KindOverloaded Kind = "overloaded"
	// KindApplication marks a handler returning an application-level error.
	KindApplication Kind = "application"
)

// Error is the error type surfaced to RPC callers (spec §7). It wraps an
// optional underlying cause and is comparable by Kind via errors.Is.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, tarpc.ErrDeadlineExceeded) style checks against the
// sentinels below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel errors for errors.Is comparisons. Each carries only a Kind; wrap
// with additional context via newError when surfacing a concrete failure.
var (
	ErrDisconnected     = &Error{Kind: KindDisconnected}
	ErrDeadlineExceeded = &Error{Kind: KindDeadlineExceeded}
	ErrCancelled        = &Error{Kind: KindCancelled}
	ErrResponseLost     = &Error{Kind: KindResponseLost}
	ErrOverloaded       = &Error{Kind: KindOverloaded}
)

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// ServerError is the application/server-originated error surfaced
// transparently to the caller (spec §3's ServerError, §7's Application and
// Overloaded kinds).
type ServerError struct {
	Kind    Kind
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: %s", e.Kind)
	}
	return fmt.Sprintf("server error: %s: %s", e.Kind, e.Message)
}
