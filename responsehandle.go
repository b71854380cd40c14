// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tarpc

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tarpc-go/tarpc/internal/inflight"
)

// outcome is the single value ever written to a dispatchRequest's slot: a
// successful result, a transparent server error, or a local error of kind
// ResponseLost, DeadlineExceeded, or Transport. Disconnected is returned by
// Channel.send and Cancelled by Wait, never through the slot.
type outcome struct {
	result []byte
	srvErr *WireError
	err    error
}

// dispatchRequest is one staged call, from the moment the Client Channel
// accepts it until it is resolved (spec §3's response-handle lifecycle).
type dispatchRequest struct {
	id      inflight.ID
	ctx     CallContext
	payload []byte
	slot    chan *outcome
	closed  atomic.Bool
}

// ResponseHandle is the caller-visible awaitable returned by Channel's
// staging path (spec §4.3, §9, GLOSSARY's "Response Handle"). Go has no
// destructors, so where tarpc relies on Drop to trigger cancellation this
// type exposes Cancel explicitly; Wait calls it automatically if the
// caller's context is done before a result arrives.
type ResponseHandle struct {
	channel *Channel
	req     *dispatchRequest
	once    sync.Once
}

// Wait blocks until the call resolves, the handle is cancelled, or ctx is
// done. If ctx is done first, the handle is cancelled on the caller's
// behalf before returning, mirroring the "drop the response handle"
// semantics of spec §5's caller-initiated cancellation.
func (h *ResponseHandle) Wait(ctx context.Context) ([]byte, error) {
	select {
	case o := <-h.req.slot:
		if o.err != nil {
			return nil, o.err
		}
		if o.srvErr != nil {
			return nil, &ServerError{Kind: o.srvErr.Kind, Message: o.srvErr.Message}
		}
		return o.result, nil
	case <-ctx.Done():
		h.Cancel()
		return nil, newError(KindCancelled, "caller context done before response", ctx.Err())
	}
}

// Cancel closes the response slot — so the dispatcher can detect a
// stale-on-arrival request — and then enqueues the request id onto the
// cancel queue, in that order, exactly the ordering spec §4.3 requires to
// close the "Cancel frame races ahead of Request frame" race. Calling
// Cancel more than once, or after the call has already resolved, is a no-op.
func (h *ResponseHandle) Cancel() {
	h.once.Do(func() {
		h.req.closed.Store(true)
		select {
		case h.channel.cancelQueue <- h.req.id:
		default:
			// The cancel queue is sized to max_in_flight_requests (spec
			// §9). If it is full — for instance once the dispatcher has
			// terminated and no longer drains it — the id is dropped and
			// no Cancel frame is sent for it.
		}
	})
}
