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

// Channel is the caller-facing handle for issuing RPCs over one transport
// (spec §4.3, GLOSSARY). It is cheap to Clone: clones share the pending
// queue, the cancel queue, and the request-id counter, and may be used
// concurrently from many goroutines — only the two queues cross the
// goroutine boundary, and both are safe for concurrent sends by
// construction (spec §5).
type Channel struct {
	pending        chan<- *dispatchRequest
	cancelQueue    chan<- inflight.ID
	nextID         *atomic.Uint64
	dispatcherDone <-chan struct{}

	mu           sync.Mutex
	currentTrace TraceContext
}

// NewClient wires a Transport to a fresh Dispatcher and returns the caller
// handle plus the dispatcher to be run (spec §2's client-side data flow).
// The caller is expected to run `go dispatcher.Run(ctx)` (or drive it
// inline) for the Channel to make any progress.
func NewClient(transport Transport[*ClientMessage, *ServerMessage], cfg ClientConfig) (*Channel, *Dispatcher) {
	pending := make(chan *dispatchRequest, cfg.PendingRequestBuffer)
	cancelQueue := make(chan inflight.ID, cfg.MaxInFlightRequests)
	done := make(chan struct{})

	d := &Dispatcher{
		transport:   transport,
		pending:     pending,
		cancelQueue: cancelQueue,
		table:       inflight.NewClientTable[*dispatchRequest](cfg.MaxInFlightRequests),
		cfg:         cfg,
		done:        done,
	}
	ch := &Channel{
		pending:        pending,
		cancelQueue:    cancelQueue,
		nextID:         new(atomic.Uint64),
		dispatcherDone: done,
	}
	return ch, d
}

// Clone returns a handle sharing this Channel's queues and id counter (spec
// §4.3). The clone starts from a copy of this Channel's current trace span;
// later calls on either handle extend their own span chains independently.
func (c *Channel) Clone() *Channel {
	return &Channel{
		pending:        c.pending,
		cancelQueue:    c.cancelQueue,
		nextID:         c.nextID,
		dispatcherDone: c.dispatcherDone,
		currentTrace:   c.currentTrace,
	}
}

// nextCallContext derives the CallContext for one outbound call: the
// deadline from ctx (or the default offset), and a trace span chained off
// the previous call issued through this handle (spec §3).
func (c *Channel) nextCallContext(ctx context.Context) CallContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	cc := newCallContext(ctx, c.currentTrace)
	c.currentTrace = cc.TraceContext
	return cc
}

// send stages payload onto the dispatcher's pending queue and returns a
// ResponseHandle the caller can Wait on (spec §4.3's internal send path).
func (c *Channel) send(ctx context.Context, payload []byte) (*ResponseHandle, error) {
	req := &dispatchRequest{
		ctx:     c.nextCallContext(ctx),
		payload: payload,
		slot:    make(chan *outcome, 1),
	}
	req.id = inflight.ID(c.nextID.Add(1) - 1)

	select {
	case c.pending <- req:
		return &ResponseHandle{channel: c, req: req}, nil
	case <-c.dispatcherDone:
		return nil, ErrDisconnected
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// call is the synchronous end-to-end path used by the generic Call helper
// in service.go: stage the request, then wait for it to resolve.
func (c *Channel) call(ctx context.Context, payload []byte) ([]byte, error) {
	h, err := c.send(ctx, payload)
	if err != nil {
		return nil, err
	}
	return h.Wait(ctx)
}
