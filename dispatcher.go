// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tarpc

import (
	"context"
	"io"
	"log/slog"

	"github.com/tarpc-go/tarpc/internal/inflight"
	"github.com/tarpc-go/tarpc/internal/rpcdebug"
)

// Dispatcher is the client-core request dispatcher of spec §4.4: it owns
// the transport and the in-flight table, drains the pending-request and
// cancellation queues, and demultiplexes responses back to callers. It is a
// single task — Run must only be called once, from one goroutine, and all
// of the Dispatcher's own state is touched only from that goroutine (spec
// §5: "no internal locking is required").
type Dispatcher struct {
	transport   Transport[*ClientMessage, *ServerMessage]
	pending     <-chan *dispatchRequest
	cancelQueue <-chan inflight.ID
	table       *inflight.ClientTable[*dispatchRequest]
	cfg         ClientConfig
	done        chan struct{}
	logger      *slog.Logger
}

// SetLogger attaches a structured logger for dispatcher lifecycle events
// (transport errors, termination). A nil logger (the default) disables
// logging.
func (d *Dispatcher) SetLogger(logger *slog.Logger) { d.logger = logger }

func (d *Dispatcher) logf(msg string, args ...any) {
	if d.logger != nil && rpcdebug.Enabled("dispatcher") {
		d.logger.Debug(msg, args...)
	}
}

type readResult struct {
	frame *ServerMessage
	err   error
}

// Run drives the dispatcher until transport end-of-stream, a fatal
// transport error, or ctx cancellation followed by in-flight drain (spec
// §4.4's termination rule). It returns nil on clean termination and a
// non-nil error for a fatal transport failure. Run closes the transport and
// delivers ResponseLost to any requests still in flight before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	stop := make(chan struct{})
	reads := make(chan readResult)
	go d.readLoop(reads, stop)
	defer func() {
		close(stop)
		d.transport.Close()
		close(d.done)
	}()

	draining := false
	readClosed := false

	finish := func(fatal error) error {
		for _, req := range d.table.DrainAll() {
			d.deliver(req, &outcome{err: newError(KindResponseLost, "dispatcher terminated with request in flight", fatal)})
		}
		if fatal != nil {
			d.logf("dispatcher terminating", "error", fatal)
			return fatal
		}
		d.logf("dispatcher terminated cleanly")
		return nil
	}

	for {
		// Once the read goroutine has closed reads, stop selecting on it: a
		// closed channel is always ready and would starve everything below.
		var readsCh <-chan readResult
		if !readClosed {
			readsCh = reads
		}

		// Priority 1: read path (response frames waiting right now).
		select {
		case r, ok := <-readsCh:
			if !ok {
				readClosed = true
			} else if r.err != nil {
				return finish(r.err)
			} else {
				d.handleResponse(r.frame)
			}
			continue
		default:
		}

		// Priority 2: new requests, gated by the in-flight ceiling.
		if !draining && d.table.Len() < d.cfg.MaxInFlightRequests {
			select {
			case req := <-d.pending:
				d.handleNewRequest(ctx, req)
				continue
			default:
			}
		}

		// Priority 3: cancellations.
		select {
		case id := <-d.cancelQueue:
			d.handleCancel(ctx, id)
			continue
		default:
		}

		// Priority 4: deadline wake-ups. Delivery to the caller already
		// happened inside the table's timer callback; draining this
		// channel only lets the termination check below re-run promptly.
		select {
		case <-d.table.Expired():
			continue
		default:
		}

		// Nothing progressed this pass: check termination, else block.
		if readClosed {
			return finish(nil)
		}
		if draining && d.table.IsEmpty() {
			return finish(nil)
		}

		var pendingCh <-chan *dispatchRequest
		if !draining && d.table.Len() < d.cfg.MaxInFlightRequests {
			pendingCh = d.pending
		}

		select {
		case r, ok := <-readsCh:
			if !ok {
				readClosed = true
			} else if r.err != nil {
				return finish(r.err)
			} else {
				d.handleResponse(r.frame)
			}
		case req := <-pendingCh:
			d.handleNewRequest(ctx, req)
		case id := <-d.cancelQueue:
			d.handleCancel(ctx, id)
		case <-d.table.Expired():
		case <-ctx.Done():
			draining = true
		}
	}
}

// readLoop runs on its own goroutine so a blocking Recv never prevents the
// dispatcher's main loop from writing requests, cancellations, or
// processing deadline expiries in the same pass (spec §5's suspension
// points are serviced by the main loop; this goroutine only ever produces
// values for it to consume). It deliberately does not inherit Run's ctx:
// the dispatcher must keep reading responses for in-flight requests even
// after ctx is cancelled and the dispatcher has entered draining mode (spec
// §4.4's "queues closed but in-flight non-empty" intermediate state). It
// stops when Recv reports end of stream or an error from the peer, or when
// Run closes the transport, which unblocks Recv with an error.
func (d *Dispatcher) readLoop(reads chan<- readResult, stop <-chan struct{}) {
	defer close(reads)
	for {
		frame, err := d.transport.Recv(context.Background())
		if err != nil {
			if err != io.EOF {
				select {
				case reads <- readResult{err: err}:
				case <-stop:
				}
			}
			return
		}
		select {
		case reads <- readResult{frame: frame}:
		case <-stop:
			return
		}
	}
}

func (d *Dispatcher) deliver(req *dispatchRequest, o *outcome) {
	select {
	case req.slot <- o:
	default:
		// The slot is buffered to depth 1 and written to at most once per
		// request (spec §4.2's "no further operation has any effect"), so a
		// full buffer here means a second terminal event for the same
		// request, which the in-flight table's remove-once guarantee
		// prevents from happening.
	}
}

// handleResponse implements pump_read (spec §4.4 point 1): an unknown
// request id is dropped silently — the caller already cancelled or timed
// out.
func (d *Dispatcher) handleResponse(msg *ServerMessage) {
	req, ok := d.table.Complete(msg.RequestID)
	if !ok {
		return
	}
	o := &outcome{}
	if msg.Error != nil {
		o.srvErr = msg.Error
	} else {
		o.result = msg.Result
	}
	d.deliver(req, o)
}

// handleNewRequest implements poll_next_request (spec §4.4 point 2). A
// request whose response slot is already closed (the caller dropped it
// between staging and dispatch) is skipped: no in-flight entry is created
// and no Request frame is written (spec §8 scenario 6).
func (d *Dispatcher) handleNewRequest(ctx context.Context, req *dispatchRequest) {
	if req.closed.Load() {
		return
	}
	onExpire := func(r *dispatchRequest) {
		d.deliver(r, &outcome{err: newError(KindDeadlineExceeded, "deadline exceeded before response", nil)})
	}
	if err := d.table.Insert(req.id, req, req.ctx.Deadline, func(*dispatchRequest) { onExpire(req) }); err != nil {
		// Duplicate ids cannot occur given the monotonic counter in
		// Channel.send; surface nothing further.
		return
	}
	wire := WireRequest{ID: req.id, Context: toWireCallContext(req.ctx), Payload: req.payload}
	if err := d.transport.Send(ctx, newRequestMessage(wire)); err != nil {
		// Writing failed: treat as if the entry never reached the transport
		// so the caller isn't left hanging past the deadline.
		if r, ok := d.table.Complete(req.id); ok {
			d.deliver(r, &outcome{err: newError(KindTransport, "write request frame", err)})
		}
	}
}

// handleCancel implements poll_next_cancellation (spec §4.4 point 3): ids
// no longer present in the table (already completed) are dropped silently.
func (d *Dispatcher) handleCancel(ctx context.Context, id inflight.ID) {
	req, ok := d.table.Cancel(id)
	if !ok {
		return
	}
	wire := WireCancel{RequestID: id, TraceContext: toWireTraceContext(req.ctx.TraceContext)}
	_ = d.transport.Send(ctx, newCancelMessage(wire))
}
