// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tarpc

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/tarpc-go/tarpc/internal/inflight"
	"github.com/tarpc-go/tarpc/internal/rpcdebug"
)

// ServerChannel is the symmetric server-side counterpart to Dispatcher (spec
// §4.5): it reads Request/Cancel frames off its transport, enforces the
// per-channel concurrency ceiling, dispatches one handler goroutine per
// accepted request, honors inbound Cancel frames by firing the matching
// handler's abort handle, and writes Response frames — in any order
// relative to request arrival, correlated strictly by request id.
type ServerChannel struct {
	transport Transport[*ServerMessage, *ClientMessage]
	services  *ServiceMap
	cfg       ServerConfig
	table     *inflight.ServerTable
	logger    *slog.Logger

	wg        sync.WaitGroup
	responses chan *ServerMessage
	shutdown  chan struct{}
}

// NewServerChannel binds transport to services with the given resource
// policy (spec §4.5, §4.6).
func NewServerChannel(transport Transport[*ServerMessage, *ClientMessage], services *ServiceMap, cfg ServerConfig) *ServerChannel {
	buf := cfg.PendingResponseBuffer
	if buf < 1 {
		buf = 1
	}
	return &ServerChannel{
		transport: transport,
		services:  services,
		cfg:       cfg,
		table:     inflight.NewServerTable(),
		responses: make(chan *ServerMessage, buf),
		shutdown:  make(chan struct{}),
	}
}

// SetLogger attaches a structured logger for overload rejections and
// transport errors. A nil logger (the default) disables logging.
func (c *ServerChannel) SetLogger(logger *slog.Logger) { c.logger = logger }

func (c *ServerChannel) logf(msg string, args ...any) {
	if c.logger != nil && rpcdebug.Enabled("server") {
		c.logger.Debug(msg, args...)
	}
}

// Serve drives the channel until the transport reaches end-of-stream,
// returns a fatal error, or ctx is done. On return every in-flight handler
// has either completed or observed cancellation (spec §4.5's shutdown
// propagation: "all abort handles fire").
func (c *ServerChannel) Serve(ctx context.Context) error {
	writerDone := make(chan struct{})
	go c.runWriter(ctx, writerDone)

	var retErr error
readLoop:
	for {
		msg, err := c.transport.Recv(ctx)
		if err != nil {
			if err != io.EOF {
				retErr = newError(KindTransport, "read frame", err)
				c.logf("server channel transport error", "error", err)
			}
			break readLoop
		}
		switch msg.Type {
		case clientMessageRequest:
			if msg.Request != nil {
				c.handleRequest(ctx, *msg.Request)
			}
		case clientMessageCancel:
			if msg.Cancel != nil {
				c.table.Cancel(msg.Cancel.RequestID)
			}
		}
	}

	// Shutdown propagation (spec §4.5's "on dispatcher drop" and "on
	// transport EOF" paths converge here): stop accepting new response
	// writes, then abort every in-flight handler — AbortAll itself blocks
	// until each one has actually returned. c.wg.Wait additionally covers a
	// handler that raced handleRequest's table.Insert and wg.Add against
	// this shutdown, so the response queue is never closed while any
	// handler goroutine could still be sending on it.
	close(c.shutdown)
	c.table.AbortAll()
	c.wg.Wait()
	close(c.responses)
	<-writerDone
	c.transport.Close()
	return retErr
}

func (c *ServerChannel) runWriter(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	for msg := range c.responses {
		if err := c.transport.Send(ctx, msg); err != nil {
			c.logf("server channel write error", "error", err)
			return
		}
	}
}

// sendResponse stages msg for the writer goroutine, best-effort: if the
// channel is already shutting down the message is dropped rather than
// blocking forever (spec §4.5's "flush outstanding responses best-effort").
func (c *ServerChannel) sendResponse(msg *ServerMessage) {
	select {
	case c.responses <- msg:
	case <-c.shutdown:
	}
}

// handleRequest implements the Request branch of spec §4.5: reject with
// Overloaded at the per-channel ceiling, else spawn a handler goroutine
// bound by the request's deadline and tracked in the in-flight table so a
// Cancel frame or channel shutdown can abort it.
func (c *ServerChannel) handleRequest(parent context.Context, wr WireRequest) {
	if c.table.Len() >= c.cfg.MaxInFlightRequestsPerConnection {
		c.logf("server channel overloaded, rejecting request", "id", wr.ID)
		c.sendResponse(&ServerMessage{
			RequestID: wr.ID,
			Error:     &WireError{Kind: KindOverloaded, Message: "per-channel in-flight ceiling reached"},
		})
		return
	}

	hctx, cancel := context.WithDeadline(parent, wr.Context.Deadline)
	done := make(chan struct{})
	if !c.table.Insert(wr.ID, inflight.ServerEntry{Cancel: cancel, Done: done}) {
		// Duplicate id on one channel is a protocol violation by the peer;
		// nothing meaningful to recover, so the spurious request is dropped.
		cancel()
		close(done)
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		defer close(done)

		result, err := dispatch(hctx, c.services, wr.Payload)
		c.table.Remove(wr.ID)

		if hctx.Err() != nil {
			// Either the client cancelled (table.Cancel already fired this
			// same cancel func) or the deadline elapsed locally; either way
			// spec §4.5/§8 scenario 5 requires no response frame.
			return
		}
		msg := &ServerMessage{RequestID: wr.ID}
		if err != nil {
			msg.Error = &WireError{Kind: KindApplication, Message: err.Error()}
		} else {
			msg.Result = result
		}
		c.sendResponse(msg)
	}()
}
