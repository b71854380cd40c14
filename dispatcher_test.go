// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tarpc

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"
)

// fakeTransport is a minimal client-side Transport that records every sent
// ClientMessage and never produces a response unless one is pushed onto
// recv — used to observe the dispatcher's write-path decisions in
// isolation from any real peer (spec §8's wire-level assertions).
type fakeTransport struct {
	mu     sync.Mutex
	sent   []*ClientMessage
	recv   chan *ServerMessage
	closed chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{recv: make(chan *ServerMessage), closed: make(chan struct{})}
}

func (f *fakeTransport) Send(_ context.Context, frame *ClientMessage) error {
	f.mu.Lock()
	f.sent = append(f.sent, frame)
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Recv(ctx context.Context) (*ServerMessage, error) {
	select {
	case m := <-f.recv:
		return m, nil
	case <-f.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeTransport) Close() error {
	select {
	case <-f.closed:
	default:
		close(f.closed)
	}
	return nil
}

func (f *fakeTransport) LocalAddr() string  { return "" }
func (f *fakeTransport) RemoteAddr() string { return "" }

func (f *fakeTransport) sentFrames() []*ClientMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*ClientMessage(nil), f.sent...)
}

// TestCancelBeforeDispatch is spec §8 scenario 6: a staged request whose
// response handle is cancelled before the dispatcher ever dequeues it from
// the pending queue must leave no in-flight entry and write neither a
// Request nor a Cancel frame to the wire.
func TestCancelBeforeDispatch(t *testing.T) {
	transport := newFakeTransport()
	ch, d := NewClient(transport, DefaultClientConfig())

	h, err := ch.send(context.Background(), []byte(`{}`))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	h.Cancel()

	runCtx, cancelRun := context.WithCancel(context.Background())
	runDone := make(chan error, 1)
	go func() { runDone <- d.Run(runCtx) }()

	deadline := time.After(time.Second)
	for len(d.pending) != 0 || len(d.cancelQueue) != 0 {
		select {
		case <-deadline:
			t.Fatal("dispatcher never drained the pending/cancel queues")
		case <-time.After(time.Millisecond):
		}
	}
	// Give handleNewRequest/handleCancel's main-loop iteration a moment to
	// actually run past the drained queues before asserting on its effects.
	time.Sleep(10 * time.Millisecond)

	if !d.table.IsEmpty() {
		t.Fatal("an in-flight entry was created for a pre-cancelled request")
	}
	if frames := transport.sentFrames(); len(frames) != 0 {
		t.Fatalf("sent frames = %v, want none (neither Request nor Cancel)", frames)
	}

	cancelRun()
	<-runDone
}

// TestDeadlineExceeded is spec §8 scenario 5: a call with a 50ms deadline
// against a handler that sleeps far longer resolves with DeadlineExceeded
// at roughly the deadline, not the handler's sleep duration.
func TestDeadlineExceeded(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	clientTransport := NewConnTransport[*ClientMessage, *ServerMessage](clientConn, 0)
	serverTransport := NewConnTransport[*ServerMessage, *ClientMessage](serverConn, 0)
	defer clientTransport.Close()
	defer serverTransport.Close()

	ch, d := NewClient(clientTransport, DefaultClientConfig())
	go d.Run(context.Background())

	services := NewServiceMap()
	RegisterFunc(services, "slow", func(ctx context.Context, _ struct{}) (struct{}, error) {
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return struct{}{}, nil
	})
	sc := NewServerChannel(serverTransport, services, DefaultServerConfig())
	go sc.Serve(context.Background())

	env, err := encodePayload(envelope{Method: "slow", Args: []byte("{}")})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	h, err := ch.send(ctx, env)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	start := time.Now()
	// Wait on a context with no deadline of its own so only the
	// dispatcher's deadline-expiry path (not Wait's own ctx.Done shortcut)
	// can resolve this call.
	_, waitErr := h.Wait(context.Background())
	elapsed := time.Since(start)

	if !errors.Is(waitErr, ErrDeadlineExceeded) {
		t.Fatalf("Wait error = %v, want DeadlineExceeded", waitErr)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("resolved too slowly: %v (handler sleeps 5s)", elapsed)
	}
}

// TestHandleResponseUnknownIDDropped covers spec §4.4 point 1: a response
// for an id the dispatcher no longer tracks (already cancelled or timed
// out) is dropped silently rather than panicking or blocking.
func TestHandleResponseUnknownIDDropped(t *testing.T) {
	transport := newFakeTransport()
	_, d := NewClient(transport, DefaultClientConfig())
	d.handleResponse(&ServerMessage{RequestID: 999, Result: []byte("{}")})
	if !d.table.IsEmpty() {
		t.Fatal("handling a response for an unknown id mutated the table")
	}
}
