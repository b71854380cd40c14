// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tarpc

import (
	"context"
	"fmt"
	"sync"
)

// envelope is the generic method-dispatch payload carried inside
// WireRequest.Payload; ServerMessage.Result carries the encoded handler
// result directly, without an envelope. The core's wire frames are
// agnostic to how a method is chosen (spec §6, §9); this project implements
// the "generic dispatch table keyed by method name" option spec §9 names as
// an alternative to compile-time codegen, since a code generator is
// explicitly out of the core's scope (spec §1).
type envelope struct {
	Method string `json:"method"`
	Args   []byte `json:"args"`
}

// Handler invokes one registered method against a raw argument payload and
// returns a raw result payload.
type Handler func(ctx context.Context, args []byte) ([]byte, error)

// ServiceMap is a method-name-keyed dispatch table bound to a Server Channel
// by the Server Request Executor (spec §4.6).
type ServiceMap struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewServiceMap returns an empty dispatch table.
func NewServiceMap() *ServiceMap {
	return &ServiceMap{handlers: make(map[string]Handler)}
}

// Register binds a raw Handler to method, replacing any existing binding.
func (s *ServiceMap) Register(method string, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

func (s *ServiceMap) lookup(method string) (Handler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handlers[method]
	return h, ok
}

// RegisterFunc binds a typed method implementation to method, handling
// argument/result marshaling so service authors never see raw payloads —
// the Go analogue of a generated server stub mapping a request variant to a
// handler invocation (spec §6's service definition contract).
func RegisterFunc[Req, Resp any](s *ServiceMap, method string, fn func(ctx context.Context, req Req) (Resp, error)) {
	s.Register(method, func(ctx context.Context, args []byte) ([]byte, error) {
		var req Req
		if err := decodePayload(args, &req); err != nil {
			return nil, fmt.Errorf("tarpc: decode args for %q: %w", method, err)
		}
		resp, err := fn(ctx, req)
		if err != nil {
			return nil, err
		}
		return encodePayload(resp)
	})
}

// Call issues method with req against ch and decodes the result into Resp —
// the Go analogue of a generated client stub wrapping Client Channel::call
// (spec §6).
func Call[Req, Resp any](ctx context.Context, ch *Channel, method string, req Req) (Resp, error) {
	var resp Resp
	args, err := encodePayload(req)
	if err != nil {
		return resp, fmt.Errorf("tarpc: encode args for %q: %w", method, err)
	}
	env := envelope{Method: method, Args: args}
	payload, err := encodePayload(env)
	if err != nil {
		return resp, fmt.Errorf("tarpc: encode envelope for %q: %w", method, err)
	}
	result, callErr := ch.call(ctx, payload)
	if callErr != nil {
		return resp, callErr
	}
	if err := decodePayload(result, &resp); err != nil {
		return resp, fmt.Errorf("tarpc: decode result for %q: %w", method, err)
	}
	return resp, nil
}

// dispatch resolves and invokes the handler named by an encoded envelope,
// used by the Server Channel for each inbound Request (spec §4.5).
func dispatch(ctx context.Context, services *ServiceMap, payload []byte) ([]byte, error) {
	var env envelope
	if err := decodePayload(payload, &env); err != nil {
		return nil, fmt.Errorf("tarpc: decode envelope: %w", err)
	}
	h, ok := services.lookup(env.Method)
	if !ok {
		return nil, fmt.Errorf("tarpc: no handler registered for method %q", env.Method)
	}
	return h(ctx, env.Args)
}
