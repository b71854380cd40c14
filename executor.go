// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tarpc

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/tarpc-go/tarpc/internal/rpcdebug"
)

// Executor binds a stream of accepted Server Channels to a ServiceMap (spec
// §4.6): a thin composition layer over ServerChannel that encapsulates the
// common "accept → per-channel concurrency cap → dispatch" pattern. The
// per-channel cap itself lives in ServerConfig and is enforced by each
// ServerChannel; Executor additionally owns the optional rate at which new
// channels are admitted in the first place.
type Executor struct {
	services *ServiceMap
	cfg      ServerConfig
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewExecutor returns an Executor dispatching accepted channels to services
// under cfg's per-channel resource policy.
func NewExecutor(services *ServiceMap, cfg ServerConfig) *Executor {
	return &Executor{services: services, cfg: cfg}
}

// SetAcceptLimiter throttles the rate at which Serve admits newly accepted
// channels — a process-wide concern distinct from the per-channel in-flight
// ceiling of spec §4.5, and the home SPEC_FULL.md gives to
// golang.org/x/time/rate in this runtime. A nil limiter (the default)
// disables throttling.
func (e *Executor) SetAcceptLimiter(limiter *rate.Limiter) { e.limiter = limiter }

// SetLogger attaches a structured logger for accept and channel-lifecycle
// events.
func (e *Executor) SetLogger(logger *slog.Logger) { e.logger = logger }

func (e *Executor) logf(msg string, args ...any) {
	if e.logger != nil && rpcdebug.Enabled("executor") {
		e.logger.Debug(msg, args...)
	}
}

// logAccepted records a newly accepted channel at Info level for a
// non-loopback peer and at Debug level for a loopback one, unconditionally
// (not gated by rpcdebug.Enabled): an accept from outside the host is worth
// an operator's attention by default, while a loopback accept — typically a
// test harness or a colocated sidecar — is routine.
func (e *Executor) logAccepted(t Transport[*ServerMessage, *ClientMessage]) {
	if e.logger == nil {
		return
	}
	level := slog.LevelDebug
	if !IsLoopbackPeer(t) {
		level = slog.LevelInfo
	}
	e.logger.Log(context.Background(), level, "channel accepted", "remote", t.RemoteAddr())
}

// Serve accepts channels from incoming until ctx is done or incoming
// returns a fatal error, spawning one goroutine per channel running
// ServerChannel.Serve to completion. It returns nil on ctx cancellation and
// any other error verbatim.
func (e *Executor) Serve(ctx context.Context, incoming Incoming) error {
	for {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}

		transport, err := incoming.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		ch := NewServerChannel(transport, e.services, e.cfg)
		ch.SetLogger(e.logger)
		e.logAccepted(transport)
		go func() {
			if err := ch.Serve(ctx); err != nil {
				e.logf("channel terminated", "remote", transport.RemoteAddr(), "error", err)
			}
		}()
	}
}
