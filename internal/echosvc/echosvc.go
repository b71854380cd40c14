// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package echosvc implements the add/hey service used throughout the
// original tarpc test suite (original_source/tarpc/tests/service_functional.rs'
// Service trait), plus a slow method and an idle method used to exercise the
// deadline-expiry and handler-cancellation scenarios of spec §8.
package echosvc

import (
	"context"
	"time"

	"github.com/tarpc-go/tarpc"
)

// AddArgs is the argument pair for Add.
type AddArgs struct {
	A int `json:"a"`
	B int `json:"b"`
}

// AddResult is Add's return value.
type AddResult struct {
	Sum int `json:"sum"`
}

// HeyArgs is Hey's argument.
type HeyArgs struct {
	Name string `json:"name"`
}

// HeyResult is Hey's return value.
type HeyResult struct {
	Greeting string `json:"greeting"`
}

// SlowArgs parameterizes Slow's artificial delay.
type SlowArgs struct {
	SleepMillis int `json:"sleepMillis"`
}

// SlowResult is Slow's (empty) return value.
type SlowResult struct{}

// IdleArgs is Idle's (empty) argument.
type IdleArgs struct{}

// IdleResult is Idle's (empty) return value.
type IdleResult struct{}

// Service implements the methods exercised by the concrete scenarios of
// spec §8.
type Service struct {
	// IdleStarted, if non-nil, is closed the instant an Idle call begins
	// running, so a test can synchronize before dropping the caller's
	// response handle or tearing down the server channel.
	IdleStarted chan struct{}
	// IdleAborted, if non-nil, is closed when an Idle call observes ctx.Done
	// and returns — the Go analogue of tarpc's AbortHandle firing on Drop.
	IdleAborted chan struct{}
}

// Add returns A+B, grounded on original_source/tarpc/tests/service_functional.rs's
// `add(i32, i32) -> i32`.
func (s *Service) Add(_ context.Context, req AddArgs) (AddResult, error) {
	return AddResult{Sum: req.A + req.B}, nil
}

// Hey returns a greeting, grounded on the same source's `hey(String) ->
// String`.
func (s *Service) Hey(_ context.Context, req HeyArgs) (HeyResult, error) {
	return HeyResult{Greeting: "Hey, " + req.Name + "."}, nil
}

// Slow sleeps for SleepMillis, or returns early if ctx is done first — used
// by spec §8 scenario 5 (deadline expiry fires before the sleep completes).
func (s *Service) Slow(ctx context.Context, req SlowArgs) (SlowResult, error) {
	t := time.NewTimer(time.Duration(req.SleepMillis) * time.Millisecond)
	defer t.Stop()
	select {
	case <-t.C:
		return SlowResult{}, nil
	case <-ctx.Done():
		return SlowResult{}, ctx.Err()
	}
}

// Idle blocks until ctx is done, used by spec §8 scenarios 3 and 4 (dropped
// response handle / dropped server channel must abort the handler).
func (s *Service) Idle(ctx context.Context, _ IdleArgs) (IdleResult, error) {
	if s.IdleStarted != nil {
		close(s.IdleStarted)
	}
	<-ctx.Done()
	if s.IdleAborted != nil {
		close(s.IdleAborted)
	}
	return IdleResult{}, ctx.Err()
}

// Register binds svc's methods onto m under the method names the Client
// stub below calls — the Go analogue of a generated server stub mapping a
// request variant to a handler invocation (spec §6).
func Register(m *tarpc.ServiceMap, svc *Service) {
	tarpc.RegisterFunc(m, "add", svc.Add)
	tarpc.RegisterFunc(m, "hey", svc.Hey)
	tarpc.RegisterFunc(m, "slow", svc.Slow)
	tarpc.RegisterFunc(m, "idle", svc.Idle)
}

// Client wraps a Channel with typed stubs — the Go analogue of a generated
// client stub wrapping Client Channel::call (spec §6).
type Client struct {
	Ch *tarpc.Channel
}

// Add calls the add method.
func (c Client) Add(ctx context.Context, a, b int) (int, error) {
	res, err := tarpc.Call[AddArgs, AddResult](ctx, c.Ch, "add", AddArgs{A: a, B: b})
	return res.Sum, err
}

// Hey calls the hey method.
func (c Client) Hey(ctx context.Context, name string) (string, error) {
	res, err := tarpc.Call[HeyArgs, HeyResult](ctx, c.Ch, "hey", HeyArgs{Name: name})
	return res.Greeting, err
}

// Slow calls the slow method.
func (c Client) Slow(ctx context.Context, sleepMillis int) error {
	_, err := tarpc.Call[SlowArgs, SlowResult](ctx, c.Ch, "slow", SlowArgs{SleepMillis: sleepMillis})
	return err
}

// Idle calls the idle method.
func (c Client) Idle(ctx context.Context) error {
	_, err := tarpc.Call[IdleArgs, IdleResult](ctx, c.Ch, "idle", IdleArgs{})
	return err
}
