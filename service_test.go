// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tarpc

import (
	"context"
	"testing"
)

type addArgs struct {
	A int `json:"a"`
	B int `json:"b"`
}

type addResult struct {
	Sum int `json:"sum"`
}

func TestServiceMapDispatch(t *testing.T) {
	m := NewServiceMap()
	RegisterFunc(m, "add", func(_ context.Context, req addArgs) (addResult, error) {
		return addResult{Sum: req.A + req.B}, nil
	})

	args, err := encodePayload(addArgs{A: 2, B: 3})
	if err != nil {
		t.Fatal(err)
	}
	env, err := encodePayload(envelope{Method: "add", Args: args})
	if err != nil {
		t.Fatal(err)
	}

	out, err := dispatch(context.Background(), m, env)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	var res addResult
	if err := decodePayload(out, &res); err != nil {
		t.Fatal(err)
	}
	if res.Sum != 5 {
		t.Fatalf("Sum = %d, want 5", res.Sum)
	}
}

func TestServiceMapDispatchUnknownMethod(t *testing.T) {
	m := NewServiceMap()
	env, err := encodePayload(envelope{Method: "missing", Args: []byte("{}")})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dispatch(context.Background(), m, env); err == nil {
		t.Fatal("dispatch of an unregistered method returned nil error")
	}
}

func TestRegisterFuncOverwrites(t *testing.T) {
	m := NewServiceMap()
	RegisterFunc(m, "add", func(_ context.Context, req addArgs) (addResult, error) {
		return addResult{Sum: req.A + req.B}, nil
	})
	RegisterFunc(m, "add", func(_ context.Context, req addArgs) (addResult, error) {
		return addResult{Sum: req.A * req.B}, nil
	})

	args, _ := encodePayload(addArgs{A: 2, B: 3})
	env, _ := encodePayload(envelope{Method: "add", Args: args})
	out, err := dispatch(context.Background(), m, env)
	if err != nil {
		t.Fatal(err)
	}
	var res addResult
	_ = decodePayload(out, &res)
	if res.Sum != 6 {
		t.Fatalf("second Register did not replace the handler: Sum = %d, want 6", res.Sum)
	}
}
