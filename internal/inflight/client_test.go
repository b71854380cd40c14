// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package inflight

import (
	"testing"
	"time"
)

func TestClientTableInsertDuplicate(t *testing.T) {
	table := NewClientTable[int](4)
	if err := table.Insert(1, 10, time.Now().Add(time.Minute), func(int) {}); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	if err := table.Insert(1, 20, time.Now().Add(time.Minute), func(int) {}); err != ErrDuplicateID {
		t.Fatalf("second Insert = %v, want ErrDuplicateID", err)
	}
}

func TestClientTableComplete(t *testing.T) {
	table := NewClientTable[string](4)
	if err := table.Insert(1, "ctx", time.Now().Add(time.Minute), func(string) {}); err != nil {
		t.Fatal(err)
	}
	ctx, ok := table.Complete(1)
	if !ok || ctx != "ctx" {
		t.Fatalf("Complete(1) = (%v, %v), want (ctx, true)", ctx, ok)
	}
	if _, ok := table.Complete(1); ok {
		t.Fatal("second Complete(1) reported present, want no further effect")
	}
	if !table.IsEmpty() {
		t.Fatal("table not empty after Complete")
	}
}

func TestClientTableCancelUnknownID(t *testing.T) {
	table := NewClientTable[int](4)
	if _, ok := table.Cancel(99); ok {
		t.Fatal("Cancel of unknown id reported present")
	}
}

func TestClientTableExpiry(t *testing.T) {
	table := NewClientTable[int](4)
	expiredCh := make(chan int, 1)
	if err := table.Insert(1, 7, time.Now().Add(10*time.Millisecond), func(ctx int) {
		expiredCh <- ctx
	}); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-expiredCh:
		if got != 7 {
			t.Fatalf("onExpire context = %d, want 7", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for deadline expiry")
	}

	select {
	case exp := <-table.Expired():
		if exp.ID != 1 || exp.Context != 7 {
			t.Fatalf("Expired() = %+v, want {ID:1 Context:7}", exp)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Expired() notification")
	}

	if !table.IsEmpty() {
		t.Fatal("table not empty after expiry")
	}
	// Completing after expiry must have no effect (spec §4.2 invariant).
	if _, ok := table.Complete(1); ok {
		t.Fatal("Complete after expiry reported present")
	}
}
