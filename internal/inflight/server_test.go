// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package inflight

import (
	"context"
	"testing"
)

func TestServerTableCancel(t *testing.T) {
	table := NewServerTable()
	_, cancel := context.WithCancel(context.Background())
	canceled := false
	done := make(chan struct{})
	ok := table.Insert(1, ServerEntry{
		Cancel: func() { canceled = true; cancel() },
		Done:   done,
	})
	if !ok {
		t.Fatal("Insert reported duplicate on first insert")
	}
	if table.Insert(1, ServerEntry{Cancel: func() {}, Done: done}) {
		t.Fatal("Insert reported success for duplicate id")
	}
	if !table.Cancel(1) {
		t.Fatal("Cancel(1) reported absent")
	}
	if !canceled {
		t.Fatal("Cancel(1) did not invoke the abort handle")
	}
	if table.Cancel(1) {
		t.Fatal("second Cancel(1) reported present")
	}
}

func TestServerTableAbortAll(t *testing.T) {
	table := NewServerTable()
	var aborted int
	for id := ID(1); id <= 3; id++ {
		// Each fake handler "returns" as soon as it is aborted, closing Done
		// so AbortAll's wait for it completes.
		done := make(chan struct{})
		table.Insert(id, ServerEntry{Cancel: func() { aborted++; close(done) }, Done: done})
	}
	if table.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", table.Len())
	}
	table.AbortAll()
	if aborted != 3 {
		t.Fatalf("aborted = %d, want 3", aborted)
	}
	if table.Len() != 0 {
		t.Fatalf("Len() after AbortAll = %d, want 0", table.Len())
	}
}
