// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tarpc

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFrameWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	fw := newFrameWriter(&buf)

	msg := newRequestMessage(WireRequest{ID: 7, Payload: []byte(`{"x":1}`)})
	if err := fw.writeFrame(msg); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}

	fr := newFrameReader(&buf, 0)
	var got ClientMessage
	if err := fr.readFrame(&got); err != nil {
		t.Fatalf("readFrame: %v", err)
	}
	if diff := cmp.Diff(msg, &got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameReaderEOF(t *testing.T) {
	fr := newFrameReader(&bytes.Buffer{}, 0)
	var got ClientMessage
	if err := fr.readFrame(&got); err != io.EOF {
		t.Fatalf("readFrame on empty stream = %v, want io.EOF", err)
	}
}

func TestFrameReaderMaxFrameExceeded(t *testing.T) {
	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], 100)
	buf.Write(lenBuf[:])
	buf.Write(make([]byte, 100))

	fr := newFrameReader(&buf, 10)
	var got ClientMessage
	if err := fr.readFrame(&got); err == nil {
		t.Fatal("readFrame over the configured limit returned nil error")
	}
}

func TestFrameReaderTruncatedBody(t *testing.T) {
	var buf bytes.Buffer
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], 50)
	buf.Write(lenBuf[:])
	buf.Write(make([]byte, 10)) // short of the declared 50 bytes

	fr := newFrameReader(&buf, 0)
	var got ClientMessage
	if err := fr.readFrame(&got); err == nil {
		t.Fatal("readFrame on truncated body returned nil error")
	}
}

func TestPayloadEncodeDecode(t *testing.T) {
	type pair struct {
		A int
		B string
	}
	data, err := encodePayload(pair{A: 1, B: "x"})
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	var got pair
	if err := decodePayload(data, &got); err != nil {
		t.Fatalf("decodePayload: %v", err)
	}
	if got != (pair{A: 1, B: "x"}) {
		t.Fatalf("decodePayload = %+v, want {1 x}", got)
	}
}

func TestEffectiveMaxFrameBytes(t *testing.T) {
	cases := []struct {
		in, want int64
	}{
		{0, DefaultMaxFrameBytes},
		{-1, 0},
		{1024, 1024},
	}
	for _, tc := range cases {
		if got := effectiveMaxFrameBytes(tc.in); got != tc.want {
			t.Errorf("effectiveMaxFrameBytes(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
