// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tarpc

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/segmentio/encoding/json"

	"github.com/tarpc-go/tarpc/internal/strictframe"
)

// DefaultMaxFrameBytes bounds a single wire frame's body when no explicit
// limit is configured.
const DefaultMaxFrameBytes = 4 << 20 // 4 MiB

// effectiveMaxFrameBytes resolves a configured frame-size ceiling: zero
// selects DefaultMaxFrameBytes, a negative value means unlimited, and a
// positive value is used verbatim.
func effectiveMaxFrameBytes(v int64) int64 {
	switch {
	case v == 0:
		return DefaultMaxFrameBytes
	case v < 0:
		return 0
	default:
		return v
	}
}

// frameWriter serializes one JSON value per call to writeFrame, prefixed
// with its big-endian uint32 byte length — the reference's length-prefixed
// JSON encoding (spec §6).
type frameWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func newFrameWriter(w io.Writer) *frameWriter {
	return &frameWriter{w: bufio.NewWriter(w)}
}

func (fw *frameWriter) writeFrame(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("tarpc: encode frame: %w", err)
	}
	fw.mu.Lock()
	defer fw.mu.Unlock()
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := fw.w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("tarpc: write frame length: %w", err)
	}
	if _, err := fw.w.Write(data); err != nil {
		return fmt.Errorf("tarpc: write frame body: %w", err)
	}
	return fw.w.Flush()
}

// frameReader deserializes one JSON value per call to readFrame, honoring
// the same length-prefix framing frameWriter produces.
type frameReader struct {
	r        *bufio.Reader
	maxFrame int64 // 0 = unlimited
}

func newFrameReader(r io.Reader, maxFrame int64) *frameReader {
	return &frameReader{r: bufio.NewReader(r), maxFrame: maxFrame}
}

// readFrame decodes the next frame into v. It returns io.EOF verbatim when
// the peer closed the stream cleanly between frames, which the dispatcher
// and server channel treat as end-of-stream (spec §4.4, §4.5).
func (fr *frameReader) readFrame(v any) error {
	var lenBuf [4]byte
	if _, err := io.ReadFull(fr.r, lenBuf[:]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if fr.maxFrame > 0 && int64(n) > fr.maxFrame {
		return fmt.Errorf("tarpc: frame of %d bytes exceeds limit of %d", n, fr.maxFrame)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(fr.r, data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("tarpc: read frame body: %w", err)
	}
	if err := strictframe.Unmarshal(data, v); err != nil {
		return fmt.Errorf("tarpc: decode frame: %w", err)
	}
	return nil
}

// encodePayload marshals an application-level argument or result value into
// the opaque payload carried by WireRequest.Payload / ServerMessage.Result.
func encodePayload(v any) ([]byte, error) {
	return json.Marshal(v)
}

// decodePayload unmarshals an opaque payload into v.
func decodePayload(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
