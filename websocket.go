// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tarpc

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/segmentio/encoding/json"
)

// wsTransport is a Transport carrying one JSON-encoded frame per WebSocket
// message — a second concrete implementation of the frame transport
// contract (spec §4.1, §6) alongside the length-prefixed-TCP one, so the
// core is exercised against more than one byte encoding.
type wsTransport[Out, In any] struct {
	conn *websocket.Conn
}

func (t *wsTransport[Out, In]) Send(ctx context.Context, frame Out) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("tarpc: encode frame: %w", err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = t.conn.SetWriteDeadline(dl)
	}
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return newError(KindTransport, "write websocket frame", err)
	}
	return nil
}

func (t *wsTransport[Out, In]) Recv(ctx context.Context) (In, error) {
	var zero In
	if dl, ok := ctx.Deadline(); ok {
		_ = t.conn.SetReadDeadline(dl)
	}
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return zero, io.EOF
		}
		return zero, newError(KindTransport, "read websocket frame", err)
	}
	var v In
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, fmt.Errorf("tarpc: decode websocket frame: %w", err)
	}
	return v, nil
}

func (t *wsTransport[Out, In]) Close() error {
	return t.conn.Close()
}

func (t *wsTransport[Out, In]) LocalAddr() string  { return t.conn.LocalAddr().String() }
func (t *wsTransport[Out, In]) RemoteAddr() string { return t.conn.RemoteAddr().String() }

// DialWebSocket connects to url and returns a client-side Transport.
func DialWebSocket(ctx context.Context, url string, header http.Header) (Transport[*ClientMessage, *ServerMessage], error) {
	dialer := websocket.Dialer{}
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, fmt.Errorf("tarpc: dial websocket %s: %w", url, err)
	}
	return &wsTransport[*ClientMessage, *ServerMessage]{conn: conn}, nil
}

// WebSocketUpgrader wraps an incoming HTTP request into a server-side
// Transport. It is a thin wrapper over gorilla/websocket.Upgrader so callers
// can configure origin checking and buffer sizes the way any
// gorilla/websocket server would.
type WebSocketUpgrader struct {
	Upgrader websocket.Upgrader
}

func (u *WebSocketUpgrader) Upgrade(w http.ResponseWriter, r *http.Request) (Transport[*ServerMessage, *ClientMessage], error) {
	conn, err := u.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("tarpc: upgrade websocket: %w", err)
	}
	return &wsTransport[*ServerMessage, *ClientMessage]{conn: conn}, nil
}
