// Package wspeer is a reference peer.Handle backed by a single
// gorilla/websocket connection — BTP is conventionally carried over
// WebSocket between Interledger peers. The core never imports this package;
// it is an optional adapter a host application may wire in.
package wspeer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/ilpconnector/core/btp"
)

// Handle writes BTP messages as binary frames on a single WebSocket
// connection. One Handle serves one connected peer; writes are serialized
// since gorilla/websocket connections are not safe for concurrent writers.
type Handle struct {
	conn      *websocket.Conn
	mu        sync.Mutex
	requestID atomic.Uint32
}

// New wraps an established WebSocket connection as a peer.Handle.
func New(conn *websocket.Conn) *Handle {
	return &Handle{conn: conn}
}

// SendProtocolData frames name/contentType/data as a BTP Message and writes
// it as a single binary WebSocket frame.
func (h *Handle) SendProtocolData(ctx context.Context, name string, contentType uint16, data []byte) error {
	msg := &btp.Message{
		Type:      btp.TypeMessage,
		RequestID: h.requestID.Add(1),
		ProtocolData: []btp.ProtocolData{
			{Name: name, ContentType: contentType, Data: data},
		},
	}

	buf, err := btp.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serializing BTP message: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		if err := h.conn.SetWriteDeadline(deadline); err != nil {
			slog.Warn("wspeer: failed to set write deadline", "err", err)
		}
	}

	if err := h.conn.WriteMessage(websocket.BinaryMessage, buf); err != nil {
		return fmt.Errorf("writing BTP frame: %w", err)
	}
	return nil
}

// Close closes the underlying WebSocket connection.
func (h *Handle) Close() error {
	return h.conn.Close()
}
