// Package ws owns the live WebSocket sessions: the connection wrapper and
// its write loop, the per-user registry, the application heartbeat, the
// broadcaster and the inbound message router.
package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	sendQueueSize = 256
)

// Connection binds one socket to one user. Outbound frames go through a
// buffered queue drained by writePump, so senders never block on I/O.
type Connection struct {
	UserID string
	IP     string

	ws     *websocket.Conn
	send   chan []byte
	queued atomic.Int64 // bytes sitting in send

	superseded atomic.Bool
	tornDown   atomic.Bool
	pong       chan struct{}

	closeOnce sync.Once
	done      chan struct{}
}

func newConnection(ws *websocket.Conn, userID, ip string) *Connection {
	return &Connection{
		UserID: userID,
		IP:     ip,
		ws:     ws,
		send:   make(chan []byte, sendQueueSize),
		pong:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Enqueue queues a frame for delivery. It reports false when the queue is
// full, which the caller treats as backpressure.
func (c *Connection) Enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return true // dropped silently, connection is closing
	default:
	}
	select {
	case c.send <- frame:
		c.queued.Add(int64(len(frame)))
		return true
	default:
		return false
	}
}

// Buffered returns the number of bytes queued but not yet written.
func (c *Connection) Buffered() int64 {
	return c.queued.Load()
}

// MarkSuperseded flags the connection as replaced by a newer login, so its
// close handling skips the full disconnect flow.
func (c *Connection) MarkSuperseded() { c.superseded.Store(true) }

// Superseded reports whether a newer login replaced this connection.
func (c *Connection) Superseded() bool { return c.superseded.Load() }

// NotifyHeartbeat signals that the client answered the latest heartbeat.
func (c *Connection) NotifyHeartbeat() {
	select {
	case c.pong <- struct{}{}:
	default:
	}
}

// clearStaleHeartbeat discards a reply left over from a probe that
// already timed out.
func (c *Connection) clearStaleHeartbeat() {
	select {
	case <-c.pong:
	default:
	}
}

// Close shuts the connection down with the given close code. Safe to call
// multiple times and from any goroutine.
func (c *Connection) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(code, reason)
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		c.ws.WriteMessage(websocket.CloseMessage, msg)
		c.ws.Close()
	})
}

// Done is closed when the connection is shut down.
func (c *Connection) Done() <-chan struct{} { return c.done }

// writePump drains the send queue onto the socket and keeps the transport
// alive with protocol-level pings. One per connection.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			c.queued.Add(-int64(len(frame)))
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}
		}
	}
}
