package relayserver

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pksalink/internal/domain"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

// client is one WebSocket connection, either an application or a signer.
type client struct {
	id   string
	conn *websocket.Conn
	send chan domain.Frame

	closeOnce sync.Once
	done      chan struct{}
}

func newClient(id string, conn *websocket.Conn) *client {
	return &client{
		id:   id,
		conn: conn,
		send: make(chan domain.Frame, sendBuffer),
		done: make(chan struct{}),
	}
}

// push queues f for writing. A client whose buffer is full is disconnected.
func (c *client) push(f domain.Frame) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- f:
	default:
		log.WithField("client", c.id).Warn("Send buffer full, dropping client")
		c.close()
	}
}

func (c *client) writeLoop() {
	for {
		select {
		case f := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(f); err != nil {
				log.WithError(err).WithField("client", c.id).Debug("Write failed")
				c.close()
				return
			}
			framesRouted.WithLabelValues(string(f.Cmd)).Inc()
		case <-c.done:
			return
		}
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
