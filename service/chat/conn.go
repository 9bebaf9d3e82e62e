package chat

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"tripchat/logger"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Conn is one physical websocket connection with its resolved user.
// gorilla conns allow a single concurrent writer, so every outbound
// frame goes through the send queue and one write pump goroutine.
type Conn struct {
	ID   string
	user Identity // set once at handshake, immutable afterwards

	ws           *websocket.Conn
	send         chan []byte
	writeTimeout time.Duration

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(id string, user Identity, ws *websocket.Conn, queueSize int, writeTimeout time.Duration) *Conn {
	if queueSize <= 0 {
		queueSize = 256
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Conn{
		ID:           id,
		user:         user,
		ws:           ws,
		send:         make(chan []byte, queueSize),
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

func (c *Conn) User() Identity { return c.user }

// Send enqueues a frame for the write pump. A full queue means a
// client that cannot keep up; the frame is dropped and the caller may
// decide to close.
func (c *Conn) Send(data []byte) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errors.New("send queue full")
	}
}

// writePump is the single writer: drains the queue and keeps the
// connection alive with pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		closeQuiet(c.ws)
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debugf("[ws] write failed conn=%s err=%v", c.ID, err)
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

// Close releases the connection; safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		closeQuiet(c.ws)
	})
}

func closeQuiet(ws *websocket.Conn) {
	if ws != nil {
		_ = ws.Close()
	}
}
