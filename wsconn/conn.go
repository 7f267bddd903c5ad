// Package wsconn provides the WebSocket transport for the chat client. The
// gateway speaks the line protocol over text frames; a frame may carry
// several lines.
package wsconn

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrClosed is returned by Send after the connection has gone down.
var ErrClosed = errors.New("wsconn: connection closed")

const (
	writeWait        = 10 * time.Second
	handshakeTimeout = 10 * time.Second
	sendBuffer       = 64
)

// A Conn is one WebSocket connection to the chat gateway. Use New and Dial;
// the zero value is not usable.
type Conn struct {
	url string
	log zerolog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	ctx    context.Context
	cancel context.CancelFunc

	sendCh chan string
	recvCh chan string
}

// New creates an undialed connection to url.
func New(url string, log zerolog.Logger) *Conn {
	ctx, cancel := context.WithCancel(context.Background())

	return &Conn{
		url:    url,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		sendCh: make(chan string, sendBuffer),
		recvCh: make(chan string, sendBuffer),
	}
}

// Dial opens the WebSocket and starts the read and write pumps.
func (c *Conn) Dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.mu.Unlock()

	c.log.Debug().Str("url", c.url).Msg("transport connected")

	go c.readPump()
	go c.writePump()

	return nil
}

// Send queues one line for writing.
func (c *Conn) Send(line string) error {
	select {
	case <-c.ctx.Done():
		return ErrClosed
	default:
	}

	select {
	case c.sendCh <- line:
		return nil
	case <-c.ctx.Done():
		return ErrClosed
	}
}

// Recv returns the inbound line channel. It is closed when the socket
// drops, whether by Close or by the peer.
func (c *Conn) Recv() <-chan string {
	return c.recvCh
}

// Close tears the connection down without waiting for acknowledgement.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	c.cancel()

	if conn == nil {
		close(c.recvCh)
		return nil
	}

	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(time.Second))

	return conn.Close()
}

// readPump splits frames into lines and delivers them in order. It is the
// only writer of recvCh and closes it on exit.
func (c *Conn) readPump() {
	defer close(c.recvCh)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.log.Debug().Err(err).Msg("transport read ended")
			c.cancel()
			return
		}

		for _, line := range strings.Split(string(data), "\r\n") {
			line = strings.TrimRight(line, "\r\n")
			if line == "" {
				continue
			}

			select {
			case c.recvCh <- line:
			case <-c.ctx.Done():
				return
			}
		}
	}
}

// writePump owns all writes to the socket.
func (c *Conn) writePump() {
	for {
		select {
		case line := <-c.sendCh:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(line+"\r\n")); err != nil {
				c.log.Debug().Err(err).Msg("transport write failed")
				c.cancel()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}
