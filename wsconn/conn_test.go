package wsconn_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gissleh/tmi/wsconn"
)

var upgrader = websocket.Upgrader{}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func recvLine(t *testing.T, ch <-chan string) string {
	t.Helper()

	select {
	case line, ok := <-ch:
		if !ok {
			t.Fatal("recv channel closed")
		}
		return line
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for line")
		return ""
	}
}

func TestConnSendRecv(t *testing.T) {
	received := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		// One frame may carry several lines.
		_ = ws.WriteMessage(websocket.TextMessage, []byte("PING :one\r\nPING :two\r\n"))

		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		received <- string(data)
	}))
	defer server.Close()

	conn := wsconn.New(wsURL(server), zerolog.Nop())
	require.NoError(t, conn.Dial(context.Background()))
	defer conn.Close()

	assert.Equal(t, "PING :one", recvLine(t, conn.Recv()))
	assert.Equal(t, "PING :two", recvLine(t, conn.Recv()))

	require.NoError(t, conn.Send("PONG :one"))

	select {
	case line := <-received:
		assert.Equal(t, "PONG :one\r\n", line, "the transport adds the line terminator")
	case <-time.After(2 * time.Second):
		t.Fatal("server saw no line")
	}
}

func TestConnRecvClosedOnPeerClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		_ = ws.WriteMessage(websocket.TextMessage, []byte("PING :bye\r\n"))
		ws.Close()
	}))
	defer server.Close()

	conn := wsconn.New(wsURL(server), zerolog.Nop())
	require.NoError(t, conn.Dial(context.Background()))
	defer conn.Close()

	assert.Equal(t, "PING :bye", recvLine(t, conn.Recv()))

	select {
	case _, ok := <-conn.Recv():
		assert.False(t, ok, "recv channel should close when the peer hangs up")
	case <-time.After(2 * time.Second):
		t.Fatal("recv channel not closed")
	}
}

func TestConnSendAfterClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	conn := wsconn.New(wsURL(server), zerolog.Nop())
	require.NoError(t, conn.Dial(context.Background()))
	require.NoError(t, conn.Close())

	assert.ErrorIs(t, conn.Send("PING"), wsconn.ErrClosed)

	// Closing twice is fine.
	assert.NoError(t, conn.Close())
}

func TestConnCloseBeforeDial(t *testing.T) {
	conn := wsconn.New("ws://127.0.0.1:1", zerolog.Nop())
	require.NoError(t, conn.Close())

	select {
	case _, ok := <-conn.Recv():
		assert.False(t, ok)
	default:
		t.Error("recv channel should be closed")
	}
}

func TestConnDialFailure(t *testing.T) {
	conn := wsconn.New("ws://127.0.0.1:1", zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.Error(t, conn.Dial(ctx))
}
