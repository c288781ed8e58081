package live

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialPair returns a client wsConn whose server side runs serve
func dialPair(t *testing.T, serve func(conn *websocket.Conn)) *wsConn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		up := websocket.Upgrader{}
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	c := newWSConn(conn)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestWSConn_Read_SpansMessages(t *testing.T) {
	c := dialPair(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("CONNECTED\n"))
		_ = conn.WriteMessage(websocket.TextMessage, []byte("version:1.2\n\n\x00"))
		_, _, _ = conn.ReadMessage()
	})

	buf := make([]byte, len("CONNECTED\nversion:1.2\n\n\x00"))
	_, err := io.ReadFull(c, buf)
	require.NoError(t, err)
	assert.Equal(t, "CONNECTED\nversion:1.2\n\n\x00", string(buf))
}

func TestWSConn_Write_OneMessagePerCall(t *testing.T) {
	got := make(chan string, 2)
	c := dialPair(t, func(conn *websocket.Conn) {
		for i := 0; i < 2; i++ {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			got <- string(data)
		}
	})

	n, err := c.Write([]byte("SUBSCRIBE\nid:sub-1\n\n\x00"))
	require.NoError(t, err)
	assert.Equal(t, len("SUBSCRIBE\nid:sub-1\n\n\x00"), n)
	_, err = c.Write([]byte("\n"))
	require.NoError(t, err)

	assert.Equal(t, "SUBSCRIBE\nid:sub-1\n\n\x00", <-got)
	assert.Equal(t, "\n", <-got)
}

func TestWSConn_Close_Twice(t *testing.T) {
	c := dialPair(t, func(conn *websocket.Conn) {
		_, _, _ = conn.ReadMessage()
	})
	first := c.Close()
	assert.Equal(t, first, c.Close())

	_, err := c.Read(make([]byte, 1))
	assert.Error(t, err)
}
