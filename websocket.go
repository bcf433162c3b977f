package bresp

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/net/websocket"
)

// WebSocket is the server side of an upgraded connection. Send may be called from any goroutine.
type WebSocket struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

// Request returns the request that was upgraded.
func (ws *WebSocket) Request() *http.Request { return ws.conn.Request() }

// Send writes text as a single text frame.
func (ws *WebSocket) Send(text string) error {
	if ws.writeTimeout > 0 {
		if err := ws.conn.SetWriteDeadline(time.Now().Add(ws.writeTimeout)); err != nil {
			return errors.Wrap(err, "set write deadline")
		}
	}

	return errors.Wrap(websocket.Message.Send(ws.conn, text), "send text frame")
}

// Close closes the connection. The read loop ends and the handler's OnClose is called.
func (ws *WebSocket) Close() error {
	return errors.Wrap(ws.conn.Close(), "close websocket")
}

// WebSocketClose describes the end of a connection. Err is nil when the client closed it.
type WebSocketClose[S any] struct {
	Socket *WebSocket
	State  S
	Err    error
}

// WebSocketMessage is a text frame received from the client.
type WebSocketMessage[S any] struct {
	Socket *WebSocket
	State  S
	Text   string
}

// WebSocketHandler handles the lifecycle of an upgraded connection. The state returned by OnOpen is
// handed to every later call for the same connection.
type WebSocketHandler[S any] interface {
	OnOpen(ws *WebSocket) (S, error)
	OnClose(c WebSocketClose[S])
	OnMessage(m WebSocketMessage[S])
}

// WebSocketOption configures an upgrade.
type WebSocketOption func(*webSocketOptions)

type webSocketOptions struct {
	writeTimeout time.Duration
}

// WebSocketWriteTimeout bounds every frame written with [WebSocket.Send].
func WebSocketWriteTimeout(d time.Duration) WebSocketOption {
	return func(o *webSocketOptions) { o.writeTimeout = d }
}

// WebSocketUpgrade upgrades the request of c to a websocket and serves it with h until the connection
// closes. Requests that do not ask for an upgrade get a 400 error and leave the response open. The
// origin of the request is not checked.
func WebSocketUpgrade[S any](c *Context, h WebSocketHandler[S], opts ...WebSocketOption) error {
	var o webSocketOptions
	for _, opt := range opts {
		opt(&o)
	}

	if !strings.EqualFold(c.Request.Header.Get("Upgrade"), "websocket") {
		return NewError(CodeBadRequest, errors.New("request is not a websocket upgrade"))
	}

	if _, ok := c.w.(http.Hijacker); !ok {
		return errors.New("bresp: response writer does not support hijacking")
	}

	var openErr error

	srv := websocket.Server{Handler: func(conn *websocket.Conn) {
		ws := &WebSocket{conn: conn, writeTimeout: o.writeTimeout}

		// deadlines set by the http.Server survive the hijack
		_ = conn.SetDeadline(time.Time{})

		state, err := h.OnOpen(ws)
		if err != nil {
			openErr = errors.Wrap(err, "open websocket")
			return
		}

		for {
			var text string
			if err = websocket.Message.Receive(conn, &text); err != nil {
				break
			}

			h.OnMessage(WebSocketMessage[S]{Socket: ws, State: state, Text: text})
		}

		if errors.Is(err, io.EOF) {
			err = nil
		}

		h.OnClose(WebSocketClose[S]{Socket: ws, State: state, Err: err})
	}}

	if err := c.Upgrade(srv); err != nil {
		return err
	}

	return openErr
}
