package metrics

import (
	"time"

	"github.com/advdv/bresp"
	"go.uber.org/zap"
)

// DefaultWriteTimeout bounds the time a single sample may take to be written to a client.
const DefaultWriteTimeout = 10 * time.Second

// EndpointOption configures an Endpoint.
type EndpointOption func(*Endpoint)

// WriteTimeout sets the write deadline for each sample sent to a client. Zero disables it.
func WriteTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.writeTimeout = d }
}

// WithLogger sets the logger for connection events.
func WithLogger(logs *zap.Logger) EndpointOption {
	return func(e *Endpoint) { e.logs = logs }
}

// Endpoint streams the samples of a Broadcaster to websocket clients. Only GET is allowed, clients are
// never read from.
type Endpoint struct {
	broadcaster  *Broadcaster
	writeTimeout time.Duration
	logs         *zap.Logger
}

// NewEndpoint inits the endpoint.
func NewEndpoint(b *Broadcaster, opts ...EndpointOption) *Endpoint {
	e := &Endpoint{broadcaster: b, writeTimeout: DefaultWriteTimeout, logs: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Bind returns middleware that serves the endpoint on paths that bind and passes others on.
func (e *Endpoint) Bind(binder bresp.PathBinder) bresp.Middleware {
	return bresp.Path(binder, e)
}

// Handle implements bresp.Handler.
func (e *Endpoint) Handle(c *bresp.Context) error {
	return c.ByMethod().Get(func() error {
		return bresp.WebSocketUpgrade[Token](c, endpointSocket{e}, bresp.WebSocketWriteTimeout(e.writeTimeout))
	}).Handle()
}

// endpointSocket keeps one registration per connection.
type endpointSocket struct{ e *Endpoint }

func (s endpointSocket) OnOpen(ws *bresp.WebSocket) (Token, error) {
	tok := s.e.broadcaster.Register(ws.Send)
	s.e.logs.Debug("metrics client connected",
		zap.Uint64("listener", tok.id), zap.String("remote", ws.Request().RemoteAddr))

	return tok, nil
}

func (s endpointSocket) OnClose(c bresp.WebSocketClose[Token]) {
	s.e.broadcaster.Remove(c.State)
	s.e.logs.Debug("metrics client disconnected", zap.Uint64("listener", c.State.id), zap.Error(c.Err))
}

func (endpointSocket) OnMessage(bresp.WebSocketMessage[Token]) {}
