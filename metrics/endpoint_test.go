package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/advdv/bresp"
	"github.com/advdv/bresp/metrics"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newEndpointServer(t *testing.T, b *metrics.Broadcaster) *httptest.Server {
	t.Helper()

	mux := bresp.NewServeMux()
	mux.Use(metrics.NewEndpoint(b, metrics.WriteTimeout(time.Second)).
		Bind(bresp.MustPathBinder("/admin/metrics-report")))
	mux.HandleFunc("/", func(c *bresp.Context) error {
		return c.Response.SendText("fallthrough")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 5*time.Second, 5*time.Millisecond)
}

func TestEndpointStreamsSamples(t *testing.T) {
	b := metrics.NewBroadcaster(nil)
	srv := newEndpointServer(t, b)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/admin/metrics-report"
	conn, err := websocket.Dial(wsURL, "", srv.URL)
	require.NoError(t, err)

	waitFor(t, func() bool { return b.Len() == 1 })

	b.Publish(`{"counters":{}}`)
	b.Publish("second")

	var got string
	require.NoError(t, websocket.Message.Receive(conn, &got))
	require.Equal(t, `{"counters":{}}`, got)
	require.NoError(t, websocket.Message.Receive(conn, &got))
	require.Equal(t, "second", got)

	// client frames are ignored
	require.NoError(t, websocket.Message.Send(conn, "hello?"))

	require.NoError(t, conn.Close())
	waitFor(t, func() bool { return b.Len() == 0 })
}

func TestEndpointRouting(t *testing.T) {
	srv := newEndpointServer(t, metrics.NewBroadcaster(nil))

	for _, tt := range []struct {
		name    string
		method  string
		path    string
		expCode int
	}{
		{"post is not allowed", http.MethodPost, "/admin/metrics-report", http.StatusMethodNotAllowed},
		{"get without upgrade", http.MethodGet, "/admin/metrics-report", http.StatusBadRequest},
		{"other path falls through", http.MethodGet, "/admin/other", http.StatusOK},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequestWithContext(t.Context(), tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, tt.expCode, resp.StatusCode)
			if tt.expCode == http.StatusMethodNotAllowed {
				require.Equal(t, "GET", resp.Header.Get("Allow"))
			}
		})
	}
}
