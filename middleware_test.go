package bresp_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/advdv/bresp"
	"github.com/advdv/bresp/internal/example"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrapWithoutMiddleware(t *testing.T) {
	hdlr1 := bresp.HandlerFunc(func(*bresp.Context) error { return nil })
	hdlr2 := bresp.Wrap(hdlr1)
	require.Equal(t, fmt.Sprint(hdlr1), fmt.Sprint(hdlr2)) // compare addrs
}

func TestWrapOrder(t *testing.T) {
	var res string

	inner := bresp.HandlerFunc(func(c *bresp.Context) error {
		res += fmt.Sprintf("inner %v", c.Value(ctxKey("foo")))

		// the request's context and the handler context carry the same values and deadline
		require.Equal(t, c.Request.Context().Value(ctxKey("foo")), c.Value(ctxKey("foo")))
		dl1, ok1 := c.Deadline()
		dl2, ok2 := c.Request.Context().Deadline()
		require.Equal(t, dl1, dl2)
		require.Equal(t, ok1, ok2)

		require.NotNil(t, example.Log(c))

		return errors.New("inner error")
	})

	trace := func(name string) bresp.Middleware {
		return func(n bresp.Handler) bresp.Handler {
			return bresp.HandlerFunc(func(c *bresp.Context) error {
				res += name + "("
				err := n.Handle(c)
				res += ")" + name

				return errors.Wrap(err, name)
			})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(ctx)

	resp := bresp.NewResponse(func(*bytes.Buffer) error { return nil }, nil, nil)
	bctx := bresp.NewContext(req, rec, resp, bresp.NewPipeline())

	err := bresp.Wrap(inner,
		example.Middleware(zap.NewNop()),
		withValue("foo", "bar"),
		trace("2"),
		trace("1"),
	).Handle(bctx)

	require.Equal(t, "2(1(inner bar)1)2", res)
	require.EqualError(t, err, "2: 1: inner error")
}

// recoverer turns panics into errors.
func recoverer() bresp.Middleware {
	return func(next bresp.Handler) bresp.Handler {
		return bresp.HandlerFunc(func(c *bresp.Context) (err error) {
			defer func() {
				if e := recover(); e != nil {
					err = errors.Newf("recovered: %v", e)
				}
			}()

			return next.Handle(c)
		})
	}
}

func TestPanicIsRecoveredAndResponseReset(t *testing.T) {
	pipeline, logs := newTestPipeline(t)
	hdlr := bresp.ToStd(bresp.Wrap(bresp.HandlerFunc(func(c *bresp.Context) error {
		c.Response.Headers().Set("X-Foo", "bar")
		c.Response.SetStatus(http.StatusCreated)
		c.Response.Cookie("session", "abc")

		panic("some panic")
	}), recoverer()), pipeline)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)
	hdlr.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, http.Header{
		"Content-Type":   {"text/plain; charset=utf-8"},
		"Content-Length": {"21"},
	}, rec.Header())
	require.Equal(t, "Internal Server Error", rec.Body.String())
	require.Equal(t, int64(1), logs.NumLogUnhandledServeError)
}

func TestExampleMiddlewareLogs(t *testing.T) {
	core, obs := observer.New(zap.InfoLevel)
	mux := bresp.NewServeMux()
	mux.Use(example.Middleware(zap.New(core)))
	mux.HandleFunc("GET /teapot", func(c *bresp.Context) error {
		example.Log(c).Info("brewing")
		return c.Response.SetStatus(http.StatusTeapot).SendText("short and stout")
	})

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/teapot", nil)
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTeapot, rec.Code)

	entries := obs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "brewing", entries[0].Message)
	assert.Equal(t, "served request", entries[1].Message)

	fields := entries[1].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/teapot", fields["path"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, true, fields["committed"])
}
