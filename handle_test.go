package bresp_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/advdv/bresp"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func handleGreeting(c *bresp.Context) error {
	c.Response.Headers().Set("Is-Bar", "rab")
	c.Response.SetStatus(http.StatusCreated)

	switch c.Request.URL.Path {
	case "/trigger-error":
		return errors.New("triggered error")
	case "/not-found":
		return bresp.NewError(bresp.CodeNotFound, errors.New("no such greeting"))
	case "/bad-code":
		return bresp.NewError(bresp.Code(999), errors.New("no such status"))
	case "/implicit":
		return nil
	case "/after-commit":
		if err := c.Response.SendText("sent"); err != nil {
			return err
		}

		return errors.New("too late")
	}

	return c.Response.SendText("hello at " + c.Request.URL.Path)
}

func newTestPipeline(t *testing.T) (*bresp.Pipeline, *bresp.TestLogger) {
	logs := bresp.NewTestLogger(t)
	pipeline := bresp.NewPipeline()
	pipeline.Logs = logs

	return pipeline, logs
}

func TestHandleBasic(t *testing.T) {
	pipeline, _ := newTestPipeline(t)
	hdlr := bresp.ToStd(bresp.HandlerFunc(handleGreeting), pipeline)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bar", nil)
	hdlr.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, `rab`, rec.Header().Get("Is-Bar"))
	require.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	require.Equal(t, "13", rec.Header().Get("Content-Length"))
	require.Equal(t, `hello at /bar`, rec.Body.String())
}

func TestHandleDefaultError(t *testing.T) {
	pipeline, logs := newTestPipeline(t)
	hdlr := bresp.ToStd(bresp.HandlerFunc(handleGreeting), pipeline)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/trigger-error", nil)
	hdlr.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, ``, rec.Header().Get("Is-Bar"))
	require.Equal(t, `Internal Server Error`, rec.Body.String())
	require.Equal(t, int64(1), logs.NumLogUnhandledServeError)
}

func TestHandleCodedError(t *testing.T) {
	pipeline, logs := newTestPipeline(t)
	hdlr := bresp.ToStd(bresp.HandlerFunc(handleGreeting), pipeline)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/not-found", nil)
	hdlr.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, `Not Found: no such greeting`, rec.Body.String())
	require.Equal(t, int64(0), logs.NumLogUnhandledServeError)
}

func TestHandleOutOfRangeCode(t *testing.T) {
	pipeline, logs := newTestPipeline(t)
	hdlr := bresp.ToStd(bresp.HandlerFunc(handleGreeting), pipeline)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad-code", nil)
	require.NotPanics(t, func() { hdlr.ServeHTTP(rec, req) })

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, `Internal Server Error`, rec.Body.String())
	require.Equal(t, int64(1), logs.NumLogUnhandledServeError)
}

func TestHandleImplicitSend(t *testing.T) {
	pipeline, _ := newTestPipeline(t)
	hdlr := bresp.ToStd(bresp.HandlerFunc(handleGreeting), pipeline)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/implicit", nil)
	hdlr.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "rab", rec.Header().Get("Is-Bar"))
	require.Equal(t, "0", rec.Header().Get("Content-Length"))
	require.Empty(t, rec.Body.String())
}

func TestHandleErrorAfterCommit(t *testing.T) {
	pipeline, logs := newTestPipeline(t)
	hdlr := bresp.ToStd(bresp.HandlerFunc(handleGreeting), pipeline)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/after-commit", nil)
	hdlr.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "sent", rec.Body.String())
	require.Equal(t, int64(1), logs.NumLogCommittedServeError)
}

type failingWriter struct{ *httptest.ResponseRecorder }

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestHandleCommitFailureAborts(t *testing.T) {
	pipeline, logs := newTestPipeline(t)
	hdlr := bresp.ToStd(bresp.HandlerFunc(handleGreeting), pipeline)

	rec, req := failingWriter{httptest.NewRecorder()}, httptest.NewRequest(http.MethodGet, "/bar", nil)
	require.PanicsWithValue(t, http.ErrAbortHandler, func() {
		hdlr.ServeHTTP(rec, req)
	})

	require.Equal(t, int64(1), logs.NumLogCommittedServeError)
}
