package bapptest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/advdv/bresp"
)

// CallHandler serves req with handler on a default pipeline and returns the recorded response.
// Errors the pipeline logs fail the test.
func CallHandler(tb testing.TB, handler bresp.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	tb.Helper()

	logs := bresp.NewTestLogger(tb)
	p := bresp.NewPipeline()
	p.Logs = logs

	rec := httptest.NewRecorder()
	bresp.ToStd(handler, p).ServeHTTP(rec, req)

	if logs.NumLogUnhandledServeError+logs.NumLogImplicitCommitError+logs.NumLogCommittedServeError > 0 {
		tb.Errorf("bapptest: handler for %s %s logged errors", req.Method, req.URL.Path)
	}

	return rec
}
