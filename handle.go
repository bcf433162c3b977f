package bresp

import (
	"bytes"
	"log"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Handler mirrors http.Handler but it assembles its response through the [Context] and may return an
// error.
type Handler interface {
	Handle(c *Context) error
}

// HandlerFunc allow casting a function to imple [Handler].
type HandlerFunc func(c *Context) error

// Handle implements the [Handler] interface.
func (f HandlerFunc) Handle(c *Context) error {
	return f(c)
}

// Pipeline holds the collaborators that every request's [Context] and [Response] are built from.
type Pipeline struct {
	Parsers      *Registry
	Background   *Background
	Files        FileSystem
	Buffers      BufferPool
	MaxBodyBytes int64
	Logs         Logger
}

// NewPipeline inits a pipeline with the default parsers, an unlimited body size, the working directory
// as file system and a standard library logger.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Parsers:      DefaultParsers(),
		Background:   NewBackground(DefaultBackgroundWorkers),
		Files:        DirFS("."),
		Buffers:      NewBufferPool(),
		MaxBodyBytes: -1,
		Logs:         NewStdLogger(log.Default()),
	}
}

// ToStd converts a handler into a standard library http.Handler. Each request gets a fresh [Response]
// whose committer writes the status, headers and body onto the standard response writer.
//
// When the handler returns an error before the response was committed, the response is reset and an
// error response with the code and message of the error is sent instead. Errors without a code are
// logged and answered with a plain 500. Errors after
// commit can only be logged; when the commit itself failed the connection is aborted. A handler that
// returns without sending commits an empty body.
func ToStd(h Handler, p *Pipeline) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var resp *Response
		files := &httpFileTransmitter{files: p.Files, w: w, r: r}
		resp = NewResponse(func(body *bytes.Buffer) error {
			defer p.Buffers.Put(body)

			resp.headers.WriteTo(w.Header())
			w.Header().Set(headerContentLength, strconv.Itoa(body.Len()))
			w.WriteHeader(resp.status.Code())

			_, err := w.Write(body.Bytes())
			return err
		}, files, p.Buffers)
		files.resp = resp

		c := NewContext(r, w, resp, p)

		err := h.Handle(c)
		switch {
		case err == nil && !resp.Committed():
			if err := resp.Send(); err != nil {
				p.Logs.LogImplicitCommitError(err)
			}
		case err == nil:
		case resp.Committed():
			p.Logs.LogCommittedServeError(err)
			if errors.Is(err, ErrCommitFailed) && !c.upgraded {
				panic(http.ErrAbortHandler)
			}
		default:
			code, msg := CodeOf(err), ""
			if code < 100 || code > 599 {
				p.Logs.LogUnhandledServeError(err)
				code, msg = CodeInternalServerError, http.StatusText(http.StatusInternalServerError)
			} else {
				msg = err.Error()
			}

			resp.reset()
			resp.SetStatus(int(code))
			if err := resp.SendText(msg); err != nil {
				p.Logs.LogImplicitCommitError(err)
			}
		}
	})
}
