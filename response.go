package bresp

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"net/http"

	"github.com/cockroachdb/errors"
)

const (
	contentTypeText   = "text/plain"
	contentTypeBinary = "application/octet-stream"
)

// Committer takes the response body and hands it, together with the status and headers of the response,
// to the client. A Response calls it at most once.
type Committer func(body *bytes.Buffer) error

// FileTransmitter sends a file as the response body. Implementations are bound to a single request.
type FileTransmitter interface {
	Stat(ctx context.Context, name string) (fs.FileInfo, error)
	Transmit(ctx context.Context, bg *Background, info fs.FileInfo, name string) error
}

// Response accumulates the status, headers and cookies of a response until one of the send methods
// commits it. A response is committed at most once, later sends return [ErrResponseCommitted].
//
// A Response is not safe for concurrent use; it belongs to the goroutine serving the request.
type Response struct {
	status    Status
	headers   *Headers
	cookies   []*http.Cookie
	committer Committer
	files     FileTransmitter
	bufs      BufferPool
	committed bool
}

// NewResponse inits a response that commits through committer. Files may be nil when the response never
// sends files, bufs defaults to a fresh pool when nil.
func NewResponse(committer Committer, files FileTransmitter, bufs BufferPool) *Response {
	if bufs == nil {
		bufs = NewBufferPool()
	}

	return &Response{
		headers:   NewHeaders(),
		committer: committer,
		files:     files,
		bufs:      bufs,
	}
}

// Status returns the status holder.
func (r *Response) Status() *Status { return &r.status }

// SetStatus sets the status code.
func (r *Response) SetStatus(code int) *Response {
	r.status.Set(code)
	return r
}

// SetStatusReason sets the status code with a custom reason phrase.
func (r *Response) SetStatusReason(code int, reason string) *Response {
	r.status.SetReason(code, reason)
	return r
}

// Headers returns the response headers.
func (r *Response) Headers() *Headers { return r.headers }

// Committed reports whether the response was committed.
func (r *Response) Committed() bool { return r.committed }

// ContentType sets the Content-Type header. Textual types without a charset get "charset=utf-8".
func (r *Response) ContentType(ct string) *Response {
	r.headers.Set(headerContentType, utf8MediaType(ct))
	return r
}

// Send commits the response with an empty body.
func (r *Response) Send() error {
	if err := r.ensureOpen(); err != nil {
		return err
	}

	return r.commit(r.bufs.Get(0))
}

// SendText commits text encoded as UTF-8. Without a content type "text/plain; charset=utf-8" is used.
func (r *Response) SendText(text string) error {
	if !r.headers.ContentTypeSet() {
		r.ContentType(contentTypeText)
	}

	return r.SendBytes(utf8Bytes(text))
}

// SendTextAs sets the content type and commits text.
func (r *Response) SendTextAs(contentType, text string) error {
	return r.ContentType(contentType).SendText(text)
}

// SendBytes commits b. Without a content type "application/octet-stream" is used.
func (r *Response) SendBytes(b []byte) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}

	r.defaultContentType(contentTypeBinary)

	buf := r.bufs.Get(len(b))
	buf.Write(b)

	return r.commit(buf)
}

// SendBytesAs sets the content type and commits b.
func (r *Response) SendBytesAs(contentType string, b []byte) error {
	return r.ContentType(contentType).SendBytes(b)
}

// SendReader reads rd to the end and commits what was read. Without a content type
// "application/octet-stream" is used. When reading fails the response is left uncommitted and the error
// is marked with [ErrIO].
func (r *Response) SendReader(rd io.Reader) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}

	buf := r.bufs.Get(0)
	if err := readInto(rd, buf); err != nil {
		r.bufs.Put(buf)
		return err
	}

	r.defaultContentType(contentTypeBinary)

	return r.commit(buf)
}

// SendReaderAs sets the content type and commits the contents of rd.
func (r *Response) SendReaderAs(contentType string, rd io.Reader) error {
	return r.ContentType(contentType).SendReader(rd)
}

// SendBuffer commits buf. The response takes ownership of the buffer. Without a content type
// "application/octet-stream" is used.
func (r *Response) SendBuffer(buf *bytes.Buffer) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}

	r.defaultContentType(contentTypeBinary)

	return r.commit(buf)
}

// SendBufferAs sets the content type and commits buf.
func (r *Response) SendBufferAs(contentType string, buf *bytes.Buffer) error {
	return r.ContentType(contentType).SendBuffer(buf)
}

// SendFile reads the attributes of the named file on the background executor and then sends it with
// [Response.SendFileInfo]. Missing files and directories result in a 404 error.
func (r *Response) SendFile(ctx context.Context, bg *Background, name string) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}

	if r.files == nil {
		return errors.New("bresp: response has no file transmitter")
	}

	info, err := Blocking(ctx, bg, func(ctx context.Context) (fs.FileInfo, error) {
		return r.files.Stat(ctx, name)
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewError(CodeNotFound, errors.Wrapf(err, "stat %q", name))
		}

		return errors.Wrapf(err, "stat %q", name)
	}

	return r.SendFileInfo(ctx, bg, info, name)
}

// SendFileInfo sends the named file, whose attributes were already read, through the file transmitter.
// The committer is not used for file responses. Directories result in a 404 error.
func (r *Response) SendFileInfo(ctx context.Context, bg *Background, info fs.FileInfo, name string) error {
	if err := r.ensureOpen(); err != nil {
		return err
	}

	if r.files == nil {
		return errors.New("bresp: response has no file transmitter")
	}

	if info.IsDir() {
		return NewError(CodeNotFound, errors.Newf("%q is a directory", name))
	}

	r.committed = true
	r.applyCookies()
	r.headers.freeze()

	return wrapCommitErr(r.files.Transmit(ctx, bg, info, name))
}

// Cookie adds a cookie to the response and returns it so it can be changed further until the response
// is committed.
func (r *Response) Cookie(name, value string) *http.Cookie {
	c := &http.Cookie{Name: name, Value: value}
	if r.committed {
		return c
	}

	r.cookies = append(r.cookies, c)

	return c
}

// ExpireCookie adds a cookie that tells the client to drop the named cookie: an empty value and a
// Max-Age of zero.
func (r *Response) ExpireCookie(name string) *http.Cookie {
	c := r.Cookie(name, "")
	c.MaxAge = -1

	return c
}

// Cookies returns the cookies that will be sent with the response.
func (r *Response) Cookies() []*http.Cookie {
	out := make([]*http.Cookie, len(r.cookies))
	copy(out, r.cookies)

	return out
}

func (r *Response) ensureOpen() error {
	if r.committed {
		return errors.WithStack(ErrResponseCommitted)
	}

	return nil
}

func (r *Response) defaultContentType(ct string) {
	if !r.headers.ContentTypeSet() {
		r.ContentType(ct)
	}
}

func (r *Response) applyCookies() {
	for _, c := range r.cookies {
		if v := c.String(); v != "" {
			r.headers.Add(headerSetCookie, v)
		}
	}
}

// commit transitions the response to committed and hands buf to the committer. The response does not
// keep a reference to buf afterwards.
func (r *Response) commit(buf *bytes.Buffer) error {
	if err := r.ensureOpen(); err != nil {
		r.bufs.Put(buf)
		return err
	}

	r.committed = true
	r.applyCookies()
	r.headers.freeze()

	return wrapCommitErr(r.committer(buf))
}

// takeOver marks the response as committed without a body, for when the connection is handed to
// another protocol.
func (r *Response) takeOver() error {
	if err := r.ensureOpen(); err != nil {
		return err
	}

	r.committed = true
	r.headers.freeze()

	return nil
}

// reset returns the response to its initial state so an error response can replace it. It panics when
// the response was already committed.
func (r *Response) reset() {
	if r.committed {
		panic("bresp: cannot reset a committed response")
	}

	r.status = Status{}
	r.headers.reset()
	r.cookies = nil
}
