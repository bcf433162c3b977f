package bresp

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// FileSystem resolves the files a response can send. Both methods may block and are called on the
// background executor.
type FileSystem interface {
	Stat(ctx context.Context, name string) (fs.FileInfo, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// DirFS is a FileSystem rooted at a directory on the local disk. Names are cleaned and may not escape
// the root.
type DirFS string

// Stat implements FileSystem.
func (d DirFS) Stat(_ context.Context, name string) (fs.FileInfo, error) {
	p, err := d.resolve(name)
	if err != nil {
		return nil, err
	}

	return os.Stat(p)
}

// Open implements FileSystem. The returned file implements io.ReadSeeker.
func (d DirFS) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := d.resolve(name)
	if err != nil {
		return nil, err
	}

	return os.Open(p) //nolint:gosec
}

func (d DirFS) resolve(name string) (string, error) {
	clean := filepath.Clean("/" + filepath.ToSlash(name))
	if strings.Contains(clean, "\x00") {
		return "", errors.Wrapf(fs.ErrInvalid, "invalid file name %q", name)
	}

	return filepath.Join(string(d), filepath.FromSlash(clean)), nil
}

// httpFileTransmitter writes a file response for one request onto the standard library response writer.
type httpFileTransmitter struct {
	files FileSystem
	resp  *Response
	w     http.ResponseWriter
	r     *http.Request
}

func (t *httpFileTransmitter) Stat(ctx context.Context, name string) (fs.FileInfo, error) {
	return t.files.Stat(ctx, name)
}

func (t *httpFileTransmitter) Transmit(ctx context.Context, bg *Background, info fs.FileInfo, name string) error {
	if info.IsDir() {
		return errors.Newf("bresp: %q is a directory", name)
	}

	content, err := BlockingCloser(ctx, bg, func(ctx context.Context) (io.ReadCloser, error) {
		return t.files.Open(ctx, name)
	})
	if err != nil {
		return errors.Wrapf(err, "open %q", name)
	}
	defer content.Close()

	t.resp.headers.WriteTo(t.w.Header())

	// ServeContent answers range and conditional requests itself and sets the status, so it is only
	// used while the handler did not choose a status of its own.
	if rs, ok := content.(io.ReadSeeker); ok && t.resp.status.Code() == http.StatusOK {
		http.ServeContent(t.w, t.r, info.Name(), info.ModTime(), rs)
		return nil
	}

	t.w.Header().Set(headerContentLength, strconv.FormatInt(info.Size(), 10))
	if t.w.Header().Get(headerContentType) == "" {
		t.w.Header().Set(headerContentType, contentTypeBinary)
	}

	t.w.WriteHeader(t.resp.status.Code())

	if _, err := io.Copy(t.w, content); err != nil {
		return errors.Wrapf(err, "copy %q", name)
	}

	return nil
}
