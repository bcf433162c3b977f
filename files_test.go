package bresp_test

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/advdv/bresp"
	"github.com/stretchr/testify/require"
)

func newFilesMux(t *testing.T) *bresp.ServeMux {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello file"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o700))

	pipeline := bresp.NewPipeline()
	pipeline.Files = bresp.DirFS(dir)
	pipeline.Logs = bresp.NewTestLogger(t)

	mux := bresp.NewServeMuxWith(pipeline, http.NewServeMux(), bresp.NewReverser())
	mux.HandleFunc("GET /files/{name...}", func(c *bresp.Context) error {
		if c.Request.URL.Query().Has("status") {
			c.Response.SetStatus(http.StatusAccepted)
		}

		c.Response.Cookie("seen", "1")

		return c.Response.SendFile(c, c.Background(), c.PathToken("name"))
	})

	return mux
}

func TestSendFileFromDir(t *testing.T) {
	mux := newFilesMux(t)

	for _, tt := range []struct {
		name    string
		path    string
		hdr     http.Header
		expCode int
		expBody string
	}{
		{"full", "/files/hello.txt", nil, http.StatusOK, "hello file"},
		{"range", "/files/hello.txt", http.Header{"Range": {"bytes=0-4"}}, http.StatusPartialContent, "hello"},
		{"custom status", "/files/hello.txt?status", nil, http.StatusAccepted, "hello file"},
		{"missing", "/files/nope.txt", nil, http.StatusNotFound, ""},
		{"directory", "/files/sub", nil, http.StatusNotFound, ""},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.hdr {
				req.Header[k] = v
			}

			mux.ServeHTTP(rec, req)

			require.Equal(t, tt.expCode, rec.Code)
			if tt.expCode < 300 {
				require.Equal(t, tt.expBody, rec.Body.String())
				require.Equal(t, "seen=1", rec.Header().Get("Set-Cookie"))
			}
		})
	}
}

func TestDirFSStaysInRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o600))

	files := bresp.DirFS(dir)
	for _, name := range []string{"a.txt", "/a.txt", "../../a.txt", "sub/../a.txt"} {
		t.Run(name, func(t *testing.T) {
			info, err := files.Stat(context.Background(), name)
			require.NoError(t, err)
			require.Equal(t, "a.txt", info.Name())

			rc, err := files.Open(context.Background(), name)
			require.NoError(t, err)
			require.NoError(t, rc.Close())
		})
	}

	_, err := files.Stat(context.Background(), "b.txt")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

// slowFS opens files only after a delay and records whether they were closed.
type slowFS struct {
	delay  time.Duration
	opened atomic.Bool
	closed atomic.Bool
}

func (f *slowFS) Stat(context.Context, string) (fs.FileInfo, error) {
	return fileInfo{"f.txt", 3}, nil
}

func (f *slowFS) Open(context.Context, string) (io.ReadCloser, error) {
	time.Sleep(f.delay)
	f.opened.Store(true)

	return slowFile{Reader: strings.NewReader("abc"), fs: f}, nil
}

type slowFile struct {
	io.Reader
	fs *slowFS
}

func (f slowFile) Close() error {
	f.fs.closed.Store(true)
	return nil
}

func TestSendFileClosesFileOpenedAfterDeadline(t *testing.T) {
	files := &slowFS{delay: 100 * time.Millisecond}

	pipeline := bresp.NewPipeline()
	pipeline.Files = files
	pipeline.Logs = bresp.NewTestLogger(t)

	hdlr := bresp.ToStd(bresp.HandlerFunc(func(c *bresp.Context) error {
		ctx, cancel := context.WithTimeout(c, 20*time.Millisecond)
		defer cancel()

		return c.Response.SendFileInfo(ctx, c.Background(), fileInfo{"f.txt", 3}, "f.txt")
	}), pipeline)

	rec, req := httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/f.txt", nil)
	require.PanicsWithValue(t, http.ErrAbortHandler, func() { hdlr.ServeHTTP(rec, req) })

	require.Eventually(t, files.opened.Load, time.Second, 5*time.Millisecond)
	require.Eventually(t, files.closed.Load, time.Second, 5*time.Millisecond)
}
