package bapp_test

import (
	"context"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/advdv/bresp"
	"github.com/advdv/bresp/bapp"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObjects serves objects from memory the way S3 answers HEAD and GET.
type fakeObjects struct {
	bucket  string
	objects map[string]string
	failure error
}

var modTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func (f *fakeObjects) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.failure != nil {
		return nil, f.failure
	}
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok || aws.ToString(in.Bucket) != f.bucket {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(body))), LastModified: aws.Time(modTime)}, nil
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	body, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3FileSystemStat(t *testing.T) {
	files := bapp.NewS3FileSystem(&fakeObjects{bucket: "b", objects: map[string]string{
		"assets/css/site.css": "body{}",
	}}, "b", "/assets/")

	for _, tt := range []struct {
		name    string
		file    string
		size    int64
		dir     bool
		wantErr error
	}{
		{name: "object", file: "css/site.css", size: 6},
		{name: "leading slash", file: "/css/site.css", size: 6},
		{name: "dot segments stay below prefix", file: "../assets/css/site.css", wantErr: fs.ErrNotExist},
		{name: "root is a directory", file: "/", dir: true},
		{name: "missing", file: "css/other.css", wantErr: fs.ErrNotExist},
	} {
		t.Run(tt.name, func(t *testing.T) {
			info, err := files.Stat(t.Context(), tt.file)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.dir, info.IsDir())
			assert.Equal(t, tt.size, info.Size())
			if !tt.dir {
				assert.Equal(t, "site.css", info.Name())
				assert.Equal(t, modTime, info.ModTime())
			}
		})
	}

	t.Run("other failures are kept", func(t *testing.T) {
		failing := bapp.NewS3FileSystem(&fakeObjects{bucket: "b", failure: errors.New("throttled")}, "b", "")

		_, err := failing.Stat(t.Context(), "x")
		require.ErrorContains(t, err, "throttled")
		assert.NotErrorIs(t, err, fs.ErrNotExist)
	})
}

func TestS3FileSystemSendFile(t *testing.T) {
	p := bresp.NewPipeline()
	p.Logs = bresp.NewTestLogger(t)
	p.Files = bapp.NewS3FileSystem(&fakeObjects{bucket: "b", objects: map[string]string{
		"report.csv": "a,b\n1,2\n",
	}}, "b", "")

	h := bresp.ToStd(bresp.HandlerFunc(func(c *bresp.Context) error {
		c.Response.Headers().Set("Content-Type", "text/csv")
		return c.Response.SendFile(c, c.Background(), c.Request.URL.Path)
	}), p)

	t.Run("found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report.csv", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "8", rec.Header().Get("Content-Length"))
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Equal(t, "a,b\n1,2\n", rec.Body.String())
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other.csv", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
