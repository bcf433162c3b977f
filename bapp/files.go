package bapp

import (
	"context"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/advdv/bresp"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"
)

// ObjectClient is the part of the S3 API that files are served from. It is implemented by *s3.Client.
type ObjectClient interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3FileSystem serves the objects of a bucket as files. File names map to object keys below Prefix.
type S3FileSystem struct {
	client ObjectClient
	bucket string
	prefix string
}

// NewS3FileSystem inits a file system over the bucket. Keys are looked up below prefix, which may be
// empty.
func NewS3FileSystem(client ObjectClient, bucket, prefix string) *S3FileSystem {
	return &S3FileSystem{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3FileSystem) key(name string) string {
	return strings.TrimPrefix(path.Join(s.prefix, path.Clean("/"+name)), "/")
}

// Stat implements bresp.FileSystem with a HEAD request. Missing objects wrap fs.ErrNotExist.
func (s *S3FileSystem) Stat(ctx context.Context, name string) (fs.FileInfo, error) {
	key := s.key(name)
	if key == "" || key == s.prefix {
		return objectInfo{name: path.Base("/" + name), dir: true}, nil
	}

	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, objectErr(err, s.bucket, key)
	}

	return objectInfo{
		name:    path.Base(key),
		size:    aws.ToInt64(out.ContentLength),
		modTime: aws.ToTime(out.LastModified),
	}, nil
}

// Open implements bresp.FileSystem. The returned body is not seekable, so range requests are not
// answered for objects.
func (s *S3FileSystem) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := s.key(name)

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, objectErr(err, s.bucket, key)
	}

	return out.Body, nil
}

func objectErr(err error, bucket, key string) error {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return errors.Wrapf(fs.ErrNotExist, "object s3://%s/%s", bucket, key)
	}

	return errors.Wrapf(err, "object s3://%s/%s", bucket, key)
}

// objectInfo describes an object as a file.
type objectInfo struct {
	name    string
	size    int64
	modTime time.Time
	dir     bool
}

func (i objectInfo) Name() string { return i.name }
func (i objectInfo) Size() int64 { return i.size }
func (i objectInfo) ModTime() time.Time { return i.modTime }
func (i objectInfo) IsDir() bool { return i.dir }
func (i objectInfo) Sys() any { return nil }

func (i objectInfo) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}

var _ bresp.FileSystem = &S3FileSystem{}

// NewFileSystem returns the file system responses send files from: the bucket BW_FILES_BUCKET when
// set, the directory BW_FILES_DIR otherwise.
func NewFileSystem(env Environment, cfg aws.Config) bresp.FileSystem {
	if bucket := env.filesBucket(); bucket != "" {
		return NewS3FileSystem(s3.NewFromConfig(cfg), bucket, "")
	}
	return bresp.DirFS(env.filesDir())
}
