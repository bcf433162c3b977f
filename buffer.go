package bresp

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"unicode/utf8"
)

// maxPooledBufferSize caps the capacity of buffers that are returned to the pool so a single large body
// does not pin memory.
const maxPooledBufferSize = 1 << 20

// BufferPool hands out body buffers. Ownership of a buffer passes to whoever commits it; the committer
// returns it with Put once the bytes are written.
type BufferPool interface {
	Get(size int) *bytes.Buffer
	Put(buf *bytes.Buffer)
}

type syncBufferPool struct{ pool sync.Pool }

// NewBufferPool inits a BufferPool backed by a sync.Pool.
func NewBufferPool() BufferPool {
	return &syncBufferPool{pool: sync.Pool{New: func() any { return new(bytes.Buffer) }}}
}

func (p *syncBufferPool) Get(size int) *bytes.Buffer {
	buf, _ := p.pool.Get().(*bytes.Buffer)
	buf.Reset()
	buf.Grow(size)

	return buf
}

func (p *syncBufferPool) Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledBufferSize {
		return
	}

	buf.Reset()
	p.pool.Put(buf)
}

// utf8Bytes returns the UTF-8 encoding of s. Invalid byte sequences are replaced by U+FFFD.
func utf8Bytes(s string) []byte {
	if utf8.ValidString(s) {
		return []byte(s)
	}

	return []byte(strings.ToValidUTF8(s, string(utf8.RuneError)))
}

// readInto copies r fully into buf.
func readInto(r io.Reader, buf *bytes.Buffer) error {
	if _, err := buf.ReadFrom(r); err != nil {
		return wrapReadErr(err, "read body stream")
	}

	return nil
}
