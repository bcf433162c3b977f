package bresp

import (
	"log"
	"sync/atomic"
	"testing"
)

// Logger can be implemented to get informed about important states.
type Logger interface {
	LogUnhandledServeError(err error)
	LogImplicitCommitError(err error)
	LogCommittedServeError(err error)
}

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogUnhandledServeError(err error) {
	l.Logger.Printf("bresp: unhandled server error: %s", err)
}

func (l stdLogger) LogImplicitCommitError(err error) {
	l.Logger.Printf("bresp: error while committing implicitly: %s", err)
}

func (l stdLogger) LogCommittedServeError(err error) {
	l.Logger.Printf("bresp: server error after response was committed: %s", err)
}

func NewStdLogger(l *log.Logger) Logger {
	return stdLogger{l}
}

type TestLogger struct {
	tb testing.TB

	NumLogUnhandledServeError int64
	NumLogImplicitCommitError int64
	NumLogCommittedServeError int64
}

func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogUnhandledServeError(err error) {
	atomic.AddInt64(&l.NumLogUnhandledServeError, 1)
	l.tb.Logf("bresp: unhandled server error: %s", err)
}

func (l *TestLogger) LogImplicitCommitError(err error) {
	atomic.AddInt64(&l.NumLogImplicitCommitError, 1)
	l.tb.Logf("bresp: error while committing implicitly: %s", err)
}

func (l *TestLogger) LogCommittedServeError(err error) {
	atomic.AddInt64(&l.NumLogCommittedServeError, 1)
	l.tb.Logf("bresp: server error after response was committed: %s", err)
}

var _ Logger = &TestLogger{}
