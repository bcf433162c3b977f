package bresp

import (
	"context"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/semaphore"
)

// DefaultBackgroundWorkers bounds the blocking work that runs at the same time when no limit is given.
const DefaultBackgroundWorkers = 64

// Background runs blocking work (file attribute reads, body reads, parsing of large bodies) off the
// goroutine that serves the request, with a bound on how much of it runs at the same time.
type Background struct {
	sem *semaphore.Weighted
}

// NewBackground inits a background executor that runs at most workers functions at once.
func NewBackground(workers int64) *Background {
	if workers <= 0 {
		workers = DefaultBackgroundWorkers
	}

	return &Background{sem: semaphore.NewWeighted(workers)}
}

// Exec runs fn on a background goroutine and waits for it. When ctx is done first Exec returns the
// context's error; fn keeps running to completion with a cancelled context. Panics in fn are returned
// as errors.
func (b *Background) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return errors.Wrap(err, "acquire background worker")
	}

	done := make(chan error, 1)
	go func() {
		defer b.sem.Release(1)
		defer func() {
			if e := recover(); e != nil {
				done <- errors.Newf("background panic: %v", e)
			}
		}()

		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Blocking runs fn on the background executor and returns its result.
func Blocking[T any](ctx context.Context, bg *Background, fn func(ctx context.Context) (T, error)) (T, error) {
	var res T
	err := bg.Exec(ctx, func(ctx context.Context) (err error) {
		res, err = fn(ctx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return res, nil
}

// BlockingCloser is [Blocking] for results that hold a resource. When ctx is done before fn returns, the
// result fn produces later is closed instead of dropped.
func BlockingCloser[T io.Closer](ctx context.Context, bg *Background, fn func(ctx context.Context) (T, error)) (T, error) {
	var (
		mu        sync.Mutex
		res       T
		got       bool
		abandoned bool
	)

	err := bg.Exec(ctx, func(ctx context.Context) error {
		r, err := fn(ctx)
		if err != nil {
			return err
		}

		mu.Lock()
		defer mu.Unlock()
		if abandoned {
			_ = r.Close()
			return nil
		}

		res, got = r, true
		return nil
	})
	if err != nil {
		mu.Lock()
		defer mu.Unlock()

		// fn may have finished just before ctx was seen as done
		abandoned = true
		if got {
			_ = res.Close()
		}

		var zero T
		return zero, err
	}

	return res, nil
}
