package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the time between two samples when a Reporter has no interval.
const DefaultInterval = 5 * time.Second

// Reporter publishes a sample of Source on the Broadcaster every Interval. Sampling is skipped while
// nobody listens. Source gets a context that ends after one Interval.
type Reporter struct {
	Broadcaster *Broadcaster
	Interval    time.Duration
	Source      func(ctx context.Context) (string, error)
	Logs        *zap.Logger
}

// Run reports until ctx is done.
func (r *Reporter) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	logs := r.Logs
	if logs == nil {
		logs = zap.NewNop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.report(ctx, interval, logs)
		}
	}
}

func (r *Reporter) report(ctx context.Context, interval time.Duration, logs *zap.Logger) {
	if r.Broadcaster.Len() == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()

	s, err := r.Source(ctx)
	if err != nil {
		logs.Error("failed to take metrics sample", zap.Error(err))
		return
	}

	r.Broadcaster.Publish(s)
}
