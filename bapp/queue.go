package bapp

import (
	"context"
	"time"

	"github.com/advdv/bresp/metrics"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/cockroachdb/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// QueueClient is the part of the SQS API the sample relay uses. It is implemented by *sqs.Client.
type QueueClient interface {
	ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, opts ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, opts ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

const (
	relayWaitSeconds  = 20
	relayMaxMessages  = 10
	relayRetryBackoff = time.Second
)

// SampleRelay publishes samples that an external sampler puts on an SQS queue to the metrics
// listeners. Messages are deleted once published.
type SampleRelay struct {
	client      QueueClient
	queueURL    string
	broadcaster *metrics.Broadcaster
	logs        *zap.Logger
	backoff     time.Duration
}

// NewSampleRelay inits the relay.
func NewSampleRelay(client QueueClient, queueURL string, b *metrics.Broadcaster, logs *zap.Logger) *SampleRelay {
	return &SampleRelay{
		client:      client,
		queueURL:    queueURL,
		broadcaster: b,
		logs:        logs.Named("relay").With(zap.String("queue_url", queueURL)),
		backoff:     relayRetryBackoff,
	}
}

// Run long-polls the queue until ctx is done. Receive failures are logged and retried after a pause.
func (r *SampleRelay) Run(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := r.poll(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			r.logs.Error("failed to relay samples", zap.Error(err))

			select {
			case <-ctx.Done():
				return
			case <-time.After(r.backoff):
			}
		case n > 0:
			r.logs.Debug("relayed samples", zap.Int("count", n))
		}
	}
}

// poll receives one batch of messages, publishes their bodies in order and deletes them.
func (r *SampleRelay) poll(ctx context.Context) (int, error) {
	out, err := r.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(r.queueURL),
		MaxNumberOfMessages: relayMaxMessages,
		WaitTimeSeconds:     relayWaitSeconds,
	})
	if err != nil {
		return 0, errors.Wrap(err, "receive messages")
	}

	for _, msg := range out.Messages {
		r.broadcaster.Publish(aws.ToString(msg.Body))
	}

	eg, ectx := errgroup.WithContext(ctx)
	for _, msg := range out.Messages {
		eg.Go(func() error { return r.delete(ectx, msg) })
	}

	if err := eg.Wait(); err != nil {
		return len(out.Messages), err
	}

	return len(out.Messages), nil
}

func (r *SampleRelay) delete(ctx context.Context, msg types.Message) error {
	if _, err := r.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(r.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		return errors.Wrapf(err, "delete message %s", aws.ToString(msg.MessageId))
	}

	return nil
}

// relayParams holds the dependencies of the relay lifecycle hook.
type relayParams struct {
	fx.In

	Env         Environment
	Broadcaster *metrics.Broadcaster
	Logger      *zap.Logger
	Queue       QueueClient `optional:"true"`
}

// startRelayHook runs the sample relay for the lifetime of the app when BW_SAMPLE_QUEUE_URL is set.
func startRelayHook(lc fx.Lifecycle, p relayParams) {
	url := p.Env.sampleQueueURL()
	if url == "" || p.Queue == nil {
		return
	}

	relay := NewSampleRelay(p.Queue, url, p.Broadcaster, p.Logger)
	runInBackground(lc, relay.Run)
}

// runInBackground runs fn from app start until app stop, and waits for it to return on stop.
func runInBackground(lc fx.Lifecycle, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				fn(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return errors.Wrap(stopCtx.Err(), "wait for background work")
			}
		},
	})
}
