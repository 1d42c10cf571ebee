package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tzrikka/slackxapi/pkg/metrics"
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 1024
)

var ErrQueueClosed = errors.New("queue is not running")

// Queue decouples the receipt of Slack payloads from their processing:
// receivers hand over payloads and return immediately, and a fixed
// pool of workers processes them in the background.
type Queue struct {
	proc    *Processor
	ch      chan []byte
	workers int
	done    chan struct{}
}

func NewQueue(p *Processor, workers, size int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 0 {
		size = 0
	}

	return &Queue{
		proc:    p,
		ch:      make(chan []byte, size),
		workers: workers,
		done:    make(chan struct{}),
	}
}

// Enqueue blocks only if the queue is full, until a worker is
// available or the context is canceled. It doesn't block at all
// if the queue has stopped running.
func (q *Queue) Enqueue(ctx context.Context, payload []byte) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.ch <- payload:
		metrics.QueueDepth.Inc()
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return fmt.Errorf("failed to enqueue Slack payload: %w", ctx.Err())
	}
}

// Run starts the workers, and blocks until the context is canceled.
// Payloads that are still queued at that point are dropped.
func (q *Queue) Run(ctx context.Context) error {
	defer close(q.done)

	zerolog.Ctx(ctx).Info().Int("workers", q.workers).Int("queue_size", cap(q.ch)).Msg("starting workers")

	g := new(errgroup.Group)
	for i := range q.workers {
		g.Go(func() error {
			q.work(ctx, i)
			return nil
		})
	}
	return g.Wait()
}

func (q *Queue) work(ctx context.Context, id int) {
	l := zerolog.Ctx(ctx).With().Int("worker", id).Logger()
	ctx = l.WithContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-q.ch:
			metrics.QueueDepth.Dec()
			q.process(ctx, payload)
		}
	}
}

// process never lets a single payload stop the worker.
func (q *Queue) process(ctx context.Context, payload []byte) {
	l := zerolog.Ctx(ctx)
	defer func() {
		if r := recover(); r != nil {
			l.Error().Any("panic", r).Bytes("stack", debug.Stack()).Msg("recovered while processing Slack payload")
		}
	}()

	if _, err := q.proc.Process(ctx, payload); err != nil {
		l.Error().Err(err).Msg("failed to process Slack payload")
	}
}
