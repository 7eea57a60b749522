package queue

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
)

const defaultMemoryBufferSize = 128

// MemoryBroker is a channel backed Broker used by tests and the development
// profile. Failed deliveries are requeued, preserving the at least once
// contract of the durable brokers it stands in for.
type MemoryBroker struct {
	mu     sync.Mutex
	queues map[Kind]chan Job
	closed bool
	size   int
}

var _ Broker = (*MemoryBroker)(nil)

type MemoryOption func(*MemoryBroker)

// WithMemoryBufferSize overrides the per kind queue depth.
func WithMemoryBufferSize(size int) MemoryOption {
	return func(b *MemoryBroker) {
		if size > 0 {
			b.size = size
		}
	}
}

// NewMemoryBroker creates an in process broker with one buffered queue per
// job kind.
func NewMemoryBroker(opts ...MemoryOption) *MemoryBroker {
	b := &MemoryBroker{
		queues: make(map[Kind]chan Job),
		size:   defaultMemoryBufferSize,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}

	return b
}

// Publish enqueues the job on its kind's queue.
func (b *MemoryBroker) Publish(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	queue, err := b.queue(job.Kind)
	if err != nil {
		return err
	}

	select {
	case queue <- job:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CategoryOperation, "context cancelled while enqueueing job")
	}
}

// Consume delivers jobs of the given kind to handler until ctx is done. A
// handler error puts the job back at the end of the queue.
func (b *MemoryBroker) Consume(ctx context.Context, kind Kind, handler Handler) error {
	queue, err := b.queue(kind)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-queue:
			if !ok {
				return nil
			}
			if err := handler(ctx, job); err != nil {
				b.requeue(queue, job)
			}
		}
	}
}

// Close stops accepting publishes and drains consumers.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, queue := range b.queues {
		close(queue)
	}

	return nil
}

// Pending reports the number of undelivered jobs for a kind.
func (b *MemoryBroker) Pending(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if queue, ok := b.queues[kind]; ok {
		return len(queue)
	}
	return 0
}

// Drain removes and returns one pending job without running a handler,
// primarily useful in tests that capture dispatched jobs.
func (b *MemoryBroker) Drain(kind Kind) (Job, bool) {
	b.mu.Lock()
	queue, ok := b.queues[kind]
	b.mu.Unlock()

	if !ok {
		return Job{}, false
	}

	select {
	case job, open := <-queue:
		return job, open
	default:
		return Job{}, false
	}
}

func (b *MemoryBroker) queue(kind Kind) (chan Job, error) {
	if !kind.IsValid() {
		return nil, errors.New("unknown job kind", errors.CategoryBadInput).
			WithMetadata(map[string]any{"kind": string(kind)})
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errors.New("broker is closed", errors.CategoryOperation)
	}

	queue, ok := b.queues[kind]
	if !ok {
		queue = make(chan Job, b.size)
		b.queues[kind] = queue
	}

	return queue, nil
}

func (b *MemoryBroker) requeue(queue chan Job, job Job) {
	select {
	case queue <- job:
	default:
		// queue full, the job is dropped rather than blocking the consumer
	}
}
