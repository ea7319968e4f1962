package persist

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	DefaultSaveQueueSize = 256
	DefaultSaveTimeout   = 10 * time.Second
)

// ErrQueueClosed is reported for saves enqueued after Close.
var ErrQueueClosed = errors.New("save queue closed")

// SaveQueue funnels every character write through one goroutine. Batches
// commit in the order they were enqueued, so a snapshot taken later never
// loses to one taken earlier.
type SaveQueue struct {
	repo    *CharacterRepo
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	jobs   chan saveJob
	wg     sync.WaitGroup
}

type saveJob struct {
	rows []CharacterRow
	done chan error
}

func NewSaveQueue(repo *CharacterRepo, size int, timeout time.Duration) *SaveQueue {
	if size <= 0 {
		size = DefaultSaveQueueSize
	}
	if timeout <= 0 {
		timeout = DefaultSaveTimeout
	}
	q := &SaveQueue{repo: repo, timeout: timeout, jobs: make(chan saveJob, size)}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *SaveQueue) run() {
	defer q.wg.Done()
	for job := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		job.done <- q.repo.SaveBatch(ctx, job.rows)
		cancel()
	}
}

// Enqueue hands rows to the writer. The returned channel yields exactly one
// result once the batch has committed or failed. Enqueue blocks while the
// queue is full.
func (q *SaveQueue) Enqueue(rows []CharacterRow) <-chan error {
	done := make(chan error, 1)
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		done <- ErrQueueClosed
		return done
	}
	q.jobs <- saveJob{rows: rows, done: done}
	return done
}

// Close writes what is already queued, then stops the writer.
func (q *SaveQueue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()
	q.wg.Wait()
}

// Wait blocks for the result of an enqueued save.
func Wait(ctx context.Context, done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
