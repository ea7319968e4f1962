package update

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Pool is a fixed set of worker goroutines fed from a bounded queue.
// When the queue is full the submitting goroutine runs the unit itself,
// so Submit never blocks and never loses work.
type Pool struct {
	queue   chan func()
	workers int
	g       errgroup.Group

	mu        sync.RWMutex // guards closed against Submit
	closed    bool
	saturated atomic.Int64
}

func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}
	p := &Pool{queue: make(chan func(), queueSize), workers: workers}
	for i := 0; i < workers; i++ {
		p.g.Go(func() error {
			for fn := range p.queue {
				fn()
			}
			return nil
		})
	}
	return p
}

func (p *Pool) Workers() int { return p.workers }

// Saturated counts units that ran on the submitter because the queue was full
// or the pool was closed.
func (p *Pool) Saturated() int64 { return p.saturated.Load() }

// Submit hands fn to a worker, or runs it inline. It reports whether fn
// was queued.
func (p *Pool) Submit(fn func()) bool {
	p.mu.RLock()
	if !p.closed {
		select {
		case p.queue <- fn:
			p.mu.RUnlock()
			return true
		default:
		}
	}
	p.mu.RUnlock()
	p.saturated.Add(1)
	fn()
	return false
}

// Close stops accepting work and waits for queued units to finish.
func (p *Pool) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	return p.g.Wait()
}
