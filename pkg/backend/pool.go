package backend

import (
	"runtime"
	"sync"
)

// DefaultGroupSize is how many invocations one pool work item covers.
const DefaultGroupSize = 16384

// Pool is a fixed set of goroutines fed from one queue. Dispatch splits
// the domain into groups of GroupSize and waits for all of them.
//
// Dispatch and Close exclude each other: Close waits for dispatches in
// flight, and a dispatch after Close fails with ErrClosed.
type Pool struct {
	mu     sync.RWMutex
	closed bool

	work      chan func()
	workers   int
	groupSize int
	wg        sync.WaitGroup
}

// NewPool starts a pool. If workers is 0 or negative, GOMAXPROCS is used;
// if groupSize is 0 or negative, DefaultGroupSize.
func NewPool(workers, groupSize int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if groupSize <= 0 {
		groupSize = DefaultGroupSize
	}

	p := &Pool{
		work:      make(chan func(), workers*4),
		workers:   workers,
		groupSize: groupSize,
	}
	p.wg.Add(workers)
	for range workers {
		go func() {
			defer p.wg.Done()
			for fn := range p.work {
				fn()
			}
		}()
	}
	return p
}

// run queues the items and returns once every one has run. kind names
// the backend in the error when the pool is closed.
func (p *Pool) run(kind Kind, items []func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return &Error{Backend: kind, Op: "dispatch", Err: ErrClosed}
	}

	var done sync.WaitGroup
	done.Add(len(items))
	for _, fn := range items {
		p.work <- func() {
			defer done.Done()
			fn()
		}
	}
	done.Wait()
	return nil
}

func (p *Pool) Kind() Kind { return KindParallel }

func (p *Pool) Groups(n int) int {
	return (max(n, 0) + p.groupSize - 1) / p.groupSize
}

// Dispatch runs fn over [0,n) in groups of GroupSize and waits.
func (p *Pool) Dispatch(n int, fn func(group, lo, hi int)) error {
	groups := p.Groups(n)
	items := make([]func(), groups)
	for g := range groups {
		lo := g * p.groupSize
		hi := min(lo+p.groupSize, n)
		items[g] = func() { fn(g, lo, hi) }
	}
	return p.run(KindParallel, items)
}

// Close waits for any dispatch in progress, then stops the workers.
// Safe to call more than once.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.work)
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *Pool) Workers() int   { return p.workers }
func (p *Pool) GroupSize() int { return p.groupSize }

func (p *Pool) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed
}
