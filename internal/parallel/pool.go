// Package parallel provides the worker pool used by the CPU reference
// reduction.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs batches of independent work items on a fixed set of
// goroutines.
//
// Items are pulled from a single shared queue, so a slow item never leaves
// other workers idle while work remains. ExecuteAll blocks until every item of
// its batch has finished.
//
// Thread safety: WorkerPool is safe for concurrent use.
type WorkerPool struct {
	workers int
	queue   chan func()
	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewWorkerPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &WorkerPool{
		workers: workers,
		queue:   make(chan func(), workers*2),
		done:    make(chan struct{}),
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	return p
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			p.drain()
			return
		case fn := <-p.queue:
			fn()
		}
	}
}

// drain runs whatever is still queued when the pool shuts down.
func (p *WorkerPool) drain() {
	for {
		select {
		case fn := <-p.queue:
			fn()
		default:
			return
		}
	}
}

// ExecuteAll runs every item and waits for all of them.
// On a closed pool the items run on the calling goroutine.
func (p *WorkerPool) ExecuteAll(work []func()) {
	if len(work) == 0 {
		return
	}
	if !p.running.Load() {
		for _, fn := range work {
			if fn != nil {
				fn()
			}
		}
		return
	}

	var batch sync.WaitGroup
	for _, fn := range work {
		if fn == nil {
			continue
		}
		batch.Add(1)
		item := fn
		wrapped := func() {
			defer batch.Done()
			item()
		}
		select {
		case p.queue <- wrapped:
		case <-p.done:
			wrapped()
		}
	}
	batch.Wait()
}

// Close stops the workers after they drain the queue.
// Close must not race with ExecuteAll. It is safe to call multiple times.
func (p *WorkerPool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool accepts work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// Band is a half-open row range [Start, End).
type Band struct {
	Start, End int
}

// Bands splits rows into at most parts contiguous bands of near-equal height.
func Bands(rows, parts int) []Band {
	if rows <= 0 {
		return nil
	}
	if parts <= 0 {
		parts = 1
	}
	parts = min(parts, rows)

	bands := make([]Band, 0, parts)
	base, extra := rows/parts, rows%parts
	start := 0
	for i := range parts {
		h := base
		if i < extra {
			h++
		}
		bands = append(bands, Band{Start: start, End: start + h})
		start += h
	}
	return bands
}
