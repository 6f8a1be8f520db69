// Package worker runs batch work concurrently and rate limits it.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// PanicResult is reported for a job that panicked
type PanicResult struct {
	Value any
}

// GetError returns the panic as an error
func (r *PanicResult) GetError() error {
	return fmt.Errorf("job panicked: %v", r.Value)
}

type slot struct {
	index int
	job   Job
}

// Pool executes jobs on a fixed number of goroutines. Every accepted job
// produces exactly one result, stored at the job's submission index.
// Once the pool's context is done, queued jobs still run and are expected
// to report the context error themselves.
type Pool struct {
	workers int
	queue   chan slot
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex // guards results
	results []Result

	sendMu sync.RWMutex // held for reading while sending to queue
	closed bool

	submitted atomic.Int64
	completed atomic.Int64
	startOnce sync.Once
	closeOnce sync.Once
}

// NewPool creates a pool bound to parent: cancelling parent cancels the
// context jobs run with
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers: workers,
		queue:   make(chan slot, workers*2),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers. Calling it again has no effect.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.run()
		}
	})
}

func (p *Pool) run() {
	defer p.wg.Done()

	for s := range p.queue {
		result := p.execute(s.job)
		p.completed.Add(1)

		p.mu.Lock()
		p.results[s.index] = result
		p.mu.Unlock()
	}
}

func (p *Pool) execute(job Job) (result Result) {
	defer func() {
		if v := recover(); v != nil {
			result = &PanicResult{Value: v}
		}
	}()
	return job.Execute(p.ctx)
}

// Submit queues a job and blocks while the queue is full. It returns false
// when the pool is stopped or its context is done; the job is then dropped.
func (p *Pool) Submit(job Job) bool {
	p.sendMu.RLock()
	defer p.sendMu.RUnlock()

	if p.closed || p.ctx.Err() != nil {
		return false
	}

	p.mu.Lock()
	index := len(p.results)
	p.results = append(p.results, nil)
	p.mu.Unlock()

	select {
	case p.queue <- slot{index: index, job: job}:
		p.submitted.Add(1)
		return true
	case <-p.ctx.Done():
		return false
	}
}

// Wait stops accepting jobs, waits for the queued ones and returns their
// results in submission order. Jobs dropped by Submit leave no result.
func (p *Pool) Wait() []Result {
	p.close()
	p.wg.Wait()
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]Result, 0, len(p.results))
	for _, r := range p.results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Shutdown cancels the pool context and waits for the workers to drain
func (p *Pool) Shutdown() {
	p.cancel()
	p.Wait()
}

// Stats returns the number of accepted and completed jobs
func (p *Pool) Stats() (submitted, completed int64) {
	return p.submitted.Load(), p.completed.Load()
}

func (p *Pool) close() {
	p.closeOnce.Do(func() {
		p.sendMu.Lock()
		p.closed = true
		close(p.queue)
		p.sendMu.Unlock()
	})
}
