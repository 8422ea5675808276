// Package worker runs analysis requests on a fixed pool of goroutines for
// batch mode.
package worker

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hailam/chessmentor/internal/explain"
)

// Job is one request to analyse.
type Job struct {
	Request explain.Request
	Index   int // input order, used to restore it on output
	Source  string
}

// Result is the outcome of one Job.
type Result struct {
	Index    int
	Source   string
	Analysis *explain.Analysis
	Err      error
}

// ProcessFunc analyses one job.
type ProcessFunc func(ctx context.Context, job Job) Result

// Pool manages a pool of workers analysing jobs in parallel.
type Pool struct {
	numWorkers  int
	bufferSize  int
	jobs        chan Job
	results     chan Result
	processFunc ProcessFunc
	wg          sync.WaitGroup
	stopped     atomic.Bool
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithWorkers sets the number of worker goroutines.
func WithWorkers(n int) PoolOption {
	return func(p *Pool) {
		if n >= 1 {
			p.numWorkers = n
		}
	}
}

// WithBufferSize sets the channel buffer size.
func WithBufferSize(size int) PoolOption {
	return func(p *Pool) {
		if size >= 1 {
			p.bufferSize = size
		}
	}
}

// NewPool creates a pool. Default: 1 worker, buffer size of 10.
func NewPool(processFunc ProcessFunc, opts ...PoolOption) *Pool {
	p := &Pool{
		numWorkers:  1,
		bufferSize:  10,
		processFunc: processFunc,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.jobs = make(chan Job, p.bufferSize)
	p.results = make(chan Result, p.bufferSize)
	return p
}

// AnalyzerFunc returns a ProcessFunc that runs jobs through a.
func AnalyzerFunc(a *explain.Analyzer) ProcessFunc {
	return func(ctx context.Context, job Job) Result {
		res := Result{Index: job.Index, Source: job.Source}
		if err := ctx.Err(); err != nil {
			res.Err = err
			return res
		}
		res.Analysis, res.Err = a.Analyze(job.Request)
		return res
	}
}

// Start starts the workers. They stop taking new jobs when ctx is done.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// worker processes jobs until the job channel is closed.
func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for job := range p.jobs {
		if p.IsStopped() || ctx.Err() != nil {
			continue // drain without processing
		}
		p.results <- p.processFunc(ctx, job)
	}
}

// Submit queues a job. It blocks while the buffer is full.
func (p *Pool) Submit(job Job) {
	p.jobs <- job
}

// TrySubmit queues a job without blocking. It returns false if the buffer
// is full or the pool is stopped.
func (p *Pool) TrySubmit(job Job) bool {
	if p.IsStopped() {
		return false
	}
	select {
	case p.jobs <- job:
		return true
	default:
		return false
	}
}

// Stop makes workers drop queued jobs instead of processing them.
func (p *Pool) Stop() {
	p.stopped.Store(true)
}

// IsStopped reports whether Stop was called.
func (p *Pool) IsStopped() bool {
	return p.stopped.Load()
}

// Close closes the job channel, waits for the workers and then closes the
// result channel.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
	close(p.results)
}

// Results returns the result channel.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Collect drains results and returns them in input order.
func Collect(results <-chan Result) []Result {
	var out []Result
	for r := range results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Run analyses every job on a fresh pool and returns the results in input
// order. Jobs dropped after ctx is done have no result.
func Run(ctx context.Context, jobs []Job, fn ProcessFunc, opts ...PoolOption) []Result {
	p := NewPool(fn, opts...)
	p.Start(ctx)
	go func() {
		for _, job := range jobs {
			p.Submit(job)
		}
		p.Close()
	}()
	return Collect(p.Results())
}
