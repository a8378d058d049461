// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Mark Feghali

// Package buildpipe provides a rate-limited worker pool for the build
// pipeline, adapted from the teacher's pkg/util/workers.Pool. Here it runs
// the TSV feed parse and the MaxMind mmdb walk concurrently when a database
// build merges both sources, and paces the update tool's polling through
// RunOne.
package buildpipe

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Task is a unit of build-pipeline work.
type Task func(ctx context.Context) error

// Result is the outcome of one submitted Task.
type Result struct {
	Index int
	Error error
}

// Pool runs Tasks with bounded concurrency and an optional rate limit.
type Pool struct {
	limiter   *rate.Limiter
	semaphore chan struct{}
	results   chan Result
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// Config configures a Pool.
type Config struct {
	// Workers is the maximum number of Tasks running concurrently.
	Workers int
	// RateLimit is the maximum number of Task starts per second; 0 means no
	// limit.
	RateLimit float64
	// BurstSize is the token bucket burst size; defaults to Workers.
	BurstSize int
}

// NewPool returns a Pool bound to ctx: ctx.Done() cancels all running and
// pending tasks.
func NewPool(ctx context.Context, cfg Config) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = cfg.Workers
	}

	poolCtx, cancel := context.WithCancel(ctx)

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.BurstSize)
	}

	return &Pool{
		limiter:   limiter,
		semaphore: make(chan struct{}, cfg.Workers),
		results:   make(chan Result, cfg.Workers*2),
		ctx:       poolCtx,
		cancel:    cancel,
	}
}

// Submit schedules task to run, tagged with index for correlating it back
// to Wait's results.
func (p *Pool) Submit(index int, task Task) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		select {
		case p.semaphore <- struct{}{}:
			defer func() { <-p.semaphore }()
		case <-p.ctx.Done():
			p.results <- Result{Index: index, Error: p.ctx.Err()}
			return
		}

		if p.limiter != nil {
			if err := p.limiter.Wait(p.ctx); err != nil {
				p.results <- Result{Index: index, Error: err}
				return
			}
		}

		p.results <- Result{Index: index, Error: task(p.ctx)}
	}()
}

// Wait blocks until every submitted Task has completed and returns all
// Results, in completion order (not submission order).
func (p *Pool) Wait() []Result {
	go func() {
		p.wg.Wait()
		close(p.results)
	}()

	var results []Result
	for result := range p.results {
		results = append(results, result)
	}
	return results
}

// Stop cancels all running and pending tasks.
func (p *Pool) Stop() {
	p.cancel()
}

// RunOne runs task synchronously, still subject to the pool's concurrency
// limit and rate limiter. It exists for long-lived callers (a polling loop
// driving one task at a time) that want per-call backpressure without the
// Submit/Wait batch lifecycle, since Wait closes the shared results channel
// once drained and cannot be called again afterward.
func (p *Pool) RunOne(ctx context.Context, task Task) error {
	select {
	case p.semaphore <- struct{}{}:
		defer func() { <-p.semaphore }()
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(p.ctx); err != nil {
			return err
		}
	}

	return task(p.ctx)
}
