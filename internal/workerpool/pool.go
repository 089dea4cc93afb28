// Package workerpool runs work items on a fixed number of workers with a per-item timeout.
package workerpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Config sizes the pool.
type Config struct {
	Workers     int
	ItemTimeout time.Duration // zero disables the per-item deadline
}

// Pool bounds concurrency for a batch of items. One Pool may run many batches.
type Pool struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a pool. Fewer than one worker is raised to one.
func New(cfg Config, logger *zap.Logger) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Pool{cfg: cfg, logger: logger.Named("workerpool")}
}

// Item is one unit of work.
type Item[T any] struct {
	ID  string
	Run func(ctx context.Context) (T, error)
}

// Result is the outcome of one item.
type Result[T any] struct {
	ID       string
	Value    T
	Err      error
	TimedOut bool
	Duration time.Duration
}

// Run executes items and returns results in submission order. Items that exceed the
// per-item timeout are abandoned: their result is the zero value with TimedOut set, and the
// worker moves on without waiting for them. Cancelling ctx stops items not yet started.
func Run[T any](ctx context.Context, p *Pool, items []Item[T], onProgress func(done, total int)) []Result[T] {
	results := make([]Result[T], len(items))
	if len(items) == 0 {
		return results
	}

	jobs := make(chan int, len(items))
	for i := range items {
		jobs <- i
	}
	close(jobs)

	var (
		wg       sync.WaitGroup
		done     atomic.Int64
		progress sync.Mutex
	)
	for w := 0; w < min(p.cfg.Workers, len(items)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = runOne(ctx, p, items[i])
				n := int(done.Add(1))
				if onProgress != nil {
					progress.Lock()
					onProgress(n, len(items))
					progress.Unlock()
				}
			}
		}()
	}
	wg.Wait()
	return results
}

func runOne[T any](ctx context.Context, p *Pool, item Item[T]) Result[T] {
	res := Result[T]{ID: item.ID}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	itemCtx := ctx
	cancel := context.CancelFunc(func() {})
	if p.cfg.ItemTimeout > 0 {
		itemCtx, cancel = context.WithTimeout(ctx, p.cfg.ItemTimeout)
	}
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	ch := make(chan outcome, 1)
	start := time.Now()
	go func() {
		v, err := item.Run(itemCtx)
		ch <- outcome{v, err}
	}()

	select {
	case o := <-ch:
		res.Value, res.Err = o.value, o.err
	case <-itemCtx.Done():
		res.Err = itemCtx.Err()
	}
	res.Duration = time.Since(start)

	// A successful result stands even when the deadline passed right after it.
	if res.Err != nil && errors.Is(res.Err, context.DeadlineExceeded) &&
		errors.Is(itemCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		var zero T
		res.Value = zero
		res.TimedOut = true
		p.logger.Info("work item abandoned after timeout",
			zap.String("id", item.ID), zap.Duration("timeout", p.cfg.ItemTimeout))
	}
	return res
}
