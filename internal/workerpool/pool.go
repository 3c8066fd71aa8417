// Package workerpool bounds how many stage calls run at once across all requests.
package workerpool

import (
	"context"
	"errors"

	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("worker pool closed")

// Pool runs blocking calls off the caller's goroutine with at most size in flight.
type Pool struct {
	sem  *semaphore.Weighted
	size int64
	done chan struct{}
}

func New(size int64) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{
		sem:  semaphore.NewWeighted(size),
		size: size,
		done: make(chan struct{}),
	}
}

// Do waits for a slot, then runs fn. If ctx ends before fn returns Do returns ctx.Err(); a
// call already running is left to finish in the background, its result is
// discarded and its slot released when it returns. fn receives ctx and should
// honor it.
func Do[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	select {
	case <-p.done:
		return zero, ErrClosed
	default:
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer p.sem.Release(1)
		v, err := fn(ctx)
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		select {
		case r := <-ch:
			return r.val, r.err
		default:
			return zero, ctx.Err()
		}
	}
}

// Close rejects new work and waits, up to ctx, for running calls to return.
func (p *Pool) Close(ctx context.Context) error {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
	if err := p.sem.Acquire(ctx, p.size); err != nil {
		return err
	}
	p.sem.Release(p.size)
	return nil
}
