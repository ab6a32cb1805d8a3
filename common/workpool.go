package common

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// WorkPool bounds how many generation calls run at once. Callers block in Do
// until a slot frees up or their context ends.
type WorkPool struct {
	sem  *semaphore.Weighted
	size int64
}

func NewWorkPool(size int) *WorkPool {
	if size <= 0 {
		size = 1
	}
	return &WorkPool{sem: semaphore.NewWeighted(int64(size)), size: int64(size)}
}

// Do runs fn while holding one slot and returns its error.
func (p *WorkPool) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("work pool: %w", err)
	}
	defer p.sem.Release(1)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("work pool: task panicked: %v", r)
		}
	}()
	return fn(ctx)
}

// Size is the number of concurrent slots.
func (p *WorkPool) Size() int {
	return int(p.size)
}

// Run is Do for functions that produce a value.
func Run[T any](ctx context.Context, p *WorkPool, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := p.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	return out, err
}
