package auth

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// PoolObserver receives hash pool occupancy changes.
type PoolObserver interface {
	HashQueued(delta int)
	HashRunning(delta int)
}

// HashPool bounds how many password derivations run at once so a burst of logins
// cannot take every CPU away from request handling.
type HashPool struct {
	sem      *semaphore.Weighted
	size     int
	observer PoolObserver
}

// NewHashPool builds a pool with size slots; size <= 0 means one slot per CPU.
// observer may be nil.
func NewHashPool(size int, observer PoolObserver) *HashPool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	return &HashPool{
		sem:      semaphore.NewWeighted(int64(size)),
		size:     size,
		observer: observer,
	}
}

// Size reports the number of concurrent slots.
func (p *HashPool) Size() int { return p.size }

// Do runs fn once a slot is free. It returns ctx.Err() if the context ends first.
func (p *HashPool) Do(ctx context.Context, fn func() error) error {
	p.queued(1)
	err := p.sem.Acquire(ctx, 1)
	p.queued(-1)
	if err != nil {
		return err
	}
	defer p.sem.Release(1)

	p.running(1)
	defer p.running(-1)
	return fn()
}

func (p *HashPool) queued(delta int) {
	if p.observer != nil {
		p.observer.HashQueued(delta)
	}
}

func (p *HashPool) running(delta int) {
	if p.observer != nil {
		p.observer.HashRunning(delta)
	}
}
