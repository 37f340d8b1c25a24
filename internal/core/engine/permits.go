package engine

import (
	"context"
	"sync"
)

// permitPool is a counting semaphore whose capacity can change while permits
// are outstanding. Shrinking below the held count only delays new acquirers.
type permitPool struct {
	mu      sync.Mutex
	size    int
	held    int
	changed chan struct{}
}

func newPermitPool(size int) *permitPool {
	if size < 1 {
		size = 1
	}
	return &permitPool{size: size, changed: make(chan struct{})}
}

// Resize sets the capacity, never below one.
func (p *permitPool) Resize(size int) {
	if size < 1 {
		size = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.size == size {
		return
	}
	p.size = size
	p.notify()
}

// Acquire takes a permit, waiting until one is free or ctx ends.
func (p *permitPool) Acquire(ctx context.Context) error {
	for {
		p.mu.Lock()
		if p.held < p.size {
			p.held++
			p.mu.Unlock()
			return nil
		}
		changed := p.changed
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Release returns a permit.
func (p *permitPool) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.held > 0 {
		p.held--
	}
	p.notify()
}

// Available returns free permits, zero when the pool is over-committed.
func (p *permitPool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.held >= p.size {
		return 0
	}
	return p.size - p.held
}

// caller holds p.mu
func (p *permitPool) notify() {
	close(p.changed)
	p.changed = make(chan struct{})
}
