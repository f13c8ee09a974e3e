package merge

import (
	"context"
	"sync"
)

// Future is the eventual outcome of an asynchronous delivery.
// It resolves exactly once; later Resolve calls are ignored.
type Future struct {
	mu        sync.Mutex
	done      chan struct{}
	err       error
	resolved  bool
	callbacks []func(error)
}

// NewFuture creates an unresolved Future. Transports outside this package
// create one per Send and resolve it when the change has been delivered.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Resolve completes the future with err (nil for success) and reports
// whether this call was the one that resolved it. Registered callbacks run
// synchronously on the caller's goroutine.
func (f *Future) Resolve(err error) bool {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return false
	}
	f.resolved = true
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(err)
	}
	return true
}

// Done returns a channel that is closed once the future resolves.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Resolved reports whether the future has completed.
func (f *Future) Resolved() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolved
}

// Err returns the resolution error. It is nil while the future is pending.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// onResolve registers cb to run when the future resolves. If it already
// has, cb runs immediately.
func (f *Future) onResolve(cb func(error)) {
	f.mu.Lock()
	if !f.resolved {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	err := f.err
	f.mu.Unlock()
	cb(err)
}
