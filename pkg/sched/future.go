package sched

import "sync"

// Future is a value that becomes available later. Callbacks registered with
// Then always run on the scheduler goroutine, never inline.
type Future[T any] struct {
	s *Scheduler

	mu        sync.Mutex
	settled   bool
	value     T
	err       error
	callbacks []func(T, error)
	done      chan struct{}
}

// NewFuture creates an unsettled future bound to s.
func NewFuture[T any](s *Scheduler) *Future[T] {
	return &Future[T]{s: s, done: make(chan struct{})}
}

// Resolved returns a future already settled with v. Its callbacks still run
// asynchronously on the next flush.
func Resolved[T any](s *Scheduler, v T) *Future[T] {
	f := NewFuture[T](s)
	f.Resolve(v)
	return f
}

// Go runs fn on a new goroutine and settles the future with its result.
func Go[T any](s *Scheduler, fn func() (T, error)) *Future[T] {
	f := NewFuture[T](s)
	go func() {
		v, err := fn()
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(v)
	}()
	return f
}

// Resolve settles the future with v. Only the first settlement counts.
func (f *Future[T]) Resolve(v T) bool {
	return f.settle(v, nil)
}

// Reject settles the future with err. Only the first settlement counts.
func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.settle(zero, err)
}

func (f *Future[T]) settle(v T, err error) bool {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return false
	}
	f.settled = true
	f.value, f.err = v, err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb := cb
		f.s.Post(func() { cb(v, err) })
	}
	return true
}

// Then registers cb to run once the future settles.
func (f *Future[T]) Then(cb func(T, error)) {
	f.mu.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()
	f.s.Post(func() { cb(v, err) })
}

// Done is closed when the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Settled reports whether the future has been resolved or rejected.
func (f *Future[T]) Settled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Result returns the settled value and error. Both are zero while unsettled.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}
