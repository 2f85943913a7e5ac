package sched

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// epoch is the starting point of the virtual clock.
var epoch = time.Unix(0, 0).UTC()

// Scheduler is a single-threaded cooperative task queue.
//
// Tasks run only on the goroutine that calls Flush, Advance or Run. Three
// queues are served in priority order: microtasks (drained completely after
// every task), idle tasks and timers. The clock is virtual: it moves only when
// Advance is called or, under Run, when wall-clock time passes.
//
// Microtask, Idle and After may be called from tasks. Post is the only method
// intended for other goroutines.
type Scheduler struct {
	mu     sync.Mutex
	now    time.Time
	micro  []func()
	idle   []func()
	posted []func()
	timers timerHeap
	seq    uint64
	wake   chan struct{}
}

// New creates a Scheduler with its virtual clock at the Unix epoch.
func New() *Scheduler {
	return &Scheduler{
		now:  epoch,
		wake: make(chan struct{}, 1),
	}
}

// Timer is a pending After callback.
type Timer struct {
	s     *Scheduler
	when  time.Time
	seq   uint64
	fn    func()
	index int
}

// Stop cancels the timer. It reports whether the timer was still pending.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.index < 0 {
		return false
	}
	heap.Remove(&t.s.timers, t.index)
	return true
}

// Now returns the scheduler's clock.
func (s *Scheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Microtask queues fn to run before any idle task or timer.
func (s *Scheduler) Microtask(fn func()) {
	s.mu.Lock()
	s.micro = append(s.micro, fn)
	s.mu.Unlock()
	s.signal()
}

// Idle queues fn to run once the microtask queue is empty.
func (s *Scheduler) Idle(fn func()) {
	s.mu.Lock()
	s.idle = append(s.idle, fn)
	s.mu.Unlock()
	s.signal()
}

// After schedules fn to run once the clock has advanced by d.
// A non-positive d behaves like a zero-delay timer.
func (s *Scheduler) After(d time.Duration, fn func()) *Timer {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	s.seq++
	t := &Timer{s: s, when: s.now.Add(d), seq: s.seq, fn: fn}
	heap.Push(&s.timers, t)
	s.mu.Unlock()
	s.signal()
	return t
}

// Post queues fn from any goroutine. Posted tasks run as microtasks on the
// scheduler goroutine.
func (s *Scheduler) Post(fn func()) {
	s.mu.Lock()
	s.posted = append(s.posted, fn)
	s.mu.Unlock()
	s.signal()
}

// Pending returns the number of queued tasks, including timers not yet due.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.micro) + len(s.idle) + len(s.posted) + len(s.timers)
}

// Flush runs every task that is ready at the current clock and returns how
// many ran. Tasks queued while flushing run in the same call.
func (s *Scheduler) Flush() int {
	n := 0
	for {
		fn := s.next()
		if fn == nil {
			return n
		}
		fn()
		n++
	}
}

// Advance moves the clock forward by d, firing timers in due order with the
// clock set to each timer's deadline, then flushes.
func (s *Scheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	n := s.Flush()
	for {
		s.mu.Lock()
		if len(s.timers) == 0 || s.timers[0].when.After(target) {
			s.now = target
			s.mu.Unlock()
			break
		}
		if s.timers[0].when.After(s.now) {
			s.now = s.timers[0].when
		}
		s.mu.Unlock()
		n += s.Flush()
	}
	return n + s.Flush()
}

// next pops the highest priority ready task.
func (s *Scheduler) next() func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.posted) > 0 {
		s.micro = append(s.micro, s.posted...)
		s.posted = nil
	}
	if len(s.micro) > 0 {
		fn := s.micro[0]
		s.micro[0] = nil
		s.micro = s.micro[1:]
		return fn
	}
	if len(s.idle) > 0 {
		fn := s.idle[0]
		s.idle[0] = nil
		s.idle = s.idle[1:]
		return fn
	}
	if len(s.timers) > 0 && !s.timers[0].when.After(s.now) {
		t := heap.Pop(&s.timers).(*Timer)
		return t.fn
	}
	return nil
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drives the scheduler against the wall clock until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	last := time.Now()
	for {
		now := time.Now()
		s.Advance(now.Sub(last))
		last = now

		var timer *time.Timer
		var timeout <-chan time.Time
		s.mu.Lock()
		if len(s.timers) > 0 {
			timer = time.NewTimer(s.timers[0].when.Sub(s.now))
			timeout = timer.C
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-s.wake:
		case <-timeout:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Do posts fn and blocks until it has run on the scheduler goroutine or ctx
// is done. It must not be called from a task.
func (s *Scheduler) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	s.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// timerHeap orders timers by deadline, then by creation order.
type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].seq < h[j].seq
	}
	return h[i].when.Before(h[j].when)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}
