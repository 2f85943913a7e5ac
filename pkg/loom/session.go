package loom

import (
	"context"
	"sync/atomic"
)

// SessionID identifies one render pass. IDs are unique across all trackers.
type SessionID uint64

// SessionOrigin is consulted by Diff and Apply before every mutation.
type SessionOrigin interface {
	IsCurrentSession(id SessionID) bool
}

var sessionSeq atomic.Uint64

// SessionTracker is a stack of in-flight render passes. Only the top of the
// stack is current; starting a pass supersedes every pass below it for good,
// so work belonging to them is discarded even after the newer pass completes.
type SessionTracker struct {
	stack []sessionEntry
}

type sessionEntry struct {
	id         SessionID
	cancel     context.CancelCauseFunc
	superseded bool
}

// Start pushes a fresh session. The returned context is cancelled with
// ErrStaleSession as its cause once a newer session starts.
func (t *SessionTracker) Start(ctx context.Context) (SessionID, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for i := range t.stack {
		if !t.stack[i].superseded {
			t.stack[i].superseded = true
			t.stack[i].cancel(ErrStaleSession)
		}
	}

	id := SessionID(sessionSeq.Add(1))
	sctx, cancel := context.WithCancelCause(ctx)
	t.stack = append(t.stack, sessionEntry{id: id, cancel: cancel})
	return id, sctx
}

// IsCurrent reports whether id is on top of the stack and not superseded.
func (t *SessionTracker) IsCurrent(id SessionID) bool {
	n := len(t.stack)
	return n > 0 && t.stack[n-1].id == id && !t.stack[n-1].superseded
}

// Complete pops id if it is current, then drops superseded entries left on
// top. It is a no-op for any other id.
func (t *SessionTracker) Complete(id SessionID) {
	if !t.IsCurrent(id) {
		return
	}
	top := t.stack[len(t.stack)-1]
	top.cancel(nil)
	t.stack = t.stack[:len(t.stack)-1]
	for len(t.stack) > 0 && t.stack[len(t.stack)-1].superseded {
		t.stack = t.stack[:len(t.stack)-1]
	}
}

// Depth returns the number of tracked sessions.
func (t *SessionTracker) Depth() int {
	return len(t.stack)
}

// reset cancels every tracked session.
func (t *SessionTracker) reset() {
	for _, e := range t.stack {
		e.cancel(ErrStaleSession)
	}
	t.stack = nil
}
