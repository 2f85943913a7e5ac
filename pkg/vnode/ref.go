package vnode

import (
	"errors"
	"sync"
)

var (
	// ErrRefAssigned is returned when a RefObject is assigned a second time.
	ErrRefAssigned = errors.New("vnode: ref already assigned")

	// ErrInvalidRef is returned by Bind for ref values of unsupported shape.
	ErrInvalidRef = errors.New("vnode: ref must be a RefFunc or *RefObject")
)

// RefFunc is the callable ref form, invoked once with the live target.
type RefFunc func(target any)

// RefObject is the object ref form. Its value can be assigned exactly once.
type RefObject struct {
	mu       sync.Mutex
	current  any
	assigned bool
}

// NewRef returns an empty RefObject.
func NewRef() *RefObject {
	return &RefObject{}
}

// Current returns the bound target, or nil before binding.
func (r *RefObject) Current() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Assign binds the target. Later calls leave the value untouched.
func (r *RefObject) Assign(target any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.assigned {
		return ErrRefAssigned
	}
	r.current = target
	r.assigned = true
	return nil
}

// DeepEqual implements deep.Equaler; refs compare by identity.
func (r *RefObject) DeepEqual(other any) bool {
	o, ok := other.(*RefObject)
	return ok && o == r
}

// DeepClone implements deep.Cloner; refs are never copied.
func (r *RefObject) DeepClone() any { return r }

// Bind binds ref to target. A nil ref is a no-op.
func Bind(ref any, target any) error {
	switch r := ref.(type) {
	case nil:
		return nil
	case RefFunc:
		r(target)
		return nil
	case func(any):
		r(target)
		return nil
	case *RefObject:
		if r == nil {
			return ErrInvalidRef
		}
		return r.Assign(target)
	default:
		return ErrInvalidRef
	}
}
