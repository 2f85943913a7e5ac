package loom

import (
	"errors"
	"fmt"

	lerr "github.com/vango-dev/loom/internal/errors"
)

// ErrorEventName is the name of the event published on the error channel.
const ErrorEventName = "loom:render-error"

var (
	// ErrStaleSession is the cancellation cause of a superseded render pass.
	ErrStaleSession = errors.New("loom: stale session")

	// ErrDisconnected is returned when operating on a torn down instance.
	ErrDisconnected = errors.New("loom: instance disconnected")
)

// RenderError tags a failure raised while rendering with the instance that
// raised it.
type RenderError struct {
	Err      error
	Instance *Instance

	// Name is the component name, kept because teardown clears the
	// instance's fields.
	Name string

	published bool
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("loom: %s: %v", e.Name, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// ErrorEvent is delivered to error channel subscribers.
type ErrorEvent struct {
	Name      string
	Err       error
	Component *Instance
}

// Errors subscribes fn to the error channel. The returned function
// unsubscribes.
func (rt *Runtime) Errors(fn func(ErrorEvent)) func() {
	rt.errSeq++
	id := rt.errSeq
	rt.errSubs[id] = fn
	return func() { delete(rt.errSubs, id) }
}

// HandleErrors runs fn with handler installed. A RenderError returned by fn
// is passed to handler and absorbed; any other error is returned as is.
func (rt *Runtime) HandleErrors(fn func() error, handler func(*RenderError)) error {
	err := fn()
	var re *RenderError
	if errors.As(err, &re) {
		handler(re)
		return nil
	}
	return err
}

// renderError wraps err for c, reusing an existing RenderError in the chain
// so that nested renders publish the failure exactly once.
func (rt *Runtime) renderError(c *Instance, code string, err error) *RenderError {
	var re *RenderError
	if errors.As(err, &re) {
		return re
	}
	name := ""
	if c != nil {
		name = c.name
	}
	re = &RenderError{
		Err:      lerr.FromError(err, code),
		Instance: c,
		Name:     name,
	}
	rt.publish(re)
	return re
}

func (rt *Runtime) publish(re *RenderError) {
	if re.published {
		return
	}
	re.published = true
	rt.metrics.renderError(lerr.Code(re.Err))
	rt.log.Error("render error", "component", re.Name, "error", re.Err)

	ev := ErrorEvent{Name: ErrorEventName, Err: re, Component: re.Instance}
	for _, fn := range rt.errSubs {
		fn(ev)
	}
}

// recovered converts a recovered panic value into an error.
func recovered(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}
