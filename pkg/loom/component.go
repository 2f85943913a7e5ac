package loom

import (
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/vango-dev/loom/pkg/sched"
	"github.com/vango-dev/loom/pkg/vnode"
)

// Component renders a description for its instance. Hooks are called from
// Render with the instance as their first argument.
type Component interface {
	Render(c *Instance) any
}

// ComponentFunc adapts a function into a Component. The function itself can
// be used as a tag.
type ComponentFunc func(c *Instance) any

// Render implements Component.
func (f ComponentFunc) Render(c *Instance) any { return f(c) }

// TagName derives a custom element name from the function's symbol,
// e.g. "app.Counter" becomes "app-counter".
func (f ComponentFunc) TagName() string {
	if f == nil {
		return ""
	}
	fn := runtime.FuncForPC(reflect.ValueOf(f).Pointer())
	if fn == nil {
		return ""
	}
	name := fn.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(strings.ReplaceAll(name, ".", "-"))
}

// ComponentType is a named, registrable composite component.
type ComponentType struct {
	// Name is the custom element name. Required.
	Name string

	// New creates the component for one instance.
	New func() Component

	// DefaultProps are merged under the props of every description.
	DefaultProps vnode.Props
}

// TagName implements vnode.Named.
func (t *ComponentType) TagName() string {
	if t == nil {
		return ""
	}
	return t.Name
}

// Define wraps a ComponentFunc into a named ComponentType.
func Define(name string, fn ComponentFunc) *ComponentType {
	return &ComponentType{
		Name: name,
		New:  func() Component { return fn },
	}
}

// PropsInitializer is implemented by components that normalize their props
// before the first render. A nil result keeps the props unchanged.
type PropsInitializer interface {
	InitProps(c *Instance, props vnode.Props) vnode.Props
}

// StateInitializer is implemented by components that seed state slots.
// Returned entries are keyed like State hooks.
type StateInitializer interface {
	InitState(c *Instance) (map[string]any, error)
}

// AsyncStateInitializer is implemented by components whose initial state
// arrives later. A placeholder is rendered until the future settles.
type AsyncStateInitializer interface {
	InitStateAsync(c *Instance) *sched.Future[map[string]any]
}

// Mounter is implemented by components with a mount hook.
type Mounter interface {
	Mount(c *Instance)
}

// Unmounter is implemented by components with a will-unmount hook.
type Unmounter interface {
	WillUnmount(c *Instance)
}

// Cleaner is implemented by components with a user cleanup hook, run first
// on teardown.
type Cleaner interface {
	Cleanup(c *Instance)
}

// LazyComponent is a component whose type is loaded asynchronously. The
// loader runs once; every instance shares its result.
type LazyComponent struct {
	Name string
	Load func() *sched.Future[*ComponentType]

	once   sync.Once
	future *sched.Future[*ComponentType]
}

// Lazy creates a LazyComponent.
func Lazy(name string, load func() *sched.Future[*ComponentType]) *LazyComponent {
	return &LazyComponent{Name: name, Load: load}
}

// TagName implements vnode.Named.
func (l *LazyComponent) TagName() string {
	if l == nil {
		return ""
	}
	return l.Name
}

func (l *LazyComponent) load() *sched.Future[*ComponentType] {
	l.once.Do(func() { l.future = l.Load() })
	return l.future
}
