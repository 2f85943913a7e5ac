package loom

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vango-dev/loom/internal/deep"
	lerr "github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/vnode"
)

// Diff compares the live node old, a child of parent, with the description
// next and returns the patches needed to reconcile them. It returns nil
// without doing any work if id is not origin's current session, checked at
// entry and again after a thunk tag is resolved.
//
// Children are compared by position only: there is no key-based reordering.
func (rt *Runtime) Diff(ctx context.Context, origin SessionOrigin, id SessionID, parent, old *Instance, next any) ([]Patch, error) {
	ctx, span := rt.tracer.Start(ctx, "loom.diff")
	defer span.End()

	patches, err := rt.diff(ctx, origin, id, parent, old, next)
	if err != nil {
		recordSpanError(span, err)
	}
	span.SetAttributes(attribute.Int("loom.patches", len(patches)))
	return patches, err
}

// DiffChildren diffs the live children of parent against next, position by
// position up to the longer of the two lists. It returns nil until the
// parent's children have been initialized.
func (rt *Runtime) DiffChildren(ctx context.Context, origin SessionOrigin, id SessionID, parent *Instance, next []any) ([]Patch, error) {
	ctx, span := rt.tracer.Start(ctx, "loom.diff")
	defer span.End()

	patches, err := rt.diffChildren(ctx, origin, id, parent, next)
	if err != nil {
		recordSpanError(span, err)
	}
	span.SetAttributes(attribute.Int("loom.patches", len(patches)))
	return patches, err
}

func (rt *Runtime) diff(ctx context.Context, origin SessionOrigin, id SessionID, parent, old *Instance, next any) ([]Patch, error) {
	if !origin.IsCurrentSession(id) {
		rt.staleDiscard(origin, id)
		return nil, nil
	}

	if vn, ok := next.(*vnode.VNode); ok {
		if vn == nil {
			next = nil
		} else if _, isThunk := vn.Tag.(vnode.Thunk); isThunk {
			resolved, err := rt.resolveThunk(ctx, vn)
			if err != nil {
				return nil, err
			}
			if !origin.IsCurrentSession(id) {
				rt.staleDiscard(origin, id)
				return nil, nil
			}
			next = resolved
		}
	}

	switch {
	case old == nil && next == nil:
		return nil, nil
	case old == nil:
		return []Patch{{Type: PatchCreate, Parent: parent, New: next}}, nil
	case next == nil:
		return []Patch{{Type: PatchRemove, Parent: parent, Old: old}}, nil
	}

	if live, ok := next.(*Instance); ok {
		if live == old {
			return nil, nil
		}
		return []Patch{replace(parent, old, next)}, nil
	}

	if old.kind == KindPrimitive {
		if vnode.IsPrimitive(next) {
			if !deep.Equal(old.value, next) {
				old.setPrimitive(next)
				rt.markForeign(parent, UpdateChildren)
			}
			return nil, nil
		}
		return []Patch{replace(parent, old, next)}, nil
	}
	if vnode.IsPrimitive(next) {
		return []Patch{replace(parent, old, next)}, nil
	}

	vn, ok := next.(*vnode.VNode)
	if !ok {
		return nil, lerr.New("L004").WithDetail(fmt.Sprintf("child of type %T", next))
	}
	if !vnode.SameTag(old.tag, vn.Tag) {
		return []Patch{replace(parent, old, next)}, nil
	}
	if !sameKey(old.props, vn.Props) {
		return []Patch{replace(parent, old, next)}, nil
	}

	nextProps := vn.Props
	switch old.kind {
	case KindHost:
		nextProps = rt.withDefaults(rt.defaults[old.name], vn.Props)
	case KindComposite:
		if t, ok := old.tag.(*ComponentType); ok {
			nextProps = rt.withDefaults(t.DefaultProps, vn.Props)
		}
	}

	var patches []Patch
	if props := diffProps(old, nextProps, old.kind != KindHost); len(props) > 0 {
		patches = append(patches, Patch{Type: PatchUpdate, Parent: parent, Old: old, Props: props})
	}

	if old.kind == KindComposite {
		return patches, nil
	}

	nextChildren := vnode.Flatten(nextProps[vnode.PropChildren])
	if old.kind == KindHost {
		if p, ok := textPatch(old, nextChildren); ok {
			if p != nil {
				patches = append(patches, *p)
			}
			return patches, nil
		}
	}

	childPatches, err := rt.diffChildren(ctx, origin, id, old, nextChildren)
	if err != nil {
		return nil, err
	}
	return append(patches, childPatches...), nil
}

func (rt *Runtime) diffChildren(ctx context.Context, origin SessionOrigin, id SessionID, parent *Instance, next []any) ([]Patch, error) {
	if !parent.childrenInitialized {
		return nil, nil
	}
	old := parent.Children()
	n := len(old)
	if len(next) > n {
		n = len(next)
	}

	var patches []Patch
	for i := 0; i < n; i++ {
		var o *Instance
		var nv any
		if i < len(old) {
			o = old[i]
		}
		if i < len(next) {
			nv = next[i]
		}
		p, err := rt.diff(ctx, origin, id, parent, o, nv)
		if err != nil {
			return nil, err
		}
		if !origin.IsCurrentSession(id) {
			return nil, nil
		}
		patches = append(patches, p...)
	}
	return patches, nil
}

// textPatch handles a text-bearing element: one primitive child replaced by
// one primitive value yields a single TEXT patch. ok is false when the
// element is not text-bearing on both sides.
func textPatch(old *Instance, next []any) (p *Patch, ok bool) {
	if len(old.children) != 1 || old.children[0].kind != KindPrimitive {
		return nil, false
	}
	if len(next) != 1 || !vnode.IsPrimitive(next[0]) {
		return nil, false
	}
	child := old.children[0]
	text := vnode.PrimitiveText(next[0])
	if vnode.PrimitiveText(child.value) == text {
		return nil, true
	}
	return &Patch{Type: PatchText, Parent: old, Old: child, New: next[0], Value: text}, true
}

func replace(parent, old *Instance, next any) Patch {
	return Patch{Type: PatchReplace, Parent: parent, Old: old, New: next}
}

func sameKey(old, next vnode.Props) bool {
	ov, hasOld := old[vnode.PropKey]
	nv, hasNext := next[vnode.PropKey]
	if !hasOld && !hasNext {
		return true
	}
	return hasOld == hasNext && deep.Equal(ov, nv)
}

// diffProps compares props by deep value, ignoring key and ref. Children are
// compared only when withChildren is set. The baseline is the description
// the target was last built from, so InitProps normalization is not undone.
// Callables that compare equal are swapped into the target in place.
func diffProps(target *Instance, next vnode.Props, withChildren bool) []PropPatch {
	skip := func(k string) bool {
		return k == vnode.PropKey || k == vnode.PropRef || (k == vnode.PropChildren && !withChildren)
	}

	base := target.diffBase()
	var out []PropPatch
	for _, k := range sortedKeys(next) {
		if skip(k) {
			continue
		}
		ov, had := base[k]
		if had && deep.Equal(ov, next[k]) {
			if isFunc(next[k]) {
				target.refreshProp(k, next[k])
			}
			continue
		}
		out = append(out, PropPatch{Type: PropUpdate, Target: target, Key: k, Value: next[k]})
	}
	for _, k := range sortedKeys(base) {
		if skip(k) {
			continue
		}
		if _, ok := next[k]; !ok {
			out = append(out, PropPatch{Type: PropRemove, Target: target, Key: k})
		}
	}
	return out
}

func sortedKeys(m vnode.Props) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (rt *Runtime) staleDiscard(origin SessionOrigin, id SessionID) {
	rt.metrics.stale()
	if c, ok := origin.(*Instance); ok {
		c.log.Debug("stale session discarded", "session", uint64(id))
		return
	}
	rt.log.Debug("stale session discarded", "session", uint64(id))
}
