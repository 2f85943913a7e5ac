package loom

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/loom/pkg/host"
	"github.com/vango-dev/loom/pkg/vnode"
)

// Apply commits a patch list produced by Diff in batched passes:
//
//  1. CREATE patches are grouped by parent and materialized into one
//     fragment per parent.
//  2. REMOVE patches unlink their instance; teardown and host removal run
//     with the batch.
//  3. REPLACE patches detach the old instance's children, materialize the
//     new subtree, insert it after the old node and remove the old node. In
//     deferred mode the detach runs in the idle task, just before insertion.
//  4. TEXT patches assign content synchronously.
//  5. UPDATE patches are merged per target so each instance receives one
//     prop-change notification.
//
// Host insertions and removals run synchronously in immediate mode and in a
// single idle task otherwise. Newly inserted instances are connected after
// the batch, immediately or after Config.DeferTimeout.
//
// The session is checked at entry and after every materialization. When it
// goes stale the remaining patches are dropped; what was already applied is
// committed.
func (rt *Runtime) Apply(ctx context.Context, origin SessionOrigin, id SessionID, patches []Patch) error {
	if !origin.IsCurrentSession(id) {
		rt.staleDiscard(origin, id)
		return nil
	}
	if len(patches) == 0 {
		rt.scheduleForeign()
		return nil
	}

	ctx, span := rt.tracer.Start(ctx, "loom.apply", trace.WithAttributes(patchAttributes(patches)...))
	defer span.End()

	b := &batch{rt: rt, ctx: ctx, origin: origin, id: id, start: time.Now()}
	err := b.run(patches)
	b.commit()
	if err != nil {
		recordSpanError(span, err)
	}
	return err
}

// batch is the state of one Apply call.
type batch struct {
	rt     *Runtime
	ctx    context.Context
	origin SessionOrigin
	id     SessionID
	start  time.Time

	ops    []func()
	linked []*Instance
	stale  bool
	counts [PatchUpdate + 1]int
}

func (b *batch) run(patches []Patch) error {
	passes := []func([]Patch) error{
		b.creates,
		b.removes,
		b.replaces,
		b.texts,
		b.updates,
	}
	for _, pass := range passes {
		if b.stale {
			return nil
		}
		if err := pass(patches); err != nil {
			return err
		}
	}
	return nil
}

// current reports whether the batch may keep mutating.
func (b *batch) current() bool {
	if b.stale {
		return false
	}
	if !b.origin.IsCurrentSession(b.id) {
		b.stale = true
		b.rt.staleDiscard(b.origin, b.id)
		return false
	}
	return true
}

func (b *batch) host(op func()) {
	b.ops = append(b.ops, op)
}

func (b *batch) link(parent *Instance, c *Instance) {
	if prev := c.Parent(); prev != nil && prev != parent {
		prev.removeChild(c)
	}
	parent.appendChild(c)
	b.linked = append(b.linked, c)
}

func (b *batch) creates(patches []Patch) error {
	var order []*Instance
	groups := make(map[*Instance][]any)
	for _, p := range patches {
		if p.Type != PatchCreate || p.Parent == nil {
			continue
		}
		if _, ok := groups[p.Parent]; !ok {
			order = append(order, p.Parent)
		}
		groups[p.Parent] = append(groups[p.Parent], p.New)
	}

	for _, parent := range order {
		if parent.phase == PhaseDisconnected {
			continue
		}
		var frag *host.Node
		if parent.kind != KindForeign {
			frag = b.rt.doc.CreateFragment()
		}
		for _, v := range groups[parent] {
			insts, err := b.rt.Materialize(b.ctx, b.origin, b.id, v)
			if err != nil {
				return err
			}
			if !b.current() {
				return nil
			}
			b.counts[PatchCreate]++
			for _, c := range insts {
				b.link(parent, c)
				if frag != nil && c.node != nil {
					frag.AppendChild(c.node)
				}
			}
		}
		if frag == nil {
			b.rt.markForeign(parent, UpdateChildren)
			continue
		}
		b.host(func() {
			if parent.node != nil {
				parent.node.AppendChild(frag)
			}
		})
	}
	return nil
}

func (b *batch) removes(patches []Patch) error {
	for _, p := range patches {
		if p.Type != PatchRemove || p.Old == nil || p.Old.phase == PhaseDisconnected {
			continue
		}
		old := p.Old
		if parent := old.Parent(); parent != nil {
			parent.removeChild(old)
			b.rt.markForeign(parent, UpdateChildren)
		}
		b.counts[PatchRemove]++
		b.host(old.DisconnectedCallback)
	}
	return nil
}

func (b *batch) replaces(patches []Patch) error {
	for _, p := range patches {
		if p.Type != PatchReplace || p.Old == nil || p.Old.phase == PhaseDisconnected {
			continue
		}
		old := p.Old
		parent := p.Parent
		if parent == nil {
			parent = old.Parent()
		}
		if parent == nil {
			continue
		}

		// In deferred mode the old children are detached by the same idle
		// task that inserts the new nodes, so the tree never shows a gap.
		detach := func() {
			for _, child := range old.Children() {
				child.DisconnectedCallback()
			}
		}
		if b.rt.cfg.NoDefering {
			detach()
			detach = func() {}
		}

		insts, err := b.rt.Materialize(b.ctx, b.origin, b.id, p.New)
		if err != nil {
			return err
		}
		if !b.current() {
			return nil
		}
		b.counts[PatchReplace]++

		for _, c := range insts {
			if prev := c.Parent(); prev != nil && prev != parent {
				prev.removeChild(c)
			}
		}
		parent.replaceChild(old, insts)
		b.linked = append(b.linked, insts...)
		if parent.kind == KindForeign {
			b.rt.markForeign(parent, UpdateChildren)
			b.host(old.DisconnectedCallback)
			continue
		}

		b.host(func() {
			detach()
			if parent.node != nil {
				nodes := make([]*host.Node, 0, len(insts))
				for _, c := range insts {
					if c.node != nil {
						nodes = append(nodes, c.node)
					}
				}
				if ref := old.node; ref != nil && ref.Parent() == parent.node {
					parent.node.InsertAfter(ref, nodes...)
				} else {
					for _, n := range nodes {
						parent.node.AppendChild(n)
					}
				}
			}
			old.DisconnectedCallback()
		})
	}
	return nil
}

func (b *batch) texts(patches []Patch) error {
	for _, p := range patches {
		if p.Type != PatchText || p.Old == nil || p.Old.phase == PhaseDisconnected {
			continue
		}
		v := p.New
		if !vnode.IsPrimitive(v) {
			v = p.Value
		}
		p.Old.setPrimitive(v)
		b.counts[PatchText]++
	}
	return nil
}

// propChange accumulates every UPDATE touching one target.
type propChange struct {
	set     vnode.Props
	removed map[string]struct{}
}

func (b *batch) updates(patches []Patch) error {
	var order []*Instance
	changes := make(map[*Instance]*propChange)
	for _, p := range patches {
		if p.Type != PatchUpdate {
			continue
		}
		b.counts[PatchUpdate]++
		for _, pp := range p.Props {
			target := pp.Target
			if target == nil {
				target = p.Old
			}
			if target == nil {
				continue
			}
			ch, ok := changes[target]
			if !ok {
				ch = &propChange{set: vnode.Props{}, removed: map[string]struct{}{}}
				changes[target] = ch
				order = append(order, target)
			}
			switch pp.Type {
			case PropRemove:
				delete(ch.set, pp.Key)
				ch.removed[pp.Key] = struct{}{}
			default:
				delete(ch.removed, pp.Key)
				ch.set[pp.Key] = pp.Value
			}
		}
	}

	var first error
	for _, target := range order {
		if target.phase == PhaseDisconnected {
			continue
		}
		ch := changes[target]
		if err := b.rt.applyProps(b.ctx, target, ch.set, ch.removed); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// applyProps writes merged prop changes to target and notifies it once. In
// immediate mode a composite target re-renders before applyProps returns and
// its render error is returned.
func (rt *Runtime) applyProps(ctx context.Context, target *Instance, set vnode.Props, removed map[string]struct{}) error {
	props := target.Props()
	for k, v := range set {
		props[k] = v
	}
	for k := range removed {
		delete(props, k)
	}
	target.props = props
	if target.base != nil {
		for k, v := range set {
			target.base[k] = v
		}
		for k := range removed {
			delete(target.base, k)
		}
	}

	switch target.kind {
	case KindHost:
		for _, k := range sortedKeys(set) {
			if isAttr(k) {
				target.node.SetAttr(k, set[k])
			}
		}
		for k := range removed {
			if isAttr(k) {
				target.node.RemoveAttr(k)
			}
		}
	case KindComposite:
		target.propsNotifications++
		if rt.cfg.NoDefering {
			return target.Rerender(ctx)
		}
		target.Invalidate()
	case KindForeign:
		var t UpdateType
		for k := range set {
			t |= foreignChannel(k)
		}
		for k := range removed {
			t |= foreignChannel(k)
		}
		rt.markForeign(target, t)
	}
	return nil
}

func foreignChannel(key string) UpdateType {
	if key == vnode.PropChildren {
		return UpdateChildren
	}
	return UpdateProps
}

// commit runs the host operations, connects new instances and reports the
// batch.
func (b *batch) commit() {
	rt := b.rt
	ops := b.ops
	linked := b.linked
	connect := func() {
		for _, c := range linked {
			if p := c.Parent(); p != nil && p.phase == PhaseAttached {
				c.ConnectedCallback()
			}
		}
	}

	if rt.cfg.NoDefering {
		for _, op := range ops {
			op()
		}
		connect()
	} else {
		if len(ops) > 0 {
			rt.sched.Idle(func() {
				rt.log.Debug("deferred host operations", "ops", len(ops))
				for _, op := range ops {
					op()
				}
			})
		}
		if len(linked) > 0 {
			rt.sched.After(rt.cfg.DeferTimeout, connect)
		}
	}
	rt.runAwaiting(linked)
	rt.scheduleForeign()

	total := 0
	for t := PatchCreate; t <= PatchUpdate; t++ {
		for i := 0; i < b.counts[t]; i++ {
			rt.metrics.patch(t)
		}
		total += b.counts[t]
	}
	if total == 0 {
		return
	}
	rt.metrics.commit(time.Since(b.start))

	rec := CommitRecord{
		Runtime:  rt.id,
		Created:  b.counts[PatchCreate],
		Removed:  b.counts[PatchRemove],
		Replaced: b.counts[PatchReplace],
		Text:     b.counts[PatchText],
		Updated:  b.counts[PatchUpdate],
		At:       rt.sched.Now(),
	}
	if c, ok := b.origin.(*Instance); ok {
		rec.Instance = c.id
		rec.Name = c.name
		rec.Root = rt.RootID(c)
	}
	rt.emitCommit(rec)
}
