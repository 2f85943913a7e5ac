// Package loom is the reconciliation runtime: it materializes descriptions
// built with vnode.Construct into live instances, tracks their lifecycle and
// reconciles later descriptions against the live tree with patches.
//
// # Core Types
//
// Runtime owns the instance registry, the primitive node pool, the scheduler
// and the host document:
//
//	rt := loom.New(loom.Options{Config: loom.ImmediateConfig()})
//	insts, err := rt.Mount(ctx, doc.Body(), Counter, nil)
//
// Instance is one live node. Its Kind is fixed at construction: host
// element, composite component, foreign-runtime wrapper or primitive.
//
// Components implement Render and read state through keyed hooks:
//
//	func Counter(c *loom.Instance) any {
//	    count, setCount := loom.State(c, 0, "count")
//	    return vnode.Construct("button", vnode.Props{
//	        "onclick": loom.Callback(c, func() { setCount.Set(count + 1) }),
//	    }, count)
//	}
//
// # Reconciliation
//
// Diff compares a live instance with a new description and returns patches;
// Apply commits them in batched passes. Children are matched by position.
// Every diff and apply call carries a SessionID; once a newer session starts
// on the same origin the older one's remaining work is discarded.
//
// # Scheduling
//
// Config.NoDefering selects immediate mode, where host insertion, connect
// notifications and prop-change re-renders run synchronously. Otherwise they
// are queued on the runtime's sched.Scheduler.
//
// # Errors
//
// Construction errors are returned as *errors.Error values with an L0xx
// code. Panics raised while rendering or running effects become a
// *RenderError, published once on the error channel (see Runtime.Errors)
// and returned to the caller unless HandleErrors absorbs them.
package loom
