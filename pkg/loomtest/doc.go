// Package loomtest provides testing helpers for loom components.
//
// A Harness owns a Runtime on a manual scheduler, settles the scheduler
// after every operation and records published errors and commit records.
//
// # Quick Start
//
//	func TestCounter(t *testing.T) {
//	    loomtest.EachMode(t, func(t *testing.T, h *loomtest.Harness) {
//	        c := h.Mount(Counter, vnode.Props{"start": 1})
//	        loomtest.ExpectContains(t, c, "1")
//
//	        h.Render(vnode.Construct(Counter, vnode.Props{"start": 2}))
//	        loomtest.ExpectHTML(t, h.Root(), "<x-counter><b>2</b></x-counter>")
//	    })
//	}
//
// # Options
//
// The harness is configured with functional options:
//
//	h := loomtest.New(t,
//	    loomtest.WithConfig(loom.ImmediateConfig()),
//	    loomtest.WithRegistry(reg),
//	)
//
// # Timers
//
// The scheduler clock only moves when asked to, so lazy placeholders and
// deferred connects are deterministic:
//
//	h.Advance(cfg.PlaceholderDeferTimeout)
//	loomtest.ExpectElement(t, h.Root(), "x-lazy")
package loomtest
