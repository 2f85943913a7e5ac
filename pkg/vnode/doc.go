// Package vnode provides the description model consumed by the loom runtime.
//
// A VNode is an unmaterialized description: a tag, and props that include the
// children. Descriptions are rebuilt on every render and discarded after the
// diff/patch pass that consumes them; comparing two descriptions is the basis
// of reconciliation.
//
// # Construction
//
// Construct is the single entry point for declarative layers:
//
//	vnode.Construct("div", vnode.Props{"class": "card"},
//	    vnode.Construct("h1", nil, "Title"),
//	    items, // nested lists are allowed
//	)
//
// Passing Fragment as the tag returns the children directly, so grouping
// constructs never materialize a node.
//
// # Tags
//
// A tag is a host element name (string), a component value implementing
// Named, or a Thunk that resolves to one of those. Tags compare by name,
// case-insensitively.
//
// # Refs
//
// The ref prop is either a RefFunc, invoked once after materialization, or a
// *RefObject whose value is assigned once and is immutable afterwards.
package vnode
