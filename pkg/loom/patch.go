package loom

import (
	"fmt"
	"strings"
)

// PatchType identifies the mutation a Patch describes.
type PatchType uint8

const (
	PatchCreate  PatchType = iota + 1 // Materialize New under Parent
	PatchRemove                       // Detach Old from Parent
	PatchReplace                      // Swap Old for New in place
	PatchText                         // Assign Value to the primitive Old
	PatchUpdate                       // Apply Props to their targets
)

// String returns the string representation of the PatchType.
func (t PatchType) String() string {
	switch t {
	case PatchCreate:
		return "create"
	case PatchRemove:
		return "remove"
	case PatchReplace:
		return "replace"
	case PatchText:
		return "text"
	case PatchUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// PropPatchType identifies a single prop change.
type PropPatchType uint8

const (
	PropUpdate PropPatchType = iota + 1
	PropRemove
)

// PropPatch is one changed or removed prop.
type PropPatch struct {
	Type   PropPatchType
	Target *Instance
	Key    string
	Value  any
}

// Patch is one required mutation produced by a diff pass. Patches are only
// valid within the pass that produced them.
type Patch struct {
	Type   PatchType
	Parent *Instance
	Old    *Instance
	New    any
	Props  []PropPatch
	Value  string
}

func (p Patch) String() string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(p.Type.String()))
	if p.Parent != nil {
		fmt.Fprintf(&b, " parent=%s", p.Parent)
	}
	if p.Old != nil {
		fmt.Fprintf(&b, " old=%s", p.Old)
	}
	switch p.Type {
	case PatchCreate, PatchReplace:
		fmt.Fprintf(&b, " new=%s", describe(p.New))
	case PatchText:
		fmt.Fprintf(&b, " value=%q", p.Value)
	case PatchUpdate:
		for _, pp := range p.Props {
			if pp.Type == PropRemove {
				fmt.Fprintf(&b, " -%s", pp.Key)
			} else {
				fmt.Fprintf(&b, " %s=%s", pp.Key, describe(pp.Value))
			}
		}
	}
	return b.String()
}

func describe(v any) string {
	switch d := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", d)
	case *Instance:
		return d.String()
	case interface{ Name() string }:
		return "<" + d.Name() + ">"
	case fmt.Stringer:
		return d.String()
	default:
		if isFunc(v) {
			return "func"
		}
		return fmt.Sprintf("%v", v)
	}
}

// Count returns how many patches of type t are in patches.
func Count(patches []Patch, t PatchType) int {
	n := 0
	for _, p := range patches {
		if p.Type == t {
			n++
		}
	}
	return n
}
