package vnode

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/vango-dev/loom/internal/deep"
)

// Reserved prop names.
const (
	PropChildren = "children"
	PropKey      = "key"
	PropRef      = "ref"
	PropValue    = "value"
)

// Props holds the attributes of a description, including its children.
type Props map[string]any

// Children is an unflattened child list. Entries may themselves be
// Children or []any; Flatten resolves the nesting.
type Children []any

// Named is implemented by tags that carry a name (components, lazy and
// foreign components). Host tags are plain strings.
type Named interface {
	TagName() string
}

// Thunk is a tag resolved at diff or materialize time. It returns one of the
// other tag forms.
type Thunk func(ctx context.Context) (any, error)

type fragmentTag struct{}

func (fragmentTag) TagName() string { return "#fragment" }

// Fragment is the transparent grouping tag. Construct returns the children
// of a Fragment directly; no node is materialized for it.
var Fragment any = fragmentTag{}

var idCounter atomic.Uint64

// VNode is an unmaterialized description of a future node.
type VNode struct {
	ID    uint64 // Internal identifier, fresh for every construction
	Tag   any    // string, Named component, or Thunk
	Props Props  // Attributes; children live under PropChildren
}

// Name returns the tag name of the description, or "" for unresolved thunks.
func (v *VNode) Name() string {
	if v == nil {
		return ""
	}
	return TagName(v.Tag)
}

// Children returns the unflattened children of the description.
func (v *VNode) Children() Children {
	if v == nil || v.Props == nil {
		return nil
	}
	switch c := v.Props[PropChildren].(type) {
	case Children:
		return c
	case []any:
		return Children(c)
	case nil:
		return nil
	default:
		return Children{c}
	}
}

// Key returns the identity key of the description.
func (v *VNode) Key() (any, bool) {
	if v == nil || v.Props == nil {
		return nil, false
	}
	k, ok := v.Props[PropKey]
	return k, ok
}

// Ref returns the ref prop, if any.
func (v *VNode) Ref() any {
	if v == nil || v.Props == nil {
		return nil
	}
	return v.Props[PropRef]
}

// DeepEqual implements deep.Equaler. The internal identifier is ignored so
// two constructions of the same description compare equal.
func (v *VNode) DeepEqual(other any) bool {
	o, ok := other.(*VNode)
	if !ok {
		return false
	}
	if v == nil || o == nil {
		return v == o
	}
	if !SameTag(v.Tag, o.Tag) {
		return false
	}
	if _, isStr := v.Tag.(string); !isStr && !deep.Equal(v.Tag, o.Tag) {
		return false
	}
	return deep.Equal(map[string]any(v.Props), map[string]any(o.Props))
}

// DeepClone implements deep.Cloner.
func (v *VNode) DeepClone() any {
	if v == nil {
		return v
	}
	props, _ := deep.Clone(map[string]any(v.Props)).(map[string]any)
	return &VNode{ID: v.ID, Tag: v.Tag, Props: Props(props)}
}

// TagName returns the comparable name of a tag.
func TagName(tag any) string {
	switch t := tag.(type) {
	case string:
		return t
	case Named:
		return t.TagName()
	default:
		return ""
	}
}

// SameTag compares two tags by name, case-insensitively.
func SameTag(a, b any) bool {
	return strings.EqualFold(TagName(a), TagName(b))
}

// IsFragment reports whether tag is the transparent grouping tag.
func IsFragment(tag any) bool {
	_, ok := tag.(fragmentTag)
	return ok
}
