package vnode

import (
	"fmt"
	"strconv"
)

// Construct builds a description. When tag is Fragment the children are
// returned as Children instead of a *VNode. Children are stored exactly as
// passed; nested lists are flattened later by the materializer and the diff
// engine.
//
//	Construct("ul", Props{"class": "list"},
//	    Construct("li", nil, "one"),
//	    Construct(Fragment, nil, Construct("li", nil, "two"), "three"),
//	)
func Construct(tag any, props Props, children ...any) any {
	if IsFragment(tag) {
		return Children(children)
	}
	return New(tag, props, children...)
}

// New builds a *VNode. Unlike Construct it never collapses fragments.
func New(tag any, props Props, children ...any) *VNode {
	p := make(Props, len(props)+1)
	for k, v := range props {
		p[k] = v
	}
	if len(children) > 0 {
		p[PropChildren] = Children(children)
	}
	return &VNode{
		ID:    idCounter.Add(1),
		Tag:   tag,
		Props: p,
	}
}

// Flatten resolves nested child lists into a flat slice. Nil entries are
// dropped; everything else, including values of unknown shape, is kept for
// the caller to validate.
func Flatten(children any) []any {
	var out []any
	flattenInto(&out, children)
	return out
}

func flattenInto(out *[]any, v any) {
	switch c := v.(type) {
	case nil:
	case Children:
		for _, item := range c {
			flattenInto(out, item)
		}
	case []any:
		for _, item := range c {
			flattenInto(out, item)
		}
	case []*VNode:
		for _, item := range c {
			if item != nil {
				*out = append(*out, item)
			}
		}
	case []string:
		for _, item := range c {
			*out = append(*out, item)
		}
	case *VNode:
		if c == nil {
			return
		}
		if IsFragment(c.Tag) {
			flattenInto(out, c.Children())
			return
		}
		*out = append(*out, c)
	default:
		*out = append(*out, c)
	}
}

// IsPrimitive reports whether v materializes as a primitive node.
func IsPrimitive(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}

// PrimitiveText returns the content a primitive value renders as.
func PrimitiveText(v any) string {
	switch p := v.(type) {
	case string:
		return p
	case bool:
		return strconv.FormatBool(p)
	case float32:
		return strconv.FormatFloat(float64(p), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(p, 'f', -1, 64)
	default:
		return fmt.Sprint(p)
	}
}
