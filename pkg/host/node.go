package host

import (
	"sort"
	"strings"
)

// NodeType is the host node discriminator.
type NodeType uint8

const (
	ElementNode  NodeType = iota // <div>, <my-widget>, ...
	TextNode                     // Bare text content
	FragmentNode                 // Detached grouping, emptied on insertion
)

// String returns the string representation of the NodeType.
func (t NodeType) String() string {
	switch t {
	case ElementNode:
		return "Element"
	case TextNode:
		return "Text"
	case FragmentNode:
		return "Fragment"
	default:
		return "Unknown"
	}
}

// Node is a native platform node.
type Node struct {
	typ      NodeType
	tag      string
	text     string
	attrs    map[string]any
	parent   *Node
	children []*Node
	doc      *Document
}

// Type returns the node type.
func (n *Node) Type() NodeType { return n.typ }

// Tag returns the lower-cased tag name of an element node.
func (n *Node) Tag() string { return n.tag }

// Document returns the owning document.
func (n *Node) Document() *Document { return n.doc }

// Parent returns the parent node, or nil when detached.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.children) }

// Text returns the content of a text node.
func (n *Node) Text() string { return n.text }

// SetText assigns the content of a text node.
func (n *Node) SetText(s string) {
	if n.text == s {
		return
	}
	n.text = s
	n.doc.record(MutationText, n)
}

// TextContent returns the concatenated text of the subtree.
func (n *Node) TextContent() string {
	if n.typ == TextNode {
		return n.text
	}
	var b strings.Builder
	for _, c := range n.children {
		b.WriteString(c.TextContent())
	}
	return b.String()
}

// Attr returns an attribute value.
func (n *Node) Attr(name string) (any, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// AttrNames returns the attribute names in sorted order.
func (n *Node) AttrNames() []string {
	names := make([]string, 0, len(n.attrs))
	for k := range n.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetAttr sets an attribute.
func (n *Node) SetAttr(name string, value any) {
	if n.attrs == nil {
		n.attrs = make(map[string]any)
	}
	n.attrs[name] = value
	n.doc.record(MutationAttr, n)
}

// ReplaceAttr stores value under name without recording a mutation when the
// attribute already exists. It is meant for values that never serialize,
// such as event handlers.
func (n *Node) ReplaceAttr(name string, value any) {
	if _, ok := n.attrs[name]; !ok {
		n.SetAttr(name, value)
		return
	}
	n.attrs[name] = value
}

// RemoveAttr removes an attribute.
func (n *Node) RemoveAttr(name string) {
	if _, ok := n.attrs[name]; !ok {
		return
	}
	delete(n.attrs, name)
	n.doc.record(MutationAttr, n)
}

// AppendChild appends child, detaching it from any previous parent first.
// Appending a fragment moves the fragment's children and empties it.
func (n *Node) AppendChild(child *Node) {
	n.insertAt(len(n.children), child)
}

// InsertAfter inserts nodes directly after ref, which must be a child of n.
// A nil ref inserts at the front.
func (n *Node) InsertAfter(ref *Node, nodes ...*Node) {
	idx := 0
	if ref != nil {
		idx = n.indexOf(ref) + 1
		if idx == 0 {
			idx = len(n.children)
		}
	}
	for _, node := range nodes {
		idx += n.insertAt(idx, node)
	}
}

// RemoveChild detaches child from n.
func (n *Node) RemoveChild(child *Node) {
	idx := n.indexOf(child)
	if idx < 0 {
		return
	}
	n.children = append(n.children[:idx], n.children[idx+1:]...)
	child.parent = nil
	n.doc.record(MutationRemove, child)
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	if n.parent != nil {
		n.parent.RemoveChild(n)
	}
}

func (n *Node) indexOf(child *Node) int {
	for i, c := range n.children {
		if c == child {
			return i
		}
	}
	return -1
}

// insertAt inserts child at idx and returns the number of nodes inserted.
func (n *Node) insertAt(idx int, child *Node) int {
	if child == nil {
		return 0
	}
	if child.typ == FragmentNode {
		moved := child.children
		child.children = nil
		for _, c := range moved {
			c.parent = nil
		}
		n.splice(idx, moved)
		n.doc.record(MutationInsert, n)
		return len(moved)
	}
	if child.parent != nil {
		if child.parent == n && n.indexOf(child) < idx {
			idx--
		}
		child.parent.RemoveChild(child)
	}
	n.splice(idx, []*Node{child})
	n.doc.record(MutationInsert, child)
	return 1
}

func (n *Node) splice(idx int, nodes []*Node) {
	if idx > len(n.children) {
		idx = len(n.children)
	}
	for _, c := range nodes {
		c.parent = n
	}
	tail := append([]*Node(nil), n.children[idx:]...)
	n.children = append(append(n.children[:idx], nodes...), tail...)
}
