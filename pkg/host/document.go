package host

import (
	"errors"
	"strings"
	"sync"

	"github.com/vango-dev/loom/internal/deep"
)

// MutationKind classifies a recorded structural or content change.
type MutationKind uint8

const (
	MutationInsert MutationKind = iota + 1
	MutationRemove
	MutationAttr
	MutationText
)

// Mutation is delivered to the document observer.
type Mutation struct {
	Kind MutationKind
	Node *Node
}

// ErrDefinitionConflict is returned when a name is defined twice with
// different definitions.
var ErrDefinitionConflict = errors.New("host: element name already defined with a different definition")

// ErrInvalidName is returned for empty element names.
var ErrInvalidName = errors.New("host: element name must not be empty")

// Document owns nodes and the custom element registry.
type Document struct {
	body *Node

	counts   map[MutationKind]int
	observer func(Mutation)

	registryMu sync.RWMutex
	registry   map[string]any
}

// NewDocument creates an empty document with a <body> root.
func NewDocument() *Document {
	d := &Document{
		counts:   make(map[MutationKind]int),
		registry: make(map[string]any),
	}
	d.body = &Node{typ: ElementNode, tag: "body", doc: d}
	return d
}

// Body returns the document root element.
func (d *Document) Body() *Node { return d.body }

// CreateElement creates a detached element.
func (d *Document) CreateElement(tag string) *Node {
	return &Node{typ: ElementNode, tag: strings.ToLower(tag), doc: d}
}

// CreateText creates a detached text node.
func (d *Document) CreateText(text string) *Node {
	return &Node{typ: TextNode, text: text, doc: d}
}

// CreateFragment creates an empty fragment.
func (d *Document) CreateFragment() *Node {
	return &Node{typ: FragmentNode, doc: d}
}

// Observe installs fn as the mutation observer. Passing nil removes it.
func (d *Document) Observe(fn func(Mutation)) {
	d.observer = fn
}

// Mutations returns how many mutations of kind were recorded.
func (d *Document) Mutations(kind MutationKind) int {
	return d.counts[kind]
}

// ResetMutations clears the mutation counters.
func (d *Document) ResetMutations() {
	d.counts = make(map[MutationKind]int)
}

func (d *Document) record(kind MutationKind, n *Node) {
	if d == nil {
		return
	}
	d.counts[kind]++
	if d.observer != nil {
		d.observer(Mutation{Kind: kind, Node: n})
	}
}

// Define registers an element name. Defining a name again with an equal
// definition is a no-op; a different definition returns
// ErrDefinitionConflict.
func (d *Document) Define(name string, definition any) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ErrInvalidName
	}

	d.registryMu.Lock()
	defer d.registryMu.Unlock()

	if existing, ok := d.registry[name]; ok {
		if deep.Equal(existing, definition) {
			return nil
		}
		return ErrDefinitionConflict
	}
	d.registry[name] = definition
	return nil
}

// Lookup returns the definition registered for name.
func (d *Document) Lookup(name string) (any, bool) {
	d.registryMu.RLock()
	defer d.registryMu.RUnlock()
	def, ok := d.registry[strings.ToLower(name)]
	return def, ok
}

// Defined returns the number of registered element names.
func (d *Document) Defined() int {
	d.registryMu.RLock()
	defer d.registryMu.RUnlock()
	return len(d.registry)
}
