// Package fixture loads declarative YAML trees for the loom CLI.
//
// A fixture names optional element defaults and one tree:
//
//	defaults:
//	  x-button: {type: button}
//	tree:
//	  tag: ul
//	  props: {class: list}
//	  children:
//	    - {tag: li, key: a, children: [one]}
//	    - {tag: li, key: b, text: two}
//	    - 3
//
// Scalars become primitive children, sequences become fragments, and
// mappings become elements. A mapping may use "text" as shorthand for a
// single text child and "key" as shorthand for the key prop.
package fixture

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/loom/internal/errors"
	"github.com/vango-dev/loom/pkg/vnode"
)

// Fixture is a parsed YAML tree.
type Fixture struct {
	// Defaults are element default props, keyed by tag.
	Defaults map[string]vnode.Props `yaml:"defaults"`

	// Tree is the description built from the tree section.
	Tree any `yaml:"-"`

	// Path is where the fixture was loaded from, if anywhere.
	Path string `yaml:"-"`
}

type document struct {
	Defaults map[string]map[string]any `yaml:"defaults"`
	Tree     yaml.Node                 `yaml:"tree"`
}

// Load reads and parses a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("L400").WithDetail(path).Wrap(err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	f.Path = path
	return f, nil
}

// Parse parses fixture YAML.
func Parse(data []byte) (*Fixture, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New("L400").Wrap(err)
	}
	if doc.Tree.Kind == 0 {
		return nil, errors.New("L400").
			WithDetail("missing tree section").
			WithSuggestion("Add a top-level tree: key holding the description")
	}

	tree, err := build(&doc.Tree)
	if err != nil {
		return nil, err
	}
	f := &Fixture{Tree: tree, Defaults: make(map[string]vnode.Props)}
	for tag, props := range doc.Defaults {
		f.Defaults[tag] = vnode.Props(props)
	}
	return f, nil
}

// Tags returns the tags with defaults, sorted.
func (f *Fixture) Tags() []string {
	tags := make([]string, 0, len(f.Defaults))
	for tag := range f.Defaults {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func build(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return build(n.Content[0])
	case yaml.AliasNode:
		return build(n.Alias)
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil, nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, invalid(n, err.Error())
		}
		return v, nil
	case yaml.SequenceNode:
		children := make(vnode.Children, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := build(c)
			if err != nil {
				return nil, err
			}
			children = append(children, v)
		}
		return children, nil
	case yaml.MappingNode:
		return buildElement(n)
	default:
		return nil, invalid(n, "unsupported node")
	}
}

func buildElement(n *yaml.Node) (any, error) {
	var (
		tag      string
		props    = vnode.Props{}
		children []any
		hasText  bool
	)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		switch k.Value {
		case "tag":
			tag = v.Value
		case "key":
			var key any
			if err := v.Decode(&key); err != nil {
				return nil, invalid(v, err.Error())
			}
			props[vnode.PropKey] = key
		case "props":
			var p map[string]any
			if err := v.Decode(&p); err != nil {
				return nil, invalid(v, "props must be a mapping")
			}
			for pk, pv := range p {
				props[pk] = pv
			}
		case "text":
			hasText = true
			children = append(children, v.Value)
		case "children":
			c, err := build(v)
			if err != nil {
				return nil, err
			}
			if list, ok := c.(vnode.Children); ok {
				children = append(children, list...)
			} else if c != nil {
				children = append(children, c)
			}
		default:
			return nil, invalid(k, fmt.Sprintf("unknown field %q", k.Value))
		}
	}
	if tag == "" {
		return nil, invalid(n, "element without tag")
	}
	if hasText && len(children) > 1 {
		return nil, invalid(n, "text and children are exclusive")
	}
	if tag == "fragment" {
		return vnode.Construct(vnode.Fragment, nil, children...), nil
	}
	return vnode.Construct(tag, props, children...), nil
}

func invalid(n *yaml.Node, msg string) error {
	return errors.New("L400").WithDetail(fmt.Sprintf("line %d: %s", n.Line, msg))
}
