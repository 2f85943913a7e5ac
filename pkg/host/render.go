package host

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"strconv"
)

// RenderConfig configures HTML serialization.
type RenderConfig struct {
	// Pretty enables indented output. Development only.
	Pretty bool

	// Indent is the string used per indentation level. Defaults to two spaces.
	Indent string
}

// Renderer serializes host trees to HTML.
type Renderer struct {
	config RenderConfig
}

// NewRenderer creates a Renderer with the given configuration.
func NewRenderer(config RenderConfig) *Renderer {
	if config.Indent == "" {
		config.Indent = "  "
	}
	return &Renderer{config: config}
}

// RenderString serializes n with the default configuration.
func RenderString(n *Node) string {
	s, _ := NewRenderer(RenderConfig{}).RenderToString(n)
	return s
}

// RenderToString serializes n to a string.
func (r *Renderer) RenderToString(n *Node) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToWriter(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToWriter streams the serialization of n to w.
func (r *Renderer) RenderToWriter(w io.Writer, n *Node) error {
	return r.renderNode(w, n, 0)
}

// RenderChildren serializes the children of n without n's own tag.
func (r *Renderer) RenderChildren(w io.Writer, n *Node) error {
	for _, c := range n.children {
		if err := r.renderNode(w, c, 0); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) renderNode(w io.Writer, n *Node, depth int) error {
	if n == nil {
		return nil
	}
	switch n.typ {
	case ElementNode:
		return r.renderElement(w, n, depth)
	case TextNode:
		_, err := io.WriteString(w, escapeHTML(n.text))
		return err
	case FragmentNode:
		for _, c := range n.children {
			if err := r.renderNode(w, c, depth); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("host: unknown node type: %d", n.typ)
	}
}

func (r *Renderer) renderElement(w io.Writer, n *Node, depth int) error {
	if r.config.Pretty && depth > 0 {
		r.writeIndent(w, depth)
	}

	if _, err := fmt.Fprintf(w, "<%s", n.tag); err != nil {
		return err
	}
	if err := r.renderAttributes(w, n); err != nil {
		return err
	}

	if IsVoidElement(n.tag) {
		if _, err := io.WriteString(w, ">"); err != nil {
			return err
		}
		if r.config.Pretty {
			io.WriteString(w, "\n")
		}
		return nil
	}

	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}

	block := len(n.children) > 0 && !isInlineElement(n.tag) && !onlyText(n)
	if r.config.Pretty && block {
		io.WriteString(w, "\n")
	}
	for _, c := range n.children {
		if err := r.renderNode(w, c, depth+1); err != nil {
			return err
		}
	}
	if r.config.Pretty && block {
		r.writeIndent(w, depth)
	}

	if _, err := fmt.Fprintf(w, "</%s>", n.tag); err != nil {
		return err
	}
	if r.config.Pretty {
		io.WriteString(w, "\n")
	}
	return nil
}

func (r *Renderer) renderAttributes(w io.Writer, n *Node) error {
	for _, key := range n.AttrNames() {
		value := n.attrs[key]
		if value == nil || isFunc(value) {
			continue
		}

		if b, ok := value.(bool); ok {
			if !b {
				continue
			}
			if isBooleanAttr(key) {
				if _, err := fmt.Fprintf(w, " %s", key); err != nil {
					return err
				}
				continue
			}
		}

		if _, err := fmt.Fprintf(w, ` %s="%s"`, key, escapeAttr(attrToString(value))); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) writeIndent(w io.Writer, depth int) {
	for i := 0; i < depth; i++ {
		io.WriteString(w, r.config.Indent)
	}
}

func onlyText(n *Node) bool {
	for _, c := range n.children {
		if c.typ != TextNode {
			return false
		}
	}
	return true
}

func isFunc(v any) bool {
	return reflect.ValueOf(v).Kind() == reflect.Func
}

func attrToString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
