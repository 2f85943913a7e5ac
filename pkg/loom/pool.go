package loom

import "github.com/vango-dev/loom/pkg/host"

// maxPooled bounds the number of idle primitive nodes kept for reuse.
const maxPooled = 512

// pool recycles primitive host nodes. A node is either pooled or live,
// never both: only get removes from the pool and only teardown returns to it.
type pool struct {
	doc    *host.Document
	free   []*host.Node
	pooled map[*host.Node]struct{}
	m      *Metrics
}

func newPool(doc *host.Document, m *Metrics) *pool {
	return &pool{
		doc:    doc,
		pooled: make(map[*host.Node]struct{}),
		m:      m,
	}
}

func (p *pool) get(text string) *host.Node {
	if n := len(p.free); n > 0 {
		node := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		delete(p.pooled, node)
		node.SetText(text)
		p.m.pool(true)
		return node
	}
	p.m.pool(false)
	return p.doc.CreateText(text)
}

func (p *pool) put(node *host.Node) {
	if node == nil || node.Type() != host.TextNode {
		return
	}
	if _, ok := p.pooled[node]; ok {
		return
	}
	node.Remove()
	if len(p.free) >= maxPooled {
		return
	}
	p.pooled[node] = struct{}{}
	p.free = append(p.free, node)
}

func (p *pool) contains(node *host.Node) bool {
	_, ok := p.pooled[node]
	return ok
}

func (p *pool) len() int { return len(p.free) }
