package inspect

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vango-dev/loom/pkg/host"
	"github.com/vango-dev/loom/pkg/loom"
)

// Stats summarizes a runtime.
type Stats struct {
	Runtime   uuid.UUID   `json:"runtime"`
	Config    loom.Config `json:"config"`
	Instances int         `json:"instances"`
	Roots     int         `json:"roots"`
	Commits   uint64      `json:"commits"`
	Pooled    int         `json:"pooled"`
	Pending   int         `json:"pending"`
}

// RootInfo describes one mounted render root.
type RootInfo struct {
	ID       uuid.UUID `json:"id"`
	Instance uint64    `json:"instance"`
	Tag      string    `json:"tag"`
	Children []uint64  `json:"children"`
}

// InstanceInfo describes one instance.
type InstanceInfo struct {
	ID                 uint64         `json:"id"`
	Kind               string         `json:"kind"`
	Name               string         `json:"name"`
	Phase              string         `json:"phase"`
	Root               uuid.UUID      `json:"root"`
	Parent             uint64         `json:"parent,omitempty"`
	Children           []uint64       `json:"children"`
	Renders            int            `json:"renders"`
	PropsNotifications int            `json:"propsNotifications"`
	Props              map[string]any `json:"props,omitempty"`
	Value              any            `json:"value,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var stats Stats
	err := s.rt.Scheduler().Do(r.Context(), func() {
		stats = Stats{
			Runtime:   s.rt.ID(),
			Config:    s.rt.Config(),
			Instances: s.rt.Len(),
			Roots:     len(s.rt.Roots()),
			Commits:   s.rt.Commits(),
			Pooled:    s.rt.Pooled(),
		}
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	stats.Pending = s.rt.Scheduler().Pending()
	writeJSON(w, stats)
}

func (s *Server) handleRoots(w http.ResponseWriter, r *http.Request) {
	var roots []RootInfo
	err := s.rt.Scheduler().Do(r.Context(), func() {
		for _, root := range s.rt.Roots() {
			roots = append(roots, RootInfo{
				ID:       s.rt.RootID(root),
				Instance: root.ID(),
				Tag:      root.Name(),
				Children: childIDs(root),
			})
		}
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if roots == nil {
		roots = []RootInfo{}
	}
	writeJSON(w, roots)
}

func (s *Server) handleRootHTML(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "root"))
	if err != nil {
		http.Error(w, "invalid root id", http.StatusBadRequest)
		return
	}
	pretty := r.URL.Query().Get("pretty") != ""

	var (
		html      string
		found     bool
		renderErr error
	)
	err = s.rt.Scheduler().Do(r.Context(), func() {
		for _, root := range s.rt.Roots() {
			if s.rt.RootID(root) != id {
				continue
			}
			found = true
			html, renderErr = renderChildren(root.Node(), pretty)
			return
		}
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if renderErr != nil {
		http.Error(w, renderErr.Error(), http.StatusInternalServerError)
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

func (s *Server) handleInstance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid instance id", http.StatusBadRequest)
		return
	}

	var (
		info  InstanceInfo
		found bool
	)
	err = s.rt.Scheduler().Do(r.Context(), func() {
		c, ok := s.rt.Lookup(id)
		if !ok {
			return
		}
		found = true
		info = describe(s.rt, c)
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if !found {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, info)
}

func describe(rt *loom.Runtime, c *loom.Instance) InstanceInfo {
	info := InstanceInfo{
		ID:                 c.ID(),
		Kind:               c.Kind().String(),
		Name:               c.Name(),
		Phase:              c.Phase().String(),
		Root:               rt.RootID(c),
		Children:           childIDs(c),
		Renders:            c.RenderCount(),
		PropsNotifications: c.PropsNotifications(),
	}
	if p := c.Parent(); p != nil {
		info.Parent = p.ID()
	}
	if c.Kind() == loom.KindPrimitive {
		info.Value = c.Value()
		return info
	}
	props := make(map[string]any)
	for k, v := range c.Props() {
		if _, err := json.Marshal(v); err != nil {
			continue
		}
		props[k] = v
	}
	if len(props) > 0 {
		info.Props = props
	}
	return info
}

func childIDs(c *loom.Instance) []uint64 {
	ids := []uint64{}
	for _, child := range c.Children() {
		ids = append(ids, child.ID())
	}
	return ids
}

func renderChildren(n *host.Node, pretty bool) (string, error) {
	var b strings.Builder
	if err := host.NewRenderer(host.RenderConfig{Pretty: pretty}).RenderChildren(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
