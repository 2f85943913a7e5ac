package deep

import "testing"

type point struct {
	X, Y int
	tags []string
}

type identity struct{ n int }

func (i *identity) DeepEqual(other any) bool {
	o, ok := other.(*identity)
	return ok && o == i
}

func handlerA() {}
func handlerB() {}

func TestEqual(t *testing.T) {
	shared := &identity{n: 1}

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nil nil", nil, nil, true},
		{"nil vs value", nil, 1, false},
		{"ints", 1, 1, true},
		{"int vs int64", 1, int64(1), false},
		{"strings differ", "a", "b", false},
		{"slices", []any{1, "x"}, []any{1, "x"}, true},
		{"slices differ", []any{1, "x"}, []any{1, "y"}, false},
		{"nil slice vs empty", []int(nil), []int{}, true},
		{"maps", map[string]any{"a": []int{1}}, map[string]any{"a": []int{1}}, true},
		{"maps differ", map[string]any{"a": 1}, map[string]any{"b": 1}, false},
		{"structs", point{X: 1, Y: 2}, point{X: 1, Y: 2}, true},
		{"struct unexported differs", point{tags: []string{"a"}}, point{tags: []string{"b"}}, false},
		{"pointers by value", &point{X: 1}, &point{X: 1}, true},
		{"same func", handlerA, handlerA, true},
		{"different funcs", handlerA, handlerB, false},
		{"equaler identity", shared, shared, true},
		{"equaler distinct", &identity{n: 1}, &identity{n: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestEqualCycle(t *testing.T) {
	type node struct {
		Next *node
		V    int
	}
	a := &node{V: 1}
	a.Next = a
	b := &node{V: 1}
	b.Next = b

	if !Equal(a, b) {
		t.Error("cyclic structures with equal values should be equal")
	}
}

func TestCloneDetachesMaps(t *testing.T) {
	orig := map[string]any{"count": 1, "nested": map[string]int{"a": 1}}
	snap := Clone(orig).(map[string]any)

	orig["count"] = 2
	orig["nested"].(map[string]int)["a"] = 5

	if snap["count"] != 1 {
		t.Errorf("snapshot count = %v, want 1", snap["count"])
	}
	if snap["nested"].(map[string]int)["a"] != 1 {
		t.Error("nested map should have been copied")
	}
	if Equal(orig, snap) {
		t.Error("mutated original should differ from snapshot")
	}
}

func TestClonePointerStruct(t *testing.T) {
	p := &point{X: 1, Y: 2}
	c := Clone(p).(*point)

	if c == p {
		t.Fatal("clone should allocate a new pointer")
	}
	p.X = 9
	if c.X != 1 {
		t.Errorf("clone X = %d, want 1", c.X)
	}
}

func TestCloneSlice(t *testing.T) {
	obj := map[string]int{"v": 1}
	deps := []any{obj, "s"}
	snap := CloneSlice(deps)

	if !Equal(deps, snap) {
		t.Fatal("fresh snapshot should equal source")
	}
	obj["v"] = 2
	if Equal(deps, snap) {
		t.Error("in-place mutation should be detected against the snapshot")
	}
	if CloneSlice(nil) != nil {
		t.Error("CloneSlice(nil) should stay nil")
	}
}

func TestCloneSharesFuncs(t *testing.T) {
	type withFn struct {
		Fn func()
	}
	c := Clone(withFn{Fn: handlerA}).(withFn)
	if !Equal(c.Fn, handlerA) {
		t.Error("functions should be shared by Clone")
	}
}
