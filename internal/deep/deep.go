// Package deep implements the structural equality and cloning used to decide
// whether props, state values and effect dependencies changed between renders.
//
// Equal differs from reflect.DeepEqual in two ways that matter for UI code:
// functions compare by code pointer instead of always being unequal, and
// values implementing Equaler decide their own equality (vnode descriptions
// ignore their per-render identifier, live instances compare by identity).
package deep

import (
	"reflect"
	"unsafe"
)

// Equaler is implemented by values that define their own structural equality.
type Equaler interface {
	DeepEqual(other any) bool
}

// Cloner is implemented by values that define their own structural copy.
type Cloner interface {
	DeepClone() any
}

var (
	equalerType = reflect.TypeOf((*Equaler)(nil)).Elem()
	clonerType  = reflect.TypeOf((*Cloner)(nil)).Elem()
)

// Equal reports whether a and b are structurally equal.
func Equal(a, b any) bool {
	return equal(reflect.ValueOf(a), reflect.ValueOf(b), make(map[visit]bool))
}

type visit struct {
	a, b unsafe.Pointer
	typ  reflect.Type
}

func equal(a, b reflect.Value, seen map[visit]bool) bool {
	if !a.IsValid() || !b.IsValid() {
		return a.IsValid() == b.IsValid()
	}
	if a.Type() != b.Type() {
		return false
	}

	if a.Type().Implements(equalerType) && a.CanInterface() && b.CanInterface() {
		if !isNilable(a) || !a.IsNil() {
			return a.Interface().(Equaler).DeepEqual(b.Interface())
		}
	}

	switch a.Kind() {
	case reflect.Bool:
		return a.Bool() == b.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() == b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() == b.Uint()
	case reflect.Float32, reflect.Float64:
		return a.Float() == b.Float()
	case reflect.Complex64, reflect.Complex128:
		return a.Complex() == b.Complex()
	case reflect.String:
		return a.String() == b.String()
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		return a.Pointer() == b.Pointer()
	case reflect.Pointer:
		if a.Pointer() == b.Pointer() {
			return true
		}
		if a.IsNil() || b.IsNil() {
			return false
		}
		v := visit{a.UnsafePointer(), b.UnsafePointer(), a.Type()}
		if seen[v] {
			return true
		}
		seen[v] = true
		return equal(a.Elem(), b.Elem(), seen)
	case reflect.Interface:
		if a.IsNil() || b.IsNil() {
			return a.IsNil() && b.IsNil()
		}
		return equal(a.Elem(), b.Elem(), seen)
	case reflect.Slice:
		if a.Len() != b.Len() {
			return false
		}
		if a.Len() == 0 {
			return true
		}
		if a.UnsafePointer() == b.UnsafePointer() {
			return true
		}
		for i := 0; i < a.Len(); i++ {
			if !equal(a.Index(i), b.Index(i), seen) {
				return false
			}
		}
		return true
	case reflect.Array:
		for i := 0; i < a.Len(); i++ {
			if !equal(a.Index(i), b.Index(i), seen) {
				return false
			}
		}
		return true
	case reflect.Map:
		if a.Len() != b.Len() {
			return false
		}
		if a.Len() == 0 {
			return true
		}
		if a.UnsafePointer() == b.UnsafePointer() {
			return true
		}
		iter := a.MapRange()
		for iter.Next() {
			bv := b.MapIndex(iter.Key())
			if !bv.IsValid() || !equal(iter.Value(), bv, seen) {
				return false
			}
		}
		return true
	case reflect.Struct:
		for i := 0; i < a.NumField(); i++ {
			if !equal(a.Field(i), b.Field(i), seen) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func isNilable(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

// Clone returns a structural copy of v. Maps, slices, arrays, pointers and the
// exported fields of structs are copied recursively; functions, channels and
// unexported struct fields are shared with the original.
func Clone(v any) any {
	if v == nil {
		return nil
	}
	return clone(reflect.ValueOf(v), make(map[unsafe.Pointer]reflect.Value)).Interface()
}

// CloneSlice is Clone specialised for dependency lists.
func CloneSlice(deps []any) []any {
	if deps == nil {
		return nil
	}
	out := make([]any, len(deps))
	for i, d := range deps {
		out[i] = Clone(d)
	}
	return out
}

func clone(v reflect.Value, seen map[unsafe.Pointer]reflect.Value) reflect.Value {
	if v.Type().Implements(clonerType) && v.CanInterface() {
		if !isNilable(v) || !v.IsNil() {
			c := reflect.ValueOf(v.Interface().(Cloner).DeepClone())
			if c.IsValid() && c.Type().AssignableTo(v.Type()) {
				return c
			}
		}
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return v
		}
		if c, ok := seen[v.UnsafePointer()]; ok {
			return c
		}
		out := reflect.New(v.Type().Elem())
		if out.Type() != v.Type() {
			out = out.Convert(v.Type())
		}
		seen[v.UnsafePointer()] = out
		out.Elem().Set(clone(v.Elem(), seen))
		return out
	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		out := reflect.New(v.Type()).Elem()
		out.Set(clone(v.Elem(), seen))
		return out
	case reflect.Slice:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(clone(v.Index(i), seen))
		}
		return out
	case reflect.Array:
		out := reflect.New(v.Type()).Elem()
		for i := 0; i < v.Len(); i++ {
			out.Index(i).Set(clone(v.Index(i), seen))
		}
		return out
	case reflect.Map:
		if v.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), clone(iter.Value(), seen))
		}
		return out
	case reflect.Struct:
		out := reflect.New(v.Type()).Elem()
		out.Set(v)
		for i := 0; i < v.NumField(); i++ {
			if f := out.Field(i); f.CanSet() {
				f.Set(clone(v.Field(i), seen))
			}
		}
		return out
	default:
		return v
	}
}
