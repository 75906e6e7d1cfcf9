// Package value provides a type-erased container for task results.
//
// A Value holds one result of any concrete type together with that type, so a
// single queue can carry uint64, string and struct results side by side. The
// concrete type is only recovered at extraction with As or MustAs; asking for
// the wrong type is a caller bug and MustAs treats it as fatal.
//
// Values are handled through pointers. Take transfers the content to a new
// Value and leaves the source empty, which is the only supported way to hand a
// result to a new owner.
package value

import (
	"fmt"
	"reflect"

	"github.com/jzx17/threadpool/pkg/types"
)

// noCopy lets go vet's copylocks check flag accidental struct copies
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Value is a type-erased result container
type Value struct {
	_ noCopy

	data any
	typ  reflect.Type
	set  bool
}

// Of boxes v, remembering its dynamic type (or T when v is a nil interface)
func Of[T any](v T) *Value {
	typ := reflect.TypeOf(v)
	if typ == nil {
		typ = reflect.TypeFor[T]()
	}
	return &Value{data: v, typ: typ, set: true}
}

// FromAny boxes an untyped result as produced by a task body
func FromAny(v any) *Value {
	return &Value{data: v, typ: reflect.TypeOf(v), set: true}
}

// Empty returns a Value that holds nothing
func Empty() *Value {
	return &Value{}
}

// IsEmpty reports whether the value holds nothing (nil receivers are empty)
func (v *Value) IsEmpty() bool {
	return v == nil || !v.set
}

// Type returns the stored type, or nil if the value is empty or holds an untyped nil
func (v *Value) Type() reflect.Type {
	if v.IsEmpty() {
		return nil
	}
	return v.typ
}

// Interface returns the stored value without a type check
func (v *Value) Interface() any {
	if v.IsEmpty() {
		return nil
	}
	return v.data
}

// Take moves the content into a new Value and empties v
func (v *Value) Take() *Value {
	if v.IsEmpty() {
		return Empty()
	}
	moved := &Value{data: v.data, typ: v.typ, set: true}
	v.data, v.typ, v.set = nil, nil, false
	return moved
}

// String implements fmt.Stringer
func (v *Value) String() string {
	if v.IsEmpty() {
		return "<empty>"
	}
	return fmt.Sprintf("%v", v.data)
}

// As extracts the stored value as T.
// Interface types match any stored type that implements them; a stored nil
// matches any nilable T.
func As[T any](v *Value) (T, error) {
	var zero T
	want := reflect.TypeFor[T]()

	if v.IsEmpty() {
		return zero, fmt.Errorf("extract %s: %w", want, types.ErrEmptyValue)
	}

	if v.data == nil {
		if nilable(want) {
			return zero, nil
		}
		return zero, &types.TypeMismatchError{Want: want.String(), Got: typeName(v.typ)}
	}

	out, ok := v.data.(T)
	if !ok {
		return zero, &types.TypeMismatchError{Want: want.String(), Got: typeName(v.typ)}
	}
	return out, nil
}

// MustAs is As for callers that treat a mismatch as unrecoverable; it panics on failure
func MustAs[T any](v *Value) T {
	out, err := As[T](v)
	if err != nil {
		panic(err)
	}
	return out
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	return t.String()
}
