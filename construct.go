package acorn

import (
	"errors"
	"fmt"
	"reflect"
)

// Initializer is implemented by types that need more than a zero value to be
// usable. Default construction calls Init on the freshly allocated value; a
// non-nil error aborts construction and surfaces as a [ConstructionError].
type Initializer interface {
	Init() error
}

var errNotConstructible = errors.New("type has no zero-argument construction")

// constructor builds one value for a slot. It must be safe to call from any
// goroutine; the slot guarantees it is not called concurrently for the same
// registration.
type constructor func() (any, error)

// defaultConstructor returns the zero-argument construction of t: a new
// allocation for pointer types, an empty map or slice, or the zero value
// for everything else. Interfaces, functions and channels cannot be built.
func defaultConstructor(t reflect.Type) constructor {
	return func() (any, error) {
		return construct(t)
	}
}

func construct(t reflect.Type) (out any, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()

	switch t.Kind() {
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Invalid:
		return nil, fmt.Errorf("%w: %s is a %s", errNotConstructible, t, t.Kind())
	case reflect.Pointer:
		v := reflect.New(t.Elem())
		if err := initialize(v); err != nil {
			return nil, err
		}
		return v.Interface(), nil
	}

	ptr := reflect.New(t)
	switch t.Kind() {
	case reflect.Map:
		ptr.Elem().Set(reflect.MakeMap(t))
	case reflect.Slice:
		ptr.Elem().Set(reflect.MakeSlice(t, 0, 0))
	}
	if err := initialize(ptr); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

// initialize calls Init on ptr, or on the value it points to when only the
// value type has the method.
func initialize(ptr reflect.Value) error {
	if in, ok := ptr.Interface().(Initializer); ok {
		return in.Init()
	}
	if in, ok := ptr.Elem().Interface().(Initializer); ok {
		return in.Init()
	}
	return nil
}

// funcConstructor adapts a caller-supplied constructor. A nil result is
// treated as a failure so a slot is never filled with nothing.
func funcConstructor[T any](fn func() (T, error)) constructor {
	return func() (out any, err error) {
		defer func() {
			if p := recover(); p != nil {
				out, err = nil, fmt.Errorf("panic: %v", p)
			}
		}()

		v, err := fn()
		if err != nil {
			return nil, err
		}
		if isNil(v) {
			return nil, errors.New("constructor returned nil")
		}
		return v, nil
	}
}

// isNil reports whether v is nil or a typed nil (pointer, map, slice,
// function, channel or interface).
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
