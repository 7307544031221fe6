package acorn

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
)

// ---------------------------------------------------------------------------
// Registry methods
// ---------------------------------------------------------------------------

func (r *registry) Get(t reflect.Type) (any, error) {
	v, ok, err := r.GetOptional(t)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ServiceNotFoundError{Type: t}
	}
	return v, nil
}

func (r *registry) GetOptional(t reflect.Type) (any, bool, error) {
	if t == nil {
		return nil, false, fmt.Errorf("%w: type cannot be nil", ErrInvalidArgument)
	}

	v, ok := r.table.Load(t)
	if !ok {
		r.tel.add(r.tel.misses, 1, t)
		return nil, false, nil
	}
	s := v.(*slot)

	if value, filled := s.load(); filled {
		return value, true, nil
	}

	span := r.tel.start("acorn.Construct", s.concrete)
	value, built, err := s.fill()
	if err != nil {
		cerr := &ConstructionError{Type: s.concrete, Err: err}
		r.log.Warn("lazy construction failed",
			slog.String("type", s.concrete.String()),
			slog.String("key", t.String()),
			slog.Any("error", err),
		)
		endSpan(span, cerr)
		return nil, false, cerr
	}
	if built {
		r.tel.add(r.tel.constructions, 1, s.concrete)
		r.log.Debug("constructed service",
			slog.String("type", s.concrete.String()),
			slog.String("key", t.String()),
		)
		r.events.publish(EventInitialized, s.concrete, value)
	}
	endSpan(span, nil)
	return value, true, nil
}

// ---------------------------------------------------------------------------
// Generic helpers
// ---------------------------------------------------------------------------

// RegisterType is a generic helper that registers T for zero-argument
// construction:
//
//	err := acorn.RegisterType[*Cache](r, acorn.WithEager())
func RegisterType[T any](r Registry, opts ...RegisterOption) error {
	return r.RegisterType(reflect.TypeFor[T](), opts...)
}

// Provide registers ctor as the construction of T. The entry is keyed by
// the static type T together with its ancestors and interfaces. Like
// [Registry.RegisterType] it is lazy unless [WithEager] is passed.
//
//	err := acorn.Provide(r, func() (*DB, error) { return sql.Open(...) })
func Provide[T any](r Registry, ctor func() (T, error), opts ...RegisterOption) error {
	if ctor == nil {
		return fmt.Errorf("%w: constructor cannot be nil", ErrInvalidArgument)
	}
	opts = append(opts, func(reg *registration) {
		reg.ctor = funcConstructor(ctor)
	})
	return r.RegisterType(reflect.TypeFor[T](), opts...)
}

// Declare is a generic helper that declares the interface I:
//
//	err := acorn.Declare[io.Closer](r)
func Declare[I any](r Registry) error {
	return r.Declare(reflect.TypeFor[I]())
}

// Get is a generic helper that retrieves T from the registry. It is the
// recommended way to retrieve values:
//
//	cache, err := acorn.Get[*Cache](r)
//
// When T is a type embedded by the registered value, the embedded field is
// returned.
func Get[T any](r Registry) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()

	v, err := r.Get(t)
	if err != nil {
		return zero, err
	}
	return convert[T](v)
}

// GetOptional is a generic helper around [Registry.GetOptional].
func GetOptional[T any](r Registry) (T, bool, error) {
	var zero T
	t := reflect.TypeFor[T]()

	v, ok, err := r.GetOptional(t)
	if err != nil || !ok {
		return zero, false, err
	}
	out, err := convert[T](v)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

// Contains is a generic helper around [Registry.Contains].
func Contains[T any](r Registry) bool {
	return r.Contains(reflect.TypeFor[T]())
}

// IsInitialized is a generic helper around [Registry.IsInitialized].
func IsInitialized[T any](r Registry) bool {
	return r.IsInitialized(reflect.TypeFor[T]())
}

// Remove is a generic helper around [Registry.Remove] that converts the
// removed values to T. Values that cannot be converted are reported in the
// returned error; the removal itself has already happened.
func Remove[T any](r Registry) ([]T, error) {
	values, err := r.Remove(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(values))
	var errs []error
	for _, v := range values {
		c, err := convert[T](v)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	return out, errors.Join(errs...)
}

// ---------------------------------------------------------------------------
// Internal
// ---------------------------------------------------------------------------

// convert turns a stored value into T, either directly or by walking to the
// embedded field of type T.
func convert[T any](v any) (T, error) {
	var zero T
	if out, ok := v.(T); ok {
		return out, nil
	}

	target := reflect.TypeFor[T]()
	rv := reflect.ValueOf(v)
	path, ok := embedPath(rv.Type(), target)
	if !ok {
		return zero, fmt.Errorf("%w: cannot convert %s to %s", ErrTypeMismatch, rv.Type(), target)
	}

	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	f, err := rv.FieldByIndexErr(path)
	if err != nil {
		return zero, fmt.Errorf("%w: reaching %s in %s: %v", ErrTypeMismatch, target, reflect.TypeOf(v), err)
	}
	if f.Type() != target && f.CanAddr() {
		f = f.Addr()
	}
	if f.Kind() == reflect.Pointer && f.IsNil() {
		return zero, fmt.Errorf("%w: embedded %s in %s is nil", ErrTypeMismatch, target, reflect.TypeOf(v))
	}
	if !f.CanInterface() {
		return zero, fmt.Errorf("%w: embedded %s in %s is unexported", ErrTypeMismatch, target, reflect.TypeOf(v))
	}

	out, ok := f.Interface().(T)
	if !ok {
		return zero, fmt.Errorf("%w: cannot convert %s to %s", ErrTypeMismatch, f.Type(), target)
	}
	return out, nil
}

// embedPath returns the field index path from the struct behind from to
// the embedded ancestor to. Embedding does not depend on declared
// interfaces, so a bare hierarchy is enough.
func embedPath(from, to reflect.Type) ([]int, bool) {
	path, ok := (&hierarchy{}).compute(from).ancestors[to]
	return path, ok
}
