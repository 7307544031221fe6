package acorn

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrInvalidArgument is returned when a nil type or instance is passed,
	// when an instance is itself a [reflect.Type], or when a non-interface
	// type is declared as an interface.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConstruction is matched by every [ConstructionError].
	ErrConstruction = errors.New("construction failed")

	// ErrServiceNotFound is matched by every [ServiceNotFoundError].
	ErrServiceNotFound = errors.New("service not found")

	// ErrTypeMismatch is returned by the generic helpers when a stored value
	// cannot be converted to the requested type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrAlreadyShutdown is returned when the registry is mutated after
	// [Registry.Shutdown], or when Shutdown is called twice.
	ErrAlreadyShutdown = errors.New("registry already shut down")
)

// ConstructionError reports that a value of Type could not be built, either
// because the type has no usable zero-argument construction path or because
// the construction itself failed.
type ConstructionError struct {
	Type reflect.Type
	Err  error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("constructing %s: %v", typeName(e.Type), e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrConstruction) match any ConstructionError.
func (e *ConstructionError) Is(target error) bool { return target == ErrConstruction }

// ServiceNotFoundError is returned by [Registry.Get] when nothing is
// registered under the requested type. Type carries the requested type.
type ServiceNotFoundError struct {
	Type reflect.Type
}

func (e *ServiceNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrServiceNotFound, typeName(e.Type))
}

// Is lets errors.Is(err, ErrServiceNotFound) match any ServiceNotFoundError.
func (e *ServiceNotFoundError) Is(target error) bool { return target == ErrServiceNotFound }

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
