package acorn

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type testValueInit struct{ Count int }

func (v *testValueInit) Init() error {
	v.Count = 10
	return nil
}

func TestConstruct(t *testing.T) {
	t.Run("pointer to struct allocates", func(t *testing.T) {
		v, err := construct(typeClass)
		require.NoError(t, err)
		require.IsType(t, &TestClass{}, v)
		require.NotNil(t, v)
	})

	t.Run("struct value is the zero value", func(t *testing.T) {
		v, err := construct(reflect.TypeFor[TestClass]())
		require.NoError(t, err)
		require.Equal(t, TestClass{}, v)
	})

	t.Run("struct value gets pointer Init", func(t *testing.T) {
		v, err := construct(reflect.TypeFor[testValueInit]())
		require.NoError(t, err)
		require.Equal(t, testValueInit{Count: 10}, v)
	})

	t.Run("map and slice are usable", func(t *testing.T) {
		m, err := construct(reflect.TypeFor[map[string]int]())
		require.NoError(t, err)
		require.NotNil(t, m)
		m.(map[string]int)["ok"] = 1

		s, err := construct(reflect.TypeFor[[]string]())
		require.NoError(t, err)
		require.NotNil(t, s)
		require.Empty(t, s)
	})

	t.Run("scalars are zero", func(t *testing.T) {
		v, err := construct(reflect.TypeFor[int]())
		require.NoError(t, err)
		require.Equal(t, 0, v)
	})

	t.Run("interface, func and chan fail", func(t *testing.T) {
		for _, typ := range []reflect.Type{
			typeInterface,
			reflect.TypeFor[func()](),
			reflect.TypeFor[chan int](),
		} {
			_, err := construct(typ)
			require.ErrorIs(t, err, errNotConstructible, typ.String())
		}
	})

	t.Run("Init error is returned", func(t *testing.T) {
		_, err := construct(reflect.TypeFor[*testFailingInit]())
		require.ErrorIs(t, err, errInitFailed)
	})

	t.Run("panics are recovered", func(t *testing.T) {
		_, err := construct(reflect.TypeFor[*testPanicking]())
		require.ErrorContains(t, err, "panic: boom")
	})
}

func TestFuncConstructor(t *testing.T) {
	t.Run("returns the value", func(t *testing.T) {
		inst := &TestClass{}
		v, err := funcConstructor(func() (*TestClass, error) { return inst, nil })()
		require.NoError(t, err)
		require.Same(t, inst, v)
	})

	t.Run("typed nil is an error", func(t *testing.T) {
		_, err := funcConstructor(func() (*TestClass, error) { return nil, nil })()
		require.ErrorContains(t, err, "returned nil")
	})

	t.Run("error passes through", func(t *testing.T) {
		cause := errors.New("dial failed")
		_, err := funcConstructor(func() (*TestClass, error) { return nil, cause })()
		require.ErrorIs(t, err, cause)
	})

	t.Run("panics are recovered", func(t *testing.T) {
		_, err := funcConstructor(func() (*TestClass, error) { panic("kaboom") })()
		require.ErrorContains(t, err, "panic: kaboom")
	})
}

func TestConstructionError(t *testing.T) {
	err := &ConstructionError{Type: typeClass, Err: errInitFailed}

	require.ErrorIs(t, err, ErrConstruction)
	require.ErrorIs(t, err, errInitFailed)
	require.NotErrorIs(t, err, ErrServiceNotFound)
	require.Equal(t, "constructing *acorn.TestClass: init failed", err.Error())
}

func TestServiceNotFoundError(t *testing.T) {
	err := &ServiceNotFoundError{Type: typeSibling}

	require.ErrorIs(t, err, ErrServiceNotFound)
	require.Equal(t, "service not found: *acorn.TestSibling", err.Error())

	empty := &ServiceNotFoundError{}
	require.Equal(t, "service not found: <nil>", empty.Error())
}
