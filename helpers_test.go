package acorn

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

// Shared test types and helpers used across test files.

// TestInterface is implemented by *TestClass.
type TestInterface interface {
	Ping() string
}

// TestSubinterface is only implemented by *TestSibling, which is unrelated
// to TestClass.
type TestSubinterface interface {
	Pong() string
}

type TestSubclass struct{ Name string }

type TestClass struct {
	TestSubclass
	ID int
}

func (c *TestClass) Ping() string { return "ping" }

type TestSibling struct{ Label string }

func (s *TestSibling) Pong() string { return "pong" }

// TestCousin shares the TestSubclass ancestor with TestClass.
type TestCousin struct {
	TestSubclass
}

var (
	typeClass        = reflect.TypeFor[*TestClass]()
	typeSubclass     = reflect.TypeFor[*TestSubclass]()
	typeInterface    = reflect.TypeFor[TestInterface]()
	typeSubinterface = reflect.TypeFor[TestSubinterface]()
	typeSibling      = reflect.TypeFor[*TestSibling]()
	typeCousin       = reflect.TypeFor[*TestCousin]()
)

// newTestRegistry returns a registry with the test interfaces declared.
func newTestRegistry(opts ...Option) Registry {
	opts = append([]Option{WithInterfaces(typeInterface, typeSubinterface)}, opts...)
	return New(opts...)
}

func mustRegister(t testing.TB, r Registry, instance any) {
	t.Helper()
	require.NoError(t, r.Register(instance), "Register(%T)", instance)
}

func mustRegisterType(t testing.TB, r Registry, typ reflect.Type, opts ...RegisterOption) {
	t.Helper()
	require.NoError(t, r.RegisterType(typ, opts...), "RegisterType(%s)", typ)
}

var errInitFailed = errors.New("init failed")

// testFailingInit cannot be constructed.
type testFailingInit struct{}

func (f *testFailingInit) Init() error { return errInitFailed }

// testInitialized records that Init ran.
type testInitialized struct{ Ready bool }

func (i *testInitialized) Init() error {
	i.Ready = true
	return nil
}

// testPanicking panics during construction.
type testPanicking struct{}

func (p *testPanicking) Init() error { panic("boom") }

// testClosable implements io.Closer for shutdown tests.
type testClosable struct {
	Name   string
	Closed bool
	Order  *[]string // shared slice to record close order
}

func (c *testClosable) Close() error {
	c.Closed = true
	if c.Order != nil {
		*c.Order = append(*c.Order, c.Name)
	}
	return nil
}

// testOtherClosable is a second, unrelated closer type so both can be
// registered at once.
type testOtherClosable struct {
	Name  string
	Order *[]string
}

func (c *testOtherClosable) Close() error {
	*c.Order = append(*c.Order, c.Name)
	return nil
}

// testFailCloser implements io.Closer but returns an error.
type testFailCloser struct{}

func (f *testFailCloser) Close() error {
	return errors.New("close failed")
}
