package acorn

import "testing"

func BenchmarkRegister(b *testing.B) {
	r := newTestRegistry()
	for b.Loop() {
		r.Register(&TestClass{})
	}
}

func BenchmarkRegisterType_Lazy(b *testing.B) {
	r := newTestRegistry()
	for b.Loop() {
		r.RegisterType(typeClass)
	}
}

func BenchmarkGet_Initialized(b *testing.B) {
	r := newTestRegistry()
	mustRegister(b, r, &TestClass{})

	b.ResetTimer()
	for b.Loop() {
		Get[TestInterface](r)
	}
}

func BenchmarkGet_Ancestor(b *testing.B) {
	r := newTestRegistry()
	mustRegister(b, r, &TestClass{})

	b.ResetTimer()
	for b.Loop() {
		Get[*TestSubclass](r)
	}
}

func BenchmarkGet_Parallel(b *testing.B) {
	r := newTestRegistry()
	mustRegisterType(b, r, typeClass)

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			r.Get(typeInterface)
		}
	})
}

func BenchmarkRemove(b *testing.B) {
	r := newTestRegistry()
	mustRegister(b, r, &TestSibling{})

	for b.Loop() {
		r.Register(&TestClass{})
		r.Remove(typeInterface)
	}
}
