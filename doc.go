// Package acorn provides a type-indexed service registry for Go.
//
// A value is registered once under its concrete type and can then be looked
// up by that type, by any struct type it embeds, or by any interface it
// implements. Removing any of those types removes the whole registration.
//
// # Quick Start
//
//	r := acorn.New(acorn.WithInterfaces(reflect.TypeFor[Store]()))
//	r.Register(&MemoryStore{})
//
//	store, err := acorn.Get[Store](r)
//
// # Lazy Construction
//
// [RegisterType] and [Provide] register a type without a value. The value
// is built on first lookup, by exactly one goroutine, and shared by every
// key of the registration:
//
//	acorn.RegisterType[*Cache](r)             // zero-argument construction
//	acorn.RegisterType[*Cache](r, acorn.WithEager())
//	acorn.Provide(r, func() (*DB, error) { return openDB() })
//
// Zero-argument construction allocates pointers, makes maps and slices and
// uses the zero value for everything else; types implementing
// [Initializer] have Init called on the new value.
//
// # Type Hierarchy
//
// Go has no inheritance, so the ancestors of a type are the struct types it
// embeds, transitively. For a pointer to a struct, a value-embedded Base is
// keyed as *Base. Go also cannot list the interfaces a type satisfies:
// interfaces embedded as fields are found automatically, every other
// interface must be declared with [Registry.Declare], [Declare] or
// [WithInterfaces] before the registrations that should use it.
//
// # Removal
//
// [Registry.Remove] deletes every entry whose key is the given type or one
// of its subtypes, plus the ancestor and interface keys of each deleted
// entry. Entries from other registrations whose keys are not part of that
// hierarchy survive.
package acorn
