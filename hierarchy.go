package acorn

import (
	"fmt"
	"reflect"
	"sync"
)

// lineage is the computed type hierarchy of one concrete type. It is shared
// between callers once cached and must not be modified.
type lineage struct {
	// ancestors maps every type reachable through struct embedding to the
	// field index path leading to it.
	ancestors map[reflect.Type][]int

	// interfaces holds every embedded interface and every declared interface
	// the type implements.
	interfaces map[reflect.Type]struct{}
}

// keys returns the alias keys of the lineage: ancestors first, then
// interfaces.
func (l *lineage) keys() []reflect.Type {
	out := make([]reflect.Type, 0, len(l.ancestors)+len(l.interfaces))
	for t := range l.ancestors {
		out = append(out, t)
	}
	for t := range l.interfaces {
		out = append(out, t)
	}
	return out
}

func (l *lineage) has(t reflect.Type) bool {
	if _, ok := l.ancestors[t]; ok {
		return true
	}
	_, ok := l.interfaces[t]
	return ok
}

// hierarchy answers "what are the ancestors and interfaces of T". Go cannot
// list the interfaces a type satisfies, so interfaces must be declared
// before they take part in fan-out; embedded interfaces are found on their
// own.
type hierarchy struct {
	mu       sync.RWMutex
	declared []reflect.Type
	cache    map[reflect.Type]*lineage
}

func newHierarchy() *hierarchy {
	return &hierarchy{cache: make(map[reflect.Type]*lineage)}
}

// declare adds an interface type. Adding an interface invalidates every
// cached lineage. It reports whether the interface was new.
func (h *hierarchy) declare(iface reflect.Type) (bool, error) {
	if iface == nil {
		return false, fmt.Errorf("%w: interface type cannot be nil", ErrInvalidArgument)
	}
	if iface.Kind() != reflect.Interface {
		return false, fmt.Errorf("%w: %s is not an interface", ErrInvalidArgument, iface)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, d := range h.declared {
		if d == iface {
			return false, nil
		}
	}
	h.declared = append(h.declared, iface)
	clear(h.cache)
	return true, nil
}

// of returns the lineage of t, computing and caching it on first use.
func (h *hierarchy) of(t reflect.Type) *lineage {
	h.mu.RLock()
	l, ok := h.cache[t]
	h.mu.RUnlock()
	if ok {
		return l
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if l, ok := h.cache[t]; ok {
		return l
	}
	l = h.compute(t)
	h.cache[t] = l
	return l
}

// isSubtype reports whether key is of, inherits it through embedding, or
// implements it.
func (h *hierarchy) isSubtype(key, of reflect.Type) bool {
	if key == of {
		return true
	}
	if of.Kind() == reflect.Interface && of.NumMethod() > 0 && key.Implements(of) {
		return true
	}
	return h.of(key).has(of)
}

type embedStep struct {
	typ         reflect.Type
	path        []int
	addressable bool
}

// compute walks the embedding graph breadth first, so the shallowest path
// wins when a type is embedded more than once. Callers must hold h.mu
// whenever declared can change concurrently.
func (h *hierarchy) compute(t reflect.Type) *lineage {
	l := &lineage{
		ancestors:  make(map[reflect.Type][]int),
		interfaces: make(map[reflect.Type]struct{}),
	}

	base, addressable := t, false
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct {
		base, addressable = t.Elem(), true
	}

	if base.Kind() == reflect.Struct {
		seen := map[reflect.Type]bool{base: true}
		queue := []embedStep{{typ: base, addressable: addressable}}

		for len(queue) > 0 {
			step := queue[0]
			queue = queue[1:]

			for i := 0; i < step.typ.NumField(); i++ {
				f := step.typ.Field(i)
				if !f.Anonymous {
					continue
				}

				path := make([]int, len(step.path)+1)
				copy(path, step.path)
				path[len(step.path)] = i

				ft := f.Type
				switch {
				case ft.Kind() == reflect.Interface:
					if ft.NumMethod() > 0 && ft != t {
						l.interfaces[ft] = struct{}{}
					}
				case ft.Kind() == reflect.Struct:
					key := ft
					if step.addressable {
						key = reflect.PointerTo(ft)
					}
					l.addAncestor(t, key, path)
					if !seen[ft] {
						seen[ft] = true
						queue = append(queue, embedStep{typ: ft, path: path, addressable: step.addressable})
					}
				case ft.Kind() == reflect.Pointer && ft.Elem().Kind() == reflect.Struct:
					l.addAncestor(t, ft, path)
					if !seen[ft.Elem()] {
						seen[ft.Elem()] = true
						queue = append(queue, embedStep{typ: ft.Elem(), path: path, addressable: true})
					}
				}
			}
		}
	}

	for _, iface := range h.declared {
		if iface != t && t.Implements(iface) {
			l.interfaces[iface] = struct{}{}
		}
	}
	return l
}

func (l *lineage) addAncestor(self, key reflect.Type, path []int) {
	if key == self {
		return
	}
	if _, ok := l.ancestors[key]; !ok {
		l.ancestors[key] = path
	}
}
