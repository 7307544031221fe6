package acorn

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// slot holds the value of one registration. The same slot is installed under
// the concrete type and every alias key, so a value constructed through any
// of them is seen by all of them.
type slot struct {
	concrete reflect.Type
	ctor     constructor
	seq      uint64

	mu     sync.Mutex // serialises construction
	filled atomic.Bool
	value  any
}

func newSlot(concrete reflect.Type, ctor constructor, seq uint64) *slot {
	return &slot{concrete: concrete, ctor: ctor, seq: seq}
}

func newFilledSlot(concrete reflect.Type, value any, seq uint64) *slot {
	s := &slot{concrete: concrete, seq: seq, value: value}
	s.filled.Store(true)
	return s
}

// load returns the held value, if any.
func (s *slot) load() (any, bool) {
	if !s.filled.Load() {
		return nil, false
	}
	return s.value, true
}

// fill returns the held value, constructing it first when the slot is
// empty. Exactly one caller constructs; concurrent callers wait and observe
// its result. built reports whether this call ran the constructor. On error
// the slot stays empty.
func (s *slot) fill() (v any, built bool, err error) {
	if v, ok := s.load(); ok {
		return v, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.load(); ok {
		return v, false, nil
	}

	v, err = s.ctor()
	if err != nil {
		return nil, false, err
	}
	s.value = v
	s.filled.Store(true)
	return v, true, nil
}
