package acorn

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Registry is a type-indexed service registry. Use [New] to create an
// instance.
type Registry interface {
	// Register adds instance under its dynamic type, every type it embeds
	// and every interface it implements. Existing entries for any of those
	// types are replaced.
	Register(instance any) error

	// RegisterType registers t for zero-argument construction. By default
	// the value is built on first lookup; pass [WithEager] to build it now.
	// The entry is installed under t, every type t embeds and every
	// interface t implements, replacing existing entries.
	RegisterType(t reflect.Type, opts ...RegisterOption) error

	// Declare makes iface take part in interface fan-out. Registrations made
	// before the call keep the keys they were installed under.
	Declare(iface reflect.Type) error

	// Remove deletes every entry whose key is t or a subtype of t, together
	// with the ancestor and interface keys of each deleted entry. It returns
	// the distinct values those entries held; unconstructed entries
	// contribute nothing.
	Remove(t reflect.Type) ([]any, error)

	// Get returns the value registered under t, constructing it first if
	// needed. It returns a [*ServiceNotFoundError] when t is not registered.
	// Prefer the generic [Get] helper over calling this method directly.
	Get(t reflect.Type) (any, error)

	// GetOptional is like Get but reports a missing entry with ok == false
	// instead of an error.
	GetOptional(t reflect.Type) (v any, ok bool, err error)

	// Contains reports whether t has an entry, constructed or not.
	Contains(t reflect.Type) bool

	// IsInitialized reports whether t has an entry holding a value.
	IsInitialized(t reflect.Type) bool

	// State returns the [State] of t.
	State(t reflect.Type) State

	// Types returns a snapshot of every registered key, sorted by name.
	Types() []reflect.Type

	// Subscribe returns a channel of registry [Event]s. The channel is
	// closed when ctx ends or the registry shuts down. Publishing never
	// blocks; a subscriber that falls behind misses events.
	Subscribe(ctx context.Context) <-chan Event

	// Shutdown empties the registry and closes every constructed value that
	// implements [io.Closer], most recently registered first. The context
	// bounds the whole operation; once it ends the remaining closers are
	// skipped and the context error is part of the result.
	//
	// Later calls to Register, RegisterType, Remove and Shutdown return
	// [ErrAlreadyShutdown]. A registration racing with Shutdown either lands
	// before the table is drained, and is closed with the rest, or fails.
	Shutdown(ctx context.Context) error
}

type registry struct {
	table sync.Map // reflect.Type -> *slot

	types  *hierarchy
	log    *slog.Logger
	tel    *telemetry
	events *broker

	// life orders installs against Shutdown draining the table.
	life     sync.RWMutex
	seq      atomic.Uint64
	shutdown atomic.Bool
}

// New creates an empty [Registry].
func New(opts ...Option) Registry {
	cfg := config{
		logger:         slog.New(slog.DiscardHandler),
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
		eventBuffer:    defaultEventBuffer,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &registry{
		types:  newHierarchy(),
		log:    cfg.logger,
		tel:    newTelemetry(cfg.tracerProvider, cfg.meterProvider),
		events: newBroker(cfg.eventBuffer),
	}

	for _, iface := range cfg.interfaces {
		if _, err := r.types.declare(iface); err != nil {
			r.log.Warn("ignoring interface option", slog.String("type", typeName(iface)), slog.Any("error", err))
		}
	}
	return r
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func (r *registry) Register(instance any) error {
	if r.shutdown.Load() {
		return ErrAlreadyShutdown
	}
	if isNil(instance) {
		return fmt.Errorf("%w: instance cannot be nil", ErrInvalidArgument)
	}
	if _, ok := instance.(reflect.Type); ok {
		return fmt.Errorf("%w: instance must not be a reflect.Type, use RegisterType", ErrInvalidArgument)
	}

	t := reflect.TypeOf(instance)
	span := r.tel.start("acorn.Register", t)
	err := r.install(t, newFilledSlot(t, instance, r.seq.Add(1)))
	endSpan(span, err)
	return err
}

func (r *registry) RegisterType(t reflect.Type, opts ...RegisterOption) error {
	if r.shutdown.Load() {
		return ErrAlreadyShutdown
	}
	if t == nil {
		return fmt.Errorf("%w: type cannot be nil", ErrInvalidArgument)
	}

	var reg registration
	for _, opt := range opts {
		opt(&reg)
	}
	ctor := reg.ctor
	if ctor == nil {
		ctor = defaultConstructor(t)
	}

	span := r.tel.start("acorn.Register", t)

	seq := r.seq.Add(1)
	s := newSlot(t, ctor, seq)
	if reg.eager {
		v, err := ctor()
		if err != nil {
			cerr := &ConstructionError{Type: t, Err: err}
			r.log.Warn("eager construction failed", slog.String("type", t.String()), slog.Any("error", err))
			endSpan(span, cerr)
			return cerr
		}
		s = newFilledSlot(t, v, seq)
		r.tel.add(r.tel.constructions, 1, t)
	}

	err := r.install(t, s)
	endSpan(span, err)
	return err
}

// install stores s under t and all of t's alias keys, overwriting whatever
// was there. It fails once Shutdown has started.
func (r *registry) install(t reflect.Type, s *slot) error {
	aliases := r.types.of(t).keys()

	r.life.RLock()
	defer r.life.RUnlock()
	if r.shutdown.Load() {
		return ErrAlreadyShutdown
	}

	r.table.Store(t, s)
	for _, k := range aliases {
		r.table.Store(k, s)
	}

	value, filled := s.load()
	r.tel.add(r.tel.registrations, 1, t)
	r.log.Debug("registered service",
		slog.String("type", t.String()),
		slog.Int("aliases", len(aliases)),
		slog.Bool("initialized", filled),
	)
	r.events.publish(EventRegistered, t, value)
	return nil
}

func (r *registry) Declare(iface reflect.Type) error {
	added, err := r.types.declare(iface)
	if err != nil {
		return err
	}
	if added {
		r.log.Debug("declared interface", slog.String("type", iface.String()))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Remove
// ---------------------------------------------------------------------------

func (r *registry) Remove(t reflect.Type) ([]any, error) {
	if r.shutdown.Load() {
		return nil, ErrAlreadyShutdown
	}
	if t == nil {
		return nil, fmt.Errorf("%w: type cannot be nil", ErrInvalidArgument)
	}

	span := r.tel.start("acorn.Remove", t)

	// Select first, then delete, so a cascade from one selected entry
	// cannot hide another.
	type selected struct {
		key  reflect.Type
		slot *slot
	}
	var matches []selected
	r.table.Range(func(k, v any) bool {
		if key := k.(reflect.Type); r.types.isSubtype(key, t) {
			matches = append(matches, selected{key: key, slot: v.(*slot)})
		}
		return true
	})

	var (
		removed []any
		seen    = make(map[*slot]bool)
		deleted int
	)
	for _, m := range matches {
		// Replaced by a concurrent registration after selection.
		if cur, ok := r.table.Load(m.key); ok && cur != m.slot {
			continue
		}
		if r.table.CompareAndDelete(m.key, m.slot) {
			deleted++
			value, _ := m.slot.load()
			r.events.publish(EventRemoved, m.key, value)
		}
		for _, alias := range r.types.of(m.key).keys() {
			if old, ok := r.table.LoadAndDelete(alias); ok {
				deleted++
				value, _ := old.(*slot).load()
				r.events.publish(EventRemoved, alias, value)
			}
		}

		value, filled := m.slot.load()
		if filled && !seen[m.slot] {
			seen[m.slot] = true
			if !containsValue(removed, value) {
				removed = append(removed, value)
			}
		}
	}

	r.tel.add(r.tel.removals, int64(deleted), t)
	r.log.Debug("removed services",
		slog.String("type", t.String()),
		slog.Int("keys", deleted),
		slog.Int("values", len(removed)),
	)
	endSpan(span, nil)
	return removed, nil
}

// containsValue reports whether values already holds v. Values that cannot
// be compared are only deduplicated by slot.
func containsValue(values []any, v any) bool {
	if !reflect.ValueOf(v).Comparable() {
		return false
	}
	for _, existing := range values {
		if reflect.TypeOf(existing) == reflect.TypeOf(v) && reflect.ValueOf(existing).Comparable() && existing == v {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Inspection
// ---------------------------------------------------------------------------

func (r *registry) Contains(t reflect.Type) bool {
	if t == nil {
		return false
	}
	_, ok := r.table.Load(t)
	return ok
}

func (r *registry) IsInitialized(t reflect.Type) bool {
	return r.State(t) == Initialized
}

func (r *registry) State(t reflect.Type) State {
	if t == nil {
		return Absent
	}
	v, ok := r.table.Load(t)
	if !ok {
		return Absent
	}
	if _, filled := v.(*slot).load(); filled {
		return Initialized
	}
	return Registered
}

func (r *registry) Types() []reflect.Type {
	var out []reflect.Type
	r.table.Range(func(k, _ any) bool {
		out = append(out, k.(reflect.Type))
		return true
	})
	slices.SortFunc(out, func(a, b reflect.Type) int {
		return cmp.Compare(a.String(), b.String())
	})
	return out
}

func (r *registry) Subscribe(ctx context.Context) <-chan Event {
	return r.events.subscribe(ctx)
}

// ---------------------------------------------------------------------------
// Shutdown
// ---------------------------------------------------------------------------

func (r *registry) Shutdown(ctx context.Context) error {
	r.life.Lock()
	if !r.shutdown.CompareAndSwap(false, true) {
		r.life.Unlock()
		return ErrAlreadyShutdown
	}
	defer r.events.close()

	var slots []*slot
	seen := make(map[*slot]bool)
	r.table.Range(func(k, v any) bool {
		r.table.Delete(k)
		s := v.(*slot)
		if !seen[s] {
			seen[s] = true
			slots = append(slots, s)
		}
		return true
	})
	r.life.Unlock()

	slices.SortFunc(slots, func(a, b *slot) int {
		return cmp.Compare(b.seq, a.seq)
	})

	var (
		errs   []error
		closed []any
	)
	for _, s := range slots {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		value, filled := s.load()
		if !filled {
			continue
		}
		closer, ok := value.(io.Closer)
		if !ok || containsValue(closed, value) {
			continue
		}
		closed = append(closed, value)
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", s.concrete, err))
		}
	}

	r.log.Debug("registry shut down", slog.Int("entries", len(slots)), slog.Int("errors", len(errs)))
	return errors.Join(errs...)
}
