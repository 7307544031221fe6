package acorn

import (
	"log/slog"
	"reflect"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// config holds the settings applied by [New].
type config struct {
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	interfaces     []reflect.Type
	eventBuffer    int
}

// Option configures a [Registry] during [New].
type Option func(*config)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider used for
// register, remove and construction spans. The default is a no-op provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		if tp != nil {
			c.tracerProvider = tp
		}
	}
}

// WithMeterProvider sets the OpenTelemetry meter provider used for the
// registry counters. The default is a no-op provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) {
		if mp != nil {
			c.meterProvider = mp
		}
	}
}

// WithInterfaces declares interface types up front, as if each had been
// passed to [Registry.Declare]. Entries that are nil or not interfaces are
// logged at warn level and skipped.
func WithInterfaces(ifaces ...reflect.Type) Option {
	return func(c *config) {
		c.interfaces = append(c.interfaces, ifaces...)
	}
}

// WithEventBuffer sets the per-subscriber channel size used by
// [Registry.Subscribe]. Events are dropped for subscribers whose buffer is
// full.
func WithEventBuffer(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.eventBuffer = n
		}
	}
}

// registration holds the per-call settings of a register operation.
type registration struct {
	eager bool
	ctor  constructor
}

// RegisterOption configures a single [Registry.RegisterType] call.
type RegisterOption func(*registration)

// WithEager constructs the value during registration instead of on first
// lookup. If construction fails, nothing is registered.
func WithEager() RegisterOption {
	return func(r *registration) {
		r.eager = true
	}
}

// WithLazy sets laziness explicitly. WithLazy(false) is the same as
// [WithEager].
func WithLazy(lazy bool) RegisterOption {
	return func(r *registration) {
		r.eager = !lazy
	}
}
