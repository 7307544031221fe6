package acorn

import (
	"context"
	"reflect"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ARTM2000/acorn"

// typeKey is the span and metric attribute carrying the service type.
const typeKey = attribute.Key("acorn.type")

// telemetry bundles the tracer and counters used by the registry.
type telemetry struct {
	tracer trace.Tracer

	registrations metric.Int64Counter
	removals      metric.Int64Counter
	constructions metric.Int64Counter
	misses        metric.Int64Counter
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) *telemetry {
	meter := mp.Meter(instrumentationName)
	return &telemetry{
		tracer:        tp.Tracer(instrumentationName),
		registrations: counter(meter, "acorn.registrations", "Register calls that installed an entry."),
		removals:      counter(meter, "acorn.removals", "Table keys deleted by Remove, including cascaded aliases."),
		constructions: counter(meter, "acorn.constructions", "Values built by eager registration or lazy lookup."),
		misses:        counter(meter, "acorn.lookup.misses", "Lookups for a type with no entry."),
	}
}

// counter falls back to a no-op instrument so a misbehaving meter provider
// never breaks the registry.
func counter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		return metricnoop.Int64Counter{}
	}
	return c
}

func (t *telemetry) start(name string, typ reflect.Type) trace.Span {
	_, span := t.tracer.Start(context.Background(), name, trace.WithAttributes(typeKey.String(typeName(typ))))
	return span
}

func (t *telemetry) add(c metric.Int64Counter, n int64, typ reflect.Type) {
	if n == 0 {
		return
	}
	c.Add(context.Background(), n, metric.WithAttributes(typeKey.String(typeName(typ))))
}

// endSpan records err on the span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
