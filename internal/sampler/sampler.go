// Package sampler decides which outgoing requests carry synthetic
// distributed-tracing headers and writes those headers.
//
// The decision is a flat probability per request. It does not depend on
// which worker sends the request.
package sampler

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// HeaderElasticTraceParent is the legacy header older Elastic APM agents read.
	HeaderElasticTraceParent = "elastic-apm-traceparent"
	HeaderTraceParent        = "traceparent"
	HeaderTraceState         = "tracestate"
)

// DefaultRatio keeps roughly one request in eleven traced.
const DefaultRatio = 1.0 / 11

// Style selects how the trace header value is built.
type Style string

const (
	// StyleTemplate substitutes two random 4-digit numbers into a fixed id.
	StyleTemplate Style = "template"
	// StyleW3C emits random, valid W3C trace-context ids.
	StyleW3C Style = "w3c"
)

var (
	ErrInvalidRatio = errors.New("trace ratio must be within [0,1]")
	ErrInvalidStyle = errors.New("unknown trace header style")
)

func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case StyleTemplate, "":
		return StyleTemplate, nil
	case StyleW3C:
		return StyleW3C, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStyle, s)
	}
}

// Sampler answers whether one request should be traced.
type Sampler interface {
	Sample(rng *rand.Rand) bool
}

// Injector writes trace headers and returns the traceparent value it used.
type Injector interface {
	Inject(rng *rand.Rand, h http.Header) string
}

type ratio float64

// Ratio traces each request independently with probability p.
func Ratio(p float64) (Sampler, error) {
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRatio, p)
	}
	return ratio(p), nil
}

func (r ratio) Sample(rng *rand.Rand) bool {
	switch {
	case r <= 0:
		return false
	case r >= 1:
		return true
	}
	return rng.Float64() < float64(r)
}

func Never() Sampler  { return ratio(0) }
func Always() Sampler { return ratio(1) }

// Tracer pairs a sampling decision with the header writer.
type Tracer struct {
	Sampler  Sampler
	Injector Injector
}

func New(p float64, style Style) (*Tracer, error) {
	s, err := Ratio(p)
	if err != nil {
		return nil, err
	}
	var inj Injector
	switch style {
	case StyleTemplate, "":
		inj = Template{}
	case StyleW3C:
		inj = W3C{SampleRate: p}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStyle, style)
	}
	return &Tracer{Sampler: s, Injector: inj}, nil
}

// Apply samples and, when selected, injects. traced reports the decision.
func (t *Tracer) Apply(rng *rand.Rand, h http.Header) (traceparent string, traced bool) {
	if t == nil || t.Sampler == nil || !t.Sampler.Sample(rng) {
		return "", false
	}
	return t.Injector.Inject(rng, h), true
}

// Template renders
//
//	00-<a><b>a6be83a31fb66a455cbb74ab<a>-<b>fae6bd7c<a>-01
//
// where a and b are random integers in [1000, 9999].
type Template struct{}

const templateFormat = "00-%d%da6be83a31fb66a455cbb74ab%d-%dfae6bd7c%d-01"

func (Template) Inject(rng *rand.Rand, h http.Header) string {
	a := 1000 + rng.IntN(9000)
	b := 1000 + rng.IntN(9000)
	v := fmt.Sprintf(templateFormat, a, b, a, b, a)
	h.Set(HeaderElasticTraceParent, v)
	h.Set(HeaderTraceParent, v)
	return v
}

// W3C injects a fresh remote span context through the OpenTelemetry
// trace-context propagator. tracestate carries the Elastic vendor entry.
type W3C struct {
	SampleRate float64
}

var propagator = propagation.TraceContext{}

func (w W3C) Inject(rng *rand.Rand, h http.Header) string {
	var tid trace.TraceID
	var sid trace.SpanID
	binary.BigEndian.PutUint64(tid[:8], rng.Uint64())
	binary.BigEndian.PutUint64(tid[8:], rng.Uint64())
	binary.BigEndian.PutUint64(sid[:], rng.Uint64())
	// all-zero ids are invalid
	tid[15] |= 0x01
	sid[7] |= 0x01

	cfg := trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}
	if ts, err := trace.ParseTraceState(ElasticTraceState(w.SampleRate)); err == nil {
		cfg.TraceState = ts
	}

	ctx := trace.ContextWithRemoteSpanContext(context.Background(), trace.NewSpanContext(cfg))
	propagator.Inject(ctx, propagation.HeaderCarrier(h))

	v := h.Get(HeaderTraceParent)
	h.Set(HeaderElasticTraceParent, v)
	return v
}

// ElasticTraceState returns the "es=s:<rate>" vendor entry.
func ElasticTraceState(rate float64) string {
	return "es=s:" + FormatSampleRate(rate)
}

// FormatSampleRate keeps at most four decimals and drops trailing zeros.
func FormatSampleRate(rate float64) string {
	s := strconv.FormatFloat(rate, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
