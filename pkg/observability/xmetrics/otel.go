package xmetrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultInstrumentationName = "github.com/zimeng1/mc-base/pkg/observability/xmetrics"
	unknownValue               = "unknown"

	MetricOperationTotal    = "mcbase.operation.total"
	MetricOperationDuration = "mcbase.operation.duration"
)

// ErrCreateInstrument 创建指标仪表失败
var ErrCreateInstrument = errors.New("xmetrics: create instrument failed")

type otelConfig struct {
	name   string
	tracer trace.TracerProvider
	meter  metric.MeterProvider
}

// Option 配置 OTel 观测器。
type Option func(*otelConfig)

// WithInstrumentationName 设置 tracer/meter 的 instrumentation 名称
func WithInstrumentationName(name string) Option {
	return func(cfg *otelConfig) {
		if name != "" {
			cfg.name = name
		}
	}
}

// WithTracerProvider 默认使用全局 provider
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.tracer = provider
		}
	}
}

// WithMeterProvider 默认使用全局 provider
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(cfg *otelConfig) {
		if provider != nil {
			cfg.meter = provider
		}
	}
}

// NewOTelObserver 创建基于 OpenTelemetry 的观测器。
func NewOTelObserver(opts ...Option) (Observer, error) {
	cfg := &otelConfig{
		name:   defaultInstrumentationName,
		tracer: otel.GetTracerProvider(),
		meter:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	inst, err := newInstruments(cfg.meter.Meter(cfg.name))
	if err != nil {
		return nil, err
	}
	return &otelObserver{tracer: cfg.tracer.Tracer(cfg.name), inst: inst}, nil
}

// instruments 所有 Span 共享的指标
type instruments struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	total, err := meter.Int64Counter(MetricOperationTotal,
		metric.WithDescription("operations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateInstrument, MetricOperationTotal, err)
	}
	duration, err := meter.Float64Histogram(MetricOperationDuration,
		metric.WithDescription("store round trip duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCreateInstrument, MetricOperationDuration, err)
	}
	return &instruments{total: total, duration: duration}, nil
}

// record 调用方 ctx 可能已取消，指标仍需落地
func (i *instruments) record(ctx context.Context, elapsed time.Duration, attrs ...attribute.KeyValue) {
	ctx = context.WithoutCancel(ctx)
	set := metric.WithAttributes(attrs...)
	i.total.Add(ctx, 1, set)
	i.duration.Record(ctx, elapsed.Seconds(), set)
}

type otelObserver struct {
	tracer trace.Tracer
	inst   *instruments
}

func (o *otelObserver) Start(ctx context.Context, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	component := orUnknown(opts.Component)
	operation := orUnknown(opts.Operation)

	kind := trace.SpanKindInternal
	if opts.Kind == KindClient {
		kind = trace.SpanKindClient
	}
	attrs := append([]attribute.KeyValue{
		attribute.String("component", component),
		attribute.String("operation", operation),
	}, toOTel(opts.Attrs)...)

	ctx, span := o.tracer.Start(ctx, component+"."+operation,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
	)
	return ctx, &otelSpan{
		span:      span,
		inst:      o.inst,
		ctx:       ctx,
		component: component,
		operation: operation,
		start:     time.Now(),
	}
}

type otelSpan struct {
	span      trace.Span
	inst      *instruments
	ctx       context.Context
	component string
	operation string
	start     time.Time
	once      sync.Once
}

func (s *otelSpan) End(result Result) {
	s.once.Do(func() {
		status := result.status()
		outcome := orUnknown(result.Outcome)

		if result.Err != nil {
			s.span.RecordError(result.Err)
		}
		switch {
		case status == StatusOK:
			s.span.SetStatus(codes.Ok, "")
		case result.Err != nil:
			s.span.SetStatus(codes.Error, result.Err.Error())
		default:
			s.span.SetStatus(codes.Error, "operation failed")
		}
		s.span.SetAttributes(attribute.String("outcome", outcome))
		s.span.End()

		s.inst.record(s.ctx, time.Since(s.start),
			attribute.String("component", s.component),
			attribute.String("operation", s.operation),
			attribute.String("status", string(status)),
			attribute.String("outcome", outcome),
		)
	})
}

func orUnknown(s string) string {
	if s == "" {
		return unknownValue
	}
	return s
}

func toOTel(attrs []Attr) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		if a.Key == "" || a.Value == nil {
			continue
		}
		switch v := a.Value.(type) {
		case string:
			out = append(out, attribute.String(a.Key, v))
		case int64:
			out = append(out, attribute.Int64(a.Key, v))
		case int:
			out = append(out, attribute.Int(a.Key, v))
		case bool:
			out = append(out, attribute.Bool(a.Key, v))
		case time.Duration:
			out = append(out, attribute.Float64(a.Key, v.Seconds()))
		default:
			out = append(out, attribute.String(a.Key, fmt.Sprint(v)))
		}
	}
	return out
}
