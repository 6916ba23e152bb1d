package xmetrics

import (
	"context"
	"time"
)

// Kind 操作类型，对应 OpenTelemetry SpanKind。
type Kind int

const (
	// KindInternal 进程内操作，如脚本预热
	KindInternal Kind = iota
	// KindClient 对存储的一次往返
	KindClient
)

func (k Kind) String() string {
	if k == KindClient {
		return "Client"
	}
	return "Internal"
}

// Status 操作状态。
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Attr 观测属性。
type Attr struct {
	Key   string
	Value any
}

func String(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

func Int64(key string, value int64) Attr {
	return Attr{Key: key, Value: value}
}

// Duration 以秒（浮点）记录
func Duration(key string, value time.Duration) Attr {
	return Attr{Key: key, Value: value}
}

// SpanOptions 开启 Span 的参数。
type SpanOptions struct {
	Component string
	Operation string
	Kind      Kind
	Attrs     []Attr
}

// Result 操作结果。
//
// Status 为空时按 Err 推断。Status 为 StatusOK 且 Err 非 nil 时错误仍记录在 span 上，
// 锁被占用、token 不匹配属于这种情况。
type Result struct {
	Status  Status
	Outcome string
	Err     error
}

func (r Result) status() Status {
	switch {
	case r.Status != "":
		return r.Status
	case r.Err != nil:
		return StatusError
	default:
		return StatusOK
	}
}

// Span 一次操作的观测句柄。End 只有第一次生效。
type Span interface {
	End(result Result)
}

// Observer 观测器。
type Observer interface {
	Start(ctx context.Context, opts SpanOptions) (context.Context, Span)
}

// NoopObserver 不做任何记录。
type NoopObserver struct{}

func (NoopObserver) Start(ctx context.Context, _ SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx, NoopSpan{}
}

// NoopSpan 空 Span。
type NoopSpan struct{}

func (NoopSpan) End(Result) {}

// Start 使用 observer 开启 Span。observer 为 nil 或返回 nil 时退化为 Noop。
func Start(ctx context.Context, observer Observer, opts SpanOptions) (context.Context, Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if observer == nil {
		return ctx, NoopSpan{}
	}
	retCtx, span := observer.Start(ctx, opts)
	if retCtx == nil {
		retCtx = ctx
	}
	if span == nil {
		span = NoopSpan{}
	}
	return retCtx, span
}
