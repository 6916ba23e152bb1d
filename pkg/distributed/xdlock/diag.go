package xdlock

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zimeng1/mc-base/pkg/observability/xlog"
	"github.com/zimeng1/mc-base/pkg/observability/xmetrics"
)

// =============================================================================
// 诊断：日志、观测、统计
// =============================================================================

const (
	componentName = "xdlock"
	opAcquire     = "acquire"
	opRelease     = "release"
)

// inspectTimeout 被占用时查询剩余 TTL 的超时
const inspectTimeout = 500 * time.Millisecond

// operation 一次加锁或释放的诊断上下文
type operation struct {
	c     *Coordinator
	name  string
	key   string
	lease time.Duration
	span  xmetrics.Span
	start time.Time
}

func (c *Coordinator) begin(ctx context.Context, name, key string, lease time.Duration) (context.Context, *operation) {
	attrs := []xmetrics.Attr{
		xmetrics.String("lock.key", key),
		xmetrics.String("lock.transport", c.transport.Kind().String()),
	}
	if lease > 0 {
		attrs = append(attrs, xmetrics.Duration("lock.lease", lease))
	}
	ctx, span := xmetrics.Start(ctx, c.opts.observer, xmetrics.SpanOptions{
		Component: componentName,
		Operation: name,
		Kind:      xmetrics.KindClient,
		Attrs:     attrs,
	})
	return ctx, &operation{c: c, name: name, key: key, lease: lease, span: span, start: time.Now()}
}

// finish 记录结果。不改变 err，也不影响返回给调用方的布尔值。
func (op *operation) finish(ctx context.Context, err error) {
	outcome := OutcomeOf(err)
	if err == nil {
		outcome = OutcomeAcquired
		if op.name == opRelease {
			outcome = OutcomeReleased
		}
	}

	op.c.stats.record(outcome)

	status := xmetrics.StatusOK
	if !outcome.expected() {
		status = xmetrics.StatusError
	}
	op.span.End(xmetrics.Result{Status: status, Outcome: string(outcome), Err: err})

	op.log(ctx, outcome, err)
}

func (op *operation) log(ctx context.Context, outcome Outcome, err error) {
	logger := op.c.opts.logger
	attrs := []slog.Attr{
		xlog.Component(componentName),
		xlog.Operation(op.name),
		xlog.Key(op.key),
		xlog.Transport(op.c.transport.Kind().String()),
		xlog.Outcome(string(outcome)),
		xlog.Duration(time.Since(op.start)),
	}
	if op.lease > 0 {
		attrs = append(attrs, xlog.Lease(op.lease))
	}

	switch outcome {
	case OutcomeAcquired, OutcomeReleased:
		logger.Debug(ctx, "lock "+string(outcome), attrs...)
	case OutcomeContended:
		if !debugEnabled(ctx, logger) {
			return
		}
		if state, ok := op.inspect(ctx); ok {
			attrs = append(attrs, xlog.TTL(state.TTL))
		}
		logger.Debug(ctx, "lock contended", attrs...)
	case OutcomeMismatch:
		logger.Warn(ctx, "release skipped: lock not held by token", attrs...)
	case OutcomeInvalidArgument:
		logger.Warn(ctx, "lock "+op.name+" rejected", append(attrs, xlog.Err(err))...)
	default:
		logger.Error(ctx, "lock "+op.name+" failed", append(attrs, xlog.Err(err))...)
	}
}

// inspect 尽力查询剩余 TTL，失败时静默
func (op *operation) inspect(ctx context.Context) (state LeaseState, ok bool) {
	defer func() {
		if recover() != nil {
			state, ok = LeaseState{}, false
		}
	}()
	if !op.c.opts.inspectTTL {
		return LeaseState{}, false
	}
	insp, isInspector := op.c.transport.(Inspector)
	if !isInspector {
		return LeaseState{}, false
	}
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), inspectTimeout)
	defer cancel()
	state, err := insp.Inspect(ictx, op.key)
	if err != nil || !state.Held {
		return LeaseState{}, false
	}
	return state, true
}

func debugEnabled(ctx context.Context, logger xlog.Logger) bool {
	lv, ok := logger.(xlog.Leveler)
	return ok && lv.Enabled(ctx, xlog.LevelDebug)
}

// =============================================================================
// 统计
// =============================================================================

// Stats 按结果分类的累计次数快照。
type Stats struct {
	Acquired             uint64
	Contended            uint64
	Released             uint64
	Mismatch             uint64
	TransportUnavailable uint64
	ScriptFailure        uint64
	InvalidArgument      uint64
}

type stats struct {
	acquired, contended, released, mismatch atomic.Uint64
	transport, script, invalid              atomic.Uint64
}

func (s *stats) record(o Outcome) {
	switch o {
	case OutcomeAcquired:
		s.acquired.Add(1)
	case OutcomeContended:
		s.contended.Add(1)
	case OutcomeReleased:
		s.released.Add(1)
	case OutcomeMismatch:
		s.mismatch.Add(1)
	case OutcomeTransportUnavailable:
		s.transport.Add(1)
	case OutcomeInvalidArgument:
		s.invalid.Add(1)
	default:
		s.script.Add(1)
	}
}

// Stats 返回统计快照。nil Coordinator 返回零值。
func (c *Coordinator) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{
		Acquired:             c.stats.acquired.Load(),
		Contended:            c.stats.contended.Load(),
		Released:             c.stats.released.Load(),
		Mismatch:             c.stats.mismatch.Load(),
		TransportUnavailable: c.stats.transport.Load(),
		ScriptFailure:        c.stats.script.Load(),
		InvalidArgument:      c.stats.invalid.Load(),
	}
}
