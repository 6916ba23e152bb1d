package xdlock

import (
	"github.com/zimeng1/mc-base/pkg/observability/xlog"
	"github.com/zimeng1/mc-base/pkg/observability/xmetrics"
)

// Option 配置 Coordinator。
type Option func(*options)

type options struct {
	keyPrefix  string
	logger     xlog.Logger
	observer   xmetrics.Observer
	tokens     TokenGenerator
	inspectTTL bool
}

func defaultOptions() *options {
	return &options{
		logger:     xlog.Default(),
		observer:   xmetrics.NoopObserver{},
		tokens:     UUIDToken,
		inspectTTL: true,
	}
}

// WithKeyPrefix 设置存储 key 前缀，最终 key = prefix + key。
// 默认无前缀，锁条目直接以调用方给出的 key 存储。
//
//	c, _ := xdlock.New(client, xdlock.WithKeyPrefix("lock:"))
//	c.TryAcquire(ctx, "order:1", token, 10*time.Second) // 存储 key: "lock:order:1"
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.keyPrefix = prefix
	}
}

// WithLogger 设置日志记录器，默认 xlog.Default()。nil 被忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObserver 设置观测器，默认不记录。nil 被忽略。
func WithObserver(observer xmetrics.Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithTokenGenerator 设置 NewToken/WithLock 使用的 token 生成器，默认 UUIDToken。
func WithTokenGenerator(gen TokenGenerator) Option {
	return func(o *options) {
		if gen != nil {
			o.tokens = gen
		}
	}
}

// WithContentionTTL 加锁被占用时是否额外查询一次剩余 TTL 写入 Debug 日志。
// 仅在 Debug 级别启用且传输支持 Inspector 时生效。默认开启。
func WithContentionTTL(enable bool) Option {
	return func(o *options) {
		o.inspectTTL = enable
	}
}
