package xdlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// RetryOption 配置 AcquireRetry。
type RetryOption func(*retryOptions)

type retryOptions struct {
	attempts uint
	delay    time.Duration
	maxDelay time.Duration
}

func defaultRetryOptions() *retryOptions {
	return &retryOptions{
		attempts: 10,
		delay:    100 * time.Millisecond,
		maxDelay: 2 * time.Second,
	}
}

// WithRetryAttempts 总尝试次数（含首次），默认 10。0 被忽略。
func WithRetryAttempts(n uint) RetryOption {
	return func(o *retryOptions) {
		if n > 0 {
			o.attempts = n
		}
	}
}

// WithRetryDelay 退避初始间隔，默认 100ms。
func WithRetryDelay(d time.Duration) RetryOption {
	return func(o *retryOptions) {
		if d > 0 {
			o.delay = d
		}
	}
}

// WithRetryMaxDelay 退避间隔上限，默认 2s。
func WithRetryMaxDelay(d time.Duration) RetryOption {
	return func(o *retryOptions) {
		if d > 0 {
			o.maxDelay = d
		}
	}
}

// AcquireRetry 在 TryAcquire 之上按指数退避重复尝试，直到成功、次数耗尽或 ctx 结束。
func (c *Coordinator) AcquireRetry(ctx context.Context, key, token string, lease time.Duration, opts ...RetryOption) bool {
	return c.AcquireRetryErr(ctx, key, token, lease, opts...) == nil
}

// AcquireRetryErr 与 AcquireRetry 相同，返回最后一次尝试的分类错误。
//
// 只有 ErrLockContended 与 ErrTransportUnavailable 会重试；参数错误与脚本错误立即返回。
// 每次尝试都是一次完整的 TryAcquireErr，各自记录日志与观测。
func (c *Coordinator) AcquireRetryErr(ctx context.Context, key, token string, lease time.Duration, opts ...RetryOption) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	}
	o := defaultRetryOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	var last error
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(o.attempts),
		retry.Delay(o.delay),
		retry.MaxDelay(o.maxDelay),
		retry.MaxJitter(o.delay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
	).Do(func() error {
		last = c.TryAcquireErr(ctx, key, token, lease)
		return last
	})
	if err == nil {
		return nil
	}
	if last != nil {
		return last
	}
	// 首次尝试前 ctx 已结束
	return fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
}

func retryable(err error) bool {
	return errors.Is(err, ErrLockContended) || errors.Is(err, ErrTransportUnavailable)
}
