package xdlock

import (
	"context"
	"fmt"
	"time"
)

// Coordinator 分布式租约锁的入口。
//
// 绑定一个存储连接，提供单次、非阻塞的加锁与释放。
// Coordinator 不持有任何按 key 的状态，可被多个 goroutine 并发使用。
type Coordinator struct {
	transport Transport
	opts      *options
	stats     stats
}

// New 绑定连接并创建 Coordinator。
//
// conn 支持的类型见 Bind。连接为 nil 或类型不支持时返回 ErrTransportUnavailable。
// Coordinator 不负责关闭 conn。
func New(conn any, opts ...Option) (*Coordinator, error) {
	t, err := Bind(conn)
	if err != nil {
		return nil, err
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return &Coordinator{transport: t, opts: o}, nil
}

// Kind 返回绑定的传输变体，nil Coordinator 返回 KindUnknown。
func (c *Coordinator) Kind() Kind {
	if c == nil || c.transport == nil {
		return KindUnknown
	}
	return c.transport.Kind()
}

// TryAcquire 尝试一次加锁。
//
// 仅当 key 不存在时以 token 写入并设置 lease 过期，成功返回 true。
// 被占用、参数非法、连接或脚本失败均返回 false，原因写入日志与观测器。
// lease 向上取整到秒。不重试、不阻塞等待。
func (c *Coordinator) TryAcquire(ctx context.Context, key, token string, lease time.Duration) bool {
	return c.TryAcquireErr(ctx, key, token, lease) == nil
}

// Release 释放锁。
//
// 仅当 key 存在且值等于 token 时删除，返回 true。
// 已过期、已释放、属于其他持有者或失败均返回 false，不会影响其他持有者。
func (c *Coordinator) Release(ctx context.Context, key, token string) bool {
	return c.ReleaseErr(ctx, key, token) == nil
}

// TryAcquireErr 与 TryAcquire 相同，但返回分类错误：
// nil 表示已获取；否则为 ErrLockContended、ErrInvalidArgument、
// ErrTransportUnavailable 或 ErrScriptExecution 之一（errors.Is 匹配）。
func (c *Coordinator) TryAcquireErr(ctx context.Context, key, token string, lease time.Duration) error {
	if c == nil || c.transport == nil {
		return fmt.Errorf("%w: coordinator not bound", ErrTransportUnavailable)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	fullKey, err := c.prepare(key, token)
	if err == nil && lease <= 0 {
		err = ErrInvalidLease
	}
	leaseSeconds := leaseToSeconds(lease)

	ctx, op := c.begin(ctx, opAcquire, fullKey, lease)
	if err != nil {
		op.finish(ctx, err)
		return err
	}

	code, err := guardTransport(func() (int64, error) {
		return c.transport.ExecAcquire(ctx, fullKey, token, leaseSeconds)
	})
	if err == nil && code != resultSuccess {
		err = ErrLockContended
	}
	op.finish(ctx, err)
	return err
}

// ReleaseErr 与 Release 相同，但返回分类错误：
// nil 表示已释放；否则为 ErrReleaseMismatch、ErrInvalidArgument、
// ErrTransportUnavailable 或 ErrScriptExecution 之一。
func (c *Coordinator) ReleaseErr(ctx context.Context, key, token string) error {
	if c == nil || c.transport == nil {
		return fmt.Errorf("%w: coordinator not bound", ErrTransportUnavailable)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	fullKey, err := c.prepare(key, token)

	ctx, op := c.begin(ctx, opRelease, fullKey, 0)
	if err != nil {
		op.finish(ctx, err)
		return err
	}

	code, err := guardTransport(func() (int64, error) {
		return c.transport.ExecRelease(ctx, fullKey, token)
	})
	if err == nil && code < resultSuccess {
		err = ErrReleaseMismatch
	}
	op.finish(ctx, err)
	return err
}

// Inspect 查询锁的剩余租约，不返回 token。传输不支持时返回 ErrScriptExecution。
func (c *Coordinator) Inspect(ctx context.Context, key string) (LeaseState, error) {
	if c == nil || c.transport == nil {
		return LeaseState{}, fmt.Errorf("%w: coordinator not bound", ErrTransportUnavailable)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validateKey(key); err != nil {
		return LeaseState{}, err
	}
	fullKey := c.opts.keyPrefix + key
	if err := validateFullKey(fullKey); err != nil {
		return LeaseState{}, err
	}
	insp, ok := c.transport.(Inspector)
	if !ok {
		return LeaseState{}, fmt.Errorf("%w: %s transport cannot inspect", ErrScriptExecution, c.transport.Kind())
	}
	return insp.Inspect(ctx, fullKey)
}

// NewToken 使用配置的生成器生成一个持有者 token。
func (c *Coordinator) NewToken() (string, error) {
	if c == nil || c.opts == nil {
		return UUIDToken()
	}
	return c.opts.tokens()
}

// prepare 校验参数并返回带前缀的存储 key
func (c *Coordinator) prepare(key, token string) (string, error) {
	if err := validateKey(key); err != nil {
		return key, err
	}
	fullKey := c.opts.keyPrefix + key
	if err := validateFullKey(fullKey); err != nil {
		return fullKey, err
	}
	if err := validateToken(token); err != nil {
		return fullKey, err
	}
	return fullKey, nil
}

// guardTransport 执行一次传输调用，panic 视为脚本执行失败
func guardTransport(call func() (int64, error)) (code int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			code, err = 0, fmt.Errorf("%w: transport panic: %v", ErrScriptExecution, r)
		}
	}()
	return call()
}

// leaseToSeconds 向上取整到秒，非正数返回 0
func leaseToSeconds(lease time.Duration) int64 {
	if lease <= 0 {
		return 0
	}
	secs := int64(lease / time.Second)
	if lease%time.Second != 0 {
		secs++
	}
	return secs
}
