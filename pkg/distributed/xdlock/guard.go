package xdlock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// releaseTimeout WithLock 释放锁使用的独立清理超时
const releaseTimeout = 5 * time.Second

// WithLock 以新生成的 token 尝试一次加锁，成功后执行 fn 并释放锁。
//
// 返回值：
//   - (false, nil)：锁被占用，fn 未执行
//   - (false, err)：参数、token 生成、连接或脚本失败，fn 未执行
//   - (true, err)：fn 已执行，err 为 fn 的返回值
//
// 释放使用脱离 ctx 取消的独立上下文（5 秒超时），ctx 已取消时仍会释放。
// fn 执行时间超过 lease 时锁可能已被他人获取，本包不做续期。
func (c *Coordinator) WithLock(ctx context.Context, key string, lease time.Duration, fn func(ctx context.Context) error) (bool, error) {
	if fn == nil {
		return false, fmt.Errorf("%w: nil function", ErrInvalidArgument)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	token, err := c.NewToken()
	if err != nil {
		return false, err
	}
	if err := c.TryAcquireErr(ctx, key, token, lease); err != nil {
		if errors.Is(err, ErrLockContended) {
			return false, nil
		}
		return false, err
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		c.Release(cleanupCtx, key, token)
	}()
	return true, fn(ctx)
}
