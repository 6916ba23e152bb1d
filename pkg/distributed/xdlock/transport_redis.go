package xdlock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// =============================================================================
// 脚本传输：*redis.Client / *redis.ClusterClient / *redis.Ring / redis.Scripter
// =============================================================================

// pttler 查询剩余过期时间，redis.Cmdable 均实现
type pttler interface {
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

type scriptTransport struct {
	kind   Kind
	client redis.Scripter
}

func newScriptTransport(kind Kind, client redis.Scripter) *scriptTransport {
	return &scriptTransport{kind: kind, client: client}
}

func (t *scriptTransport) Kind() Kind { return t.kind }

func (t *scriptTransport) ExecAcquire(ctx context.Context, key, token string, leaseSeconds int64) (int64, error) {
	res, err := getScripts().acquire.Run(ctx, t.client, []string{key}, token, leaseSeconds).Result()
	if err != nil {
		return 0, classifyRedisError(err)
	}
	return toResultCode(res)
}

func (t *scriptTransport) ExecRelease(ctx context.Context, key, token string) (int64, error) {
	res, err := getScripts().release.Run(ctx, t.client, []string{key}, token).Result()
	if err != nil {
		return 0, classifyRedisError(err)
	}
	return toResultCode(res)
}

// Inspect 通过 PTTL 查询锁状态。客户端不支持 PTTL 时返回 ErrScriptExecution。
func (t *scriptTransport) Inspect(ctx context.Context, key string) (LeaseState, error) {
	p, ok := t.client.(pttler)
	if !ok {
		return LeaseState{}, fmt.Errorf("%w: %T does not support PTTL", ErrScriptExecution, t.client)
	}
	d, err := p.PTTL(ctx, key).Result()
	if err != nil {
		return LeaseState{}, classifyRedisError(err)
	}
	return leaseStateFromPTTL(d), nil
}

// leaseStateFromPTTL 解释 PTTL 结果：-2 不存在，-1 无过期
func leaseStateFromPTTL(d time.Duration) LeaseState {
	switch {
	case d == -2:
		return LeaseState{}
	case d < 0:
		return LeaseState{Held: true}
	default:
		return LeaseState{Held: true, TTL: d}
	}
}

// =============================================================================
// 错误转换
// =============================================================================

// 服务端返回但表示节点暂不可服务的错误前缀
var unavailablePrefixes = []string{"LOADING", "READONLY", "MASTERDOWN", "CLUSTERDOWN", "TRYAGAIN", "MOVED", "ASK"}

// classifyRedisError 将 go-redis 错误归类，保留原始错误链。
//
// 服务端回复的错误（脚本报错、类型错误等）归为 ErrScriptExecution，
// 其余（网络、连接池超时、客户端关闭、ctx 取消）归为 ErrTransportUnavailable。
func classifyRedisError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransportUnavailable) || errors.Is(err, ErrScriptExecution) {
		return err
	}

	var rerr redis.Error
	if errors.As(err, &rerr) && !hasUnavailablePrefix(rerr.Error()) {
		return fmt.Errorf("%w: %w", ErrScriptExecution, err)
	}
	return fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
}

func hasUnavailablePrefix(msg string) bool {
	for _, p := range unavailablePrefixes {
		if strings.HasPrefix(msg, p+" ") || msg == p {
			return true
		}
	}
	return false
}
