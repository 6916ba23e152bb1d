package xdlock

import (
	"context"
	"time"

	rsredis "github.com/go-redsync/redsync/v4/redis"
)

// =============================================================================
// 连接池传输：redsync rsredis.Pool
// =============================================================================

// poolTransport 每次操作从池中取一个连接，用完归还。
// 加锁使用原生 SET NX + 过期，释放使用脚本。
type poolTransport struct {
	pool rsredis.Pool
}

func newPoolTransport(pool rsredis.Pool) *poolTransport {
	return &poolTransport{pool: pool}
}

func (t *poolTransport) Kind() Kind { return KindPooled }

// withConn 取连接执行 fn，归还失败与 fn 的错误合并返回
func (t *poolTransport) withConn(ctx context.Context, fn func(rsredis.Conn) error) (err error) {
	conn, err := t.pool.Get(ctx)
	if err != nil {
		return classifyRedisError(err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil && err == nil {
			err = classifyRedisError(closeErr)
		}
	}()
	return fn(conn)
}

func (t *poolTransport) ExecAcquire(ctx context.Context, key, token string, leaseSeconds int64) (int64, error) {
	var code int64
	err := t.withConn(ctx, func(conn rsredis.Conn) error {
		ok, err := conn.SetNX(key, token, leaseExpiry(leaseSeconds))
		if err != nil {
			return classifyRedisError(err)
		}
		if ok {
			code = resultSuccess
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return code, nil
}

// leaseExpiry 毫秒精度的过期时间。
// go-redis 对整秒时长发送 SET NX EX，非整秒发送 PX；租约已取整到秒，两者在服务端等价。
func leaseExpiry(leaseSeconds int64) time.Duration {
	return time.Duration(leaseSeconds) * time.Second
}

func (t *poolTransport) ExecRelease(ctx context.Context, key, token string) (int64, error) {
	var code int64
	err := t.withConn(ctx, func(conn rsredis.Conn) error {
		res, err := conn.Eval(getScripts().rsRelease, key, token)
		if err != nil {
			return classifyRedisError(err)
		}
		code, err = toResultCode(res)
		return err
	})
	if err != nil {
		return 0, err
	}
	return code, nil
}

func (t *poolTransport) Inspect(ctx context.Context, key string) (LeaseState, error) {
	var state LeaseState
	err := t.withConn(ctx, func(conn rsredis.Conn) error {
		d, err := conn.PTTL(key)
		if err != nil {
			return classifyRedisError(err)
		}
		state = leaseStateFromPTTL(d)
		return nil
	})
	if err != nil {
		return LeaseState{}, err
	}
	return state, nil
}
