package xdlock

import (
	"context"
	"fmt"
	"reflect"
	"time"

	rsredis "github.com/go-redsync/redsync/v4/redis"
	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// =============================================================================
// 传输抽象
// =============================================================================

// Kind 传输变体。绑定时确定，之后不再变化。
type Kind int

const (
	KindUnknown Kind = iota
	// KindStandalone 单节点或哨兵 *redis.Client，执行脚本
	KindStandalone
	// KindCluster *redis.ClusterClient，执行脚本（单 key 单 slot）
	KindCluster
	// KindSharded *redis.Ring，执行脚本（单 key 单分片）
	KindSharded
	// KindScripted 其他实现 redis.Scripter 的客户端，执行脚本
	KindScripted
	// KindPooled redsync 连接池，原生 SET NX 加锁 + 脚本释放
	KindPooled
	// KindEtcd etcd v3，事务 + 租约
	KindEtcd
)

func (k Kind) String() string {
	switch k {
	case KindStandalone:
		return "standalone"
	case KindCluster:
		return "cluster"
	case KindSharded:
		return "sharded"
	case KindScripted:
		return "scripted"
	case KindPooled:
		return "pooled"
	case KindEtcd:
		return "etcd"
	default:
		return "unknown"
	}
}

// Transport 在具体存储上执行两个原子操作。
//
// 结果码：1 成功，0 被占用（加锁）或不匹配（释放）。
// 错误必须包装 ErrTransportUnavailable 或 ErrScriptExecution。
// 实现不得重试，必须尊重 ctx 的截止时间。
type Transport interface {
	Kind() Kind
	ExecAcquire(ctx context.Context, key, token string, leaseSeconds int64) (int64, error)
	ExecRelease(ctx context.Context, key, token string) (int64, error)
}

// LeaseState 锁的可观测状态，不包含 token。
type LeaseState struct {
	Held bool
	// TTL 剩余时间；Held 为 true 且 TTL 为 0 表示存储端没有过期时间
	TTL time.Duration
}

// Inspector 可选能力：查询锁状态，仅用于诊断。
type Inspector interface {
	Inspect(ctx context.Context, key string) (LeaseState, error)
}

// Bind 根据连接的具体类型选择传输变体。
//
// 支持：
//   - *redis.Client、*redis.ClusterClient、*redis.Ring 及其他 redis.Scripter
//   - redsync 的 rsredis.Pool（如 goredis.NewPool(client)）
//   - *clientv3.Client
//   - 已实现 Transport 的值，原样返回
//
// nil（包括带类型的 nil 指针）与不支持的类型返回 ErrTransportUnavailable。
func Bind(conn any) (Transport, error) {
	if isNil(conn) {
		return nil, fmt.Errorf("%w: nil connection", ErrTransportUnavailable)
	}

	switch c := conn.(type) {
	case Transport:
		return c, nil
	case *redis.Client:
		return newScriptTransport(KindStandalone, c), nil
	case *redis.ClusterClient:
		return newScriptTransport(KindCluster, c), nil
	case *redis.Ring:
		return newScriptTransport(KindSharded, c), nil
	case *clientv3.Client:
		return newEtcdTransport(c), nil
	case rsredis.Pool:
		return newPoolTransport(c), nil
	case redis.Scripter:
		return newScriptTransport(KindScripted, c), nil
	default:
		return nil, fmt.Errorf("%w: unsupported connection type %T", ErrTransportUnavailable, conn)
	}
}

// isNil 判断接口值或其承载的指针是否为 nil
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
