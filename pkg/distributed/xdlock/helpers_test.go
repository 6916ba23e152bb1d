package xdlock_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/zimeng1/mc-base/pkg/distributed/xdlock"
	"github.com/zimeng1/mc-base/pkg/observability/xlog"
)

// variant 一种可在 miniredis 上运行的连接形态
type variant struct {
	name string
	kind xdlock.Kind
	conn func(t *testing.T, mr *miniredis.Miniredis) any
}

func newClient(t *testing.T, mr *miniredis.Miniredis) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

var variants = []variant{
	{
		name: "standalone",
		kind: xdlock.KindStandalone,
		conn: func(t *testing.T, mr *miniredis.Miniredis) any { return newClient(t, mr) },
	},
	{
		// miniredis 响应 CLUSTER SLOTS，以单节点持有全部 slot
		name: "cluster",
		kind: xdlock.KindCluster,
		conn: func(t *testing.T, mr *miniredis.Miniredis) any {
			cluster := redis.NewClusterClient(&redis.ClusterOptions{Addrs: []string{mr.Addr()}})
			t.Cleanup(func() { _ = cluster.Close() })
			return cluster
		},
	},
	{
		name: "sharded",
		kind: xdlock.KindSharded,
		conn: func(t *testing.T, mr *miniredis.Miniredis) any {
			ring := redis.NewRing(&redis.RingOptions{Addrs: map[string]string{"shard1": mr.Addr()}})
			t.Cleanup(func() { _ = ring.Close() })
			return ring
		},
	},
	{
		name: "pooled",
		kind: xdlock.KindPooled,
		conn: func(t *testing.T, mr *miniredis.Miniredis) any { return goredis.NewPool(newClient(t, mr)) },
	},
}

// setup 启动 miniredis 并创建 Coordinator
func setup(t *testing.T, v variant, opts ...xdlock.Option) (*miniredis.Miniredis, *xdlock.Coordinator) {
	t.Helper()
	mr := miniredis.RunT(t)
	opts = append([]xdlock.Option{xdlock.WithLogger(xlog.Discard())}, opts...)
	c, err := xdlock.New(v.conn(t, mr), opts...)
	require.NoError(t, err)
	require.Equal(t, v.kind, c.Kind())
	return mr, c
}

// syncBuffer 并发安全的日志缓冲
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newBufferLogger(t *testing.T, level xlog.Level) (xlog.Logger, *syncBuffer) {
	t.Helper()
	buf := &syncBuffer{}
	logger, _, err := xlog.New().SetOutput(buf).SetFormat("json").SetLevel(level).Build()
	require.NoError(t, err)
	return logger, buf
}

// countingTransport 记录调用次数并返回固定结果
type countingTransport struct {
	mu          sync.Mutex
	acquires    int
	releases    int
	acquireCode int64
	acquireErr  error
	releaseCode int64
	releaseErr  error
	lastLease   int64
	lastKey     string
}

func (f *countingTransport) Kind() xdlock.Kind { return xdlock.KindScripted }

func (f *countingTransport) ExecAcquire(_ context.Context, key, _ string, leaseSeconds int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	f.lastLease = leaseSeconds
	f.lastKey = key
	return f.acquireCode, f.acquireErr
}

func (f *countingTransport) ExecRelease(_ context.Context, key, _ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
	f.lastKey = key
	return f.releaseCode, f.releaseErr
}

func (f *countingTransport) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acquires, f.releases
}
