package xstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

// Conn 一个已打开的存储连接。
//
// Conn 持有底层客户端的所有权，Close 后 Raw 返回的客户端不可再用。
type Conn struct {
	mode      Mode
	raw       any
	ping      func(ctx context.Context) error
	close     func() error
	closeOnce sync.Once
	closeErr  error
}

// Open 按配置创建存储客户端。
//
// Redis 各模式按需建立连接，Open 本身不访问网络；需要尽早暴露连接或认证问题时使用 WithHealthCheck。
// etcd 模式在 Open 内拨号，最长阻塞 DialTimeout，端点不可达时返回错误。
func Open(ctx context.Context, cfg *Config, opts ...Option) (*Conn, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	c := cfg.applyDefaults()

	var (
		conn *Conn
		err  error
	)
	switch c.Mode {
	case ModeEtcd:
		conn, err = openEtcd(c, o)
	default:
		conn = openRedis(c, o)
	}
	if err != nil {
		return nil, err
	}

	if o.healthCheck {
		hctx, cancel := context.WithTimeout(ctx, o.healthTimeout)
		defer cancel()
		if err := conn.Ping(hctx); err != nil {
			return nil, errors.Join(err, conn.Close())
		}
	}
	return conn, nil
}

func openRedis(c *Config, o *options) *Conn {
	switch c.Mode {
	case ModeSentinel:
		client := redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    c.MasterName,
			SentinelAddrs: c.Addrs,
			Username:      c.Username,
			Password:      c.Password,
			DB:            c.DB,
			DialTimeout:   c.DialTimeout,
			ReadTimeout:   c.ReadTimeout,
			WriteTimeout:  c.WriteTimeout,
			PoolSize:      c.PoolSize,
			TLSConfig:     o.tlsConfig,
		})
		return redisConn(c.Mode, client, client)
	case ModeCluster:
		client := redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        c.Addrs,
			Username:     c.Username,
			Password:     c.Password,
			DialTimeout:  c.DialTimeout,
			ReadTimeout:  c.ReadTimeout,
			WriteTimeout: c.WriteTimeout,
			PoolSize:     c.PoolSize,
			TLSConfig:    o.tlsConfig,
		})
		return redisConn(c.Mode, client, client)
	case ModeRing:
		shards := make(map[string]string, len(c.Addrs))
		for i, addr := range c.Addrs {
			shards[fmt.Sprintf("shard%d", i)] = addr
		}
		client := redis.NewRing(&redis.RingOptions{
			Addrs:        shards,
			Username:     c.Username,
			Password:     c.Password,
			DB:           c.DB,
			DialTimeout:  c.DialTimeout,
			ReadTimeout:  c.ReadTimeout,
			WriteTimeout: c.WriteTimeout,
			PoolSize:     c.PoolSize,
			TLSConfig:    o.tlsConfig,
		})
		return redisConn(c.Mode, client, client)
	default:
		client := redis.NewClient(&redis.Options{
			Addr:         c.Addrs[0],
			Username:     c.Username,
			Password:     c.Password,
			DB:           c.DB,
			DialTimeout:  c.DialTimeout,
			ReadTimeout:  c.ReadTimeout,
			WriteTimeout: c.WriteTimeout,
			PoolSize:     c.PoolSize,
			TLSConfig:    o.tlsConfig,
		})
		if c.Mode == ModePool {
			return redisConn(c.Mode, goredis.NewPool(client), client)
		}
		return redisConn(c.Mode, client, client)
	}
}

func redisConn(mode Mode, raw any, client redis.UniversalClient) *Conn {
	return &Conn{
		mode: mode,
		raw:  raw,
		ping: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("%w: %w", ErrHealthCheck, err)
			}
			return nil
		},
		close: client.Close,
	}
}

func openEtcd(c *Config, o *options) (*Conn, error) {
	// DialTimeout > 0 时 clientv3.New 阻塞到连接建立或超时。
	// keepalive 只通过 DialOptions 设置，才能控制 PermitWithoutStream
	client, err := clientv3.New(clientv3.Config{
		Endpoints:        c.Addrs,
		DialTimeout:      c.DialTimeout,
		Username:         c.Username,
		Password:         c.Password,
		AutoSyncInterval: c.Etcd.AutoSyncInterval,
		RejectOldCluster: c.Etcd.RejectOldCluster,
		TLS:              o.tlsConfig,
		DialOptions: []grpc.DialOption{
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                c.Etcd.DialKeepAliveTime,
				Timeout:             c.Etcd.DialKeepAliveTimeout,
				PermitWithoutStream: c.Etcd.PermitWithoutStream,
			}),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("xstore: create etcd client: %w", err)
	}
	key := o.healthCheckKey
	return &Conn{
		mode: ModeEtcd,
		raw:  client,
		ping: func(ctx context.Context) error {
			if _, err := client.Get(ctx, key); err != nil {
				return fmt.Errorf("%w: %w", ErrHealthCheck, err)
			}
			return nil
		},
		close: client.Close,
	}, nil
}

// Mode 连接的存储形态。
func (c *Conn) Mode() Mode { return c.mode }

// Raw 返回原生客户端，类型见包文档，可直接传给 xdlock.New。
func (c *Conn) Raw() any { return c.raw }

// Ping 检查存储是否可达。
func (c *Conn) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.ping(ctx)
}

// Close 关闭底层客户端，可重复调用。
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.close()
	})
	return c.closeErr
}
