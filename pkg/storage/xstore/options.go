package xstore

import (
	"crypto/tls"
	"time"
)

const defaultHealthCheckKey = "xstore-health-check"

type options struct {
	healthCheck    bool
	healthTimeout  time.Duration
	healthCheckKey string
	tlsConfig      *tls.Config
}

func defaultOptions() *options {
	return &options{
		healthTimeout:  10 * time.Second,
		healthCheckKey: defaultHealthCheckKey,
	}
}

// Option 配置 Open。
type Option func(*options)

// WithHealthCheck 创建后执行一次健康检查：Redis 为 PING，etcd 为 Get。
// timeout 非正数时使用 10 秒。
func WithHealthCheck(enabled bool, timeout time.Duration) Option {
	return func(o *options) {
		o.healthCheck = enabled
		if timeout > 0 {
			o.healthTimeout = timeout
		}
	}
}

// WithHealthCheckKey 设置 etcd 健康检查读取的 key。
// 账号只被授权访问特定前缀时，需设置为授权范围内的 key。
func WithHealthCheckKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.healthCheckKey = key
		}
	}
}

// WithTLS 启用 TLS，对 Redis 与 etcd 均生效。
func WithTLS(config *tls.Config) Option {
	return func(o *options) {
		o.tlsConfig = config
	}
}
