package xstore

import "errors"

var (
	// ErrNilConfig 配置为空。
	ErrNilConfig = errors.New("xstore: config is nil")

	// ErrInvalidMode 未知的存储模式。
	ErrInvalidMode = errors.New("xstore: invalid mode")

	// ErrNoAddrs 未配置地址。
	ErrNoAddrs = errors.New("xstore: no addresses configured")

	// ErrInvalidAddr 地址格式无效，期望 host:port。
	ErrInvalidAddr = errors.New("xstore: invalid address, expected host:port")

	// ErrNoMasterName 哨兵模式缺少 MasterName。
	ErrNoMasterName = errors.New("xstore: sentinel mode requires master name")

	// ErrInvalidConfig 其他字段取值非法。
	ErrInvalidConfig = errors.New("xstore: invalid config")

	// ErrHealthCheck 创建后健康检查失败。
	ErrHealthCheck = errors.New("xstore: health check failed")
)
