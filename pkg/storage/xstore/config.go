package xstore

import (
	"fmt"
	"strings"
	"time"
)

// Mode 存储形态。
type Mode string

const (
	ModeStandalone Mode = "standalone"
	ModeSentinel   Mode = "sentinel"
	ModeCluster    Mode = "cluster"
	ModeRing       Mode = "ring"
	// ModePool 单节点 Redis，经 redsync 连接池访问
	ModePool Mode = "pool"
	ModeEtcd Mode = "etcd"
)

// Modes 返回全部支持的模式
func Modes() []Mode {
	return []Mode{ModeStandalone, ModeSentinel, ModeCluster, ModeRing, ModePool, ModeEtcd}
}

// Config 存储连接配置。
type Config struct {
	// Mode 存储形态，空值视为 standalone。
	Mode Mode `json:"mode" yaml:"mode" koanf:"mode"`

	// Addrs 地址列表，格式 host:port。
	// standalone/pool 只接受一个地址；sentinel 为哨兵地址；ring 每个地址一个分片。
	Addrs []string `json:"addrs" yaml:"addrs" koanf:"addrs"`

	Username string `json:"username" yaml:"username" koanf:"username"`
	Password string `json:"password" yaml:"password" koanf:"password"`

	// DB Redis 数据库编号，cluster 与 etcd 必须为 0。
	DB int `json:"db" yaml:"db" koanf:"db"`

	// MasterName 哨兵模式的主节点名称。
	MasterName string `json:"masterName" yaml:"masterName" koanf:"masterName"`

	// DialTimeout 连接超时，零值使用 5 秒。
	DialTimeout time.Duration `json:"dialTimeout" yaml:"dialTimeout" koanf:"dialTimeout"`

	// ReadTimeout/WriteTimeout Redis 读写超时，零值使用 3 秒。etcd 忽略。
	ReadTimeout  time.Duration `json:"readTimeout" yaml:"readTimeout" koanf:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout" koanf:"writeTimeout"`

	// PoolSize Redis 每节点连接数，零值使用 go-redis 默认值。
	PoolSize int `json:"poolSize" yaml:"poolSize" koanf:"poolSize"`

	// Etcd 仅 etcd 模式使用。
	Etcd EtcdConfig `json:"etcd" yaml:"etcd" koanf:"etcd"`
}

// EtcdConfig etcd 连接的 keepalive 与集群参数。
type EtcdConfig struct {
	DialKeepAliveTime    time.Duration `json:"dialKeepAliveTime" yaml:"dialKeepAliveTime" koanf:"dialKeepAliveTime"`
	DialKeepAliveTimeout time.Duration `json:"dialKeepAliveTimeout" yaml:"dialKeepAliveTimeout" koanf:"dialKeepAliveTimeout"`
	// AutoSyncInterval 定期同步集群成员，0 禁用
	AutoSyncInterval    time.Duration `json:"autoSyncInterval" yaml:"autoSyncInterval" koanf:"autoSyncInterval"`
	RejectOldCluster    bool          `json:"rejectOldCluster" yaml:"rejectOldCluster" koanf:"rejectOldCluster"`
	PermitWithoutStream bool          `json:"permitWithoutStream" yaml:"permitWithoutStream" koanf:"permitWithoutStream"`
}

const (
	defaultDialTimeout          = 5 * time.Second
	defaultReadTimeout          = 3 * time.Second
	defaultWriteTimeout         = 3 * time.Second
	defaultDialKeepAliveTime    = 10 * time.Second
	defaultDialKeepAliveTimeout = 3 * time.Second
)

// DefaultConfig 返回 standalone 模式的推荐配置，Addrs 需调用方填写。
//
// 布尔字段零值为 false，直接使用 Config{} 时 etcd 的 RejectOldCluster
// 与 PermitWithoutStream 为关闭状态，推荐从 DefaultConfig 开始修改。
func DefaultConfig() *Config {
	return &Config{
		Mode:         ModeStandalone,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		Etcd: EtcdConfig{
			DialKeepAliveTime:    defaultDialKeepAliveTime,
			DialKeepAliveTimeout: defaultDialKeepAliveTimeout,
			RejectOldCluster:     true,
			PermitWithoutStream:  true,
		},
	}
}

// Validate 检查配置是否可用于 Open。
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	mode := c.mode()
	if !mode.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}

	if len(c.Addrs) == 0 {
		return ErrNoAddrs
	}
	for i, addr := range c.Addrs {
		if strings.TrimSpace(addr) == "" {
			return fmt.Errorf("%w: addrs[%d] is empty", ErrInvalidAddr, i)
		}
		if !strings.Contains(addr, ":") {
			return fmt.Errorf("%w: addrs[%d]=%q missing port", ErrInvalidAddr, i, addr)
		}
	}
	if (mode == ModeStandalone || mode == ModePool) && len(c.Addrs) > 1 {
		return fmt.Errorf("%w: %s mode accepts one address, got %d", ErrInvalidAddr, mode, len(c.Addrs))
	}

	if mode == ModeSentinel && c.MasterName == "" {
		return ErrNoMasterName
	}
	if c.DB < 0 {
		return fmt.Errorf("%w: db must not be negative", ErrInvalidConfig)
	}
	if c.DB != 0 && (mode == ModeCluster || mode == ModeEtcd) {
		return fmt.Errorf("%w: db is not supported in %s mode", ErrInvalidConfig, mode)
	}
	if c.PoolSize < 0 {
		return fmt.Errorf("%w: poolSize must not be negative", ErrInvalidConfig)
	}
	if c.DialTimeout < 0 || c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	return nil
}

// applyDefaults 返回补齐默认值的副本，不修改原配置
func (c *Config) applyDefaults() *Config {
	cfg := *c
	cfg.Addrs = append([]string(nil), c.Addrs...)
	cfg.Mode = c.mode()
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Etcd.DialKeepAliveTime == 0 {
		cfg.Etcd.DialKeepAliveTime = defaultDialKeepAliveTime
	}
	if cfg.Etcd.DialKeepAliveTimeout == 0 {
		cfg.Etcd.DialKeepAliveTimeout = defaultDialKeepAliveTimeout
	}
	return &cfg
}

func (c *Config) mode() Mode {
	if c.Mode == "" {
		return ModeStandalone
	}
	return Mode(strings.ToLower(string(c.Mode)))
}

func (m Mode) valid() bool {
	for _, v := range Modes() {
		if m == v {
			return true
		}
	}
	return false
}
