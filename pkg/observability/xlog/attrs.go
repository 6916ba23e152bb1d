package xlog

import (
	"log/slog"
	"time"
)

// 标准属性键
const (
	KeyError     = "error"
	KeyStack     = "stack"
	KeyDuration  = "duration"
	KeyComponent = "component"
	KeyOperation = "operation"
	KeyKey       = "key"
	KeyOutcome   = "outcome"
	KeyTransport = "transport"
	KeyLease     = "lease"
	KeyTTL       = "ttl"
)

// Err 错误属性，err 为 nil 时返回空属性（被 slog 忽略）。
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

func Duration(d time.Duration) slog.Attr {
	return slog.String(KeyDuration, d.String())
}

func Component(name string) slog.Attr {
	return slog.String(KeyComponent, name)
}

func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Key 存储键（锁名等）
func Key(k string) slog.Attr {
	return slog.String(KeyKey, k)
}

// Outcome 操作结果分类，如 acquired、contended
func Outcome(o string) slog.Attr {
	return slog.String(KeyOutcome, o)
}

// Transport 传输变体名称
func Transport(name string) slog.Attr {
	return slog.String(KeyTransport, name)
}

// Lease 租约时长
func Lease(d time.Duration) slog.Attr {
	return slog.String(KeyLease, d.String())
}

// TTL 剩余存活时间
func TTL(d time.Duration) slog.Attr {
	return slog.String(KeyTTL, d.String())
}
