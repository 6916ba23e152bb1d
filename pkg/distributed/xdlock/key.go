package xdlock

import "strings"

// maxKeyLength 完整 key（含前缀）的最大字节数
const maxKeyLength = 512

// KeySeparator 多段 key 的分隔符
const KeySeparator = ":"

// JoinKey 用 ":" 连接多段 key，忽略空段。
//
//	xdlock.JoinKey("order", "pay", "10086") // "order:pay:10086"
func JoinKey(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, KeySeparator)
}

// validateKey 校验业务 key（前缀之前）。
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}

// validateFullKey 校验加上前缀后的存储 key
func validateFullKey(fullKey string) error {
	if len(fullKey) > maxKeyLength {
		return ErrKeyTooLong
	}
	return nil
}

func validateToken(token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	return nil
}
