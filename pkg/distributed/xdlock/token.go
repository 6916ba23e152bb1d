package xdlock

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/sony/sonyflake/v2"
)

// TokenGenerator 生成持有者 token。每次调用必须返回全局唯一的非空字符串。
type TokenGenerator func() (string, error)

var (
	identityOnce sync.Once
	identity     string
)

// processIdentity 返回 "hostname:pid"，用于排查锁属于哪个进程
func processIdentity() string {
	identityOnce.Do(func() {
		hostname, err := os.Hostname()
		if err != nil || hostname == "" {
			hostname = "unknown"
		}
		identity = hostname + ":" + strconv.Itoa(os.Getpid())
	})
	return identity
}

// UUIDToken 默认 token 生成器："hostname:pid:uuidv7"。
func UUIDToken() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("xdlock: generate token: %w", err)
	}
	return processIdentity() + ":" + id.String(), nil
}

// SonyflakeTokens 返回基于 sonyflake 的 token 生成器，token 按时间单调递增。
//
// machineID 必须在同时使用该生成器的进程间唯一（0-65535）。
func SonyflakeTokens(machineID uint16) (TokenGenerator, error) {
	sf, err := sonyflake.New(sonyflake.Settings{
		MachineID: func() (int, error) { return int(machineID), nil },
	})
	if err != nil {
		return nil, fmt.Errorf("xdlock: create sonyflake: %w", err)
	}
	return func() (string, error) {
		id, err := sf.NextID()
		if err != nil {
			return "", fmt.Errorf("xdlock: generate token: %w", err)
		}
		return strconv.FormatInt(id, 36), nil
	}, nil
}
