package xdlock

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	rsredis "github.com/go-redsync/redsync/v4/redis"
	"github.com/redis/go-redis/v9"
)

// =============================================================================
// 脚本注册表
// =============================================================================

var (
	//go:embed lua/acquire.lua
	acquireLuaSource string

	//go:embed lua/release.lua
	releaseLuaSource string
)

// 脚本结果码
const (
	resultFailed  int64 = 0
	resultSuccess int64 = 1
)

// Script 原子操作模板的描述，供需要自行执行脚本的调用方使用。
type Script struct {
	Name     string
	Source   string
	KeyCount int
	// Args ARGV 槽位名称，按顺序
	Args []string
}

var (
	// AcquireScript 仅当 key 不存在时写入 token 并附加 leaseSeconds 秒过期。返回 1 或 0。
	AcquireScript = Script{
		Name:     "acquire",
		Source:   acquireLuaSource,
		KeyCount: 1,
		Args:     []string{"token", "leaseSeconds"},
	}

	// ReleaseScript 仅当当前值等于 token 时删除 key。返回删除数量或 0。
	ReleaseScript = Script{
		Name:     "release",
		Source:   releaseLuaSource,
		KeyCount: 1,
		Args:     []string{"token"},
	}
)

// Scripts 返回注册表中的全部脚本
func Scripts() []Script {
	return []Script{AcquireScript, ReleaseScript}
}

// compiledScripts 各客户端库的脚本对象，进程内只创建一次
type compiledScripts struct {
	acquire   *redis.Script
	release   *redis.Script
	rsRelease *rsredis.Script
}

var (
	globalScripts     *compiledScripts
	globalScriptsOnce sync.Once
)

func getScripts() *compiledScripts {
	globalScriptsOnce.Do(func() {
		release := redis.NewScript(ReleaseScript.Source)
		globalScripts = &compiledScripts{
			acquire: redis.NewScript(AcquireScript.Source),
			release: release,
			// redsync 先 EVALSHA，NOSCRIPT 时回退 EVAL，哈希必须与源码一致
			rsRelease: rsredis.NewScript(ReleaseScript.KeyCount, ReleaseScript.Source, release.Hash()),
		}
	})
	return globalScripts
}

// WarmupScripts 通过 SCRIPT LOAD 预加载脚本。
//
// 可选调用：未预热时首次执行会由 EVALSHA 回退到 EVAL。
// 集群模式下只会加载到单个节点，其余节点同样按需回退。
func WarmupScripts(ctx context.Context, client redis.Scripter) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if isNil(client) {
		return ErrTransportUnavailable
	}

	s := getScripts()
	if err := s.acquire.Load(ctx, client).Err(); err != nil {
		return fmt.Errorf("load acquire script: %w", classifyRedisError(err))
	}
	if err := s.release.Load(ctx, client).Err(); err != nil {
		return fmt.Errorf("load release script: %w", classifyRedisError(err))
	}
	return nil
}

// toResultCode 将脚本返回值规整为结果码
func toResultCode(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("%w: %T", ErrUnexpectedResult, v)
	}
}
