package xdlock

import (
	"errors"
	"fmt"
)

// 预定义错误。
//
// TryAcquire/Release 只返回布尔值；TryAcquireErr/ReleaseErr 返回以下错误之一，
// 使用 errors.Is 匹配：
//
//	if errors.Is(err, xdlock.ErrLockContended) {
//	    // 锁被其他持有者占用
//	}
var (
	// ErrLockContended 锁已被其他持有者占用（预期内的失败）。
	ErrLockContended = errors.New("xdlock: lock is held by another owner")

	// ErrReleaseMismatch 释放时 key 不存在或 token 不匹配（已过期、已释放或属于他人）。
	ErrReleaseMismatch = errors.New("xdlock: lock not held by this token")

	// ErrTransportUnavailable 连接不可用：未绑定、类型不支持、网络错误、客户端已关闭或 ctx 超时。
	ErrTransportUnavailable = errors.New("xdlock: transport unavailable")

	// ErrScriptExecution 存储端执行失败：服务端返回错误，或结果无法解释。
	ErrScriptExecution = errors.New("xdlock: script execution failed")

	// ErrInvalidArgument 参数不合法，未发出任何存储请求。
	ErrInvalidArgument = errors.New("xdlock: invalid argument")
)

// 参数错误，均包装 ErrInvalidArgument。
var (
	ErrEmptyKey     = fmt.Errorf("%w: key must not be empty", ErrInvalidArgument)
	ErrKeyTooLong   = fmt.Errorf("%w: key exceeds maximum length of %d bytes", ErrInvalidArgument, maxKeyLength)
	ErrEmptyToken   = fmt.Errorf("%w: token must not be empty", ErrInvalidArgument)
	ErrInvalidLease = fmt.Errorf("%w: lease must be positive", ErrInvalidArgument)
)

// ErrUnexpectedResult 脚本返回了非整数结果，包装 ErrScriptExecution。
var ErrUnexpectedResult = fmt.Errorf("%w: unexpected result type", ErrScriptExecution)

// =============================================================================
// 结果分类
// =============================================================================

// Outcome 一次加锁或释放的结果分类，用于日志、指标与统计。
type Outcome string

const (
	OutcomeAcquired             Outcome = "acquired"
	OutcomeContended            Outcome = "contended"
	OutcomeReleased             Outcome = "released"
	OutcomeMismatch             Outcome = "mismatch"
	OutcomeTransportUnavailable Outcome = "transport_unavailable"
	OutcomeScriptFailure        Outcome = "script_failure"
	OutcomeInvalidArgument      Outcome = "invalid_argument"
)

// OutcomeOf 将 TryAcquireErr/ReleaseErr 的错误映射为 Outcome。
//
// err 为 nil 时无法区分加锁与释放，返回空字符串；调用方应自行选择
// OutcomeAcquired 或 OutcomeReleased。未知错误按脚本失败处理。
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLockContended):
		return OutcomeContended
	case errors.Is(err, ErrReleaseMismatch):
		return OutcomeMismatch
	case errors.Is(err, ErrInvalidArgument):
		return OutcomeInvalidArgument
	case errors.Is(err, ErrTransportUnavailable):
		return OutcomeTransportUnavailable
	default:
		return OutcomeScriptFailure
	}
}

// expected 报告该结果是否属于正常竞争（不计为故障）
func (o Outcome) expected() bool {
	switch o {
	case OutcomeAcquired, OutcomeReleased, OutcomeContended, OutcomeMismatch:
		return true
	default:
		return false
	}
}
