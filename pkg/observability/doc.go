// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展，支持文件轮转
//   - xmetrics: 统一观测接口（OpenTelemetry 追踪 + 指标）
//
// 锁协调器通过这两个包输出诊断信息：布尔结果之外的失败原因
// 只出现在日志、span 和指标中。
package observability
