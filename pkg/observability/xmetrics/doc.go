// Package xmetrics 提供统一的操作观测接口。
//
// 组件通过 Observer.Start 开启一次操作，返回的 Span 在操作结束时以 Result 收尾。
// 默认实现基于 OpenTelemetry：每个 Span 对应一个 trace span，
// 同时记录两类指标：
//
//   - mcbase.operation.total     计数，标签 component/operation/status/outcome
//   - mcbase.operation.duration  耗时直方图（秒），标签同上
//
// outcome 标签来自 Result.Outcome，取值应当是有限集合（如 acquired、contended），
// 不要放入 key 之类的高基数值；高基数信息放在 Attrs 里，只进入 trace。
//
// 未配置 Observer 时使用 NoopObserver，调用方无需判空。
package xmetrics
