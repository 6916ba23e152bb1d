// Package xlog 提供基于 log/slog 的结构化日志。
//
// # 核心接口
//
//   - Logger: ctx 优先的日志方法（Debug/Info/Warn/Error/Stack）
//   - Leveler: 运行时动态调整级别
//   - LoggerWithLevel: 两者组合，由 Builder.Build 返回
//
// # 构建
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation("/var/log/xlockctl.log", xlog.RotateMaxSize(50)).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//
// 文件轮转使用 lumberjack。cleanup 负责关闭轮转文件，可重复调用。
//
// # 全局 Logger
//
// Default 懒加载一个输出到 stderr 的 text logger；SetDefault 可替换。
// 包级函数 Debug/Info/Warn/Error/Stack 直接写入全局 Logger。
//
// # 属性
//
// attrs.go 提供统一的键名与构造函数，如 Err、Component、Operation。
// Err(nil) 返回空属性，slog 会忽略它。
package xlog
