// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xstore: 按配置打开 Redis 或 etcd 连接，供 xdlock 绑定
//
// 设计原则：
//   - 配置与连接分离，配置可由 xconf 从文件加载
//   - 打开时可选健康检查，失败立即返回
package storage
