// Package distributed 提供分布式协调相关的子包。
//
// 子包列表：
//   - xdlock: 单存储租约锁，支持 Redis（单机、哨兵、集群、分片）、redsync 连接池、etcd
//
// 设计原则：
//   - 锁状态只存在于存储中，进程内不保存按 key 的状态
//   - 加锁与释放都在存储端原子执行
//   - 对外只给出布尔结果，失败原因进入日志与观测
package distributed
