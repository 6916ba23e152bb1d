// Package xdlock 提供基于单个共享存储的租约锁。
//
// 锁由 key 标识，状态只存在于存储中：值为持有者 token，过期时间为租约。
// 加锁是"不存在才写入并设置过期"，释放是"值等于 token 才删除"，
// 两者都在存储端原子执行，跨进程、跨主机无竞态。
//
// # 基本用法
//
//	c, err := xdlock.New(redisClient)
//	if err != nil {
//	    return err // 连接为 nil 或类型不支持
//	}
//	token, _ := c.NewToken()
//	if !c.TryAcquire(ctx, "order:10086", token, 30*time.Second) {
//	    return nil // 被占用或失败，原因见日志
//	}
//	defer c.Release(ctx, "order:10086", token)
//
// 或使用 WithLock 自动生成 token 并释放：
//
//	ok, err := c.WithLock(ctx, "order:10086", 30*time.Second, func(ctx context.Context) error {
//	    return doWork(ctx)
//	})
//
// # 支持的连接
//
//	| 连接类型                     | Kind        | 加锁              | 释放       |
//	|------------------------------|-------------|-------------------|------------|
//	| *redis.Client（含哨兵）       | standalone  | Lua 脚本          | Lua 脚本   |
//	| *redis.ClusterClient          | cluster     | Lua 脚本          | Lua 脚本   |
//	| *redis.Ring                   | sharded     | Lua 脚本          | Lua 脚本   |
//	| 其他 redis.Scripter           | scripted    | Lua 脚本          | Lua 脚本   |
//	| redsync rsredis.Pool          | pooled      | SET NX + 过期     | Lua 脚本   |
//	| *clientv3.Client              | etcd        | 事务 + 租约       | 事务       |
//
// 变体在 New/Bind 时确定一次。所有变体行为一致：结果码 1 成功，0 被占用或不匹配。
//
// # 结果与错误
//
// TryAcquire/Release 只返回 bool：被占用、参数错误、连接失败、脚本失败
// 都是 false。需要区分原因时使用 TryAcquireErr/ReleaseErr：
//
//   - ErrLockContended: 锁被占用
//   - ErrReleaseMismatch: 锁不存在或不属于该 token
//   - ErrTransportUnavailable: 连接不可用、网络错误、ctx 超时
//   - ErrScriptExecution: 存储端执行报错或返回无法解释的结果
//   - ErrInvalidArgument: key/token/lease 非法
//
// 每次操作都会记录一个 xmetrics span、一条 xlog 日志并计入 Stats。
//
// # 租约
//
// lease 向上取整到秒，最小 1 秒。etcd 会把过短的 TTL 提升到服务端最小值。
//
// # 边界
//
// 这是单存储、尽力而为的租约锁：
//
//   - 不提供 fencing token。持有者在租约过期后继续执行，可能与新持有者重叠。
//   - 不做自动续期，lease 必须覆盖临界区的最长执行时间。
//   - 不实现跨多个独立存储的 Redlock 仲裁。
//   - TryAcquire 不重试；需要等待时使用 AcquireRetry。
//   - ctx 取消只能中止本次往返，无法撤销已提交的加锁，调用方仍需 Release。
package xdlock
