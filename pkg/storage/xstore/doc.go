// Package xstore 按配置打开锁所需的存储连接。
//
// 一份 Config 描述存储形态（Mode）与连接参数，Open 返回对应的原生客户端，
// Conn.Raw() 可直接交给 xdlock.New：
//
//	cfg := xstore.DefaultConfig()
//	cfg.Mode = xstore.ModeCluster
//	cfg.Addrs = []string{"10.0.0.1:7000", "10.0.0.2:7000"}
//	conn, err := xstore.Open(ctx, cfg, xstore.WithHealthCheck(true, 3*time.Second))
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//	locker, err := xdlock.New(conn.Raw())
//
// # 模式
//
//	| Mode       | Raw() 类型              |
//	|------------|-------------------------|
//	| standalone | *redis.Client           |
//	| sentinel   | *redis.Client（故障转移）|
//	| cluster    | *redis.ClusterClient    |
//	| ring       | *redis.Ring             |
//	| pool       | redsync rsredis.Pool    |
//	| etcd       | *clientv3.Client        |
//
// Config 支持 JSON/YAML/koanf 反序列化，时长字段可写作 "5s"。
package xstore
