// Package xconf 基于 koanf 的最小配置加载器。
//
// 负责从文件或字节数据加载 YAML/JSON，按路径反序列化到结构体，
// 以及并发安全的重新加载。必填校验与默认值由使用方负责，
// 例如 xstore.Config.Validate。
//
// # 支持的格式
//
//   - YAML：.yaml, .yml
//   - JSON：.json
//
// # 用法
//
//	cfg, err := xconf.New("/etc/mcbase/lock.yaml")
//	if err != nil {
//	    return err
//	}
//	store := xstore.DefaultConfig()
//	if err := cfg.Unmarshal("store", store); err != nil {
//	    return err
//	}
//
// Unmarshal 使用 mapstructure，支持弱类型转换，时长可写作 "5s"、"300ms"。
//
// # 并发
//
// Reload 解析成功后原子替换内部 koanf 实例，解析失败时保留旧配置。
// Client 返回当时的快照，Reload 之后需重新获取。
package xconf
