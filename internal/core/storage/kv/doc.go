// Package kv 提供带前缀隔离的 KV 存储抽象层
//
// Store 在存储引擎之上为所有键自动添加前缀，使多个组件
// 可以共享同一个 BadgerDB 而互不干扰。
//
// # 键空间
//
//   - s/ - settings 子系统（配对记录位于 s/bt/keys/...）
//
// # 使用示例
//
//	settingsKV := kv.New(eng, []byte("s/"))
//	settingsKV.Put([]byte("bt/keys/c0ffee0000011"), record) // 实际键: s/bt/keys/c0ffee0000011
package kv
