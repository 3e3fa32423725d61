// Package storage 提供配对凭据的持久化存储
//
// 所有数据位于同一个 BadgerDB 中，通过 kv.Store 的键前缀隔离：
//
//	storage.Module()
//	    └── engine.Engine (badger)
//	            └── kv.Store "s/"  → settings 子系统
//
// 测试代码应使用 t.TempDir() 创建临时目录。
package storage
