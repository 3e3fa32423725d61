// Package engine 定义存储引擎接口
//
// 密钥持久化只需要点读写、前缀遍历与批量删除，
// 接口按此裁剪。实现必须保证并发安全。
//
//	engine.Engine
//	    ↑
//	badger.Engine   - BadgerDB 实现
package engine
