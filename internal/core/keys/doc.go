// Package keys 实现配对密钥池
//
// Pool 持有固定数量的 Record 槽位，提供按 (身份, 地址) 的查找、
// 分配、最久未用淘汰以及可解析私有地址（RPA）的两阶段解析。
//
// # 并发模型
//
// Pool 只在协议 goroutine 中使用，内部不加锁。需要持久化时，
// Pool 把记录的副本交给 Persister（通常是 pipeline.Pipeline），
// 由独立的 worker 完成磁盘 I/O，协议 goroutine 不会被阻塞。
//
// # 引用有效期
//
// Pool 返回的 *Record 指向内部槽位，只在下一次分配、淘汰或清除
// 之前有效，调用方不应跨这些操作持有。
//
// # 持久化格式
//
// Record.MarshalStorage 输出固定 StorageLen 字节的小端编码，
// 加载时额外接受缺少末尾老化计数的 StorageLenCompat 旧格式。
package keys
