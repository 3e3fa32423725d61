// Package pipeline 实现密钥记录的异步持久化
//
// Pipeline 是一个有界 FIFO 队列加单个 worker：
//
//	协议 goroutine                      worker goroutine
//	    Save(rec) ──┐                      ┌── Backend.Save(name, bytes)
//	    Delete(rec) ┴─► chan *Entry ──────►┴── Backend.Delete(name)
//
// Save/Delete 只复制记录并尝试入队，队列满时立即返回 ErrQueueFull。
// 单 worker 按入队顺序处理，同一地址的保存与删除不会乱序。
// 后端失败只记录日志，不重试，也不回滚内存中的状态。
//
// Stop 等待队列排空；ctx 到期后剩余条目被丢弃，其中的密钥材料被清零。
package pipeline
