package pipeline

import "errors"

var (
	// ErrQueueFull 队列已满，本次变更只保留在内存中
	ErrQueueFull = errors.New("pipeline: queue full")

	// ErrStopped 流水线已停止
	ErrStopped = errors.New("pipeline: stopped")

	// ErrBackendIO 持久化后端读写失败
	ErrBackendIO = errors.New("pipeline: backend I/O failure")
)

// IsQueueFull 检查是否为队列满错误
func IsQueueFull(err error) bool {
	return errors.Is(err, ErrQueueFull)
}
