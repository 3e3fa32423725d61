package config

import (
	"errors"
	"time"
)

// PersistConfig 持久化流水线配置
type PersistConfig struct {
	// QueueSize 队列容量
	// 队列满时 Save/Delete 立即返回 ErrQueueFull
	QueueSize int `json:"queue_size" yaml:"queue_size"`

	// StopTimeout 停止时等待队列排空的最长时间
	// 超时后剩余条目被丢弃，其中的密钥材料被清零
	StopTimeout Duration `json:"stop_timeout" yaml:"stop_timeout"`
}

// DefaultPersistConfig 返回默认持久化配置
func DefaultPersistConfig() PersistConfig {
	return PersistConfig{
		QueueSize:   16,
		StopTimeout: Duration(5 * time.Second),
	}
}

// Validate 验证持久化配置
func (c PersistConfig) Validate() error {
	if c.QueueSize <= 0 {
		return errors.New("persist: queue_size must be positive")
	}
	if c.StopTimeout < 0 {
		return errors.New("persist: stop_timeout cannot be negative")
	}
	return nil
}

// WithQueueSize 设置队列容量
func (c PersistConfig) WithQueueSize(n int) PersistConfig {
	c.QueueSize = n
	return c
}

// WithStopTimeout 设置停止超时
func (c PersistConfig) WithStopTimeout(d time.Duration) PersistConfig {
	c.StopTimeout = Duration(d)
	return c
}
