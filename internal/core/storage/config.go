package storage

import (
	"time"

	"github.com/dep2p/go-blekeys/config"
	"github.com/dep2p/go-blekeys/internal/core/storage/engine"
)

// Config Storage 模块配置
type Config struct {
	// Path BadgerDB 数据库目录（必需）
	Path string

	// SyncWrites 是否同步写入
	SyncWrites bool

	// GCInterval 值日志 GC 间隔，0 禁用
	GCInterval time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	sc := config.DefaultStorageConfig()
	return Config{
		Path:       sc.DBPath(),
		SyncWrites: sc.SyncWrites,
		GCInterval: sc.GCInterval.Duration(),
	}
}

// ConfigFromUnified 从统一配置创建 Storage 配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return Config{
		Path:       cfg.Storage.DBPath(),
		SyncWrites: cfg.Storage.SyncWrites,
		GCInterval: cfg.Storage.GCInterval.Duration(),
	}
}

// ToEngineConfig 转换为引擎配置
func (c Config) ToEngineConfig() *engine.Config {
	ec := engine.DefaultConfig(c.Path)
	ec.SyncWrites = c.SyncWrites
	ec.GCInterval = c.GCInterval
	return ec
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.Path == "" {
		return ErrInvalidConfig
	}
	if c.GCInterval < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// WithPath 设置存储路径
func (c Config) WithPath(path string) Config {
	c.Path = path
	return c
}

// WithSyncWrites 设置同步写入
func (c Config) WithSyncWrites(sync bool) Config {
	c.SyncWrites = sync
	return c
}
