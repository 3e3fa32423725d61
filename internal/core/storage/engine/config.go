package engine

import (
	"os"
	"path/filepath"
	"time"
)

// Config 存储引擎配置
//
// 测试代码应使用 t.TempDir() 创建临时目录。
type Config struct {
	// Path 数据目录路径（必需）
	Path string

	// SyncWrites 每次写入都同步到磁盘
	// 配对凭据写入频率低，默认开启
	SyncWrites bool

	// ReadOnly 只读模式
	ReadOnly bool

	// EnableLog 是否将 BadgerDB 内部日志转发到组件 logger
	EnableLog bool

	// BlockCacheSize 块缓存大小（字节）
	BlockCacheSize int64

	// MemTableSize 内存表大小（字节）
	MemTableSize int64

	// ValueLogFileSize 值日志文件大小（字节）
	ValueLogFileSize int64

	// Compression ZSTD 压缩级别，0 禁用
	Compression int

	// GCInterval 值日志 GC 间隔，0 禁用
	GCInterval time.Duration

	// GCDiscardRatio GC 丢弃比例
	GCDiscardRatio float64
}

// DefaultConfig 返回默认配置
//
// 密钥记录很小，缓存与内存表取较小值。
func DefaultConfig(path string) *Config {
	return &Config{
		Path:             path,
		SyncWrites:       true,
		BlockCacheSize:   8 << 20,  // 8MB
		MemTableSize:     8 << 20,  // 8MB
		ValueLogFileSize: 64 << 20, // 64MB
		Compression:      1,
		GCInterval:       10 * time.Minute,
		GCDiscardRatio:   0.5,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Path == "" {
		return ErrInvalidConfig
	}
	if c.MemTableSize < 1<<20 {
		return ErrInvalidConfig
	}
	if c.ValueLogFileSize < 1<<20 {
		return ErrInvalidConfig
	}
	if c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1 {
		return ErrInvalidConfig
	}
	return nil
}

// EnsureDir 确保数据目录存在，并将 Path 转为绝对路径
func (c *Config) EnsureDir() error {
	absPath, err := filepath.Abs(c.Path)
	if err != nil {
		return err
	}
	c.Path = absPath
	return os.MkdirAll(c.Path, 0o700)
}

// WithSyncWrites 设置同步写入
func (c *Config) WithSyncWrites(sync bool) *Config {
	c.SyncWrites = sync
	return c
}

// WithReadOnly 设置只读模式
func (c *Config) WithReadOnly(readOnly bool) *Config {
	c.ReadOnly = readOnly
	return c
}

// WithGC 设置 GC 间隔
func (c *Config) WithGC(interval time.Duration) *Config {
	c.GCInterval = interval
	return c
}
