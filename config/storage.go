package config

import (
	"errors"
	"path/filepath"
	"time"
)

// StorageConfig 存储配置
//
// 数据目录结构：
//
//	${DataDir}/
//	└── blekeys.db/         # BadgerDB 数据库
//	    ├── 000001.vlog
//	    ├── 000001.sst
//	    └── MANIFEST
type StorageConfig struct {
	// DataDir 数据目录路径
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// SyncWrites 每次写入都同步到磁盘
	SyncWrites bool `json:"sync_writes" yaml:"sync_writes"`

	// GCInterval 值日志 GC 间隔，0 禁用
	GCInterval Duration `json:"gc_interval" yaml:"gc_interval"`
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		DataDir:    "./data",
		SyncWrites: true,
		GCInterval: Duration(10 * time.Minute),
	}
}

// Validate 验证存储配置
func (c StorageConfig) Validate() error {
	if c.DataDir == "" {
		return errors.New("storage: data_dir cannot be empty")
	}
	if c.GCInterval < 0 {
		return errors.New("storage: gc_interval cannot be negative")
	}
	return nil
}

// DBPath 返回 BadgerDB 数据库路径
func (c StorageConfig) DBPath() string {
	return filepath.Join(c.DataDir, "blekeys.db")
}

// WithDataDir 设置数据目录
func (c StorageConfig) WithDataDir(dir string) StorageConfig {
	c.DataDir = dir
	return c
}

// WithSyncWrites 设置同步写入
func (c StorageConfig) WithSyncWrites(sync bool) StorageConfig {
	c.SyncWrites = sync
	return c
}
