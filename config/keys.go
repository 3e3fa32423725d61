package config

import (
	"errors"
	"fmt"
)

// MaxPairedLimit 密钥池容量上限
const MaxPairedLimit = 1024

// KeysConfig 密钥池配置
type KeysConfig struct {
	// MaxPaired 密钥池容量（同时保存的配对记录数）
	// 运行期间固定不变
	MaxPaired int `json:"max_paired" yaml:"max_paired"`

	// OverwriteOldest 池满时是否淘汰最久未使用的记录
	// 关闭时池满分配返回 ErrPoolExhausted
	OverwriteOldest bool `json:"overwrite_oldest" yaml:"overwrite_oldest"`

	// SaveAgingCounterOnPairing 每次使用记录时是否持久化老化计数
	// 开启后淘汰顺序在重启后仍然准确，但会增加写入次数
	SaveAgingCounterOnPairing bool `json:"save_aging_counter_on_pairing" yaml:"save_aging_counter_on_pairing"`

	// Central 本机是否启用 central 角色
	Central bool `json:"central" yaml:"central"`

	// Privacy 本机是否启用隐私（RPA）
	// Central 与 Privacy 同时开启时，加载后所有记录都注册到解析列表
	Privacy bool `json:"privacy" yaml:"privacy"`
}

// DefaultKeysConfig 返回默认密钥池配置
func DefaultKeysConfig() KeysConfig {
	return KeysConfig{
		MaxPaired:                 8,
		OverwriteOldest:           false,
		SaveAgingCounterOnPairing: false,
		Central:                   false,
		Privacy:                   false,
	}
}

// Validate 验证密钥池配置
func (c KeysConfig) Validate() error {
	if c.MaxPaired <= 0 {
		return errors.New("keys: max_paired must be positive")
	}
	if c.MaxPaired > MaxPairedLimit {
		return fmt.Errorf("keys: max_paired %d exceeds limit %d", c.MaxPaired, MaxPairedLimit)
	}
	if c.SaveAgingCounterOnPairing && !c.OverwriteOldest {
		return errors.New("keys: save_aging_counter_on_pairing requires overwrite_oldest")
	}
	return nil
}

// WithMaxPaired 设置池容量
func (c KeysConfig) WithMaxPaired(n int) KeysConfig {
	c.MaxPaired = n
	return c
}

// WithOverwriteOldest 设置淘汰策略
func (c KeysConfig) WithOverwriteOldest(enabled bool) KeysConfig {
	c.OverwriteOldest = enabled
	return c
}

// WithSaveAgingCounter 设置是否持久化老化计数
func (c KeysConfig) WithSaveAgingCounter(enabled bool) KeysConfig {
	c.SaveAgingCounterOnPairing = enabled
	return c
}

// WithRoles 设置本机角色
func (c KeysConfig) WithRoles(central, privacy bool) KeysConfig {
	c.Central = central
	c.Privacy = privacy
	return c
}
