package config

import "errors"

// ResolvingListConfig 控制器解析列表配置
type ResolvingListConfig struct {
	// Enable 是否启用解析列表
	// 关闭时身份注册只在内存中标记，不占用列表条目
	Enable bool `json:"enable" yaml:"enable"`

	// Size 列表条目数
	Size int `json:"size" yaml:"size"`
}

// DefaultResolvingListConfig 返回默认解析列表配置
func DefaultResolvingListConfig() ResolvingListConfig {
	return ResolvingListConfig{
		Enable: true,
		Size:   8,
	}
}

// Validate 验证解析列表配置
func (c ResolvingListConfig) Validate() error {
	if c.Enable && c.Size <= 0 {
		return errors.New("resolving_list: size must be positive")
	}
	return nil
}

// WithSize 设置列表条目数
func (c ResolvingListConfig) WithSize(n int) ResolvingListConfig {
	c.Size = n
	return c
}
