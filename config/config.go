// Package config 提供统一的配置管理
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义，
// 各自提供 Default…()、Validate() 和 With… 构建方法。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Keys = cfg.Keys.WithMaxPaired(4).WithOverwriteOldest(true)
//
//	// 从文件加载（.json / .yaml / .yml）
//	cfg, err := config.Load("/etc/blekeys.yaml")
package config

// Config 是 blekeys 的完整配置结构
//
//   - Keys: 密钥池容量与策略
//   - Persist: 持久化流水线
//   - Storage: 数据目录与 BadgerDB
//   - ResolvingList: 控制器解析列表
//   - Metrics: Prometheus 指标
//   - Log: 日志
type Config struct {
	// Keys 密钥池配置
	Keys KeysConfig `json:"keys" yaml:"keys"`

	// Persist 持久化流水线配置
	Persist PersistConfig `json:"persist" yaml:"persist"`

	// Storage 存储配置
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// ResolvingList 解析列表配置
	ResolvingList ResolvingListConfig `json:"resolving_list" yaml:"resolving_list"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Log 日志配置
	Log LogConfig `json:"log" yaml:"log"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Keys:          DefaultKeysConfig(),
		Persist:       DefaultPersistConfig(),
		Storage:       DefaultStorageConfig(),
		ResolvingList: DefaultResolvingListConfig(),
		Metrics:       DefaultMetricsConfig(),
		Log:           DefaultLogConfig(),
	}
}

// Validate 验证所有子配置
func (c *Config) Validate() error {
	if err := c.Keys.Validate(); err != nil {
		return err
	}
	if err := c.Persist.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.ResolvingList.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}
