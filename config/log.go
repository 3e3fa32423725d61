package config

import (
	"fmt"
	"io"

	"github.com/dep2p/go-blekeys/pkg/lib/log"
)

// LogConfig 日志配置
//
// 环境变量 BLEKEYS_LOG_LEVEL / BLEKEYS_LOG_FORMAT 在包初始化时生效，
// 配置文件中的值在 Apply() 时覆盖它们。
type LogConfig struct {
	// Level 日志级别: debug / info / warn / error
	Level string `json:"level" yaml:"level"`

	// Format 输出格式: text / json
	Format string `json:"format" yaml:"format"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	if c.Level != "" {
		if _, ok := log.ParseLevel(c.Level); !ok {
			return fmt.Errorf("log: unknown level %q", c.Level)
		}
	}
	switch c.Format {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("log: unknown format %q", c.Format)
	}
}

// Apply 按配置重建默认 logger，w 为 nil 时输出到 stderr
func (c LogConfig) Apply(w io.Writer) {
	level, _ := log.ParseLevel(c.Level)
	log.Setup(w, level, log.ParseFormat(c.Format))
}
