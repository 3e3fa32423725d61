package blekeys

import (
	"errors"
	"io"
	"time"

	"github.com/dep2p/go-blekeys/config"
	"github.com/dep2p/go-blekeys/internal/core/keys"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Option 配置选项函数
type Option func(*options) error

type options struct {
	cfg *config.Config

	// logOutput 非空时按配置重建默认 logger
	logOutput io.Writer

	registerer  prometheus.Registerer
	unpairHooks []keys.UnpairHook
	fxOptions   []fx.Option
}

func newOptions() *options {
	return &options{cfg: config.NewConfig()}
}

// ============================================================================
//                              配置来源
// ============================================================================

// WithConfig 使用完整配置，覆盖此前的所有配置选项
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config cannot be nil")
		}
		c := *cfg
		o.cfg = &c
		return nil
	}
}

// WithConfigFile 从 JSON 或 YAML 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		o.cfg = cfg
		return nil
	}
}

// ============================================================================
//                              密钥池
// ============================================================================

// WithMaxPaired 设置密钥池容量
func WithMaxPaired(n int) Option {
	return func(o *options) error {
		o.cfg.Keys = o.cfg.Keys.WithMaxPaired(n)
		return nil
	}
}

// WithOverwriteOldest 池满时淘汰老化计数最小的记录
func WithOverwriteOldest(enable bool) Option {
	return func(o *options) error {
		o.cfg.Keys = o.cfg.Keys.WithOverwriteOldest(enable)
		return nil
	}
}

// WithSaveAgingCounter 每次使用记录时都持久化老化计数
//
// 需要同时开启 WithOverwriteOldest。
func WithSaveAgingCounter(enable bool) Option {
	return func(o *options) error {
		o.cfg.Keys = o.cfg.Keys.WithSaveAgingCounter(enable)
		return nil
	}
}

// WithRoles 设置本地角色
//
// central 与 privacy 同时开启时，加载后所有记录都注册到解析列表；
// 否则只注册带 IRK 的记录。
func WithRoles(central, privacy bool) Option {
	return func(o *options) error {
		o.cfg.Keys = o.cfg.Keys.WithRoles(central, privacy)
		return nil
	}
}

// WithUnpairHook 添加解除配对回调，例如断开连接或清理 GATT 状态
func WithUnpairHook(h keys.UnpairHook) Option {
	return func(o *options) error {
		if h == nil {
			return errors.New("unpair hook cannot be nil")
		}
		o.unpairHooks = append(o.unpairHooks, h)
		return nil
	}
}

// ============================================================================
//                              存储与持久化
// ============================================================================

// WithDataDir 设置数据目录
func WithDataDir(dir string) Option {
	return func(o *options) error {
		o.cfg.Storage = o.cfg.Storage.WithDataDir(dir)
		return nil
	}
}

// WithSyncWrites 设置是否同步写入
func WithSyncWrites(enable bool) Option {
	return func(o *options) error {
		o.cfg.Storage = o.cfg.Storage.WithSyncWrites(enable)
		return nil
	}
}

// WithQueueSize 设置持久化队列容量
func WithQueueSize(n int) Option {
	return func(o *options) error {
		o.cfg.Persist = o.cfg.Persist.WithQueueSize(n)
		return nil
	}
}

// WithStopTimeout 设置关闭时等待队列排空的最长时间
func WithStopTimeout(d time.Duration) Option {
	return func(o *options) error {
		o.cfg.Persist = o.cfg.Persist.WithStopTimeout(d)
		return nil
	}
}

// ============================================================================
//                              解析列表
// ============================================================================

// WithResolvingList 启用或关闭解析列表并设置容量
func WithResolvingList(enable bool, size int) Option {
	return func(o *options) error {
		o.cfg.ResolvingList.Enable = enable
		o.cfg.ResolvingList = o.cfg.ResolvingList.WithSize(size)
		return nil
	}
}

// ============================================================================
//                              可观测性
// ============================================================================

// WithRegisterer 把指标注册到给定的 Registerer
//
// 未设置时使用 Store 内部的 Registry，可通过 Store.Gatherer() 读取。
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithMetrics 启用或关闭指标
func WithMetrics(enable bool) Option {
	return func(o *options) error {
		o.cfg.Metrics.Enable = enable
		return nil
	}
}

// WithLogOutput 按配置中的日志级别与格式重建默认 logger，输出到 w
func WithLogOutput(w io.Writer) Option {
	return func(o *options) error {
		o.logOutput = w
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项，测试或扩展用
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
