package pipeline

import (
	"context"

	"github.com/dep2p/go-blekeys/config"
	"github.com/dep2p/go-blekeys/internal/core/keys"
	"github.com/dep2p/go-blekeys/internal/core/metrics"
	"github.com/dep2p/go-blekeys/internal/core/settings"
	"go.uber.org/fx"
)

// Params Pipeline 模块依赖参数
type Params struct {
	fx.In

	LC         fx.Lifecycle
	Store      *settings.Store
	UnifiedCfg *config.Config   `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
}

// Result Pipeline 模块提供的结果
type Result struct {
	fx.Out

	Pipeline  *Pipeline
	Persister keys.Persister
}

// Module 返回 Pipeline Fx 模块
//
// 生命周期钩子在构造时注册，先于依赖它的密钥池：
// 启动时 worker 先于记录加载运行，停止时在密钥池清零之后排空。
func Module() fx.Option {
	return fx.Module("keys_pipeline",
		fx.Provide(Provide),
	)
}

// Provide 创建流水线并注册生命周期
func Provide(p Params) Result {
	cfg := config.DefaultPersistConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Persist
	}

	pl := New(p.Store, cfg.QueueSize, WithMetrics(p.Metrics))

	p.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return pl.Start()
		},
		OnStop: func(ctx context.Context) error {
			if timeout := cfg.StopTimeout.Duration(); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return pl.Stop(ctx)
		},
	})

	return Result{Pipeline: pl, Persister: pl}
}
