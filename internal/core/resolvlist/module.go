package resolvlist

import (
	"context"

	"github.com/dep2p/go-blekeys/config"
	"github.com/dep2p/go-blekeys/internal/core/keys"
	"github.com/dep2p/go-blekeys/internal/core/metrics"
	"go.uber.org/fx"
)

// Params ResolvList 模块依赖参数
type Params struct {
	fx.In

	LC         fx.Lifecycle
	UnifiedCfg *config.Config   `optional:"true"`
	Metrics    *metrics.Metrics `optional:"true"`
}

// Result ResolvList 模块提供的结果
type Result struct {
	fx.Out

	// List 关闭解析列表时为 nil
	List      *List
	Registrar keys.IdentityRegistrar
}

// Module 返回 ResolvList Fx 模块
func Module() fx.Option {
	return fx.Module("resolvlist",
		fx.Provide(Provide),
	)
}

// Provide 按配置创建解析列表
//
// 配置关闭时提供 MarkOnly 注册器。
func Provide(p Params) (Result, error) {
	cfg := config.DefaultResolvingListConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.ResolvingList
	}
	if !cfg.Enable {
		logger.Info("解析列表已关闭")
		return Result{Registrar: MarkOnly{}}, nil
	}

	l, err := New(cfg.Size, WithMetrics(p.Metrics))
	if err != nil {
		return Result{}, err
	}

	p.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			l.Clear()
			return nil
		},
	})
	return Result{List: l, Registrar: l}, nil
}
