package keys

import (
	"context"

	"github.com/dep2p/go-blekeys/config"
	"github.com/dep2p/go-blekeys/internal/core/metrics"
	"github.com/dep2p/go-blekeys/internal/core/settings"
	"go.uber.org/fx"
	"go.uber.org/multierr"
)

// Params Keys 模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg  *config.Config    `optional:"true"`
	Persister   Persister         `optional:"true"`
	Registrar   IdentityRegistrar `optional:"true"`
	Metrics     *metrics.Metrics  `optional:"true"`
	UnpairHooks []UnpairHook      `group:"unpair_hooks"`
}

// Result Keys 模块提供的结果
type Result struct {
	fx.Out

	Pool   *Pool
	Loader *Loader
}

// Module 返回 Keys Fx 模块
//
// 提供 *Pool 与 *Loader，并将 Loader 注册到 settings.Store 的 "bt/keys" 子树。
//
// 生命周期:
//   - OnStart: 加载所有已持久化的记录（单条失败不阻止启动）
//   - OnStop: 清零密钥池
func Module() fx.Option {
	return fx.Module("keys",
		fx.Provide(ProvidePool),
		fx.Invoke(registerLoader),
	)
}

// ProvidePool 按配置创建密钥池
func ProvidePool(p Params) (Result, error) {
	cfg := config.DefaultKeysConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Keys
	}

	opts := []Option{WithMetrics(p.Metrics)}
	if p.Persister != nil {
		opts = append(opts, WithPersister(p.Persister))
	}
	if p.Registrar != nil {
		opts = append(opts, WithRegistrar(p.Registrar))
	}
	for _, h := range p.UnpairHooks {
		if h != nil {
			opts = append(opts, WithUnpairHook(h))
		}
	}

	pool, err := NewPool(cfg, opts...)
	if err != nil {
		return Result{}, err
	}
	return Result{Pool: pool, Loader: NewLoader(pool)}, nil
}

func registerLoader(lc fx.Lifecycle, store *settings.Store, pool *Pool, loader *Loader) error {
	if err := store.Register(Subtree, loader); err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := store.Load(); err != nil {
				logger.Warn("部分密钥记录加载失败",
					"errors", len(multierr.Errors(err)), "error", err)
			}
			logger.Info("密钥池已加载", "records", pool.Len(), "capacity", pool.Cap())
			return nil
		},
		OnStop: func(_ context.Context) error {
			pool.Reset()
			return nil
		},
	})
	return nil
}
