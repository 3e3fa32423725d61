package blekeys

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-blekeys/internal/core/keys"
	"github.com/dep2p/go-blekeys/internal/core/keys/pipeline"
	"github.com/dep2p/go-blekeys/internal/core/metrics"
	"github.com/dep2p/go-blekeys/internal/core/resolvlist"
	"github.com/dep2p/go-blekeys/internal/core/settings"
	"github.com/dep2p/go-blekeys/internal/core/storage"
	"github.com/dep2p/go-blekeys/internal/core/storage/engine"
	"github.com/prometheus/client_golang/prometheus"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//
//	Storage → Settings → Metrics → ResolvList → Pipeline → Keys
//
// 启动时存储引擎先于流水线 worker，记录加载最后进行；
// 停止时顺序相反：密钥池清零，流水线排空，最后关闭存储引擎。
func buildFxApp(o *options, s *Store) (*fx.App, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	reg := o.registerer
	if reg == nil {
		reg = s.registry
	}

	modules := []fx.Option{
		fx.Supply(o.cfg),
		fx.Provide(func() prometheus.Registerer { return reg }),

		storage.Module(),
		settings.Module(),
		metrics.Module(),
		resolvlist.Module(),
		pipeline.Module(),
		keys.Module(),
	}

	for _, h := range o.unpairHooks {
		modules = append(modules, fx.Provide(
			fx.Annotate(
				func() keys.UnpairHook { return h },
				fx.ResultTags(`group:"unpair_hooks"`),
			),
		))
	}

	if len(o.fxOptions) > 0 {
		modules = append(modules, o.fxOptions...)
	}

	modules = append(modules,
		fx.Invoke(injectComponents(s)),
		// 禁用 Fx 日志输出
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	return fx.New(modules...), nil
}

// injectParams Store 组件注入参数
type injectParams struct {
	fx.In

	Engine    engine.Engine
	Settings  *settings.Store
	Pool      *keys.Pool
	Loader    *keys.Loader
	Pipeline  *pipeline.Pipeline
	Registrar keys.IdentityRegistrar
	List      *resolvlist.List `optional:"true"`
	Metrics   *metrics.Metrics `optional:"true"`
}

func injectComponents(s *Store) func(p injectParams) {
	return func(p injectParams) {
		s.engine = p.Engine
		s.settings = p.Settings
		s.pool = p.Pool
		s.loader = p.Loader
		s.pipeline = p.Pipeline
		s.registrar = p.Registrar
		s.list = p.List
		s.metrics = p.Metrics
		fxLogger.Debug("组件注入完成", "capacity", p.Pool.Cap())
	}
}
