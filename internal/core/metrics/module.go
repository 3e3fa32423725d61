package metrics

import (
	"github.com/dep2p/go-blekeys/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Params Metrics 模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config        `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// Module 返回 Metrics Fx 模块
//
// 未提供 Registerer 时使用独立的 Registry，避免重复注册到全局默认实例。
// 配置中关闭指标时提供 nil *Metrics。
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(Provide),
	)
}

// Provide 按配置创建指标
func Provide(p Params) *Metrics {
	cfg := config.DefaultMetricsConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Metrics
	}
	if !cfg.Enable {
		return nil
	}

	reg := p.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return New(reg, cfg.Namespace)
}
