package settings

import (
	"github.com/dep2p/go-blekeys/internal/core/storage/kv"
	"go.uber.org/fx"
)

// Params Settings 模块依赖参数
type Params struct {
	fx.In

	KV *kv.Store `name:"settings_kv"`
}

// Module 返回 Settings Fx 模块
//
// 提供 *Store。加载由注册处理器的上层模块在启动时触发。
func Module() fx.Option {
	return fx.Module("settings",
		fx.Provide(func(p Params) *Store {
			return NewStore(p.KV)
		}),
	)
}
