package storage

import (
	"context"

	"github.com/dep2p/go-blekeys/config"
	"github.com/dep2p/go-blekeys/internal/core/storage/engine"
	"github.com/dep2p/go-blekeys/internal/core/storage/engine/badger"
	"github.com/dep2p/go-blekeys/internal/core/storage/kv"
	"github.com/dep2p/go-blekeys/pkg/lib/log"
	"go.uber.org/fx"
)

var logger = log.Logger("core/storage")

// SettingsPrefix settings 子系统的键前缀
var SettingsPrefix = []byte("s/")

// Params Storage 模块依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// Result Storage 模块提供的结果
type Result struct {
	fx.Out

	Engine   engine.Engine
	Settings *kv.Store `name:"settings_kv"`
}

// Module 返回 Storage Fx 模块
//
// 提供:
//   - engine.Engine: 存储引擎
//   - *kv.Store (name:"settings_kv"): settings 子系统存储
//
// 生命周期:
//   - OnStart: 启动引擎后台 GC
//   - OnStop: 关闭引擎
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideStorage),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideStorage 打开存储引擎
func ProvideStorage(p Params) (Result, error) {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}

	eng, err := NewEngine(cfg)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Engine:   eng,
		Settings: kv.New(eng, SettingsPrefix),
	}, nil
}

func registerLifecycle(lc fx.Lifecycle, eng engine.Engine) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := eng.Start(); err != nil {
				logger.Error("存储引擎启动失败", "error", err)
				return err
			}
			logger.Debug("存储引擎已启动")
			return nil
		},
		OnStop: func(_ context.Context) error {
			if err := eng.Close(); err != nil {
				logger.Warn("存储引擎关闭失败", "error", err)
				return err
			}
			logger.Debug("存储引擎已关闭")
			return nil
		},
	})
}

// NewEngine 根据配置创建存储引擎
func NewEngine(cfg Config) (engine.Engine, error) {
	logger.Debug("创建存储引擎", "path", cfg.Path)
	eng, err := badger.New(cfg.ToEngineConfig())
	if err != nil {
		logger.Error("创建存储引擎失败", "path", cfg.Path, "error", err)
		return nil, err
	}
	return eng, nil
}

// Open 在 path 打开存储引擎
func Open(path string) (engine.Engine, error) {
	return NewEngine(DefaultConfig().WithPath(path))
}

// NewSettingsStore 返回 settings 子系统的 kv.Store
func NewSettingsStore(eng engine.Engine) *kv.Store {
	return kv.New(eng, SettingsPrefix)
}
