package blekeys

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dep2p/go-blekeys/config"
	"github.com/dep2p/go-blekeys/internal/core/keys"
	"github.com/dep2p/go-blekeys/internal/core/keys/pipeline"
	"github.com/dep2p/go-blekeys/internal/core/metrics"
	"github.com/dep2p/go-blekeys/internal/core/resolvlist"
	"github.com/dep2p/go-blekeys/internal/core/settings"
	"github.com/dep2p/go-blekeys/internal/core/storage/engine"
	"github.com/dep2p/go-blekeys/pkg/lib/log"
	"github.com/dep2p/go-blekeys/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"
)

// Version 当前版本
const Version = "v0.1.0"

var (
	logger   = log.Logger("blekeys")
	fxLogger = log.Logger("blekeys/fx")
)

const (
	startTimeout = 30 * time.Second
	// closeGrace 在流水线停止超时之外留给存储关闭的时间
	closeGrace = 5 * time.Second
)

// Store 配对凭据存储
type Store struct {
	mu      sync.Mutex
	app     *fx.App
	cfg     *config.Config
	started bool
	closed  bool

	registry *prometheus.Registry

	engine    engine.Engine
	settings  *settings.Store
	pool      *keys.Pool
	loader    *keys.Loader
	pipeline  *pipeline.Pipeline
	registrar keys.IdentityRegistrar
	list      *resolvlist.List
	metrics   *metrics.Metrics
}

// New 创建存储但不启动
//
// 数据库在此时打开，记录在 Start 时加载。
func New(opts ...Option) (*Store, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if o.logOutput != nil {
		o.cfg.Log.Apply(o.logOutput)
	}

	s := &Store{cfg: o.cfg}
	if o.registerer == nil {
		s.registry = prometheus.NewRegistry()
	}

	app, err := buildFxApp(o, s)
	if err != nil {
		return nil, err
	}
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}
	s.app = app
	return s, nil
}

// Open 创建并启动存储
func Open(ctx context.Context, opts ...Option) (*Store, error) {
	s, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Start 启动流水线并加载已持久化的记录
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.started {
		return ErrAlreadyStarted
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	if err := s.app.Start(startCtx); err != nil {
		logger.Error("启动失败", "error", err)
		return fmt.Errorf("start: %w", err)
	}
	s.started = true

	logger.Info("配对凭据存储已启动",
		"path", s.cfg.Storage.DBPath(),
		"records", s.pool.Len(),
		"capacity", s.pool.Cap())
	return nil
}

// Close 排空持久化队列并关闭数据库
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	ctx, cancel := context.WithTimeout(context.Background(),
		s.cfg.Persist.StopTimeout.Duration()+closeGrace)
	defer cancel()

	if !s.started {
		// 未启动时生命周期钩子不会执行，直接释放已打开的资源
		var errs error
		if s.pipeline != nil {
			errs = multierr.Append(errs, s.pipeline.Stop(ctx))
		}
		if s.engine != nil {
			errs = multierr.Append(errs, s.engine.Close())
		}
		return errs
	}

	if err := s.app.Stop(ctx); err != nil {
		logger.Warn("关闭时出现错误", "error", err)
		return fmt.Errorf("stop: %w", err)
	}
	logger.Info("配对凭据存储已关闭")
	return nil
}

// ============================================================================
//                              组件访问
// ============================================================================

// Pool 返回密钥池
//
// 密钥池不加锁，调用方需保证只在一个 goroutine 中使用。
func (s *Store) Pool() *keys.Pool { return s.pool }

// Loader 返回设置加载器
func (s *Store) Loader() *keys.Loader { return s.loader }

// Pipeline 返回持久化流水线
func (s *Store) Pipeline() *pipeline.Pipeline { return s.pipeline }

// Settings 返回设置存储
func (s *Store) Settings() *settings.Store { return s.settings }

// ResolvingList 返回解析列表，关闭时为 nil
func (s *Store) ResolvingList() *resolvlist.List { return s.list }

// Config 返回生效的配置
func (s *Store) Config() *config.Config { return s.cfg }

// Gatherer 返回内部指标 Registry
//
// 使用 WithRegisterer 时返回 nil，指标已注册到调用方提供的 Registerer。
func (s *Store) Gatherer() prometheus.Gatherer {
	if s.registry == nil {
		return nil
	}
	return s.registry
}

// ============================================================================
//                              便捷操作
// ============================================================================

func (s *Store) checkRunning() error {
	if s.closed {
		return ErrClosed
	}
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// Records 返回所有已占用记录的副本
func (s *Store) Records() ([]keys.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRunning(); err != nil {
		return nil, err
	}
	return s.pool.Snapshot(), nil
}

// Import 写入一条完整记录并持久化
//
// 记录中的老化计数一并恢复。带 IRK 的记录同时注册到解析列表，注册失败只记录日志。
func (s *Store) Import(rec keys.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRunning(); err != nil {
		return err
	}

	r, err := s.pool.Restore(rec)
	if err != nil {
		return err
	}

	if r.Has(keys.TypeIRK) && r.State&keys.StateIDAdded == 0 && s.registrar != nil {
		if err := s.registrar.Register(r); err != nil {
			logger.Warn("注册身份失败", "addr", r.Addr.String(), "error", err)
		}
	}

	return s.pool.Store(r)
}

// Unpair 解除配对，addr 为全零时解除身份 id 的所有配对
func (s *Store) Unpair(id uint8, addr types.AddrLE) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRunning(); err != nil {
		return err
	}
	return s.pool.Unpair(id, addr)
}

// Resolve 查找对端记录
//
// 可解析私有地址经 IRK 解析，其他地址按身份地址查找。
func (s *Store) Resolve(id uint8, addr types.AddrLE) (keys.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRunning(); err != nil {
		return keys.Record{}, false, err
	}

	var r *keys.Record
	if addr.IsRPA() {
		r = s.pool.FindIRK(id, addr)
	} else {
		r = s.pool.FindAddr(id, addr)
	}
	if r == nil {
		return keys.Record{}, false, nil
	}
	return *r, true, nil
}

// Flush 等待已入队的持久化操作完成
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	err := s.checkRunning()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.pipeline.Flush(ctx)
}
