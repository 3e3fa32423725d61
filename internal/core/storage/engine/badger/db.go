package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-blekeys/internal/core/storage/engine"
	"github.com/dep2p/go-blekeys/pkg/lib/log"
	"github.com/dgraph-io/badger/v4"
)

var logger = log.Logger("storage/badger")

// Engine BadgerDB 存储引擎
type Engine struct {
	db     *badger.DB
	config *engine.Config
	closed atomic.Bool

	stats struct {
		numReads   atomic.Int64
		numWrites  atomic.Int64
		numDeletes atomic.Int64
	}

	gcCtx    context.Context
	gcCancel context.CancelFunc
	gcWg     sync.WaitGroup
	gcOnce   sync.Once
}

var _ engine.Engine = (*Engine)(nil)

// New 打开（或创建）BadgerDB 存储引擎
func New(cfg *engine.Config) (*Engine, error) {
	if cfg == nil {
		return nil, engine.ErrInvalidConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDir(); err != nil {
		return nil, err
	}

	db, err := badger.Open(buildOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", cfg.Path, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	logger.Debug("badger 已打开", "path", cfg.Path, "syncWrites", cfg.SyncWrites)

	return &Engine{
		db:       db,
		config:   cfg,
		gcCtx:    ctx,
		gcCancel: cancel,
	}, nil
}

func buildOptions(cfg *engine.Config) badger.Options {
	opts := badger.DefaultOptions(cfg.Path).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithReadOnly(cfg.ReadOnly).
		WithMemTableSize(cfg.MemTableSize).
		WithValueLogFileSize(cfg.ValueLogFileSize).
		WithBlockCacheSize(cfg.BlockCacheSize).
		WithZSTDCompressionLevel(cfg.Compression).
		WithCompactL0OnClose(true)

	if cfg.EnableLog {
		opts = opts.WithLogger(badgerLogger{})
	} else {
		opts = opts.WithLogger(nil)
	}
	return opts
}

// badgerLogger 将 BadgerDB 内部日志转发到组件 logger
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logger.Error(fmt.Sprintf(format, args...))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logger.Warn(fmt.Sprintf(format, args...))
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...))
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...))
}

// Start 启动后台 GC
func (e *Engine) Start() error {
	if e.closed.Load() {
		return engine.ErrClosed
	}
	if e.config.GCInterval > 0 && !e.config.ReadOnly {
		e.gcOnce.Do(e.startGC)
	}
	return nil
}

func (e *Engine) startGC() {
	e.gcWg.Add(1)
	go func() {
		defer e.gcWg.Done()

		ticker := time.NewTicker(e.config.GCInterval)
		defer ticker.Stop()

		for {
			select {
			case <-e.gcCtx.Done():
				return
			case <-ticker.C:
				e.runGC()
			}
		}
	}()
}

// runGC 反复回收直到没有可回收的值日志
func (e *Engine) runGC() {
	rounds := 0
	for !e.closed.Load() {
		if err := e.db.RunValueLogGC(e.config.GCDiscardRatio); err != nil {
			break
		}
		rounds++
	}
	if rounds > 0 {
		logger.Debug("值日志 GC 完成", "rounds", rounds)
	}
}

// Get 获取键对应的值
func (e *Engine) Get(key []byte) ([]byte, error) {
	if e.closed.Load() {
		return nil, engine.ErrClosed
	}
	if len(key) == 0 {
		return nil, engine.ErrEmptyKey
	}

	var value []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	e.stats.numReads.Add(1)

	if err != nil {
		return nil, convertError(err)
	}
	return value, nil
}

// Put 写入键值对
func (e *Engine) Put(key, value []byte) error {
	if err := e.checkWritable(key); err != nil {
		return err
	}

	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err == nil {
		e.stats.numWrites.Add(1)
	}
	return convertError(err)
}

// Delete 删除键
func (e *Engine) Delete(key []byte) error {
	if err := e.checkWritable(key); err != nil {
		return err
	}

	err := e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err == nil {
		e.stats.numDeletes.Add(1)
	}
	return convertError(err)
}

// Has 检查键是否存在
func (e *Engine) Has(key []byte) (bool, error) {
	if e.closed.Load() {
		return false, engine.ErrClosed
	}
	if len(key) == 0 {
		return false, engine.ErrEmptyKey
	}

	var exists bool
	err := e.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			exists = true
			return nil
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		default:
			return err
		}
	})
	return exists, convertError(err)
}

func (e *Engine) checkWritable(key []byte) error {
	if e.closed.Load() {
		return engine.ErrClosed
	}
	if e.config.ReadOnly {
		return engine.ErrReadOnly
	}
	if len(key) == 0 {
		return engine.ErrEmptyKey
	}
	return nil
}

// NewBatch 创建批量写入对象
func (e *Engine) NewBatch() engine.Batch {
	return &WriteBatch{
		eng:   e,
		batch: e.db.NewWriteBatch(),
	}
}

// NewPrefixIterator 创建前缀迭代器
func (e *Engine) NewPrefixIterator(prefix []byte) engine.Iterator {
	if e.closed.Load() {
		return &Iterator{err: engine.ErrClosed, closed: true}
	}

	txn := e.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.PrefetchSize = 32
	opts.Prefix = prefix

	return &Iterator{
		txn:    txn,
		iter:   txn.NewIterator(opts),
		prefix: prefix,
	}
}

// Sync 同步到磁盘
func (e *Engine) Sync() error {
	if e.closed.Load() {
		return engine.ErrClosed
	}
	return e.db.Sync()
}

// Stats 返回统计快照
func (e *Engine) Stats() *engine.Stats {
	s := &engine.Stats{
		NumReads:   e.stats.numReads.Load(),
		NumWrites:  e.stats.numWrites.Load(),
		NumDeletes: e.stats.numDeletes.Load(),
	}
	if !e.closed.Load() {
		s.LSMSize, s.VlogSize = e.db.Size()
	}
	return s
}

// Close 关闭引擎
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}

	e.gcCancel()
	e.gcWg.Wait()

	if err := e.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	logger.Debug("badger 已关闭", "path", e.config.Path)
	return nil
}

// convertError 将 BadgerDB 错误映射为引擎错误
func convertError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return engine.ErrNotFound
	case errors.Is(err, badger.ErrEmptyKey):
		return engine.ErrEmptyKey
	case errors.Is(err, badger.ErrDBClosed):
		return engine.ErrClosed
	default:
		return err
	}
}
