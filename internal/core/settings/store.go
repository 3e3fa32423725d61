package settings

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dep2p/go-blekeys/internal/core/storage/kv"
	"github.com/dep2p/go-blekeys/pkg/lib/log"
	"go.uber.org/multierr"
)

var logger = log.Logger("core/settings")

// Handler 子树处理器
type Handler interface {
	// Set 恢复一条记录
	//
	// name 为相对子树的名称（不含 "bt/keys/" 前缀），
	// value 为空表示该名称已被删除。
	Set(name string, value []byte) error

	// Commit 在子树内所有记录恢复后调用一次
	Commit() error
}

// HandlerFuncs 以函数实现 Handler
type HandlerFuncs struct {
	SetFunc    func(name string, value []byte) error
	CommitFunc func() error
}

// Set 实现 Handler
func (h HandlerFuncs) Set(name string, value []byte) error {
	if h.SetFunc == nil {
		return nil
	}
	return h.SetFunc(name, value)
}

// Commit 实现 Handler
func (h HandlerFuncs) Commit() error {
	if h.CommitFunc == nil {
		return nil
	}
	return h.CommitFunc()
}

type registration struct {
	subtree string
	handler Handler
}

// Store 设置存储
//
// Save/Delete 可在任意 goroutine 调用。
type Store struct {
	kv *kv.Store

	mu       sync.RWMutex
	handlers []registration
}

// NewStore 创建设置存储
func NewStore(store *kv.Store) *Store {
	return &Store{kv: store}
}

// Register 为子树注册处理器，例如 "bt/keys"
func (s *Store) Register(subtree string, h Handler) error {
	subtree = strings.Trim(subtree, Separator)
	if subtree == "" || h == nil {
		return ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.handlers {
		if r.subtree == subtree {
			return fmt.Errorf("%w: %s", ErrDuplicateHandler, subtree)
		}
	}
	s.handlers = append(s.handlers, registration{subtree: subtree, handler: h})
	logger.Debug("注册设置处理器", "subtree", subtree)
	return nil
}

// Save 写入一条设置
//
// value 为空时写入删除标记，下次 Load 会把它作为删除分发给处理器。
func (s *Store) Save(name string, value []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := s.kv.Put([]byte(name), value); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	logger.Debug("设置已写入", "name", name, "len", len(value))
	return nil
}

// Delete 删除一条设置
func (s *Store) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := s.kv.Delete([]byte(name)); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	logger.Debug("设置已删除", "name", name)
	return nil
}

// Get 读取一条设置
func (s *Store) Get(name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return s.kv.Get([]byte(name))
}

// Names 返回子树下所有已存储的完整名称
func (s *Store) Names(subtree string) ([]string, error) {
	keys, err := s.kv.Keys([]byte(subtreePrefix(subtree)))
	if err != nil {
		return nil, err
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	return names, nil
}

type loadedEntry struct {
	name  string
	value []byte
}

// Load 按注册顺序恢复所有子树
//
// 单条记录的失败不会中断加载，所有错误合并后返回。
// 处理器分发完成后清除删除标记。
func (s *Store) Load() error {
	s.mu.RLock()
	regs := append([]registration(nil), s.handlers...)
	s.mu.RUnlock()

	var errs error
	for _, r := range regs {
		errs = multierr.Append(errs, s.loadSubtree(r))
	}
	for _, r := range regs {
		if err := r.handler.Commit(); err != nil {
			logger.Warn("提交设置失败", "subtree", r.subtree, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("commit %s: %w", r.subtree, err))
		}
	}
	return errs
}

func (s *Store) loadSubtree(r registration) error {
	prefix := subtreePrefix(r.subtree)

	var entries []loadedEntry
	err := s.kv.PrefixScan([]byte(prefix), func(key, value []byte) bool {
		entries = append(entries, loadedEntry{
			name:  strings.TrimPrefix(string(key), prefix),
			value: value,
		})
		return true
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", r.subtree, err)
	}

	var errs error
	var markers []string
	for _, e := range entries {
		if err := r.handler.Set(e.name, e.value); err != nil {
			logger.Warn("恢复设置失败", "name", prefix+e.name, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("set %s%s: %w", prefix, e.name, err))
		}
		if len(e.value) == 0 {
			markers = append(markers, prefix+e.name)
		}
	}

	if len(markers) > 0 {
		b := s.kv.NewBatch()
		for _, name := range markers {
			b.Delete([]byte(name))
		}
		if err := b.Write(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("compact %s: %w", r.subtree, err))
		}
	}

	logger.Debug("子树加载完成", "subtree", r.subtree, "records", len(entries), "markers", len(markers))
	return errs
}

func subtreePrefix(subtree string) string {
	return strings.Trim(subtree, Separator) + Separator
}

func checkName(name string) error {
	if name == "" || strings.HasPrefix(name, Separator) || strings.HasSuffix(name, Separator) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
