package kv

import (
	"github.com/dep2p/go-blekeys/internal/core/storage/engine"
)

// Store 带前缀隔离的 KV 存储
type Store struct {
	engine engine.Engine
	prefix []byte
}

// New 创建新的 Store
//
// 所有操作都会自动添加 prefix。
func New(eng engine.Engine, prefix []byte) *Store {
	return &Store{
		engine: eng,
		prefix: append([]byte(nil), prefix...),
	}
}

// Prefix 返回存储前缀的副本
func (s *Store) Prefix() []byte {
	return append([]byte(nil), s.prefix...)
}

// SubStore 创建嵌套前缀的子存储
func (s *Store) SubStore(subPrefix []byte) *Store {
	return New(s.engine, s.prefixKey(subPrefix))
}

func (s *Store) prefixKey(key []byte) []byte {
	if len(s.prefix) == 0 {
		return key
	}
	prefixed := make([]byte, len(s.prefix)+len(key))
	copy(prefixed, s.prefix)
	copy(prefixed[len(s.prefix):], key)
	return prefixed
}

func (s *Store) stripPrefix(key []byte) []byte {
	if len(s.prefix) == 0 || len(key) < len(s.prefix) {
		return key
	}
	return key[len(s.prefix):]
}

// Get 获取指定键的值
func (s *Store) Get(key []byte) ([]byte, error) {
	return s.engine.Get(s.prefixKey(key))
}

// Put 写入键值对
func (s *Store) Put(key, value []byte) error {
	return s.engine.Put(s.prefixKey(key), value)
}

// Delete 删除指定键
func (s *Store) Delete(key []byte) error {
	return s.engine.Delete(s.prefixKey(key))
}

// Has 检查键是否存在
func (s *Store) Has(key []byte) (bool, error) {
	return s.engine.Has(s.prefixKey(key))
}

// PrefixScan 按键序扫描 subPrefix 下的所有键值对
//
// 回调返回 false 时停止。回调收到的 key 已去除 Store 前缀。
func (s *Store) PrefixScan(subPrefix []byte, fn func(key, value []byte) bool) error {
	iter := s.engine.NewPrefixIterator(s.prefixKey(subPrefix))
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if !fn(s.stripPrefix(iter.Key()), iter.Value()) {
			break
		}
	}
	return iter.Error()
}

// Keys 返回 subPrefix 下的所有键
func (s *Store) Keys(subPrefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := s.PrefixScan(subPrefix, func(key, _ []byte) bool {
		keys = append(keys, append([]byte(nil), key...))
		return true
	})
	return keys, err
}

// Count 统计 subPrefix 下的键数量
func (s *Store) Count(subPrefix []byte) (int, error) {
	n := 0
	err := s.PrefixScan(subPrefix, func(_, _ []byte) bool {
		n++
		return true
	})
	return n, err
}

// DeletePrefix 删除 subPrefix 下的所有键
func (s *Store) DeletePrefix(subPrefix []byte) (int, error) {
	keys, err := s.Keys(subPrefix)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	b := s.NewBatch()
	for _, key := range keys {
		b.Delete(key)
	}
	if err := b.Write(); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Batch 带前缀的批量操作
type Batch struct {
	store *Store
	batch engine.Batch
}

// NewBatch 创建批量操作
func (s *Store) NewBatch() *Batch {
	return &Batch{
		store: s,
		batch: s.engine.NewBatch(),
	}
}

// Put 添加写入操作
func (b *Batch) Put(key, value []byte) {
	b.batch.Put(b.store.prefixKey(key), value)
}

// Delete 添加删除操作
func (b *Batch) Delete(key []byte) {
	b.batch.Delete(b.store.prefixKey(key))
}

// Write 提交批量操作
func (b *Batch) Write() error {
	return b.batch.Write()
}

// Size 返回操作数量
func (b *Batch) Size() int {
	return b.batch.Size()
}

// Cancel 放弃批量操作
func (b *Batch) Cancel() {
	b.batch.Cancel()
}
