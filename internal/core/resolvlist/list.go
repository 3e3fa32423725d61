package resolvlist

import (
	"fmt"
	"sync"

	"github.com/dep2p/go-blekeys/internal/core/keys"
	"github.com/dep2p/go-blekeys/internal/core/metrics"
	"github.com/dep2p/go-blekeys/internal/core/rpa"
	"github.com/dep2p/go-blekeys/pkg/types"
)

// Entry 解析列表条目
type Entry struct {
	ID   uint8
	Addr types.AddrLE
	IRK  [16]byte
}

// List 固定容量的解析列表
type List struct {
	mu      sync.RWMutex
	entries []Entry
	size    int

	matcher keys.IRKMatcher
	metrics *metrics.Metrics
}

var _ keys.IdentityRegistrar = (*List)(nil)

// Option 列表选项
type Option func(*List)

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *List) { l.metrics = m }
}

// WithIRKMatcher 替换 IRK 匹配函数，测试用
func WithIRKMatcher(m keys.IRKMatcher) Option {
	return func(l *List) {
		if m != nil {
			l.matcher = m
		}
	}
}

// New 创建容量为 size 的解析列表
func New(size int, opts ...Option) (*List, error) {
	if size <= 0 {
		return nil, fmt.Errorf("resolvlist: invalid size %d", size)
	}
	l := &List{
		entries: make([]Entry, 0, size),
		size:    size,
		matcher: rpa.IRKMatches,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Register 将记录的身份加入列表
//
// 已存在的身份只更新 IRK。成功后设置 StateIDAdded 并清除 StateIDPendingAdd。
func (l *List) Register(r *keys.Record) error {
	if r == nil {
		return ErrNilRecord
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.index(r.ID, r.Addr); i >= 0 {
		l.entries[i].IRK = r.IRK.Val
	} else {
		if len(l.entries) >= l.size {
			logger.Warn("解析列表已满", "id", r.ID, "addr", r.Addr.String(), "size", l.size)
			return fmt.Errorf("%w: size %d", ErrListFull, l.size)
		}
		l.entries = append(l.entries, Entry{ID: r.ID, Addr: r.Addr, IRK: r.IRK.Val})
		l.metrics.SetResolvingListEntries(len(l.entries))
	}

	r.State |= keys.StateIDAdded
	r.State &^= keys.StateIDPendingAdd

	logger.Debug("身份已注册", "id", r.ID, "addr", r.Addr.String(), "entries", len(l.entries))
	return nil
}

// Unregister 从列表移除记录的身份并清除 StateIDAdded
//
// 列表中不存在时仍清除标记，返回 ErrNotFound。
func (l *List) Unregister(r *keys.Record) error {
	if r == nil {
		return ErrNilRecord
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	r.State &^= keys.StateIDAdded | keys.StateIDPendingDel

	i := l.index(r.ID, r.Addr)
	if i < 0 {
		return ErrNotFound
	}

	l.entries[i] = Entry{}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	l.metrics.SetResolvingListEntries(len(l.entries))

	logger.Debug("身份已注销", "id", r.ID, "addr", r.Addr.String(), "entries", len(l.entries))
	return nil
}

func (l *List) index(id uint8, addr types.AddrLE) int {
	for i := range l.entries {
		if l.entries[i].ID == id && l.entries[i].Addr == addr {
			return i
		}
	}
	return -1
}

// Resolve 将对端地址解析为身份条目
//
// 可解析私有地址按 IRK 匹配，其他地址按身份地址直接查找。
func (l *List) Resolve(addr types.AddrLE) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !addr.IsRPA() {
		for _, e := range l.entries {
			if e.Addr == addr {
				return e, true
			}
		}
		return Entry{}, false
	}

	for _, e := range l.entries {
		if e.IRK == ([16]byte{}) {
			continue
		}
		if l.matcher(e.IRK, addr.A) {
			return e, true
		}
	}
	return Entry{}, false
}

// Contains 身份是否在列表中
func (l *List) Contains(id uint8, addr types.AddrLE) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.index(id, addr) >= 0
}

// Entries 返回条目副本
func (l *List) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry(nil), l.entries...)
}

// Len 返回条目数
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Cap 返回容量
func (l *List) Cap() int {
	return l.size
}

// Clear 清空列表并清零 IRK
func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		l.entries[i] = Entry{}
	}
	l.entries = l.entries[:0]
	l.metrics.SetResolvingListEntries(0)
}
