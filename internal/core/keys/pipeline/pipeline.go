package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-blekeys/internal/core/keys"
	"github.com/dep2p/go-blekeys/internal/core/metrics"
	"github.com/dep2p/go-blekeys/pkg/lib/log"
)

var logger = log.Logger("core/keys/pipeline")

// Backend 持久化后端，settings.Store 实现该接口
type Backend interface {
	Save(name string, value []byte) error
	Delete(name string) error
}

// Pipeline 异步持久化流水线
type Pipeline struct {
	backend Backend
	metrics *metrics.Metrics

	// mu 保护 queue 的关闭；发送方持读锁
	mu     sync.RWMutex
	queue  chan *Entry
	closed bool

	started atomic.Bool
	discard atomic.Bool
	depth   atomic.Int64
	done    chan struct{}
}

var _ keys.Persister = (*Pipeline)(nil)

// Option 流水线选项
type Option func(*Pipeline)

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New 创建容量为 size 的流水线，size 小于 1 时按 1 处理
func New(backend Backend, size int, opts ...Option) *Pipeline {
	if size < 1 {
		size = 1
	}
	p := &Pipeline{
		backend: backend,
		queue:   make(chan *Entry, size),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start 启动 worker，重复调用无效果
func (p *Pipeline) Start() error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrStopped
	}

	if p.started.CompareAndSwap(false, true) {
		go p.run()
		logger.Debug("持久化 worker 已启动", "capacity", cap(p.queue))
	}
	return nil
}

// Save 入队记录副本以写入
func (p *Pipeline) Save(rec keys.Record) error {
	return p.enqueue(newEntry(OpSave, rec))
}

// Delete 入队记录副本以删除
func (p *Pipeline) Delete(rec keys.Record) error {
	return p.enqueue(newEntry(OpDelete, rec))
}

func (p *Pipeline) enqueue(e *Entry) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		e.wipe()
		p.metrics.ObservePersist(e.Op.String(), metrics.ResultDropped)
		return ErrStopped
	}

	select {
	case p.queue <- e:
		p.metrics.SetQueueDepth(int(p.depth.Add(1)))
		logger.Debug("持久化条目入队", "entry", e.ID, "op", e.Op, "addr", e.Record.Addr.String())
		return nil
	default:
		e.wipe()
		p.metrics.ObservePersist(e.Op.String(), metrics.ResultDropped)
		logger.Error("持久化队列已满", "op", e.Op, "capacity", cap(p.queue))
		return fmt.Errorf("%w: capacity %d", ErrQueueFull, cap(p.queue))
	}
}

// Len 返回排队中的条目数
func (p *Pipeline) Len() int {
	return int(p.depth.Load())
}

// Flush 等待此前入队的条目全部处理完毕
func (p *Pipeline) Flush(ctx context.Context) error {
	barrier := &Entry{barrier: make(chan struct{})}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrStopped
	}
	select {
	case p.queue <- barrier:
		p.metrics.SetQueueDepth(int(p.depth.Add(1)))
		p.mu.RUnlock()
	case <-ctx.Done():
		p.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-barrier.barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop 关闭队列并等待 worker 排空
//
// ctx 到期时剩余条目被丢弃并清零，返回 ctx.Err()。
// 未启动过的流水线直接丢弃队列中的条目。
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	if !p.started.Load() {
		n := p.drainDiscard()
		if n > 0 {
			logger.Warn("流水线未启动，丢弃排队条目", "dropped", n)
		}
		return nil
	}

	select {
	case <-p.done:
		logger.Debug("持久化 worker 已退出")
		return nil
	case <-ctx.Done():
		p.discard.Store(true)
		logger.Warn("停止超时，丢弃剩余持久化条目", "pending", p.Len())
		return ctx.Err()
	}
}

func (p *Pipeline) drainDiscard() int {
	n := 0
	for e := range p.queue {
		p.dequeued()
		if e.barrier != nil {
			close(e.barrier)
			continue
		}
		e.wipe()
		p.metrics.ObservePersist(e.Op.String(), metrics.ResultDropped)
		n++
	}
	return n
}

func (p *Pipeline) dequeued() {
	p.metrics.SetQueueDepth(int(p.depth.Add(-1)))
}

// run worker 主循环
func (p *Pipeline) run() {
	defer close(p.done)

	for e := range p.queue {
		p.dequeued()

		if e.barrier != nil {
			close(e.barrier)
			continue
		}
		if p.discard.Load() {
			e.wipe()
			p.metrics.ObservePersist(e.Op.String(), metrics.ResultDropped)
			continue
		}

		p.process(e)
		e.wipe()
	}
}

func (p *Pipeline) process(e *Entry) {
	name := e.Record.StorageName()

	var err error
	switch e.Op {
	case OpSave:
		value := e.Record.MarshalStorage()
		err = p.backend.Save(name, value)
		clear(value)
	case OpDelete:
		err = p.backend.Delete(name)
	default:
		err = fmt.Errorf("unknown op %d", e.Op)
	}

	if err != nil {
		err = fmt.Errorf("%w: %s %s: %v", ErrBackendIO, e.Op, name, err)
		logger.Error("持久化失败", "entry", e.ID, "error", err)
		p.metrics.ObservePersist(e.Op.String(), metrics.ResultError)
		return
	}

	logger.Debug("持久化完成", "entry", e.ID, "op", e.Op, "name", name)
	p.metrics.ObservePersist(e.Op.String(), metrics.ResultOK)
}
