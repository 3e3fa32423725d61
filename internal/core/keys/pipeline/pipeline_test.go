package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dep2p/go-blekeys/config"
	"github.com/dep2p/go-blekeys/internal/core/keys"
	"github.com/dep2p/go-blekeys/internal/core/metrics"
	"github.com/dep2p/go-blekeys/internal/core/settings"
	"github.com/dep2p/go-blekeys/internal/core/storage"
	"github.com/dep2p/go-blekeys/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
//                              测试后端
// ============================================================================

type backendOp struct {
	op    Op
	name  string
	value []byte
}

// memBackend 记录所有调用的内存后端
type memBackend struct {
	mu  sync.Mutex
	ops []backendOp

	// failName 非空时对该名称的操作返回错误
	failName string
	// gate 非空时每次调用先通知 entered 再等待 gate
	gate    chan struct{}
	entered chan struct{}
}

func (b *memBackend) wait() {
	if b.gate == nil {
		return
	}
	b.entered <- struct{}{}
	<-b.gate
}

func (b *memBackend) Save(name string, value []byte) error {
	b.wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	if name == b.failName {
		return errors.New("disk full")
	}
	b.ops = append(b.ops, backendOp{op: OpSave, name: name, value: append([]byte(nil), value...)})
	return nil
}

func (b *memBackend) Delete(name string) error {
	b.wait()
	b.mu.Lock()
	defer b.mu.Unlock()
	if name == b.failName {
		return errors.New("disk full")
	}
	b.ops = append(b.ops, backendOp{op: OpDelete, name: name})
	return nil
}

func (b *memBackend) snapshot() []backendOp {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]backendOp(nil), b.ops...)
}

func record(last byte) keys.Record {
	r := keys.Record{
		ID:           0,
		Addr:         types.AddrLE{Type: types.AddrRandom, A: types.Addr{last, 0xc1, 0xc2, 0xc3, 0xc4, 0xc5}},
		Keys:         keys.TypeLTK | keys.TypeIRK,
		EncSize:      16,
		Flags:        keys.FlagSC,
		AgingCounter: uint32(last),
	}
	for i := range r.LTK.Val {
		r.LTK.Val[i] = last
		r.IRK.Val[i] = ^last
	}
	return r
}

// ============================================================================
//                              顺序与入队
// ============================================================================

func TestPipeline_FIFO(t *testing.T) {
	b := &memBackend{}
	p := New(b, 8)
	require.NoError(t, p.Start())
	defer p.Stop(context.Background())

	a, c := record(1), record(2)
	require.NoError(t, p.Save(a))
	require.NoError(t, p.Delete(a))
	require.NoError(t, p.Save(c))
	require.NoError(t, p.Save(a))

	require.NoError(t, p.Flush(context.Background()))

	ops := b.snapshot()
	require.Len(t, ops, 4)
	assert.Equal(t, OpSave, ops[0].op)
	assert.Equal(t, a.StorageName(), ops[0].name)
	assert.Equal(t, OpDelete, ops[1].op)
	assert.Equal(t, a.StorageName(), ops[1].name)
	assert.Equal(t, c.StorageName(), ops[2].name)
	assert.Equal(t, OpSave, ops[3].op)
	assert.Equal(t, a.MarshalStorage(), ops[3].value)
	assert.Zero(t, p.Len())
}

func TestPipeline_SaveCopiesRecord(t *testing.T) {
	b := &memBackend{}
	p := New(b, 4)

	r := record(7)
	want := r.MarshalStorage()
	require.NoError(t, p.Save(r))

	// 入队后修改调用方的记录不影响队列中的副本
	r.Wipe()

	require.NoError(t, p.Start())
	require.NoError(t, p.Flush(context.Background()))
	require.NoError(t, p.Stop(context.Background()))

	ops := b.snapshot()
	require.Len(t, ops, 1)
	assert.Equal(t, want, ops[0].value)
}

func TestPipeline_QueueFull(t *testing.T) {
	p := New(&memBackend{}, 2)

	require.NoError(t, p.Save(record(1)))
	require.NoError(t, p.Save(record(2)))

	err := p.Save(record(3))
	require.Error(t, err)
	assert.True(t, IsQueueFull(err))
	assert.True(t, errors.Is(p.Delete(record(4)), ErrQueueFull))
	assert.Equal(t, 2, p.Len())
}

func TestNew_MinimumCapacity(t *testing.T) {
	p := New(&memBackend{}, 0)
	require.NoError(t, p.Save(record(1)))
	assert.True(t, IsQueueFull(p.Save(record(2))))
}

// ============================================================================
//                              停止
// ============================================================================

func TestPipeline_StopDrains(t *testing.T) {
	b := &memBackend{}
	p := New(b, 16)
	require.NoError(t, p.Start())

	for i := 1; i <= 10; i++ {
		require.NoError(t, p.Save(record(byte(i))))
	}
	require.NoError(t, p.Stop(context.Background()))

	assert.Len(t, b.snapshot(), 10)
	assert.Zero(t, p.Len())
}

func TestPipeline_StopBeforeStart(t *testing.T) {
	b := &memBackend{}
	p := New(b, 4)

	require.NoError(t, p.Save(record(1)))
	require.NoError(t, p.Delete(record(2)))
	require.NoError(t, p.Stop(context.Background()))

	assert.Empty(t, b.snapshot())
	assert.Zero(t, p.Len())
	assert.ErrorIs(t, p.Start(), ErrStopped)
}

func TestPipeline_AfterStop(t *testing.T) {
	p := New(&memBackend{}, 4)
	require.NoError(t, p.Start())
	require.NoError(t, p.Stop(context.Background()))

	assert.ErrorIs(t, p.Save(record(1)), ErrStopped)
	assert.ErrorIs(t, p.Delete(record(1)), ErrStopped)
	assert.ErrorIs(t, p.Flush(context.Background()), ErrStopped)

	// 重复 Stop 无副作用
	assert.NoError(t, p.Stop(context.Background()))
}

func TestPipeline_StopTimeoutDiscards(t *testing.T) {
	b := &memBackend{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	p := New(b, 8)
	require.NoError(t, p.Start())

	for i := 1; i <= 4; i++ {
		require.NoError(t, p.Save(record(byte(i))))
	}

	// 等待 worker 阻塞在第一条写入上
	select {
	case <-b.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not pick up the first entry")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Stop(ctx), context.Canceled)

	close(b.gate)
	select {
	case <-p.done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not exit")
	}

	// 只有已在执行的那一条落盘，其余被丢弃
	ops := b.snapshot()
	require.Len(t, ops, 1)
	assert.Equal(t, keys.StorageName(0, record(1).Addr), ops[0].name)
	assert.Zero(t, p.Len())
}

func TestEntry_Wipe(t *testing.T) {
	e := newEntry(OpSave, record(9))
	assert.NotEqual(t, [16]byte{}, e.Record.LTK.Val)

	e.wipe()
	assert.True(t, e.Record.IsFree())
	assert.Equal(t, [16]byte{}, e.Record.LTK.Val)
	assert.Equal(t, [16]byte{}, e.Record.IRK.Val)
}

// ============================================================================
//                              后端失败
// ============================================================================

func TestPipeline_BackendFailureContinues(t *testing.T) {
	bad := record(1)
	b := &memBackend{failName: bad.StorageName()}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "test")
	p := New(b, 8, WithMetrics(m))
	require.NoError(t, p.Start())
	defer p.Stop(context.Background())

	require.NoError(t, p.Save(bad))
	require.NoError(t, p.Save(record(2)))
	require.NoError(t, p.Delete(record(3)))
	require.NoError(t, p.Flush(context.Background()))

	ops := b.snapshot()
	require.Len(t, ops, 2)
	assert.Equal(t, keys.StorageName(0, record(2).Addr), ops[0].name)
	assert.Equal(t, keys.StorageName(0, record(3).Addr), ops[1].name)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistOps.WithLabelValues(metrics.OpSave, metrics.ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistOps.WithLabelValues(metrics.OpSave, metrics.ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistOps.WithLabelValues(metrics.OpDelete, metrics.ResultOK)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.QueueDepth))
}

func TestPipeline_DroppedMetric(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry(), "test")
	p := New(&memBackend{}, 1, WithMetrics(m))

	require.NoError(t, p.Save(record(1)))
	require.Error(t, p.Save(record(2)))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistOps.WithLabelValues(metrics.OpSave, metrics.ResultDropped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QueueDepth))
}

func TestPipeline_FlushContext(t *testing.T) {
	b := &memBackend{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	p := New(b, 4)
	require.NoError(t, p.Start())

	require.NoError(t, p.Save(record(1)))
	<-b.entered

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Flush(ctx), context.DeadlineExceeded)

	close(b.gate)
	require.NoError(t, p.Stop(context.Background()))
}

// ============================================================================
//                              持久化往返
// ============================================================================

func TestPipeline_RoundTripThroughSettings(t *testing.T) {
	dir := t.TempDir()

	eng, err := storage.Open(dir)
	require.NoError(t, err)
	store := settings.NewStore(storage.NewSettingsStore(eng))

	p := New(store, 8)
	require.NoError(t, p.Start())

	pool, err := keys.NewPool(config.DefaultKeysConfig(), keys.WithPersister(p))
	require.NoError(t, err)

	var want [][]byte
	for i := byte(1); i <= 3; i++ {
		src := record(i)
		r, err := pool.GetAddr(i, src.Addr)
		require.NoError(t, err)
		r.Keys, r.EncSize, r.Flags = src.Keys, src.EncSize, src.Flags
		r.LTK, r.IRK = src.LTK, src.IRK
		require.NoError(t, pool.Store(r))
		want = append(want, r.MarshalStorage())
	}

	// 清除第二条：durable 删除
	pool.Clear(pool.FindAddr(2, record(2).Addr))

	require.NoError(t, p.Stop(context.Background()))
	require.NoError(t, eng.Close())

	// 重启
	eng, err = storage.Open(dir)
	require.NoError(t, err)
	defer eng.Close()

	restored, err := keys.NewPool(config.DefaultKeysConfig())
	require.NoError(t, err)
	store = settings.NewStore(storage.NewSettingsStore(eng))
	require.NoError(t, store.Register(keys.Subtree, keys.NewLoader(restored)))
	require.NoError(t, store.Load())

	assert.Equal(t, 2, restored.Len())
	assert.Nil(t, restored.FindAddr(2, record(2).Addr))

	for _, i := range []byte{1, 3} {
		r := restored.FindAddr(i, record(i).Addr)
		require.NotNil(t, r, fmt.Sprintf("record %d", i))
		assert.Equal(t, want[i-1], r.MarshalStorage())
	}
	assert.GreaterOrEqual(t, restored.AgingCounter(), uint32(3))
}
