package keys

import (
	"errors"
	"math"
	"testing"

	"github.com/dep2p/go-blekeys/config"
	"github.com/dep2p/go-blekeys/internal/core/metrics"
	"github.com/dep2p/go-blekeys/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(last byte) types.AddrLE {
	return types.AddrLE{Type: types.AddrPublic, A: types.Addr{last, 0x22, 0x33, 0x44, 0x55, 0x66}}
}

func newTestPool(t *testing.T, capacity int, overwrite bool, opts ...Option) (*Pool, *MockPersister) {
	t.Helper()

	persister := NewMockPersister()
	cfg := config.DefaultKeysConfig().WithMaxPaired(capacity).WithOverwriteOldest(overwrite)
	p, err := NewPool(cfg, append([]Option{WithPersister(persister)}, opts...)...)
	require.NoError(t, err)
	return p, persister
}

func TestNewPool_InvalidConfig(t *testing.T) {
	_, err := NewPool(config.DefaultKeysConfig().WithMaxPaired(0))
	assert.Error(t, err)
}

func TestPool_GetAddr_FindOrAllocate(t *testing.T) {
	p, _ := newTestPool(t, 4, false)

	a, err := p.GetAddr(1, addr(0xa))
	require.NoError(t, err)
	assert.Equal(t, uint8(1), a.ID)
	assert.Equal(t, addr(0xa), a.Addr)
	assert.Equal(t, uint32(1), a.AgingCounter)

	// 同一 (id, addr) 返回同一槽位，不改变计数
	again, err := p.GetAddr(1, addr(0xa))
	require.NoError(t, err)
	assert.Same(t, a, again)
	assert.Equal(t, uint32(1), again.AgingCounter)

	// 不同身份视为不同记录
	other, err := p.GetAddr(2, addr(0xa))
	require.NoError(t, err)
	assert.NotSame(t, a, other)
	assert.Equal(t, 2, p.Len())
}

func TestPool_GetAddr_ZeroAddress(t *testing.T) {
	p, _ := newTestPool(t, 2, false)

	_, err := p.GetAddr(0, types.AddrLEAny)
	assert.ErrorIs(t, err, ErrInvalidAddr)
	assert.Zero(t, p.Len())
}

func TestPool_GetAddr_IdentityAddressType(t *testing.T) {
	p, persister := newTestPool(t, 2, false)

	for _, typ := range []types.AddrType{types.AddrPublicID, types.AddrRandomID} {
		a := addr(1)
		a.Type = typ
		_, err := p.GetAddr(0, a)
		assert.ErrorIs(t, err, ErrInvalidAddr, typ.String())
	}
	assert.Zero(t, p.Len())
	assert.Empty(t, persister.Saved)

	random := addr(1)
	random.Type = types.AddrRandom
	_, err := p.GetAddr(0, random)
	assert.NoError(t, err)
}

func TestPool_Uniqueness(t *testing.T) {
	p, _ := newTestPool(t, 3, true)

	seq := []struct {
		id   uint8
		last byte
	}{{0, 1}, {0, 2}, {0, 1}, {1, 1}, {0, 3}, {0, 2}, {1, 1}, {0, 4}, {1, 2}}
	for _, s := range seq {
		_, err := p.GetAddr(s.id, addr(s.last))
		require.NoError(t, err)

		seen := make(map[Record]bool)
		for _, r := range p.Snapshot() {
			k := Record{ID: r.ID, Addr: r.Addr}
			assert.False(t, seen[k], "duplicate slot for %d %s", r.ID, r.Addr)
			seen[k] = true
		}
	}
}

func TestPool_MonotonicRecency(t *testing.T) {
	p, _ := newTestPool(t, 3, true)

	var prev uint32
	for i := 0; i < 10; i++ {
		r, err := p.GetAddr(0, addr(byte(i+1)))
		require.NoError(t, err)
		assert.Greater(t, r.AgingCounter, prev)
		prev = r.AgingCounter

		p.UpdateUsage(0, addr(byte(i)))
		if u := p.FindAddr(0, addr(byte(i))); u != nil {
			assert.Greater(t, u.AgingCounter, prev)
			prev = u.AgingCounter
		}
	}
}

func TestPool_Exhaustion(t *testing.T) {
	p, persister := newTestPool(t, 2, false)

	_, err := p.GetAddr(0, addr(1))
	require.NoError(t, err)
	_, err = p.GetAddr(0, addr(2))
	require.NoError(t, err)
	before := p.Snapshot()

	_, err = p.GetAddr(0, addr(3))
	assert.ErrorIs(t, err, ErrPoolExhausted)
	assert.True(t, IsPoolExhausted(err))

	assert.Equal(t, before, p.Snapshot())
	assert.Equal(t, uint32(2), p.AgingCounter())
	assert.Empty(t, persister.Deleted)
}

func TestPool_EvictOldest(t *testing.T) {
	registrar := NewMockRegistrar()
	var hooked []types.AddrLE
	p, persister := newTestPool(t, 3, true,
		WithRegistrar(registrar),
		WithUnpairHook(func(_ uint8, a types.AddrLE) error {
			hooked = append(hooked, a)
			return nil
		}),
	)

	for i := byte(1); i <= 3; i++ {
		_, err := p.GetAddr(0, addr(i))
		require.NoError(t, err)
	}
	// addr(1) 变为最近使用，addr(2) 成为最久未用
	p.UpdateUsage(0, addr(1))
	require.NoError(t, registrar.Register(p.FindAddr(0, addr(2))))

	r, err := p.GetAddr(0, addr(4))
	require.NoError(t, err)
	assert.Equal(t, addr(4), r.Addr)

	assert.Nil(t, p.FindAddr(0, addr(2)))
	assert.Equal(t, []types.AddrLE{addr(2)}, persister.DeletedAddrs())
	assert.Equal(t, []types.AddrLE{addr(2)}, registrar.Unregistered)
	assert.Equal(t, []types.AddrLE{addr(2)}, hooked)
	assert.Equal(t, 3, p.Len())
}

func TestPool_CapacityTwoScenario(t *testing.T) {
	p, persister := newTestPool(t, 2, true)

	a, err := p.GetAddr(1, addr(0xa))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), a.AgingCounter)

	b, err := p.GetAddr(1, addr(0xb))
	require.NoError(t, err)
	assert.Equal(t, uint32(2), b.AgingCounter)

	c, err := p.GetAddr(1, addr(0xc))
	require.NoError(t, err)
	assert.Equal(t, uint32(3), c.AgingCounter)

	got := map[types.AddrLE]uint32{}
	for _, r := range p.Snapshot() {
		got[r.Addr] = r.AgingCounter
	}
	assert.Equal(t, map[types.AddrLE]uint32{addr(0xb): 2, addr(0xc): 3}, got)
	assert.Nil(t, p.FindAddr(1, addr(0xa)))
	assert.Nil(t, p.Find(TypeAll, 1, addr(0xa)))
	assert.Equal(t, []types.AddrLE{addr(0xa)}, persister.DeletedAddrs())
}

func TestPool_FindAndGetType(t *testing.T) {
	p, _ := newTestPool(t, 2, false)

	assert.Nil(t, p.Find(TypeLTK, 0, addr(1)))

	r, err := p.GetType(TypeLTK, 0, addr(1))
	require.NoError(t, err)
	assert.True(t, r.Has(TypeLTK))
	assert.Same(t, r, p.Find(TypeLTK, 0, addr(1)))
	assert.Same(t, r, p.Find(TypeLTK|TypeIRK, 0, addr(1)))
	assert.Nil(t, p.Find(TypeIRK, 0, addr(1)))

	// 已存在记录追加类型
	r2, err := p.GetType(TypeIRK, 0, addr(1))
	require.NoError(t, err)
	assert.Same(t, r, r2)
	assert.Equal(t, TypeLTK|TypeIRK, r.Keys)

	p.AddType(r, TypeIRK)
	assert.Equal(t, TypeLTK|TypeIRK, r.Keys)
	assert.Equal(t, 1, p.Len())
}

func TestPool_ForEach(t *testing.T) {
	p, _ := newTestPool(t, 4, false)

	r1, _ := p.GetType(TypeLTK, 0, addr(1))
	_, _ = p.GetType(TypeIRK, 0, addr(2))
	_, _ = p.GetType(TypeLTK|TypeIRK, 1, addr(3))
	_, _ = p.GetAddr(0, addr(4)) // 无密钥

	var ltk []types.AddrLE
	p.ForEach(TypeLTK, func(r *Record) { ltk = append(ltk, r.Addr) })
	assert.Equal(t, []types.AddrLE{addr(1), addr(3)}, ltk)

	// 访问者可以修改记录
	p.ForEach(TypeLTK, func(r *Record) { r.EncSize = 16 })
	assert.Equal(t, uint8(16), r1.EncSize)

	var bonds []types.AddrLE
	p.ForEachBond(0, func(info BondInfo) { bonds = append(bonds, info.Addr) })
	assert.Equal(t, []types.AddrLE{addr(1), addr(2)}, bonds)
}

func TestPool_ClearIdempotent(t *testing.T) {
	registrar := NewMockRegistrar()
	p, persister := newTestPool(t, 2, false, WithRegistrar(registrar))

	r, err := p.GetType(TypeIRK, 0, addr(1))
	require.NoError(t, err)
	r.IRK.Val[0] = 0x5a
	require.NoError(t, registrar.Register(r))

	p.Clear(r)
	p.Clear(r)

	assert.True(t, r.IsFree())
	assert.Equal(t, Record{}, *r)
	require.Len(t, persister.Deleted, 1)
	// 删除请求携带清除前的快照
	assert.Equal(t, byte(0x5a), persister.Deleted[0].IRK.Val[0])
	assert.Equal(t, []types.AddrLE{addr(1)}, registrar.Unregistered)

	p.Clear(nil)
}

func TestPool_ClearPersisterFailure(t *testing.T) {
	p, persister := newTestPool(t, 2, false)
	persister.DeleteFunc = func(Record) error { return errors.New("queue full") }

	r, _ := p.GetAddr(0, addr(1))
	p.Clear(r)

	// 内存状态仍然是权威的
	assert.Zero(t, p.Len())
}

func TestPool_UpdateUsage(t *testing.T) {
	p, persister := newTestPool(t, 3, false)

	a, _ := p.GetAddr(0, addr(1))
	b, _ := p.GetAddr(0, addr(2))
	require.Equal(t, uint32(2), b.AgingCounter)

	// b 已是最近使用，不递增
	p.UpdateUsage(0, addr(2))
	assert.Equal(t, uint32(2), b.AgingCounter)

	p.UpdateUsage(0, addr(1))
	assert.Equal(t, uint32(3), a.AgingCounter)

	// 未知对端忽略
	p.UpdateUsage(0, addr(9))
	assert.Equal(t, uint32(3), p.AgingCounter())

	// 未开启保存策略时不持久化
	assert.Empty(t, persister.Saved)
}

func TestPool_UpdateUsage_SaveOnPairing(t *testing.T) {
	persister := NewMockPersister()
	cfg := config.DefaultKeysConfig().WithMaxPaired(2).WithOverwriteOldest(true).WithSaveAgingCounter(true)
	p, err := NewPool(cfg, WithPersister(persister))
	require.NoError(t, err)

	_, _ = p.GetAddr(0, addr(1))
	_, _ = p.GetAddr(0, addr(2))
	p.UpdateUsage(0, addr(1))

	require.Len(t, persister.Saved, 1)
	assert.Equal(t, addr(1), persister.Saved[0].Addr)
	assert.Equal(t, uint32(3), persister.Saved[0].AgingCounter)
}

func TestPool_UpdateUsage_SaveFailure(t *testing.T) {
	persister := NewMockPersister()
	persister.SaveFunc = func(Record) error { return errors.New("queue full") }
	cfg := config.DefaultKeysConfig().WithMaxPaired(2).WithSaveAgingCounter(true)
	p, err := NewPool(cfg, WithPersister(persister))
	require.NoError(t, err)

	a, _ := p.GetAddr(0, addr(1))
	_, _ = p.GetAddr(0, addr(2))

	// 持久化失败不影响内存中的计数
	assert.NotPanics(t, func() { p.UpdateUsage(0, addr(1)) })
	assert.Equal(t, uint32(3), a.AgingCounter)
	assert.Equal(t, uint32(3), p.AgingCounter())
}

func TestPool_AgingCounterSaturates(t *testing.T) {
	p, _ := newTestPool(t, 3, true)
	p.agingCounter = math.MaxUint32 - 1

	a, _ := p.GetAddr(0, addr(1))
	b, _ := p.GetAddr(0, addr(2))
	assert.Equal(t, uint32(math.MaxUint32), a.AgingCounter)
	assert.Equal(t, uint32(math.MaxUint32), b.AgingCounter)

	// 不回绕到 0
	p.UpdateUsage(0, addr(1))
	assert.Equal(t, uint32(math.MaxUint32), p.AgingCounter())
	assert.Equal(t, uint32(math.MaxUint32), a.AgingCounter)
}

func TestPool_Restore(t *testing.T) {
	p, persister := newTestPool(t, 4, false)
	rec := fullRecord()
	rec.ID = 1

	r, err := p.Restore(rec)
	require.NoError(t, err)
	assert.Equal(t, rec.MarshalStorage(), r.MarshalStorage())
	assert.Equal(t, rec.AgingCounter, r.AgingCounter)
	assert.GreaterOrEqual(t, p.AgingCounter(), rec.AgingCounter)
	// Restore 本身不持久化
	assert.Empty(t, persister.Saved)

	// 新分配的记录排在恢复的记录之后
	next, err := p.GetAddr(0, addr(9))
	require.NoError(t, err)
	assert.Greater(t, next.AgingCounter, r.AgingCounter)

	// 旧格式记录没有计数，保留新分配的值
	legacy := Record{Addr: addr(7), Keys: TypeLTK}
	lr, err := p.Restore(legacy)
	require.NoError(t, err)
	assert.Equal(t, p.AgingCounter(), lr.AgingCounter)

	_, err = p.Restore(Record{Addr: types.AddrLEAny})
	assert.ErrorIs(t, err, ErrInvalidAddr)
}

func TestPool_Store(t *testing.T) {
	p, persister := newTestPool(t, 2, false)

	r, _ := p.GetType(TypeLTK, 0, addr(1))
	r.LTK.Val[0] = 1
	require.NoError(t, p.Store(r))

	// 保存的是副本，之后的修改不影响已入队的记录
	r.LTK.Val[0] = 2
	require.Len(t, persister.Saved, 1)
	assert.Equal(t, byte(1), persister.Saved[0].LTK.Val[0])

	assert.ErrorIs(t, p.Store(nil), ErrInvalidAddr)

	persister.SaveFunc = func(Record) error { return errors.New("boom") }
	assert.Error(t, p.Store(r))
}

func TestPool_Unpair(t *testing.T) {
	var hookErr = errors.New("disconnect failed")
	p, persister := newTestPool(t, 4, false, WithUnpairHook(func(uint8, types.AddrLE) error {
		return hookErr
	}))

	_, _ = p.GetType(TypeLTK, 0, addr(1))
	_, _ = p.GetType(TypeLTK, 0, addr(2))
	_, _ = p.GetType(TypeLTK, 1, addr(3))

	err := p.Unpair(0, addr(1))
	assert.ErrorIs(t, err, hookErr)
	assert.Nil(t, p.FindAddr(0, addr(1)))

	// 全零地址解除身份下全部配对
	_ = p.Unpair(0, types.AddrLEAny)
	assert.Nil(t, p.FindAddr(0, addr(2)))
	assert.NotNil(t, p.FindAddr(1, addr(3)))

	assert.Equal(t, []types.AddrLE{addr(1), addr(2)}, persister.DeletedAddrs())

	// 未知对端不是错误（钩子仍会运行）
	p2, _ := newTestPool(t, 1, false)
	assert.NoError(t, p2.Unpair(0, addr(7)))
}

func TestPool_Reset(t *testing.T) {
	p, persister := newTestPool(t, 2, false)
	_, _ = p.GetType(TypeLTK, 0, addr(1))

	p.Reset()
	assert.Zero(t, p.Len())
	assert.Zero(t, p.AgingCounter())
	assert.Empty(t, persister.Deleted)

	r, err := p.GetAddr(0, addr(2))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), r.AgingCounter)
}

func TestPool_Metrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry(), "t")
	p, _ := newTestPool(t, 1, false, WithMetrics(m))

	_, _ = p.GetAddr(0, addr(1))
	_, _ = p.GetAddr(0, addr(2))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PoolCapacity))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PoolOccupied))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PoolAllocations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PoolExhausted))
}

func TestPool_Dump(t *testing.T) {
	p, _ := newTestPool(t, 2, false)
	_, _ = p.GetType(TypeIRK, 0, addr(1))
	assert.NotPanics(t, p.Dump)
}
