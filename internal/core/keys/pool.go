package keys

import (
	"fmt"
	"math"

	"github.com/dep2p/go-blekeys/config"
	"github.com/dep2p/go-blekeys/internal/core/metrics"
	"github.com/dep2p/go-blekeys/internal/core/rpa"
	"github.com/dep2p/go-blekeys/pkg/lib/log"
	"github.com/dep2p/go-blekeys/pkg/types"
	"go.uber.org/multierr"
)

var logger = log.Logger("core/keys")

// Pool 固定容量的配对密钥池
type Pool struct {
	cfg   config.KeysConfig
	slots []Record

	agingCounter uint32
	last         *Record

	persister   Persister
	registrar   IdentityRegistrar
	matcher     IRKMatcher
	unpairHooks []UnpairHook
	metrics     *metrics.Metrics
}

// Option 密钥池选项
type Option func(*Pool)

// WithPersister 设置持久化目标
func WithPersister(p Persister) Option {
	return func(pool *Pool) { pool.persister = p }
}

// WithRegistrar 设置身份注册器
func WithRegistrar(r IdentityRegistrar) Option {
	return func(pool *Pool) { pool.registrar = r }
}

// WithIRKMatcher 替换 RPA 匹配函数
func WithIRKMatcher(m IRKMatcher) Option {
	return func(pool *Pool) { pool.matcher = m }
}

// WithUnpairHook 追加解除配对钩子
func WithUnpairHook(h UnpairHook) Option {
	return func(pool *Pool) { pool.unpairHooks = append(pool.unpairHooks, h) }
}

// WithMetrics 设置指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(pool *Pool) { pool.metrics = m }
}

// NewPool 创建密钥池，槽位一次性分配
func NewPool(cfg config.KeysConfig, opts ...Option) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:     cfg,
		slots:   make([]Record, cfg.MaxPaired),
		matcher: rpa.IRKMatches,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.metrics.SetPoolCapacity(len(p.slots))
	p.metrics.SetPoolOccupied(0)
	return p, nil
}

// Cap 返回池容量
func (p *Pool) Cap() int {
	return len(p.slots)
}

// Len 返回已占用槽位数
func (p *Pool) Len() int {
	n := 0
	for i := range p.slots {
		if !p.slots[i].IsFree() {
			n++
		}
	}
	return n
}

// AgingCounter 返回当前老化计数
func (p *Pool) AgingCounter() uint32 {
	return p.agingCounter
}

// Config 返回密钥池配置
func (p *Pool) Config() config.KeysConfig {
	return p.cfg
}

// GetAddr 查找或分配 (id, addr) 的记录
//
// 已存在时直接返回。否则占用第一个空闲槽位；没有空闲槽位且开启了
// OverwriteOldest 时，解除老化计数最小的对端的配对并复用其槽位。
// 新分配的记录获得新的老化计数。
//
// 只接受 public 与 random 类型的地址，持久化名称中只能表示这两种类型。
func (p *Pool) GetAddr(id uint8, addr types.AddrLE) (*Record, error) {
	if addr.IsZero() {
		return nil, ErrInvalidAddr
	}
	if addr.Type != types.AddrPublic && addr.Type != types.AddrRandom {
		return nil, fmt.Errorf("%w: type %s", ErrInvalidAddr, addr.Type)
	}

	var free *Record
	for i := range p.slots {
		r := &p.slots[i]
		if r.ID == id && r.Addr == addr {
			return r, nil
		}
		if free == nil && r.IsFree() {
			free = r
		}
	}

	if free == nil && p.cfg.OverwriteOldest {
		oldest := p.oldest()
		victimID, victimAddr := oldest.ID, oldest.Addr

		logger.Warn("密钥池已满，淘汰最久未用的记录",
			"id", victimID, "addr", victimAddr.String(), "aging", oldest.AgingCounter)

		if err := p.Unpair(victimID, victimAddr); err != nil {
			logger.Warn("淘汰时解除配对钩子失败", "addr", victimAddr.String(), "error", err)
		}
		if oldest.IsFree() {
			free = oldest
			p.metrics.IncEviction()
		}
	}

	if free == nil {
		logger.Debug("无法为对端分配密钥", "id", id, "addr", addr.String())
		p.metrics.IncExhausted()
		return nil, fmt.Errorf("%w: capacity %d", ErrPoolExhausted, len(p.slots))
	}

	free.ID = id
	free.Addr = addr
	p.touch(free)

	p.metrics.IncAllocation()
	p.metrics.SetPoolOccupied(p.Len())
	logger.Debug("分配密钥记录", "id", id, "addr", addr.String(), "aging", free.AgingCounter)
	return free, nil
}

// oldest 返回老化计数最小的槽位，计数相同时取下标最小者
func (p *Pool) oldest() *Record {
	oldest := &p.slots[0]
	for i := 1; i < len(p.slots); i++ {
		if p.slots[i].AgingCounter < oldest.AgingCounter {
			oldest = &p.slots[i]
		}
	}
	return oldest
}

// touch 赋予 r 新的老化计数
//
// 计数到达 math.MaxUint32 后不再递增，不会回绕。
func (p *Pool) touch(r *Record) {
	if p.agingCounter == math.MaxUint32 {
		logger.Warn("老化计数已达上限", "addr", r.Addr.String())
	} else {
		p.agingCounter++
	}
	r.AgingCounter = p.agingCounter
	p.last = r
}

// Find 查找包含 typ 中任一类型的 (id, addr) 记录
func (p *Pool) Find(typ KeyType, id uint8, addr types.AddrLE) *Record {
	for i := range p.slots {
		r := &p.slots[i]
		if r.Keys&typ != 0 && r.ID == id && r.Addr == addr {
			return r
		}
	}
	return nil
}

// FindAddr 只按 (id, addr) 查找记录
func (p *Pool) FindAddr(id uint8, addr types.AddrLE) *Record {
	for i := range p.slots {
		r := &p.slots[i]
		if r.ID == id && r.Addr == addr {
			return r
		}
	}
	return nil
}

// GetType 查找带 typ 的记录，不存在时分配并标记 typ
//
// 配对流程的主要入口。
func (p *Pool) GetType(typ KeyType, id uint8, addr types.AddrLE) (*Record, error) {
	if r := p.Find(typ, id, addr); r != nil {
		return r, nil
	}

	r, err := p.GetAddr(id, addr)
	if err != nil {
		return nil, err
	}
	AddType(r, typ)
	return r, nil
}

// AddType 在记录上标记 typ
func AddType(r *Record, typ KeyType) {
	r.Keys |= typ
}

// AddType 在记录上标记 typ
func (p *Pool) AddType(r *Record, typ KeyType) {
	AddType(r, typ)
}

// ForEach 依次访问包含 typ 中任一类型的记录
//
// 遍历期间不加锁；fn 可以修改记录，但不应分配或清除槽位。
func (p *Pool) ForEach(typ KeyType, fn func(r *Record)) {
	for i := range p.slots {
		if p.slots[i].Keys&typ != 0 {
			fn(&p.slots[i])
		}
	}
}

// BondInfo 绑定信息
type BondInfo struct {
	Addr types.AddrLE
}

// ForEachBond 依次访问身份 id 下所有持有密钥的对端
func (p *Pool) ForEachBond(id uint8, fn func(info BondInfo)) {
	for i := range p.slots {
		r := &p.slots[i]
		if r.Keys != 0 && r.ID == id {
			fn(BondInfo{Addr: r.Addr})
		}
	}
}

// Clear 清除记录
//
// 已注册的身份先注销，然后把记录副本交给持久化删除，最后清零槽位。
// 对空槽位只做清零。
func (p *Pool) Clear(r *Record) {
	if r == nil {
		return
	}

	logger.Debug("清除密钥记录", "id", r.ID, "addr", r.Addr.String(), "keys", r.Keys.String())

	if r.State&StateIDAdded != 0 && p.registrar != nil {
		if err := p.registrar.Unregister(r); err != nil {
			logger.Warn("注销身份失败", "addr", r.Addr.String(), "error", err)
		}
	}

	if !r.IsFree() && p.persister != nil {
		if err := p.persister.Delete(*r); err != nil {
			logger.Error("删除持久化记录失败", "addr", r.Addr.String(), "error", err)
		}
	}

	p.release(r)
}

// release 清零槽位，不触发持久化
func (p *Pool) release(r *Record) {
	if p.last == r {
		p.last = nil
	}
	r.Wipe()
	p.metrics.SetPoolOccupied(p.Len())
}

// Store 将记录副本交给持久化
func (p *Pool) Store(r *Record) error {
	if r == nil {
		return ErrInvalidAddr
	}
	if p.persister == nil {
		return nil
	}
	if err := p.persister.Save(*r); err != nil {
		logger.Error("保存密钥记录失败", "addr", r.Addr.String(), "error", err)
		return err
	}
	return nil
}

// Unpair 解除 (id, addr) 的配对
//
// addr 为全零时解除身份 id 下的所有配对。解除配对钩子的错误会合并返回，
// 但记录无论如何都会经由 Clear 清除。
func (p *Pool) Unpair(id uint8, addr types.AddrLE) error {
	if addr.IsZero() {
		var bonds []types.AddrLE
		p.ForEachBond(id, func(info BondInfo) {
			bonds = append(bonds, info.Addr)
		})

		var errs error
		for _, a := range bonds {
			errs = multierr.Append(errs, p.unpairOne(id, a))
		}
		return errs
	}
	return p.unpairOne(id, addr)
}

func (p *Pool) unpairOne(id uint8, addr types.AddrLE) error {
	var errs error
	for _, h := range p.unpairHooks {
		errs = multierr.Append(errs, h(id, addr))
	}

	if r := p.FindAddr(id, addr); r != nil {
		p.Clear(r)
	}
	return errs
}

// UpdateUsage 将 (id, addr) 标记为最近使用
//
// 已是最近使用的记录不再递增计数。开启 SaveAgingCounterOnPairing 时
// 立即持久化新的计数。
func (p *Pool) UpdateUsage(id uint8, addr types.AddrLE) {
	r := p.FindAddr(id, addr)
	if r == nil {
		return
	}
	if p.last == r {
		return
	}

	p.touch(r)
	logger.Debug("更新老化计数", "addr", addr.String(), "aging", r.AgingCounter)

	if p.cfg.SaveAgingCounterOnPairing {
		if err := p.Store(r); err != nil {
			logger.Warn("老化计数未持久化", "addr", addr.String(), "aging", r.AgingCounter, "error", err)
		}
	}
}

// Snapshot 返回所有已占用槽位的副本
func (p *Pool) Snapshot() []Record {
	out := make([]Record, 0, len(p.slots))
	for i := range p.slots {
		if !p.slots[i].IsFree() {
			out = append(out, p.slots[i])
		}
	}
	return out
}

// Dump 以 Debug 级别输出所有槽位，密钥只显示前两个字节
func (p *Pool) Dump() {
	for i := range p.slots {
		r := &p.slots[i]
		logger.Debug("密钥槽位",
			"slot", i,
			"id", r.ID,
			"state", fmt.Sprintf("0x%02x", uint8(r.State)),
			"addr", r.Addr.String(),
			"keys", fmt.Sprintf("0x%04x", uint16(r.Keys)),
			"ltk", fmt.Sprintf("rand(%02x%02x) ediv(%02x%02x) val(%02x%02x)",
				r.LTK.Rand[0], r.LTK.Rand[1], r.LTK.EDiv[0], r.LTK.EDiv[1], r.LTK.Val[0], r.LTK.Val[1]),
			"irk", fmt.Sprintf("val(%02x%02x) rpa(%s)", r.IRK.Val[0], r.IRK.Val[1], r.IRK.RPA),
			"aging", r.AgingCounter,
		)
	}
}

// Reset 清零所有槽位与计数，不触发持久化
func (p *Pool) Reset() {
	for i := range p.slots {
		p.slots[i].Wipe()
	}
	p.agingCounter = 0
	p.last = nil
	p.metrics.SetPoolOccupied(0)
}

// Restore 写入一条完整记录，保留其老化计数
//
// 用于导入：rec 中的持久化字段全部复制到 (rec.ID, rec.Addr) 的槽位。
// 老化计数为 0 时（旧格式）保留新分配的计数。不触发持久化。
func (p *Pool) Restore(rec Record) (*Record, error) {
	r, err := p.GetAddr(rec.ID, rec.Addr)
	if err != nil {
		return nil, err
	}

	r.EncSize = rec.EncSize
	r.Flags = rec.Flags
	r.Keys = rec.Keys
	r.LTK = rec.LTK
	r.IRK.Val = rec.IRK.Val
	r.LocalCSRK = rec.LocalCSRK
	r.RemoteCSRK = rec.RemoteCSRK
	r.PeriphLTK = rec.PeriphLTK
	if rec.AgingCounter != 0 {
		r.AgingCounter = rec.AgingCounter
	}

	p.restored(r)
	return r, nil
}

// restored 在记录计数被外部值覆盖后调用
//
// 提升池计数，并取消 r 的最近使用标记：r 的计数可能低于其他记录，
// 下一次 UpdateUsage 必须为它分配新计数。
func (p *Pool) restored(r *Record) {
	p.raiseAgingCounter(r.AgingCounter)
	if p.last == r {
		p.last = nil
	}
}

// raiseAgingCounter 保证后续分配的计数大于已加载的值
func (p *Pool) raiseAgingCounter(v uint32) {
	if v > p.agingCounter {
		p.agingCounter = v
	}
}
