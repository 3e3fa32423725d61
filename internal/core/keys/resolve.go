package keys

import (
	"github.com/dep2p/go-blekeys/internal/core/metrics"
	"github.com/dep2p/go-blekeys/pkg/types"
)

// FindIRK 将可解析私有地址解析为已知对端
//
// 先比对各 IRK 记录缓存的最近匹配地址，未命中再逐个做 AES 匹配，
// 匹配成功后更新缓存。非 RPA 地址或没有匹配时返回 nil，
// 表示未知对端而不是错误。
func (p *Pool) FindIRK(id uint8, addr types.AddrLE) *Record {
	if !addr.IsRPA() {
		return nil
	}

	for i := range p.slots {
		r := &p.slots[i]
		if r.Keys&TypeIRK == 0 || r.ID != id {
			continue
		}
		if r.IRK.RPA == addr.A {
			logger.Debug("命中缓存的 RPA", "rpa", addr.A.String(), "identity", r.Addr.String())
			p.metrics.ObserveResolve(metrics.ResolveCache)
			return r
		}
	}

	for i := range p.slots {
		r := &p.slots[i]
		if r.Keys&TypeIRK == 0 || r.ID != id {
			continue
		}
		if p.matcher(r.IRK.Val, addr.A) {
			logger.Debug("RPA 匹配 IRK", "rpa", addr.A.String(), "identity", r.Addr.String())
			r.IRK.RPA = addr.A
			p.metrics.ObserveResolve(metrics.ResolveCrypto)
			return r
		}
	}

	logger.Debug("没有匹配的 IRK", "rpa", addr.String())
	p.metrics.ObserveResolve(metrics.ResolveMiss)
	return nil
}
