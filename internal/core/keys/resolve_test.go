package keys

import (
	"testing"

	"github.com/dep2p/go-blekeys/config"
	"github.com/dep2p/go-blekeys/internal/core/metrics"
	"github.com/dep2p/go-blekeys/internal/core/rpa"
	"github.com/dep2p/go-blekeys/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingMatcher 统计 AES 匹配调用次数
type countingMatcher struct {
	calls int
}

func (m *countingMatcher) match(irk [16]byte, a types.Addr) bool {
	m.calls++
	return rpa.IRKMatches(irk, a)
}

func newResolvePool(t *testing.T) (*Pool, *countingMatcher, *metrics.Metrics) {
	t.Helper()

	m := &countingMatcher{}
	met := metrics.New(prometheus.NewRegistry(), "t")
	p, err := NewPool(config.DefaultKeysConfig().WithMaxPaired(4),
		WithIRKMatcher(m.match), WithMetrics(met))
	require.NoError(t, err)
	return p, m, met
}

func irkOf(b byte) [16]byte {
	var irk [16]byte
	for i := range irk {
		irk[i] = b + byte(i)
	}
	return irk
}

func TestFindIRK_CryptoThenCache(t *testing.T) {
	p, m, met := newResolvePool(t)

	// 干扰记录：不同 IRK
	other, err := p.GetType(TypeIRK, 0, addr(1))
	require.NoError(t, err)
	other.IRK.Val = irkOf(0x80)

	peer, err := p.GetType(TypeIRK, 0, addr(2))
	require.NoError(t, err)
	peer.IRK.Val = irkOf(0x10)

	rpaB := rpa.FromPrand(peer.IRK.Val, [3]byte{0x01, 0x02, 0x43})
	require.True(t, rpaB.IsRPA())

	got := p.FindIRK(0, rpaB)
	require.Same(t, peer, got)
	assert.Equal(t, rpaB.A, peer.IRK.RPA)
	assert.Equal(t, 2, m.calls)

	// 缓存命中不再调用匹配函数
	m.calls = 0
	got = p.FindIRK(0, rpaB)
	assert.Same(t, peer, got)
	assert.Zero(t, m.calls)

	assert.Equal(t, 1.0, testutil.ToFloat64(met.Resolutions.WithLabelValues(metrics.ResolveCache)))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.Resolutions.WithLabelValues(metrics.ResolveCrypto)))
}

func TestFindIRK_StaleCache(t *testing.T) {
	p, _, _ := newResolvePool(t)

	peer, _ := p.GetType(TypeIRK, 0, addr(2))
	peer.IRK.Val = irkOf(0x10)

	first := rpa.FromPrand(peer.IRK.Val, [3]byte{0x11, 0x22, 0x33})
	second := rpa.FromPrand(peer.IRK.Val, [3]byte{0x44, 0x55, 0x66})

	require.Same(t, peer, p.FindIRK(0, first))
	require.Same(t, peer, p.FindIRK(0, second))
	assert.Equal(t, second.A, peer.IRK.RPA)
}

func TestFindIRK_NoMatch(t *testing.T) {
	p, m, met := newResolvePool(t)

	peer, _ := p.GetType(TypeIRK, 0, addr(2))
	peer.IRK.Val = irkOf(0x10)

	unknown := rpa.FromPrand(irkOf(0x99), [3]byte{1, 2, 3})
	assert.Nil(t, p.FindIRK(0, unknown))
	assert.Equal(t, 1, m.calls)
	assert.True(t, peer.IRK.RPA.IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(met.Resolutions.WithLabelValues(metrics.ResolveMiss)))
}

func TestFindIRK_NotRPA(t *testing.T) {
	p, m, _ := newResolvePool(t)

	peer, _ := p.GetType(TypeIRK, 0, addr(2))
	peer.IRK.Val = irkOf(0x10)

	static := types.AddrLE{Type: types.AddrRandom, A: types.Addr{1, 2, 3, 4, 5, 0xc6}}
	nrpa := types.AddrLE{Type: types.AddrRandom, A: types.Addr{1, 2, 3, 4, 5, 0x06}}
	public := types.AddrLE{Type: types.AddrPublic, A: types.Addr{1, 2, 3, 4, 5, 0x46}}

	assert.Nil(t, p.FindIRK(0, static))
	assert.Nil(t, p.FindIRK(0, nrpa))
	assert.Nil(t, p.FindIRK(0, public))
	assert.Zero(t, m.calls)
}

func TestFindIRK_IdentityScoped(t *testing.T) {
	p, _, _ := newResolvePool(t)

	peer, _ := p.GetType(TypeIRK, 1, addr(2))
	peer.IRK.Val = irkOf(0x10)
	a := rpa.FromPrand(peer.IRK.Val, [3]byte{9, 9, 9})

	assert.Nil(t, p.FindIRK(0, a))
	assert.Same(t, peer, p.FindIRK(1, a))
}

func TestFindIRK_SkipsRecordsWithoutIRK(t *testing.T) {
	p, m, _ := newResolvePool(t)

	ltkOnly, _ := p.GetType(TypeLTK, 0, addr(3))
	ltkOnly.IRK.Val = irkOf(0x10)
	a := rpa.FromPrand(ltkOnly.IRK.Val, [3]byte{9, 9, 9})

	assert.Nil(t, p.FindIRK(0, a))
	assert.Zero(t, m.calls)
}
