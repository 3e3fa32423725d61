package keys

import (
	"strings"

	"github.com/dep2p/go-blekeys/pkg/types"
)

// KeyType 记录中已填充的密钥类型位集
type KeyType uint16

const (
	// TypePeriphLTK 作为外设分发的 LTK（传统配对）
	TypePeriphLTK KeyType = 1 << iota
	// TypeIRK 对端身份解析密钥
	TypeIRK
	// TypeLTK 长期密钥
	TypeLTK
	// TypeLocalCSRK 本地签名密钥
	TypeLocalCSRK
	// TypeRemoteCSRK 对端签名密钥
	TypeRemoteCSRK
	// TypeLTKP256 LE 安全连接生成的 LTK
	TypeLTKP256

	// TypeAll 所有类型
	TypeAll = TypePeriphLTK | TypeIRK | TypeLTK | TypeLocalCSRK | TypeRemoteCSRK | TypeLTKP256
)

var keyTypeNames = []struct {
	t    KeyType
	name string
}{
	{TypePeriphLTK, "periph-ltk"},
	{TypeIRK, "irk"},
	{TypeLTK, "ltk"},
	{TypeLocalCSRK, "local-csrk"},
	{TypeRemoteCSRK, "remote-csrk"},
	{TypeLTKP256, "ltk-p256"},
}

// String 返回 "ltk|irk" 形式
func (t KeyType) String() string {
	if t == 0 {
		return "none"
	}
	var parts []string
	for _, n := range keyTypeNames {
		if t&n.t != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseKeyType 解析单个类型名称，"all" 表示 TypeAll
func ParseKeyType(s string) (KeyType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "all" {
		return TypeAll, true
	}
	for _, n := range keyTypeNames {
		if n.name == s {
			return n.t, true
		}
	}
	return 0, false
}

// SecFlags 配对安全属性
type SecFlags uint8

const (
	// FlagAuthenticated 配对经过 MITM 保护
	FlagAuthenticated SecFlags = 1 << 0
	// FlagDebug 使用了调试密钥
	FlagDebug SecFlags = 1 << 1
	// FlagSC LE 安全连接
	FlagSC SecFlags = 1 << 4
	// FlagOOB 使用了带外数据
	FlagOOB SecFlags = 1 << 5
)

// StateFlags 记录的运行时状态，不持久化
type StateFlags uint8

const (
	// StateIDPendingAdd 等待加入解析列表
	StateIDPendingAdd StateFlags = 1 << 0
	// StateIDPendingDel 等待从解析列表移除
	StateIDPendingDel StateFlags = 1 << 1
	// StateIDAdded 已加入解析列表
	StateIDAdded StateFlags = 1 << 2
)

// LTK 长期密钥
type LTK struct {
	Rand [8]byte
	EDiv [2]byte
	Val  [16]byte
}

// IRK 身份解析密钥
type IRK struct {
	Val [16]byte

	// RPA 最近一次匹配的可解析私有地址，仅在内存中缓存
	RPA types.Addr
}

// CSRK 签名密钥
type CSRK struct {
	Val [16]byte
	Cnt uint32
}

// Record 一个对端的配对记录
type Record struct {
	ID    uint8
	Addr  types.AddrLE
	State StateFlags

	EncSize uint8
	Flags   SecFlags
	Keys    KeyType

	LTK        LTK
	IRK        IRK
	LocalCSRK  CSRK
	RemoteCSRK CSRK
	PeriphLTK  LTK

	// AgingCounter 老化计数，值越大越新
	AgingCounter uint32
}

// IsFree 槽位是否空闲（地址为全零）
func (r *Record) IsFree() bool {
	return r.Addr.IsZero()
}

// IsBonded 是否持有任意密钥
func (r *Record) IsBonded() bool {
	return r.Keys != 0
}

// Has 是否包含全部 t 中的类型
func (r *Record) Has(t KeyType) bool {
	return r.Keys&t == t
}

// Wipe 清零记录，包括全部密钥材料
func (r *Record) Wipe() {
	*r = Record{}
}

// StorageName 返回记录的持久化名称
func (r *Record) StorageName() string {
	return StorageName(r.ID, r.Addr)
}
