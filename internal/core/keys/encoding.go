package keys

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/dep2p/go-blekeys/internal/core/settings"
	"github.com/dep2p/go-blekeys/pkg/types"
)

const (
	// Subsys 密钥记录所在的设置子系统
	Subsys = "keys"

	// Subtree 密钥记录的设置子树
	Subtree = settings.Root + settings.Separator + Subsys

	// StorageLen 持久化编码长度
	StorageLen = 116

	// StorageLenCompat 旧版编码长度（无老化计数）
	StorageLenCompat = StorageLen - 4

	// DefaultID 默认身份
	DefaultID uint8 = 0
)

// 字段偏移
const (
	offEncSize    = 0
	offFlags      = 1
	offKeys       = 2
	offLTK        = 4
	offIRK        = offLTK + ltkLen
	offLocalCSRK  = offIRK + 16
	offRemoteCSRK = offLocalCSRK + csrkLen
	offPeriphLTK  = offRemoteCSRK + csrkLen
	offAging      = offPeriphLTK + ltkLen

	ltkLen  = 8 + 2 + 16
	csrkLen = 16 + 4
)

// StorageName 返回 (id, addr) 的持久化名称
//
// 身份 0 省略后缀，其他身份以十进制追加。
func StorageName(id uint8, addr types.AddrLE) string {
	suffix := ""
	if id != DefaultID {
		suffix = strconv.FormatUint(uint64(id), 10)
	}
	return settings.EncodeKey(Subsys, addr, suffix)
}

// MarshalStorage 返回持久化区域的编码
//
// ID、Addr、State 与 IRK 的 RPA 缓存不在其中。
func (r *Record) MarshalStorage() []byte {
	b := make([]byte, StorageLen)

	b[offEncSize] = r.EncSize
	b[offFlags] = byte(r.Flags)
	binary.LittleEndian.PutUint16(b[offKeys:], uint16(r.Keys))
	putLTK(b[offLTK:], &r.LTK)
	copy(b[offIRK:], r.IRK.Val[:])
	putCSRK(b[offLocalCSRK:], &r.LocalCSRK)
	putCSRK(b[offRemoteCSRK:], &r.RemoteCSRK)
	putLTK(b[offPeriphLTK:], &r.PeriphLTK)
	binary.LittleEndian.PutUint32(b[offAging:], r.AgingCounter)

	return b
}

// UnmarshalStorage 从持久化编码恢复记录
//
// 接受 StorageLen 与 StorageLenCompat 两种长度，旧格式的老化计数置 0。
// 返回是否为旧格式。
func (r *Record) UnmarshalStorage(b []byte) (legacy bool, err error) {
	switch len(b) {
	case StorageLen:
	case StorageLenCompat:
		legacy = true
	default:
		return false, fmt.Errorf("%w: length %d, want %d", ErrInvalidEncoding, len(b), StorageLen)
	}

	r.EncSize = b[offEncSize]
	r.Flags = SecFlags(b[offFlags])
	r.Keys = KeyType(binary.LittleEndian.Uint16(b[offKeys:]))
	getLTK(b[offLTK:], &r.LTK)
	copy(r.IRK.Val[:], b[offIRK:offIRK+16])
	getCSRK(b[offLocalCSRK:], &r.LocalCSRK)
	getCSRK(b[offRemoteCSRK:], &r.RemoteCSRK)
	getLTK(b[offPeriphLTK:], &r.PeriphLTK)

	if legacy {
		r.AgingCounter = 0
	} else {
		r.AgingCounter = binary.LittleEndian.Uint32(b[offAging:])
	}
	return legacy, nil
}

func putLTK(b []byte, k *LTK) {
	copy(b[0:8], k.Rand[:])
	copy(b[8:10], k.EDiv[:])
	copy(b[10:26], k.Val[:])
}

func getLTK(b []byte, k *LTK) {
	copy(k.Rand[:], b[0:8])
	copy(k.EDiv[:], b[8:10])
	copy(k.Val[:], b[10:26])
}

func putCSRK(b []byte, k *CSRK) {
	copy(b[0:16], k.Val[:])
	binary.LittleEndian.PutUint32(b[16:20], k.Cnt)
}

func getCSRK(b []byte, k *CSRK) {
	copy(k.Val[:], b[0:16])
	k.Cnt = binary.LittleEndian.Uint32(b[16:20])
}
