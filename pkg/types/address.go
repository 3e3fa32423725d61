package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddrLen 设备地址长度（字节）
const AddrLen = 6

// Addr 48 位设备地址，A[0] 为最低字节
type Addr [AddrLen]byte

// AddrAny 全零地址
var AddrAny = Addr{}

// String 返回 "AA:BB:CC:DD:EE:FF" 形式（高字节在前）
func (a Addr) String() string {
	var sb strings.Builder
	sb.Grow(17)
	for i := AddrLen - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%02X", a[i])
		if i > 0 {
			sb.WriteByte(':')
		}
	}
	return sb.String()
}

// IsZero 是否为全零地址
func (a Addr) IsZero() bool {
	return a == AddrAny
}

// ParseAddr 解析 "AA:BB:CC:DD:EE:FF" 形式的地址
func ParseAddr(s string) (Addr, error) {
	var a Addr
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != AddrLen {
		return a, fmt.Errorf("%w: %q", ErrInvalidAddr, s)
	}
	for i, p := range parts {
		if len(p) != 2 {
			return a, fmt.Errorf("%w: %q", ErrInvalidAddr, s)
		}
		b, err := hex.DecodeString(p)
		if err != nil {
			return a, fmt.Errorf("%w: %q", ErrInvalidAddr, s)
		}
		a[AddrLen-1-i] = b[0]
	}
	return a, nil
}

// AddrType LE 地址类型
type AddrType uint8

const (
	// AddrPublic 公共设备地址
	AddrPublic AddrType = 0x00
	// AddrRandom 随机设备地址
	AddrRandom AddrType = 0x01
	// AddrPublicID 公共身份地址（控制器解析后上报）
	AddrPublicID AddrType = 0x02
	// AddrRandomID 随机静态身份地址（控制器解析后上报）
	AddrRandomID AddrType = 0x03
)

// String 返回地址类型名称
func (t AddrType) String() string {
	switch t {
	case AddrPublic:
		return "public"
	case AddrRandom:
		return "random"
	case AddrPublicID:
		return "public-id"
	case AddrRandomID:
		return "random-id"
	default:
		return fmt.Sprintf("0x%02x", uint8(t))
	}
}

// ParseAddrType 解析地址类型名称
func ParseAddrType(s string) (AddrType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return AddrPublic, nil
	case "random":
		return AddrRandom, nil
	case "public-id":
		return AddrPublicID, nil
	case "random-id":
		return AddrRandomID, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddrType, s)
	}
}

// AddrLE 带类型的 LE 设备地址
//
// 零值（public 全零）表示"任意地址"，在密钥池中标记空闲槽位。
type AddrLE struct {
	Type AddrType
	A    Addr
}

// AddrLEAny 任意地址
var AddrLEAny = AddrLE{}

// IsZero 是否为 AddrLEAny
func (a AddrLE) IsZero() bool {
	return a == AddrLEAny
}

// String 返回 "AA:BB:CC:DD:EE:FF (random)" 形式
func (a AddrLE) String() string {
	return a.A.String() + " (" + a.Type.String() + ")"
}

// IsRPA 是否为可解析私有地址
//
// 随机地址且最高两位为 01。
func (a AddrLE) IsRPA() bool {
	return a.Type == AddrRandom && a.A[5]&0xc0 == 0x40
}

// IsNRPA 是否为不可解析私有地址（最高两位为 00）
func (a AddrLE) IsNRPA() bool {
	return a.Type == AddrRandom && a.A[5]&0xc0 == 0x00
}

// IsStatic 是否为随机静态地址（最高两位为 11）
func (a AddrLE) IsStatic() bool {
	return a.Type == AddrRandom && a.A[5]&0xc0 == 0xc0
}

// IsIdentity 是否可作为身份地址（公共地址或随机静态地址）
func (a AddrLE) IsIdentity() bool {
	return a.Type == AddrPublic || a.IsStatic()
}

// ParseAddrLE 解析地址与类型
func ParseAddrLE(addr, typ string) (AddrLE, error) {
	t, err := ParseAddrType(typ)
	if err != nil {
		return AddrLE{}, err
	}
	a, err := ParseAddr(addr)
	if err != nil {
		return AddrLE{}, err
	}
	return AddrLE{Type: t, A: a}, nil
}
