// Package rpa 实现可解析私有地址（RPA）的生成与匹配
//
// 地址哈希函数 ah(k, r) = e(k, r') mod 2^24，其中 r' = padding || r，
// e 为 AES-128。所有字节数组按控制器线格式（小端）传入，
// 加密前后按大端翻转，与控制器 LE Encrypt 命令一致。
package rpa

import (
	"crypto/aes"
	"crypto/rand"
	"crypto/subtle"
	"errors"

	"github.com/dep2p/go-blekeys/pkg/types"
)

// IRKLen 身份解析密钥长度
const IRKLen = 16

// ErrRandom 随机数生成失败
var ErrRandom = errors.New("rpa: random source failed")

// EncryptLE 以小端字节序执行 AES-128 加密
//
// key 与 plaintext 均为小端表示，返回小端密文。
func EncryptLE(key, plaintext [16]byte) [16]byte {
	var k, p, out [16]byte
	swap(k[:], key[:])
	swap(p[:], plaintext[:])

	// 密钥长度固定为 16，aes.NewCipher 不会失败
	block, _ := aes.NewCipher(k[:])
	block.Encrypt(out[:], p[:])

	var le [16]byte
	swap(le[:], out[:])
	return le
}

// Hash 计算 ah(irk, prand)，返回 24 位哈希（小端）
func Hash(irk [IRKLen]byte, prand [3]byte) [3]byte {
	var r [16]byte
	copy(r[:3], prand[:])

	res := EncryptLE(irk, r)

	var out [3]byte
	copy(out[:], res[:3])
	return out
}

// IRKMatches 判断地址是否由该 IRK 生成
//
// 地址高 3 字节为 prand，低 3 字节为 hash。
func IRKMatches(irk [IRKLen]byte, addr types.Addr) bool {
	var prand [3]byte
	copy(prand[:], addr[3:])

	hash := Hash(irk, prand)
	return subtle.ConstantTimeCompare(hash[:], addr[:3]) == 1
}

// Create 使用 IRK 生成新的可解析私有地址
func Create(irk [IRKLen]byte) (types.AddrLE, error) {
	var prand [3]byte
	if _, err := rand.Read(prand[:]); err != nil {
		return types.AddrLE{}, ErrRandom
	}
	return FromPrand(irk, prand), nil
}

// FromPrand 使用给定 prand 生成可解析私有地址
//
// prand 最高两位被强制为 01。
func FromPrand(irk [IRKLen]byte, prand [3]byte) types.AddrLE {
	prand[2] &= 0x3f
	prand[2] |= 0x40

	hash := Hash(irk, prand)

	var a types.Addr
	copy(a[:3], hash[:])
	copy(a[3:], prand[:])
	return types.AddrLE{Type: types.AddrRandom, A: a}
}

// swap 字节翻转拷贝
func swap(dst, src []byte) {
	n := len(src)
	for i := 0; i < n; i++ {
		dst[i] = src[n-1-i]
	}
}
