// Package ncacrypto provides the two non-standard AES modes the NCA format
// leans on: a Nintendo-tweaked AES-XTS for the header, and AES-ECB (no
// padding) for the key area / title key unwrap. AES-CTR itself is handled
// by internal/ncaio since it needs to be offset-addressable.
package ncacrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
)

// SectorSize is the fixed XTS sector size used for both the 0x400-byte NCA
// header and its four 0x200-byte section headers.
const SectorSize = 0x200

// NintendoTweak returns the big-endian 16-byte tweak for XTS sector index
// sector: the low 8 bytes are the sector number, the high 8 bytes are zero.
// This differs from the usual little-endian XTS tweak convention.
func NintendoTweak(sector uint64) [16]byte {
	var tweak [16]byte
	binary.BigEndian.PutUint64(tweak[8:], sector)
	return tweak
}

// XTSDecryptSectors decrypts data into a new slice (data itself is left
// unchanged), one SectorSize chunk at a time,
// using a 32-byte AES-128-XTS key (key1 || key2) and the Nintendo tweak,
// starting at startSector.
func XTSDecryptSectors(data []byte, key [32]byte, startSector uint64) ([]byte, error) {
	if len(data)%SectorSize != 0 {
		return nil, fmt.Errorf("ncacrypto: data length %d is not a multiple of sector size %d", len(data), SectorSize)
	}

	c1, err := aes.NewCipher(key[:16])
	if err != nil {
		return nil, err
	}
	c2, err := aes.NewCipher(key[16:])
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(data))
	for i := 0; i*SectorSize < len(data); i++ {
		start := i * SectorSize
		end := start + SectorSize
		xtsDecryptSector(out[start:end], data[start:end], c1, c2, startSector+uint64(i))
	}
	return out, nil
}

func xtsDecryptSector(dst, src []byte, c1, c2 cipher.Block, sector uint64) {
	tweak := NintendoTweak(sector)
	tweakBlock := make([]byte, 16)
	c2.Encrypt(tweakBlock, tweak[:])

	buf := make([]byte, 16)
	dec := make([]byte, 16)
	for off := 0; off < len(src); off += 16 {
		chunk := src[off : off+16]
		xorBlock(buf, chunk, tweakBlock)
		c1.Decrypt(dec, buf)
		xorBlock(dst[off:off+16], dec, tweakBlock)
		gfDouble(tweakBlock)
	}
}

func xorBlock(dst, a, b []byte) {
	for i := 0; i < 16; i++ {
		dst[i] = a[i] ^ b[i]
	}
}

// gfDouble multiplies a 16-byte tweak by the polynomial x in GF(2^128),
// the standard XTS tweak update (reduction modulus 0x87 on overflow).
func gfDouble(tweak []byte) {
	var carry byte
	for i := 0; i < 16; i++ {
		next := tweak[i] >> 7
		tweak[i] = (tweak[i] << 1) | carry
		carry = next
	}
	if carry != 0 {
		tweak[0] ^= 0x87
	}
}
