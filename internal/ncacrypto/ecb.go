package ncacrypto

import (
	"crypto/aes"
	"fmt"
)

// ECBDecrypt decrypts data (a multiple of the AES block size) with AES-ECB
// and no padding. ECB is unauthenticated and reveals block-level patterns,
// but it is how the Switch wraps the key-area and title-key blocks, and
// those blocks are short: one AES block for a title key, four for the
// 0x40-byte key area.
func ECBDecrypt(data, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	if len(data)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("ncacrypto: ECB input length %d is not a multiple of the block size", len(data))
	}

	out := make([]byte, len(data))
	for i := 0; i < len(data); i += block.BlockSize() {
		block.Decrypt(out[i:i+block.BlockSize()], data[i:i+block.BlockSize()])
	}
	return out, nil
}
