package ncacrypto

import (
	"crypto/aes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestECBRoundTrip(t *testing.T) {
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i * 3)
	}
	plain := []byte("0123456789ABCDEF0123456789ABCDEF")[:32]

	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	cipherText := make([]byte, len(plain))
	for i := 0; i < len(plain); i += block.BlockSize() {
		block.Encrypt(cipherText[i:i+block.BlockSize()], plain[i:i+block.BlockSize()])
	}

	decrypted, err := ECBDecrypt(cipherText, key)
	require.NoError(t, err)
	require.Equal(t, plain, decrypted)
}

func TestECBDecryptRejectsUnalignedInput(t *testing.T) {
	key := make([]byte, 16)
	_, err := ECBDecrypt(make([]byte, 17), key)
	require.Error(t, err)
}
