// Package keyset loads and derives the key material an NCA needs to
// decrypt itself. Reading the keyset file is the "external collaborator"
// spec.md describes; this package exists only so nca.Open has a concrete
// type to take as a parameter, and so the derivation chain (itself part of
// the documented key-area/title-key flow) has somewhere to live.
package keyset

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/falk/nca-go/internal/ncacrypto"
)

// MaxKeyGeneration bounds the per-generation key arrays. The Switch has
// never shipped more than a few dozen master key generations; 32 mirrors
// the array size used throughout the community key-derivation tooling.
const MaxKeyGeneration = 32

// Keyset holds the header key and the per-key-generation arrays nca.Open
// needs: key area keys (one array per KeyAreaEncryptionKeyIndex) and title
// key encryption keys ("titlekeks").
type Keyset struct {
	HeaderKey [32]byte

	KeyAreaKeysApplication [MaxKeyGeneration]*[16]byte
	KeyAreaKeysOcean       [MaxKeyGeneration]*[16]byte
	KeyAreaKeysSystem      [MaxKeyGeneration]*[16]byte
	TitleKeyEncryptionKeys [MaxKeyGeneration]*[16]byte

	raw map[string][]byte
}

// Load reads a flat `name = hex` key file (the same format community
// keysets like prod.keys use) from fsys, the way bodgit-wud reads its key
// files through afero instead of bare os.Open/os.ReadFile.
func Load(fsys afero.Fs, path string) (*Keyset, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ks := &Keyset{raw: make(map[string][]byte)}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		value, err := hex.DecodeString(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}
		ks.raw[name] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if hk, ok := ks.raw["header_key"]; ok && len(hk) == 32 {
		copy(ks.HeaderKey[:], hk)
	}

	return ks, nil
}

func (ks *Keyset) rawKey(name string) []byte {
	if ks.raw == nil {
		return nil
	}
	return ks.raw[name]
}

func to16(b []byte) *[16]byte {
	if len(b) != 16 {
		return nil
	}
	var out [16]byte
	copy(out[:], b)
	return &out
}

// generateKek reproduces the Switch's key-encryption-key derivation chain:
// two or three nested ECB decrypts chaining a master key through a
// generation source, a kek seed, and (optionally) a key seed.
func generateKek(src, masterKey, kekSeed, keySeed []byte) ([]byte, error) {
	kek, err := ncacrypto.ECBDecrypt(kekSeed, masterKey)
	if err != nil {
		return nil, err
	}
	srcKek, err := ncacrypto.ECBDecrypt(src, kek)
	if err != nil {
		return nil, err
	}
	if keySeed != nil {
		return ncacrypto.ECBDecrypt(keySeed, srcKek)
	}
	return srcKek, nil
}

// Derive computes the per-generation key area keys and title keks from the
// master keys and generation sources loaded by Load. It is a no-op (not an
// error) for any generation whose master key wasn't present in the file —
// nca.Open reports a precise InvalidInput only for the generation an
// archive actually needs.
func (ks *Keyset) Derive() error {
	aesKekGen := ks.rawKey("aes_kek_generation_source")
	aesKeyGen := ks.rawKey("aes_key_generation_source")
	titleKekSource := ks.rawKey("titlekek_source")

	areaSources := [3][]byte{
		ks.rawKey("key_area_key_application_source"),
		ks.rawKey("key_area_key_ocean_source"),
		ks.rawKey("key_area_key_system_source"),
	}

	if aesKekGen == nil || aesKeyGen == nil {
		return fmt.Errorf("keyset: missing aes_k*_generation_source, cannot derive key area keys")
	}

	for gen := 0; gen < MaxKeyGeneration; gen++ {
		masterKey := ks.rawKey(fmt.Sprintf("master_key_%02x", gen))
		if masterKey == nil {
			continue
		}

		if titleKekSource != nil {
			if tk, err := ncacrypto.ECBDecrypt(titleKekSource, masterKey); err == nil {
				ks.TitleKeyEncryptionKeys[gen] = to16(tk)
			}
		}

		dests := [3]*[MaxKeyGeneration]*[16]byte{&ks.KeyAreaKeysApplication, &ks.KeyAreaKeysOcean, &ks.KeyAreaKeysSystem}
		for i, source := range areaSources {
			if source == nil {
				continue
			}
			kak, err := generateKek(source, masterKey, aesKekGen, aesKeyGen)
			if err != nil {
				continue
			}
			dests[i][gen] = to16(kak)
		}
	}

	return nil
}
