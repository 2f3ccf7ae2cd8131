package keyset

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func writeKeysFile(t *testing.T, fsys afero.Fs, path, contents string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, path, []byte(contents), 0o644))
}

func TestLoadParsesHeaderKeyAndSkipsCommentsAndBlankLines(t *testing.T) {
	fsys := afero.NewMemMapFs()
	headerKey := strings.Repeat("ab", 32)
	contents := "# a comment\n\n" +
		"header_key = " + headerKey + "\n" +
		"not_a_key_line_without_equals\n"
	writeKeysFile(t, fsys, "prod.keys", contents)

	ks, err := Load(fsys, "prod.keys")
	require.NoError(t, err)
	require.Equal(t, headerKey, hexOf(ks.HeaderKey[:]))
}

func TestLoadMissingFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	_, err := Load(fsys, "missing.keys")
	require.Error(t, err)
}

func TestDeriveRequiresGenerationSources(t *testing.T) {
	ks := &Keyset{raw: map[string][]byte{
		"master_key_00": bytesOfLen(16, 0x11),
	}}
	err := ks.Derive()
	require.Error(t, err)
}

func TestDeriveComputesKeyAreaKeysForPresentGenerations(t *testing.T) {
	fsys := afero.NewMemMapFs()
	masterKey0 := strings.Repeat("11", 16)
	kekGen := strings.Repeat("22", 16)
	keyGen := strings.Repeat("33", 16)
	areaAppSource := strings.Repeat("44", 16)
	titlekekSource := strings.Repeat("55", 16)

	contents := "master_key_00 = " + masterKey0 + "\n" +
		"aes_kek_generation_source = " + kekGen + "\n" +
		"aes_key_generation_source = " + keyGen + "\n" +
		"key_area_key_application_source = " + areaAppSource + "\n" +
		"titlekek_source = " + titlekekSource + "\n"
	writeKeysFile(t, fsys, "prod.keys", contents)

	ks, err := Load(fsys, "prod.keys")
	require.NoError(t, err)
	require.NoError(t, ks.Derive())

	require.NotNil(t, ks.KeyAreaKeysApplication[0])
	require.NotNil(t, ks.TitleKeyEncryptionKeys[0])
	require.Nil(t, ks.KeyAreaKeysOcean[0], "no ocean source was supplied")

	// Generation 1 was never present in the file.
	require.Nil(t, ks.KeyAreaKeysApplication[1])
}

func hexOf(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0xF]
	}
	return string(out)
}

func bytesOfLen(n int, fill byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = fill
	}
	return out
}
