package pfs0

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/falk/nca-go/ncaerr"
)

// buildFixture assembles a minimal valid PFS0 image with the given file
// contents, keyed by name, preserving the order given.
func buildFixture(t *testing.T, names []string, data [][]byte) []byte {
	t.Helper()
	require.Equal(t, len(names), len(data))

	var stringTable []byte
	stringOffsets := make([]uint32, len(names))
	for i, name := range names {
		stringOffsets[i] = uint32(len(stringTable))
		stringTable = append(stringTable, []byte(name)...)
		stringTable = append(stringTable, 0)
	}

	var fileData []byte
	entryOffsets := make([]uint64, len(data))
	for i, d := range data {
		entryOffsets[i] = uint64(len(fileData))
		fileData = append(fileData, d...)
	}

	header := make([]byte, headerSize)
	copy(header[0:4], magic)
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(names)))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(stringTable)))

	var entries []byte
	for i := range names {
		e := make([]byte, entrySize)
		binary.LittleEndian.PutUint64(e[0:8], entryOffsets[i])
		binary.LittleEndian.PutUint64(e[8:16], uint64(len(data[i])))
		binary.LittleEndian.PutUint32(e[16:20], stringOffsets[i])
		entries = append(entries, e...)
	}

	var out []byte
	out = append(out, header...)
	out = append(out, entries...)
	out = append(out, stringTable...)
	out = append(out, fileData...)
	return out
}

func TestOpenAndListFiles(t *testing.T) {
	fixture := buildFixture(t,
		[]string{"main.npdm", "romfs.bin"},
		[][]byte{[]byte("npdm-content"), []byte("romfs-content-bytes")})

	r, err := Open(bytes.NewReader(fixture))
	require.NoError(t, err)
	require.Equal(t, []string{"main.npdm", "romfs.bin"}, r.ListFiles())
}

func TestReadFileReturnsExactBytesNotShiftedBySize(t *testing.T) {
	// Regression guard for the upstream PFS0 reader bug this package
	// deliberately does not reproduce: adding entry.size to the base
	// read offset would make this test read past "first"'s own bytes.
	fixture := buildFixture(t,
		[]string{"first", "second"},
		[][]byte{[]byte("AAAA"), []byte("BBBBBBBB")})

	r, err := Open(bytes.NewReader(fixture))
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, err := r.ReadFile(0, 0, buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []byte("AAAA"), buf)

	buf2 := make([]byte, 8)
	n, err = r.ReadFile(1, 0, buf2)
	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, []byte("BBBBBBBB"), buf2)
}

func TestReadFilePartialOffset(t *testing.T) {
	fixture := buildFixture(t, []string{"f"}, [][]byte{[]byte("0123456789")})
	r, err := Open(bytes.NewReader(fixture))
	require.NoError(t, err)

	buf := make([]byte, 4)
	n, err := r.ReadFile(0, 3, buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []byte("3456"), buf)
}

func TestReadFileRejectsOutOfRange(t *testing.T) {
	fixture := buildFixture(t, []string{"f"}, [][]byte{[]byte("0123456789")})
	r, err := Open(bytes.NewReader(fixture))
	require.NoError(t, err)

	buf := make([]byte, 100)
	_, err = r.ReadFile(0, 0, buf)
	require.True(t, ncaerr.Is(err, ncaerr.OutOfRange))
}

func TestFileSizeRejectsBadIndex(t *testing.T) {
	fixture := buildFixture(t, []string{"f"}, [][]byte{[]byte("x")})
	r, err := Open(bytes.NewReader(fixture))
	require.NoError(t, err)

	_, err = r.FileSize(5)
	require.True(t, ncaerr.Is(err, ncaerr.InvalidInput))
}

func TestOpenRejectsBadMagic(t *testing.T) {
	bad := make([]byte, headerSize)
	copy(bad[0:4], "XXXX")
	_, err := Open(bytes.NewReader(bad))
	require.True(t, ncaerr.Is(err, ncaerr.InvalidInput))
}
