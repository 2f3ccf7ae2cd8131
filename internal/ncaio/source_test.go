package ncaio

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSourceReadAtSeeksAndReads(t *testing.T) {
	backing := bytes.NewReader([]byte("0123456789abcdef"))
	src := NewSource(backing)

	buf := make([]byte, 4)
	n, err := src.ReadAt(buf, 10)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []byte("abcd"), buf)

	// A second read at an earlier offset must not be disturbed by the first.
	n, err = src.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []byte("0123"), buf)
}

func TestSourceReadExactShortRead(t *testing.T) {
	backing := bytes.NewReader([]byte("short"))
	src := NewSource(backing)

	buf := make([]byte, 10)
	err := src.ReadExact(buf, 0)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestFromReaderAtDelegates(t *testing.T) {
	backing := bytes.NewReader([]byte("hello world"))
	rs := FromReaderAt(backing)

	buf := make([]byte, 5)
	n, err := rs.ReadAt(buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, []byte("world"), buf)
}
