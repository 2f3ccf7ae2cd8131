package ncaerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndIs(t *testing.T) {
	err := New(InvalidInput, "nca.Open", "bad magic")
	require.True(t, Is(err, InvalidInput))
	require.False(t, Is(err, Io))
	require.Contains(t, err.Error(), "nca.Open")
	require.Contains(t, err.Error(), "bad magic")
}

func TestWrapPreservesCauseAndNilOnNilErr(t *testing.T) {
	cause := errors.New("disk fell off")
	wrapped := Wrap(Io, "pfs0.ReadFile", cause)
	require.True(t, Is(wrapped, Io))
	require.ErrorIs(t, wrapped, cause)

	require.Nil(t, Wrap(Io, "pfs0.ReadFile", nil))
}

func TestIsFollowsWrappedChain(t *testing.T) {
	inner := New(OutOfRange, "romfs.ReadFile", "read exceeds file size")
	outer := fmt.Errorf("context: %w", inner)
	require.True(t, Is(outer, OutOfRange))
}

func TestKindString(t *testing.T) {
	require.Equal(t, "invalid input", InvalidInput.String())
	require.Equal(t, "unsupported", Unsupported.String())
	require.Equal(t, "io", Io.String())
	require.Equal(t, "out of range", OutOfRange.String())
}
