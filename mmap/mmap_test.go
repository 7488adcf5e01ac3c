package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenGrowsAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "region.bin")

	r, err := Open(path, true, 64)
	require.NoError(t, err)
	require.Len(t, r.Bytes(), 64)

	copy(r.Bytes(), "persisted")
	require.NoError(t, r.Sync())
	require.NoError(t, r.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, 64)
	require.Equal(t, "persisted", string(raw[:9]))
}

func TestOpenExistingReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.bin")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3, 4}, 0o644))

	r, err := Open(path, false, 0)
	require.NoError(t, err)
	defer r.Close()
	require.Equal(t, []byte{1, 2, 3, 4}, r.Bytes())
}

func TestOpenMissingReadOnly(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.bin"), false, 0)
	require.Error(t, err)
}

func TestZeroLengthFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	r, err := Open(path, false, 0)
	require.NoError(t, err, "a zero-length file yields an empty, unmapped region")
	require.Empty(t, r.Bytes())
	require.NoError(t, r.Sync())
	require.NoError(t, r.Close())
}
