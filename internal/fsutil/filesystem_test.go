package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystem_Exists(t *testing.T) {
	osfs := OSFileSystem{}

	assert.True(t, osfs.Exists("filesystem.go"))
	assert.False(t, osfs.Exists("nonexistent_file_xyz.go"))
}

func TestOSFileSystem_CreateExclusive(t *testing.T) {
	osfs := OSFileSystem{}
	path := filepath.Join(t.TempDir(), "out.csv")

	w, err := osfs.CreateExclusive(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, "species\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = osfs.CreateExclusive(path)
	assert.True(t, errors.Is(err, fs.ErrExist), "existing output must not be replaced")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "species\n", string(data))

	require.NoError(t, osfs.Remove(path))
	assert.False(t, osfs.Exists(path))
}

func TestMemoryFileSystem_OpenAndRead(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/in/trees.csv", []byte("hello, world"))

	f, err := mfs.Open("/in/../in/trees.csv")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", string(data))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, "trees.csv", info.Name())
	assert.Equal(t, int64(12), info.Size())

	_, err = mfs.ReadFile("/missing.csv")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, err = mfs.Open("/missing.csv")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestMemoryFileSystem_CreateExclusive(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.CreateExclusive("/out.csv")
	require.NoError(t, err)
	assert.True(t, mfs.Exists("/out.csv"), "name is reserved before Close")

	_, err = mfs.CreateExclusive("/out.csv")
	assert.True(t, errors.Is(err, fs.ErrExist))

	_, err = w.Write([]byte("a,b\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := mfs.ReadFile("/out.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data))
}

func TestMemoryFileSystem_Remove(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/a", []byte("x"))

	require.NoError(t, mfs.Remove("/a"))
	assert.False(t, mfs.Exists("/a"))
	assert.True(t, errors.Is(mfs.Remove("/a"), fs.ErrNotExist))
}

func TestMemoryFileSystem_ReadReturnsCopy(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.WriteFile("/a", []byte("abc"))

	data, err := mfs.ReadFile("/a")
	require.NoError(t, err)
	data[0] = 'z'

	again, err := mfs.ReadFile("/a")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(again))
}
