package vfs

import (
	"bytes"
	"io"
	"testing"

	"github.com/oneconcern/stablebench/pkg/errors"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFS(t testing.TB) *FS {
	t.Helper()
	return New(afero.NewBasePathFs(afero.NewOsFs(), t.TempDir()))
}

func TestWriteReadVec(t *testing.T) {
	for name, fs := range map[string]*FS{
		"mem": New(afero.NewMemMapFs()),
		"os":  setupFS(t),
	} {
		fs := fs
		t.Run(name, func(t *testing.T) {
			fd, err := fs.OpenOrCreate(fs.RootFd(), "buffer.txt", Create)
			require.NoError(t, err)

			n, err := fs.WriteVec(fd, [][]byte{[]byte("abc"), []byte("1234567")})
			require.NoError(t, err)
			assert.Equal(t, 10, n)

			md, err := fs.Metadata(fd)
			require.NoError(t, err)
			assert.Equal(t, int64(10), md.Size)
			assert.Equal(t, RegularFile, md.Kind)

			_, err = fs.Seek(fd, 0, io.SeekStart)
			require.NoError(t, err)

			a, b := make([]byte, 4), make([]byte, 10)
			n, err = fs.ReadVec(fd, [][]byte{a, b})
			require.NoError(t, err)
			assert.Equal(t, 10, n)
			assert.Equal(t, "abc1", string(a))
			assert.True(t, bytes.HasPrefix(b, []byte("234567")))

			require.NoError(t, fs.Close(fd))
			_, err = fs.WriteVec(fd, [][]byte{[]byte("x")})
			assert.True(t, errors.Is(err, ErrBadFd))
			assert.Equal(t, 1, fs.Open())
		})
	}
}

func TestOverwriteKeepsSize(t *testing.T) {
	fs := setupFS(t)
	fd, err := fs.OpenOrCreate(RootFd, "f", Create)
	require.NoError(t, err)
	_, err = fs.WriteVec(fd, [][]byte{[]byte("0123456789")})
	require.NoError(t, err)
	require.NoError(t, fs.Close(fd))

	fd, err = fs.OpenOrCreate(RootFd, "f", Create)
	require.NoError(t, err)
	_, err = fs.WriteVec(fd, [][]byte{[]byte("ab")})
	require.NoError(t, err)
	md, err := fs.Metadata(fd)
	require.NoError(t, err)
	assert.Equal(t, int64(10), md.Size)
	require.NoError(t, fs.Close(fd))

	fd, err = fs.OpenOrCreate(RootFd, "f", Create|Truncate)
	require.NoError(t, err)
	md, err = fs.Metadata(fd)
	require.NoError(t, err)
	assert.Zero(t, md.Size)
}

func TestDirectories(t *testing.T) {
	fs := New(afero.NewMemMapFs())
	require.NoError(t, fs.CreateDirAll("dir1/sub"))
	require.NoError(t, fs.CreateDirAll("dir0"))

	names, err := fs.ReadDir("/")
	require.NoError(t, err)
	assert.Equal(t, []string{"dir0", "dir1"}, names)

	dir, err := fs.OpenOrCreate(RootFd, "dir1", 0)
	require.NoError(t, err)
	md, err := fs.Metadata(dir)
	require.NoError(t, err)
	assert.Equal(t, Directory, md.Kind)

	fd, err := fs.OpenOrCreate(dir, "inner.txt", Create)
	require.NoError(t, err)
	md, err = fs.Metadata(fd)
	require.NoError(t, err)
	assert.Equal(t, "/dir1/inner.txt", md.Name)

	_, err = fs.OpenOrCreate(fd, "nested", Create)
	assert.True(t, errors.Is(err, ErrNotDir))

	_, err = fs.Seek(dir, 0, io.SeekStart)
	assert.True(t, errors.Is(err, ErrBadFd))

	_, err = fs.OpenOrCreate(RootFd, "missing", 0)
	assert.Error(t, err)

	require.NoError(t, fs.Close(RootFd))
	assert.Equal(t, 3, fs.Open())
}
