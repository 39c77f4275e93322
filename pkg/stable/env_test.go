package stable

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/oneconcern/stablebench/pkg/errors"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnvDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	env, err := Open(dir, KindDisk, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = env.Close() }()

	assert.Equal(t, KindDisk, env.Kind())

	fs, err := env.Fs(3)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "file.bin", make([]byte, 1000), 0600))

	// the virtual file system view lives in the OS directory of the memory
	osDir, err := env.Dir(3)
	require.NoError(t, err)
	fi, err := os.Stat(filepath.Join(osDir, "file.bin"))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), fi.Size())

	usage, err := env.UsageOf(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), usage)

	other, err := env.Dir(4)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(other, "db"), make([]byte, 24), 0600))

	usage, err = env.Usage()
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), usage)
}

func TestEnvMem(t *testing.T) {
	env, err := Open(t.TempDir(), KindMem, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = env.Destroy() }()

	fs, err := env.Fs(0)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "a/b.txt", []byte("hello"), 0600))

	// in-memory files never reach the disk
	osDir, err := env.Dir(0)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(osDir, "a", "b.txt"))
	assert.True(t, os.IsNotExist(err))

	usage, err := env.UsageOf(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), usage)

	usage, err = env.Usage()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), usage)
}

func TestEnvLocked(t *testing.T) {
	dir := t.TempDir()
	env, err := Open(dir, KindDisk, nil)
	require.NoError(t, err)

	_, err = Open(dir, KindDisk, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))

	require.NoError(t, env.Close())
	require.NoError(t, env.Close())

	again, err := Open(dir, KindDisk, nil)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestFresh(t *testing.T) {
	parent := t.TempDir()
	a, err := Fresh(parent, KindDisk, nil)
	require.NoError(t, err)
	b, err := Fresh(parent, KindDisk, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.Root(), b.Root())

	require.NoError(t, a.Destroy())
	require.NoError(t, b.Destroy())
	_, err = os.Stat(a.Root())
	assert.True(t, os.IsNotExist(err))

	_, err = Open(parent, "tape", nil)
	assert.True(t, errors.Is(err, ErrUnknownKind))
}
