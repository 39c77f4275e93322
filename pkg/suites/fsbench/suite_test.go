package fsbench

import (
	"context"
	"testing"

	"github.com/oneconcern/stablebench/pkg/bench"
	"github.com/oneconcern/stablebench/pkg/config"
	"github.com/oneconcern/stablebench/pkg/meter"
	"github.com/oneconcern/stablebench/pkg/rpc"
	"github.com/oneconcern/stablebench/pkg/stable"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupSuite(t testing.TB, kind string) *Suite {
	t.Helper()
	env, err := stable.Open(t.TempDir(), kind, zap.NewNop())
	require.NoError(t, err)
	s, err := New(context.Background(), env, config.Default(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
		_ = env.Close()
	})
	return s
}

func TestBuffer(t *testing.T) {
	s := setupSuite(t, stable.KindMem)

	n, err := s.CheckBuffer(text, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Equal(t, 30, s.AppendBuffer(text, 3))
	n, err = s.CheckBuffer(text, 3)
	require.NoError(t, err)
	assert.Equal(t, 30, n)

	_, err = s.CheckBuffer(text, 2)
	assert.ErrorIs(t, err, ErrBufferMismatch)
	_, err = s.CheckBuffer("xyz1234567", 3)
	assert.ErrorIs(t, err, ErrBufferMismatch)

	part, err := s.ReadBuffer(8, 5)
	require.NoError(t, err)
	assert.Equal(t, "67abc", part)
	_, err = s.ReadBuffer(28, 5)
	assert.ErrorIs(t, err, ErrOutOfRange)

	backing := s.Buffer()[:30]
	s.ClearBuffer()
	assert.Empty(t, s.Buffer())
	assert.Equal(t, make([]byte, 30), backing)
}

func TestStoreAndLoad(t *testing.T) {
	for _, kind := range []string{stable.KindMem, stable.KindDisk} {
		t.Run(kind, func(t *testing.T) {
			ctx := context.Background()
			s := setupSuite(t, kind)
			const reps = 2550
			s.AppendBuffer(text, reps)
			total := len(text) * reps

			n, err := s.StoreBuffer("whole")
			require.NoError(t, err)
			assert.Equal(t, total, n)

			_, n, err = s.StoreBufferInSegments(ctx, "segments")
			require.NoError(t, err)
			assert.Equal(t, total, n)

			size, err := s.FileSize("segments")
			require.NoError(t, err)
			assert.Equal(t, int64(total), size)

			size, err = s.FileSize("missing")
			require.NoError(t, err)
			assert.Zero(t, size)

			s.ClearBuffer()
			_, n, err = s.LoadBuffer(ctx, "whole")
			require.NoError(t, err)
			assert.Equal(t, total, n)
			_, err = s.CheckBuffer(text, reps)
			require.NoError(t, err)

			s.ClearBuffer()
			_, n, err = s.LoadBufferInSegments(ctx, "segments")
			require.NoError(t, err)
			assert.Equal(t, total, n)
			_, err = s.CheckBuffer(text, reps)
			require.NoError(t, err)

			assert.Equal(t, 1, s.FS().Open())
		})
	}
}

func TestTenFiles(t *testing.T) {
	ctx := context.Background()
	s := setupSuite(t, stable.KindMem)
	reps := Times(config.Config{Scale: 1000000, FS: config.Default().FS}) * 3
	s.AppendBuffer(text, reps)

	_, n, err := s.StoreBufferInSegments10Files(ctx, "split")
	require.NoError(t, err)
	assert.Equal(t, len(text)*reps, n)

	for i := 0; i < 10; i++ {
		size, err := s.FileSize("split" + string(rune('0'+i)))
		require.NoError(t, err)
		assert.Equal(t, int64(len(text)*reps/10), size)
	}

	s.ClearBuffer()
	_, n, err = s.LoadBufferInSegments10Files(ctx, "split")
	require.NoError(t, err)
	assert.Equal(t, len(text)*reps, n)
	_, err = s.CheckBuffer(text, reps)
	require.NoError(t, err)
}

func TestTimes(t *testing.T) {
	assert.Equal(t, times, Times(config.Default()))

	cfg := config.Default()
	cfg.Scale = 3
	n := Times(cfg)
	assert.Zero(t, (n*len(text))%(cfg.FS.SegmentSize*cfg.FS.FilesCount))

	cfg.Scale = 1 << 30
	assert.Equal(t, 1000, Times(cfg))
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := setupSuite(t, stable.KindMem).Service()

	res := svc.CallArgs(ctx, "append_buffer", rpc.MustArgs(text, 200))
	require.NoError(t, res.Failure())
	assert.EqualValues(t, 2000, res.Ok)

	res = svc.CallArgs(ctx, "store_buffer_in_segments", rpc.MustArgs("f"))
	require.NoError(t, res.Failure())
	out, ok := res.Ok.([]uint64)
	require.True(t, ok)
	assert.Equal(t, uint64(2000), out[1])

	res = svc.CallArgs(ctx, "file_size", rpc.MustArgs("f"))
	require.NoError(t, res.Failure())
	assert.EqualValues(t, 2000, res.Ok)

	res = svc.CallArgs(ctx, "read_buffer", rpc.MustArgs(1990, 20))
	require.Error(t, res.Failure())
	require.NotNil(t, res.Err)
	assert.Equal(t, rpc.CanisterError, res.Err.Kind)

	res = svc.CallArgs(ctx, "check_buffer", rpc.MustArgs(text, 200))
	require.NoError(t, res.Failure())
}

func TestBenchmarks(t *testing.T) {
	r := bench.NewRegistry()
	Register(r)
	require.Len(t, r.All(), 9)

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Memory = config.MemoryMem
	cfg.Scale = 10000

	runner := bench.NewRunner(cfg, meter.ClockCounter{})
	results, failures, err := runner.Run(context.Background(), r.All())
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Len(t, results.Benches, 9)
}
