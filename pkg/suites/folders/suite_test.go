package folders

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

func TestGreet(t *testing.T) {
	s := setupSuite(t, stable.KindMem)
	assert.Equal(t, "Hello from WASI: Alice", s.Greet("Alice"))
}

func TestFolders(t *testing.T) {
	for _, kind := range []string{stable.KindMem, stable.KindDisk} {
		t.Run(kind, func(t *testing.T) {
			s := setupSuite(t, kind)

			require.NoError(t, s.CreateFolders("dir", 3))
			require.NoError(t, s.CreateFolders("dir2/sub", 2))
			// creating again is not an error
			require.NoError(t, s.CreateFolders("dir", 3))

			assert.Equal(t, []string{"dir0", "dir1", "dir2"}, s.ListFolders("."))
			assert.Equal(t, []string{"sub0", "sub1"}, s.ListFolders("dir2"))
			assert.Empty(t, s.ListFolders("dir0"))
			assert.Empty(t, s.ListFolders("missing"))
			assert.NotNil(t, s.ListFolders("missing"))
		})
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := setupSuite(t, stable.KindMem).Service()

	res := svc.CallArgs(ctx, "greet", rpc.MustArgs("Bob"))
	require.NoError(t, res.Failure())
	assert.Equal(t, "Hello from WASI: Bob", res.Ok)

	res = svc.CallArgs(ctx, "create_folders", rpc.MustArgs("d", 2))
	require.NoError(t, res.Failure())

	res = svc.CallArgs(ctx, "list_folders", rpc.MustArgs("/"))
	require.NoError(t, res.Failure())
	assert.Equal(t, []string{"d0", "d1"}, res.Ok)
}

func TestBenchmarks(t *testing.T) {
	r := bench.NewRegistry()
	Register(r)
	require.Len(t, r.All(), 3)

	for _, memory := range []string{config.MemoryMem, config.MemoryDisk} {
		cfg := config.Default()
		cfg.DataDir = t.TempDir()
		cfg.Memory = memory
		cfg.Scale = 10

		runner := bench.NewRunner(cfg, meter.ClockCounter{})
		results, failures, err := runner.Run(context.Background(), r.All())
		require.NoError(t, err)
		assert.Empty(t, failures, memory)
		assert.Len(t, results.Benches, 3, memory)
	}
}
