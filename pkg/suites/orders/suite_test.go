package orders

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

func setupSuite(t testing.TB) *Suite {
	t.Helper()
	env, err := stable.Open(t.TempDir(), stable.KindDisk, zap.NewNop())
	require.NoError(t, err)
	s, err := New(context.Background(), env, config.Default(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
		_ = env.Close()
	})
	return s
}

func TestOrderArithmetic(t *testing.T) {
	assert.Equal(t, uint64(14), OrderUser(0, 0, 100))
	assert.Equal(t, uint64(27), OrderUser(0, 1, 100))
	assert.Equal(t, uint64(1), OrderUser(0, 99, 100))
	assert.Equal(t, uint64(7), OrderAmount(1))
	assert.Equal(t, uint64(78), OrderAmount(10))
}

func TestUsersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := setupSuite(t)

	require.NoError(t, s.AddUsers(ctx, 0, 10))
	require.NoError(t, s.AddOrders(ctx, 0, 100, 10))
	require.NoError(t, s.CreateIndices(ctx))
	require.Error(t, s.AddOrders(ctx, 0, 1, 0))

	rows, err := s.Query(ctx, "SELECT username, email FROM users WHERE user_id = 3")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "user3", *rows[0][0])
	assert.Equal(t, "user3@example.com", *rows[0][1])

	rows, err = s.Query(ctx, "SELECT user_id, amount FROM orders WHERE order_id = 1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "4", *rows[0][0])
	assert.Equal(t, "31", *rows[0][1])

	rows, err = s.Query(ctx, "SELECT name FROM sqlite_schema WHERE type = 'index' AND name LIKE 'idx_%' ORDER BY name")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "idx_orders_user_id", *rows[0][0])
	assert.Equal(t, "idx_users_email", *rows[1][0])

	require.NoError(t, s.ExpectOrders(ctx, 100))
	assert.ErrorIs(t, s.ExpectOrders(ctx, 99), ErrBadCount)

	inside, err := s.DeleteAndRollback(ctx, 90)
	require.NoError(t, err)
	assert.Equal(t, int64(90), inside)
	require.NoError(t, s.ExpectOrders(ctx, 100))

	require.NoError(t, s.Execute(ctx, "DELETE FROM orders WHERE user_id <= 5"))
	n, err := s.CountOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), n)
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := setupSuite(t).Service()

	res := svc.CallArgs(ctx, "add_users", rpc.MustArgs(0, 5))
	require.NoError(t, res.Failure())
	assert.Equal(t, "add_users OK", res.Ok)

	res = svc.CallArgs(ctx, "add_orders", rpc.MustArgs(0, 20, 5))
	require.NoError(t, res.Failure())

	res = svc.CallArgs(ctx, "query", rpc.MustArgs("SELECT COUNT(*) FROM orders"))
	require.NoError(t, res.Failure())
	rows, ok := res.Ok.([][]*string)
	require.True(t, ok)
	assert.Equal(t, "20", *rows[0][0])

	res = svc.CallArgs(ctx, "query", rpc.MustArgs("SELECT * FROM nowhere"))
	require.Error(t, res.Failure())
	assert.Contains(t, res.Err.Message, "nowhere")
}

func TestBenchmarks(t *testing.T) {
	r := bench.NewRegistry()
	Register(r)
	require.Len(t, r.All(), 9)

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Memory = config.MemoryDisk
	cfg.Scale = 1000

	runner := bench.NewRunner(cfg, meter.ClockCounter{})
	results, failures, err := runner.Run(context.Background(), r.All())
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Len(t, results.Benches, 9)
}
