package person

import (
	"context"
	"strings"
	"testing"

	"github.com/oneconcern/stablebench/pkg/bench"
	"github.com/oneconcern/stablebench/pkg/config"
	"github.com/oneconcern/stablebench/pkg/meter"
	"github.com/oneconcern/stablebench/pkg/rpc"
	"github.com/oneconcern/stablebench/pkg/stable"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupSuite(t testing.TB, logger *zap.Logger) *Suite {
	t.Helper()
	env, err := stable.Open(t.TempDir(), stable.KindDisk, zap.NewNop())
	require.NoError(t, err)
	s, err := New(context.Background(), env, config.Default(), logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
		_ = env.Close()
	})
	return s
}

func TestNewPerson(t *testing.T) {
	p := Persons.NewPerson(13)
	assert.Equal(t, Person{ID: 13, Name: "person13", Age: 21, Gender: 1}, p)

	p = Persons2.NewPerson(20)
	assert.Equal(t, "person220", p.Name)
	assert.Equal(t, uint32(18), p.Age)
	assert.Equal(t, uint8(0), p.Gender)
	assert.Len(t, p.Data, 2048)
	assert.True(t, strings.HasPrefix(p.Data, "0a0a"))
}

func TestCRUD(t *testing.T) {
	for _, table := range []Table{Persons, Persons2} {
		t.Run(table.Name, func(t *testing.T) {
			ctx := context.Background()
			s := setupSuite(t, zap.NewNop())

			msg, err := s.Insert(ctx, table, 0, 20)
			require.NoError(t, err)
			assert.Equal(t, table.Prefix+"_insert_"+table.Name+" OK", msg)

			msg, err = s.InsertOne(ctx, table, 20)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(msg, "insert performance_counter: "))

			persons, err := s.Select(ctx, table, "WHERE id = ?1", 21)
			require.NoError(t, err)
			require.Len(t, persons, 1)
			assert.Equal(t, table.NewPerson(21), persons[0])

			persons, err = s.Select(ctx, table, "WHERE name LIKE ?1", table.PersonName(1)+"%")
			require.NoError(t, err)
			assert.Len(t, persons, 11)

			_, err = s.UpdateByID(ctx, table, 4)
			require.NoError(t, err)
			_, err = s.UpdateByName(ctx, table, 5)
			require.NoError(t, err)
			persons, err = s.Select(ctx, table, "WHERE id IN (5, 6) ORDER BY id")
			require.NoError(t, err)
			require.Len(t, persons, 2)
			assert.Equal(t, "person_id", persons[0].Name)
			assert.Equal(t, "person_name", persons[1].Name)

			_, err = s.DeleteByID(ctx, table, 0)
			require.NoError(t, err)
			n, err := s.DB().Count(ctx, table.Name)
			require.NoError(t, err)
			assert.Equal(t, int64(20), n)

			msg, err = s.Count(ctx, table.Name)
			require.NoError(t, err)
			assert.Equal(t, "count performance_counter: 0", msg)
		})
	}
}

func TestQueriesLogRows(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	s := setupSuite(t, zap.New(core))

	_, err := s.Insert(ctx, Persons, 0, 10)
	require.NoError(t, err)

	_, err = s.QueryByID(ctx, Persons, 2)
	require.NoError(t, err)
	_, err = s.QueryByName(ctx, Persons, 2)
	require.NoError(t, err)
	_, err = s.QueryByLikeName(ctx, Persons, 0)
	require.NoError(t, err)
	_, err = s.QueryByLimitOffset(ctx, Persons, 3, 4)
	require.NoError(t, err)

	expected := map[string]int{
		"query_by_id":           1,
		"query_by_name":         1,
		"query_by_like_name":    2,
		"query_by_limit_offset": 3,
	}
	for op, rows := range expected {
		entries := logs.FilterMessage(op).All()
		require.Len(t, entries, 1, op)
		assert.EqualValues(t, rows, entries[0].ContextMap()["rows"], op)
	}
	result := logs.FilterMessage("query_by_id").All()[0].ContextMap()["result"]
	assert.Equal(t, `[{"id":3,"name":"person3","age":21,"gender":1}]`, result)
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	s := setupSuite(t, zap.NewNop())

	_, err := s.Execute(ctx, "DROP TABLE person")
	require.NoError(t, err)

	_, err = s.InsertOne(ctx, Persons, 0)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "insert: "))

	_, err = s.QueryByID(ctx, Persons, 0)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "query_by_id: "))

	_, err = s.Count(ctx, "person")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "count: "))
}

func TestService(t *testing.T) {
	ctx := context.Background()
	svc := setupSuite(t, zap.NewNop()).Service(rpc.WithCounter(meter.ClockCounter{}))
	assert.Len(t, svc.Methods(), 20)

	res := svc.CallArgs(ctx, "bench2_insert_person2", rpc.MustArgs(0, 5))
	require.NoError(t, res.Failure())
	assert.Equal(t, "bench2_insert_person2 OK", res.Ok)

	res = svc.CallArgs(ctx, "bench2_query_person2_by_limit_offset", rpc.MustArgs(2, 1))
	require.NoError(t, res.Failure())
	msg, ok := res.Ok.(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(msg, "query_by_limit_offset performance_counter: "))
	assert.NotEqual(t, "query_by_limit_offset performance_counter: 0", msg)

	res = svc.CallArgs(ctx, "execute", rpc.MustArgs("NOT SQL"))
	require.Error(t, res.Failure())
	assert.True(t, strings.HasPrefix(res.Err.Message, "execute: "))
}

func TestBenchmarks(t *testing.T) {
	r := bench.NewRegistry()
	Register(r)
	require.Len(t, r.All(), 18)

	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Memory = config.MemoryDisk
	cfg.Scale = 100

	runner := bench.NewRunner(cfg, meter.ClockCounter{})
	results, failures, err := runner.Run(context.Background(), r.All())
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Len(t, results.Benches, 18)
}
