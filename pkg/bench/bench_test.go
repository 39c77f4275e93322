package bench

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/oneconcern/stablebench/pkg/config"
	"github.com/oneconcern/stablebench/pkg/errors"
	"github.com/oneconcern/stablebench/pkg/meter"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t testing.TB) config.Config {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	return cfg
}

func testRegistry(t testing.TB) *Registry {
	r := NewRegistry()
	r.MustRegister("fs", "write_1kb", func(b *B) error {
		fs, err := b.Env().Fs(0)
		if err != nil {
			return err
		}
		return b.Run(func(ctx context.Context) error {
			defer meter.Scope(ctx, "write")()
			return afero.WriteFile(fs, "f", make([]byte, 1024), 0600)
		})
	})
	r.MustRegister("fs", "read_nothing", func(b *B) error {
		return b.Run(func(context.Context) error { return nil })
	})
	r.MustRegister("sql", "bench_add_users", func(b *B) error {
		return b.Run(func(context.Context) error { return nil })
	})
	return r
}

func TestRegistry(t *testing.T) {
	r := testRegistry(t)
	assert.True(t, errors.Is(r.Register("fs", "write_1kb", nil), ErrDuplicate))
	assert.Panics(t, func() { r.MustRegister("fs", "write_1kb", nil) })

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, "fs/read_nothing", all[0].ID())

	for _, tc := range []struct {
		patterns []string
		expected []string
	}{
		{nil, []string{"fs/read_nothing", "fs/write_1kb", "sql/bench_add_users"}},
		{[]string{"fs/*"}, []string{"fs/read_nothing", "fs/write_1kb"}},
		{[]string{"bench_*"}, []string{"sql/bench_add_users"}},
		{[]string{"*_1kb", "sql/**"}, []string{"fs/write_1kb", "sql/bench_add_users"}},
		{[]string{"nothing"}, []string{}},
	} {
		selected, err := r.Select(tc.patterns...)
		require.NoError(t, err)
		ids := make([]string, 0, len(selected))
		for _, bm := range selected {
			ids = append(ids, bm.ID())
		}
		assert.Equal(t, tc.expected, ids, "%v", tc.patterns)
	}

	_, err := r.Select("[")
	assert.Error(t, err)
}

func TestRunner(t *testing.T) {
	cfg := testConfig(t)
	r := NewRunner(cfg, meter.ClockCounter{})
	ctx := context.Background()

	results, failures, err := r.Run(ctx, testRegistry(t).All())
	require.NoError(t, err)
	assert.Empty(t, failures)
	require.Len(t, results.Benches, 3)

	w := results.Benches["fs/write_1kb"]
	assert.Equal(t, uint64(1024), w.Total.StoreIncrease)
	assert.True(t, w.Total.Instructions > 0)
	assert.Contains(t, w.Scopes, "write")
	assert.Nil(t, w.Total.Scopes)
	assert.Equal(t, meter.KindClock, results.Counter)

	// environments are destroyed
	entries, err := filepath.Glob(filepath.Join(cfg.DataDir, "run-*"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunnerFailures(t *testing.T) {
	r := NewRunner(testConfig(t), meter.ClockCounter{}, WithKeepData(true))
	reg := NewRegistry()
	reg.MustRegister("x", "twice", func(b *B) error {
		if err := b.Run(func(context.Context) error { return nil }); err != nil {
			return err
		}
		return b.Run(func(context.Context) error { return nil })
	})
	reg.MustRegister("x", "never", func(*B) error { return nil })
	reg.MustRegister("x", "panics", func(*B) error { panic("assertion failed") })
	reg.MustRegister("x", "fails", func(b *B) error {
		return b.Run(func(context.Context) error { return fmt.Errorf("boom") })
	})
	reg.MustRegister("x", "ok", func(b *B) error {
		return b.Run(func(context.Context) error { return nil })
	})

	results, failures, err := r.Run(context.Background(), reg.All())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFailed))
	assert.Len(t, failures, 4)
	assert.Len(t, results.Benches, 1)

	byID := make(map[string]error)
	for _, f := range failures {
		byID[f.ID] = f.Err
	}
	assert.True(t, errors.Is(byID["x/twice"], ErrMeasuredTwice))
	assert.True(t, errors.Is(byID["x/never"], ErrNotMeasured))
	assert.Contains(t, byID["x/panics"].Error(), "assertion failed")
	assert.Contains(t, byID["x/fails"].Error(), "boom")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = r.Run(ctx, reg.All())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResultsFile(t *testing.T) {
	pth := filepath.Join(t.TempDir(), "results.yml")

	_, err := LoadResults(pth)
	assert.True(t, errors.Is(err, ErrNoResults))

	r := NewResults(meter.KindPerf)
	r.Add("sql/bench_add_users", meter.Measurement{
		Instructions: 1000,
		HeapIncrease: 10,
		Scopes:       map[string]meter.Measurement{"insert": {Instructions: 800}},
	})
	require.NoError(t, r.Save(pth))

	loaded, err := LoadResults(pth)
	require.NoError(t, err)
	assert.Equal(t, r, loaded)

	require.NoError(t, NewResults("perf").Save(pth))
	loaded, err = LoadResults(pth)
	require.NoError(t, err)
	assert.NotNil(t, loaded.Benches)

	for _, content := range []string{"version: 2.0.0\n", "version: abc\n", "benches: [\n"} {
		require.NoError(t, afero.WriteFile(afero.NewOsFs(), pth, []byte(content), 0600))
		_, err = LoadResults(pth)
		assert.True(t, errors.Is(err, ErrIncompatibleResults), content)
	}
}

func TestCompareAndReport(t *testing.T) {
	baseline := NewResults(meter.KindPerf)
	baseline.Add("a/regressed", meter.Measurement{Instructions: 1000})
	baseline.Add("a/improved", meter.Measurement{Instructions: 1000})
	baseline.Add("a/unchanged", meter.Measurement{Instructions: 1000})
	baseline.Add("a/removed", meter.Measurement{Instructions: 1000})

	current := NewResults(meter.KindPerf)
	current.Add("a/regressed", meter.Measurement{Instructions: 1100})
	current.Add("a/improved", meter.Measurement{Instructions: 500})
	current.Add("a/unchanged", meter.Measurement{Instructions: 1010})
	current.Add("a/new", meter.Measurement{Instructions: 1_234_000_000, StoreIncrease: 2048})

	cmps := Compare(current, baseline, 2)
	require.Len(t, cmps, 4)
	status := make(map[string]Status)
	for _, c := range cmps {
		status[c.ID] = c.Status
	}
	assert.Equal(t, StatusImproved, status["a/improved"])
	assert.Equal(t, StatusNew, status["a/new"])
	assert.Equal(t, StatusRegressed, status["a/regressed"])
	assert.Equal(t, StatusUnchanged, status["a/unchanged"])
	assert.InDelta(t, -50, cmps[0].Change, 0.001)

	// another counter makes all benchmarks new
	other := Compare(current, NewResults(meter.KindClock), 2)
	assert.Equal(t, 4, Summary(other)[StatusNew])

	color.NoColor = true
	var buf bytes.Buffer
	require.NoError(t, Report(&buf, cmps))
	out := buf.String()
	assert.Contains(t, out, "BENCHMARK")
	assert.Contains(t, out, "1.234B")
	assert.Contains(t, out, "+10.00%")
	assert.Contains(t, out, "2KiB")
	assert.True(t, strings.Contains(out, "4 benchmarks: 1 regressed, 1 improved, 1 unchanged, 1 new"))

	assert.Equal(t, "0", HumanCount(0))
	assert.Equal(t, float64(100), change(0, 10))
	assert.Equal(t, float64(0), change(0, 0))
}
