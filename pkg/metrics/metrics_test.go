package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureRequires(t testing.TB, m *exampleMetrics) {
	require.NotNil(t, m.Telemetry.TestCount)
	require.NotNil(t, m.Benches.Runs.Instructions)
	require.NotNil(t, m.RPC.Calls.Count)
}

func exerciseAPI(t testing.TB, m *exampleMetrics) {
	Inc(m.Telemetry.TestCount)
	Inc(m.Benches.Runs.Runs)
	Int64(m.RPC.Calls.Instructions, 10)
}

func TestMetrics(t *testing.T) {
	testMetrics := &exampleMetrics{}
	Init(
		WithExporter(testExporter()),
	)
	require.True(t, Enabled())
	_ = EnsureMetrics("example", testMetrics)

	fixtureRequires(t, testMetrics)

	exerciseAPI(t, testMetrics)
}

func TestRegister(t *testing.T) {
	testMetrics := &exampleMetrics{}
	Init(
		WithExporter(testExporter()),
	)

	// lazy registration
	x := EnsureMetrics("registerExample", testMetrics)
	fixtureRequires(t, testMetrics)
	exerciseAPI(t, testMetrics)

	// retry registration
	y := EnsureMetrics("registerExample", testMetrics)
	require.Equal(t, x, y)

	assert.Panics(t, func() {
		_ = EnsureMetrics("registerExample", &CallMetrics{})
	})
}

func TestModules(t *testing.T) {
	s := newSettings(
		WithBasePath("root"),
		WithExporter(testExporter()),
	)
	testMetrics := &exampleMetrics{}
	_ = s.EnsureMetrics("moduleTesting", testMetrics)

	require.Len(t, s.modules, 1)
	assert.Len(t, s.measures, 10)
	assert.Len(t, s.views, 12)

	fixtureRequires(t, testMetrics)
	saved := mp
	mp = s
	defer func() { mp = saved }()

	testMetrics.IncTest()

	t0 := time.Now()
	testMetrics.RPC.Calls.Called(t0, "orders", "query")(1000, nil)
	testMetrics.RPC.Calls.Called(t0, "orders", "execute")(10, fmt.Errorf("failure"))

	testMetrics.Benches.Runs.Measured("orders", "bench_add_users", 1e9, 1024, 4096)
	testMetrics.Benches.Runs.Failed("orders", "bench_add_orders")

	s.Flush()
}
