package metrics

import (
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.uber.org/zap"
)

type exampleMetrics struct {
	Telemetry struct {
		CallCounts    []CallMetrics         `group:"calls" description:""`    // ignored
		FailureCounts []*stats.Int64Measure `group:"failures" description:""` // ignored
		TestCount     *stats.Int64Measure   `metric:"testCount" description:"number of tests"`
	} `group:"telemetry" description:""`
	Benches struct {
		Runs BenchMetrics `group:"runs" description:""`
	} `group:"benches" description:""`
	RPC struct {
		Calls CallMetrics
	} `group:"rpc" description:""`
}

func (e *exampleMetrics) IncTest() {
	Inc(e.Telemetry.TestCount, map[string]string{"kind": "test"})
}

func testExporter() view.Exporter {
	return DefaultExporter(zap.NewNop())
}
