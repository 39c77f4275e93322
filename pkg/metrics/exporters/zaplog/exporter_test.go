package zaplog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestExportView(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	e := NewExporter(zap.New(core))

	measure := stats.Int64("test/instructions", "instructions", "instructions")
	key := tag.MustNewKey("bench")
	e.ExportView(&view.Data{
		View: &view.View{Name: "test/instructions", Measure: measure, Aggregation: view.Distribution(10, 100)},
		Rows: []*view.Row{
			{Tags: []tag.Tag{{Key: key, Value: "write_100mb"}}, Data: &view.DistributionData{Count: 2, Min: 1, Max: 3, Mean: 2}},
			{Data: &view.CountData{Value: 5}},
		},
	})
	e.ExportView(nil)

	entries := logs.All()
	require.Len(t, entries, 2)
	first := entries[0].ContextMap()
	assert.Equal(t, "write_100mb", first["bench"])
	assert.Equal(t, int64(2), first["count"])
	assert.Equal(t, float64(3), first["max"])
	assert.Equal(t, int64(5), entries[1].ContextMap()["count"])
}
