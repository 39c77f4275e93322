// Package zaplog exports opencensus views to a zap logger
package zaplog

import (
	"go.opencensus.io/stats/view"
	"go.uber.org/zap"
)

var _ view.Exporter = &Exporter{}

// NewExporter builds an opencensus exporter which logs view data. A nil logger discards everything.
func NewExporter(logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		l: logger.With(zap.String("exporter", "zaplog")),
	}
}

// Exporter logs view data
type Exporter struct {
	l *zap.Logger
}

// ExportView logs one entry per row of the view
func (e *Exporter) ExportView(viewData *view.Data) {
	if viewData == nil || viewData.View == nil {
		return
	}
	for _, row := range viewData.Rows {
		fields := make([]zap.Field, 0, len(row.Tags)+5)
		fields = append(fields, zap.String("view", viewData.View.Name))
		for _, t := range row.Tags {
			fields = append(fields, zap.String(t.Key.Name(), t.Value))
		}
		fields = append(fields, dataFields(row.Data)...)
		e.l.Info("metrics", fields...)
	}
}

func dataFields(data view.AggregationData) []zap.Field {
	switch d := data.(type) {
	case *view.CountData:
		return []zap.Field{zap.Int64("count", d.Value)}
	case *view.SumData:
		return []zap.Field{zap.Float64("sum", d.Value)}
	case *view.LastValueData:
		return []zap.Field{zap.Float64("last", d.Value)}
	case *view.DistributionData:
		return []zap.Field{
			zap.Int64("count", d.Count),
			zap.Float64("min", d.Min),
			zap.Float64("max", d.Max),
			zap.Float64("mean", d.Mean),
		}
	default:
		return nil
	}
}
