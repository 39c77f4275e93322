package metrics

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/oneconcern/stablebench/pkg/metrics/exporters/zaplog"

	"github.com/docker/go-units"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"go.uber.org/zap"
)

// units recognized in the "unit" struct tag
const (
	unitCount        = "count"
	unitBytes        = "bytes"
	unitMilliseconds = "milliseconds"
	unitInstructions = "instructions"
)

var (
	// global settings for metrics
	mp       *settings
	initOnce sync.Once
)

type settings struct {
	basePath  string
	contexter func() context.Context
	exporter  FlushExporter
	logger    *zap.Logger
	period    time.Duration

	mx       sync.Mutex
	modules  map[string]interface{}
	measures []stats.Measure
	views    []*view.View
}

func newSettings(opts ...Option) *settings {
	s := &settings{
		modules:   make(map[string]interface{}),
		contexter: context.Background,
		logger:    zap.NewNop(),
	}
	for _, apply := range opts {
		apply(s)
	}
	if s.exporter == nil {
		s.exporter = flusher(DefaultExporter(s.logger))
	}

	view.RegisterExporter(s.exporter)
	if s.period >= time.Second {
		view.SetReportingPeriod(s.period)
	}
	return s
}

// DefaultExporter returns a metrics exporter which logs all view data at the info level
func DefaultExporter(logger *zap.Logger) view.Exporter {
	return zaplog.NewExporter(logger)
}

// Enabled tells if metrics collection has been initialized
func Enabled() bool {
	return mp != nil
}

// EnsureMetrics registers the measures declared by m under location, once.
func (s *settings) EnsureMetrics(location string, m interface{}) interface{} {
	s.mx.Lock()
	defer s.mx.Unlock()
	location = path.Join(s.basePath, location)

	if existing, ok := s.modules[location]; ok {
		if !equalType(existing, m) {
			panic("metrics already registered at " + location + " with a different type")
		}
		return existing
	}
	scanStruct(location, s.addMetric, m)
	s.modules[location] = m
	return m
}

// Flush exports the current data of all registered views
func (s *settings) Flush() {
	now := time.Now()
	for _, v := range s.views {
		rows, err := view.RetrieveData(v.Name)
		if err != nil {
			continue
		}
		s.exporter.Flush(&view.Data{View: v, Start: now, End: now, Rows: rows})
	}
}

// addMetric allocates the measure for a tagged field, with a default view picked by unit
// and the extra views listed in the tags.
func (s *settings) addMetric(m interface{}, name string, t metricTags) interface{} {
	description := t.description
	if description == "" {
		description = describe(name, t.unit)
	}
	unit, agg := unitAndAggregation(t.unit)

	var measure stats.Measure
	switch m.(type) {
	case *stats.Int64Measure:
		measure = stats.Int64(name, description, unit)
	case *stats.Float64Measure:
		measure = stats.Float64(name, description, unit)
	default:
		return nil
	}
	s.measures = append(s.measures, measure)

	keys := make([]tag.Key, 0, len(t.keys))
	for _, k := range t.keys {
		keys = append(keys, tag.MustNewKey(k))
	}

	s.register(&view.View{
		Name:        name,
		Description: describeAggregation(description, agg),
		Measure:     measure,
		Aggregation: agg,
		TagKeys:     keys,
	})

	for _, extra := range t.views {
		agg := extraAggregation(extra)
		if agg == nil {
			continue
		}
		s.register(&view.View{
			Name:        describeAggregation(name, agg),
			Description: describeAggregation(description, agg),
			Measure:     measure,
			Aggregation: agg,
			TagKeys:     keys,
		})
	}
	return measure
}

func (s *settings) register(v *view.View) {
	s.views = append(s.views, v)
	if err := view.Register(v); err != nil {
		s.logger.Warn("could not register view", zap.String("view", v.Name), zap.Error(err))
	}
}

func extraAggregation(name string) *view.Aggregation {
	switch name {
	case unitCount:
		return view.Count()
	case "sum":
		return view.Sum()
	case "lastvalue":
		return view.LastValue()
	default:
		return nil
	}
}

func unitAndAggregation(unit string) (string, *view.Aggregation) {
	switch unit {
	case unitMilliseconds:
		// ms
		return stats.UnitMilliseconds, view.Distribution(
			1, 5, 10, 50, 100, 500,
			1000, 5000, 10000, 60000,
		)
	case unitBytes:
		return stats.UnitBytes, view.Distribution(
			units.KiB, 16*units.KiB, 256*units.KiB,
			units.MiB, 16*units.MiB, 128*units.MiB,
			units.GiB, 4*units.GiB,
		)
	case unitInstructions:
		// instructions, or nanoseconds with a clock counter
		return unitInstructions, view.Distribution(
			1e3, 1e4, 1e5, 1e6, 1e7,
			1e8, 1e9, 5e9, 1e10, 2e10, 1e11,
		)
	default:
		return stats.UnitDimensionless, view.Count()
	}
}

func describe(name, unit string) string {
	if unit == "" || unit == unitCount {
		return name + " counter"
	}
	return name + " in " + unit
}

func describeAggregation(desc string, agg *view.Aggregation) string {
	switch agg.Type {
	case view.AggTypeCount:
		return desc + " [count]"
	case view.AggTypeSum:
		return desc + " [cumulated]"
	case view.AggTypeDistribution:
		return desc + " [distribution]"
	case view.AggTypeLastValue:
		return desc + " [last]"
	default:
		return desc
	}
}

// FlushExporter is a view exporter which may also be fed on demand, concurrently with the
// opencensus background worker.
type FlushExporter interface {
	view.Exporter
	Flush(*view.Data)
}

func flusher(e view.Exporter) FlushExporter {
	if f, ok := e.(FlushExporter); ok {
		return f
	}
	return &lockedExporter{e: e}
}

type lockedExporter struct {
	e  view.Exporter
	mx sync.RWMutex
}

func (f *lockedExporter) ExportView(data *view.Data) {
	f.mx.RLock()
	defer f.mx.RUnlock()
	f.e.ExportView(data)
}

func (f *lockedExporter) Flush(data *view.Data) {
	f.mx.Lock()
	defer f.mx.Unlock()
	f.e.ExportView(data)
}
