package metrics

import (
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
)

// Init sets up metrics collection, with its exporter. Only the first call has an effect.
func Init(opts ...Option) {
	initOnce.Do(func() {
		mp = newSettings(opts...)
	})
}

// Flush exports all collected metrics now. It does nothing unless Init was called.
func Flush() {
	if mp != nil {
		mp.Flush()
	}
}

// EnsureMetrics registers the measures declared by the struct m at location.
//
// Only the first registration at a location is retained, and returned by subsequent calls.
// It panics when a location is registered again with another type.
func EnsureMetrics(location string, m interface{}) interface{} {
	return mp.EnsureMetrics(location, m)
}

// Inc increments a counter
func Inc(counter *stats.Int64Measure, tags ...map[string]string) {
	record(counter.M(1), tags)
}

// Int64 records a value
func Int64(measure *stats.Int64Measure, value int64, tags ...map[string]string) {
	record(measure.M(value), tags)
}

// Float64 records a value
func Float64(measure *stats.Float64Measure, value float64, tags ...map[string]string) {
	record(measure.M(value), tags)
}

// Since records the milliseconds elapsed since start
func Since(start time.Time, measure *stats.Float64Measure, tags ...map[string]string) {
	record(measure.M(float64(time.Since(start).Nanoseconds())/1e6), tags)
}

func record(m stats.Measurement, tags []map[string]string) {
	mutators := make([]tag.Mutator, 0, 4)
	for _, extra := range tags {
		for k, v := range extra {
			mutators = append(mutators, tag.Upsert(tag.MustNewKey(k), v))
		}
	}
	_ = stats.RecordWithTags(mp.contexter(), mutators, m)
}

// Enable is embedded by components which may record metrics, e.g.:
//
//	type Service struct {
//	  metrics.Enable
//	  m *metrics.CallMetrics
//	}
//
//	if s.MetricsEnabled() {
//	  s.m = s.EnsureMetrics("rpc", &metrics.CallMetrics{}).(*metrics.CallMetrics)
//	}
type Enable struct {
	metricsEnabled bool
}

// MetricsEnabled tells whether metrics are enabled or not
func (e Enable) MetricsEnabled() bool {
	return e.metricsEnabled
}

// EnableMetrics toggles metrics collection
func (e *Enable) EnableMetrics(enabled bool) {
	e.metricsEnabled = enabled
}

// EnsureMetrics registers m with the global metrics collection, see EnsureMetrics
func (e *Enable) EnsureMetrics(name string, m interface{}) interface{} {
	return EnsureMetrics(name, m)
}
