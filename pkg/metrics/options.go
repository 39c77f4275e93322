package metrics

import (
	"context"
	"time"

	"go.opencensus.io/stats/view"
	"go.uber.org/zap"
)

// Option configures metrics collection with Init
type Option func(*settings)

// WithBasePath prefixes the location of all registered measures
func WithBasePath(location string) Option {
	return func(s *settings) {
		s.basePath = location
	}
}

// WithContexter sets the function providing the context of recorded measures.
// Defaults to context.Background.
func WithContexter(c func() context.Context) Option {
	return func(s *settings) {
		if c != nil {
			s.contexter = c
		}
	}
}

// WithExporter sets the exporter of view data. Defaults to a zap exporter.
func WithExporter(exporter view.Exporter) Option {
	return func(s *settings) {
		if exporter != nil {
			s.exporter = flusher(exporter)
		}
	}
}

// WithReportingPeriod sets how often views are exported in the background.
// Periods under a second are ignored and the opencensus default (10s) applies.
func WithReportingPeriod(d time.Duration) Option {
	return func(s *settings) {
		s.period = d
	}
}

// WithLogger sets the logger of the default exporter
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}
