// Package metrics collects opencensus measures about benchmark runs and RPC calls.
//
// Measures are declared with struct tags and registered lazily with EnsureMetrics.
// Unless configured otherwise, view data are exported to a zap logger.
package metrics
