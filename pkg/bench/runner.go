// Copyright © 2018 One Concern

package bench

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oneconcern/stablebench/pkg/config"
	"github.com/oneconcern/stablebench/pkg/dlogger"
	"github.com/oneconcern/stablebench/pkg/meter"
	"github.com/oneconcern/stablebench/pkg/metrics"
	"github.com/oneconcern/stablebench/pkg/stable"

	"go.uber.org/zap"
)

// Runner runs benchmarks, each in a fresh environment
type Runner struct {
	metrics.Enable
	m *metrics.BenchMetrics

	cfg     config.Config
	counter meter.Counter
	l       *zap.Logger
	parent  string
	keep    bool
}

// RunnerOption configures a runner
type RunnerOption func(*Runner)

// WithRunnerLogger sets the logger of the runner
func WithRunnerLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.l = l
		}
	}
}

// WithKeepData retains the environments of benchmarks once done
func WithKeepData(keep bool) RunnerOption {
	return func(r *Runner) {
		r.keep = keep
	}
}

// WithRunnerMetrics toggles benchmark metrics. Metrics must have been initialized with metrics.Init.
func WithRunnerMetrics(enabled bool) RunnerOption {
	return func(r *Runner) {
		r.EnableMetrics(enabled && metrics.Enabled())
	}
}

// NewRunner builds a runner creating environments in the data directory of the configuration
func NewRunner(cfg config.Config, counter meter.Counter, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:     cfg,
		counter: counter,
		l:       zap.NewNop(),
		parent:  cfg.DataDir,
	}
	for _, apply := range opts {
		apply(r)
	}
	r.l = dlogger.Component(r.l, "bench")
	if r.MetricsEnabled() {
		r.m = r.EnsureMetrics("bench", &metrics.BenchMetrics{}).(*metrics.BenchMetrics)
	}
	return r
}

// Failure of a benchmark
type Failure struct {
	ID  string
	Err error
}

// Run benchmarks in sequence. All benchmarks are run, even when some fail:
// the error then lists all failures.
func (r *Runner) Run(ctx context.Context, benches []Benchmark) (Results, []Failure, error) {
	results := NewResults(r.counter.Name())
	var failures []Failure

	for _, bm := range benches {
		if err := ctx.Err(); err != nil {
			return results, failures, err
		}
		m, err := r.RunOne(ctx, bm)
		if err != nil {
			r.l.Error("benchmark failed", zap.String("bench", bm.ID()), zap.Error(err))
			failures = append(failures, Failure{ID: bm.ID(), Err: err})
			if r.m != nil {
				r.m.Failed(bm.Suite, bm.Name)
			}
			continue
		}
		results.Add(bm.ID(), m)
		if r.m != nil {
			r.m.Measured(bm.Suite, bm.Name, m.Instructions, m.HeapIncrease, m.StoreIncrease)
		}
	}

	if len(failures) > 0 {
		ids := make([]string, 0, len(failures))
		for _, f := range failures {
			ids = append(ids, f.ID)
		}
		return results, failures, ErrFailed.Wrapf("%s", strings.Join(ids, ", "))
	}
	return results, nil, nil
}

// RunOne runs a single benchmark in a fresh environment
func (r *Runner) RunOne(ctx context.Context, bm Benchmark) (m meter.Measurement, err error) {
	if err := os.MkdirAll(r.parent, 0700); err != nil {
		return m, err
	}
	env, err := stable.Fresh(r.parent, r.cfg.Memory, r.l)
	if err != nil {
		return m, err
	}
	defer func() {
		closer := env.Destroy
		if r.keep {
			closer = env.Close
		}
		if cerr := closer(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	l := r.l.With(zap.String("bench", bm.ID()))
	b := NewB(ctx, env, r.cfg, r.counter, l)

	start := time.Now()
	l.Info("running benchmark")
	if err = r.call(bm, b); err != nil {
		return m, err
	}
	m, measured := b.Result()
	if !measured {
		return m, ErrNotMeasured.Wrapf("%s", bm.ID())
	}
	l.Info("benchmark done",
		zap.Uint64("instructions", m.Instructions),
		zap.Uint64("heap_increase", m.HeapIncrease),
		zap.Uint64("stable_memory_increase", m.StoreIncrease),
		zap.Duration("elapsed", time.Since(start)),
	)
	return m, nil
}

// call runs the benchmark function, turning panics into errors
func (r *Runner) call(bm Benchmark, b *B) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s panicked: %v", bm.ID(), rec)
		}
	}()
	return bm.Fn(b)
}
