// Copyright © 2018 One Concern

// Package bench runs benchmarks measuring the instructions spent by storage operations.
//
// A benchmark function prepares its state, then calls B.Run exactly once with the
// closure to measure. Only the closure is counted: setup and post-checks are not.
package bench

import (
	"context"
	"sort"

	"github.com/oneconcern/stablebench/pkg/config"
	"github.com/oneconcern/stablebench/pkg/errors"
	"github.com/oneconcern/stablebench/pkg/meter"
	"github.com/oneconcern/stablebench/pkg/stable"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

var (
	// ErrMeasuredTwice is returned when a benchmark calls Run more than once
	ErrMeasuredTwice = errors.New("benchmark measured more than once")

	// ErrNotMeasured is returned when a benchmark never calls Run
	ErrNotMeasured = errors.New("benchmark did not measure anything")

	// ErrDuplicate is returned when registering the same benchmark twice
	ErrDuplicate = errors.New("benchmark already registered")

	// ErrFailed is returned when some benchmarks failed
	ErrFailed = errors.New("benchmarks failed")
)

// Func is a benchmark function
type Func func(*B) error

// Benchmark of a suite
type Benchmark struct {
	Suite string
	Name  string
	Fn    Func
}

// ID of the benchmark, as suite/name
func (bm Benchmark) ID() string {
	return bm.Suite + "/" + bm.Name
}

// B is the state of a running benchmark
type B struct {
	ctx     context.Context
	env     *stable.Env
	cfg     config.Config
	counter meter.Counter
	l       *zap.Logger

	measured bool
	result   meter.Measurement
}

// NewB prepares a benchmark state, outside of a runner
func NewB(ctx context.Context, env *stable.Env, cfg config.Config, counter meter.Counter, logger *zap.Logger) *B {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &B{ctx: ctx, env: env, cfg: cfg, counter: counter, l: logger}
}

// Context of the benchmark
func (b *B) Context() context.Context { return b.ctx }

// Env is the persistent memory environment of the benchmark
func (b *B) Env() *stable.Env { return b.env }

// Config of the run
func (b *B) Config() config.Config { return b.cfg }

// Logger for the benchmark
func (b *B) Logger() *zap.Logger { return b.l }

// Result of the measurement
func (b *B) Result() (meter.Measurement, bool) { return b.result, b.measured }

// Run measures fn. It must be called exactly once per benchmark.
func (b *B) Run(fn func(context.Context) error) error {
	if b.measured {
		return ErrMeasuredTwice
	}
	b.measured = true

	before, err := b.env.Usage()
	if err != nil {
		return err
	}
	m, err := meter.Measure(b.ctx, b.counter, fn)
	if err != nil {
		return err
	}
	after, err := b.env.Usage()
	if err != nil {
		return err
	}
	if after > before {
		m.StoreIncrease = after - before
	}
	b.result = m
	return nil
}

// Registry of benchmarks
type Registry struct {
	benches map[string]Benchmark
}

// NewRegistry builds an empty registry
func NewRegistry() *Registry {
	return &Registry{benches: make(map[string]Benchmark)}
}

// Register a benchmark
func (r *Registry) Register(suite, name string, fn Func) error {
	bm := Benchmark{Suite: suite, Name: name, Fn: fn}
	if _, exists := r.benches[bm.ID()]; exists {
		return ErrDuplicate.Wrapf("%s", bm.ID())
	}
	r.benches[bm.ID()] = bm
	return nil
}

// MustRegister registers a benchmark, panicking on duplicates
func (r *Registry) MustRegister(suite, name string, fn Func) {
	if err := r.Register(suite, name, fn); err != nil {
		panic(err)
	}
}

// All benchmarks, sorted by ID
func (r *Registry) All() []Benchmark {
	all := make([]Benchmark, 0, len(r.benches))
	for _, bm := range r.benches {
		all = append(all, bm)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID() < all[j].ID() })
	return all
}

// Select benchmarks matching any of the glob patterns, either on their ID or on their name.
// No pattern selects all benchmarks.
func (r *Registry) Select(patterns ...string) ([]Benchmark, error) {
	all := r.All()
	if len(patterns) == 0 {
		return all, nil
	}
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, doublestar.ErrBadPattern
		}
	}

	selected := make([]Benchmark, 0, len(all))
	for _, bm := range all {
		for _, pattern := range patterns {
			if matchID(pattern, bm) {
				selected = append(selected, bm)
				break
			}
		}
	}
	return selected, nil
}

func matchID(pattern string, bm Benchmark) bool {
	if ok, _ := doublestar.Match(pattern, bm.ID()); ok {
		return true
	}
	ok, _ := doublestar.Match(pattern, bm.Name)
	return ok
}
