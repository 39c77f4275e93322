// Copyright © 2018 One Concern

// Package meter counts the instructions executed by a piece of code.
//
// On linux, hardware instruction counters are read from perf events, for the
// calling OS thread only. When perf events are not available (e.g. restricted
// by perf_event_paranoid or running in a container), a monotonic clock in
// nanoseconds is used instead: figures are then only comparable with results
// collected with the same counter.
package meter

import (
	"context"
	"runtime"
	"sync"

	"github.com/oneconcern/stablebench/pkg/errors"
)

var (
	// ErrPerfUnavailable means hardware instruction counters cannot be used on this host
	ErrPerfUnavailable = errors.New("perf instruction counter unavailable")

	// ErrUnknownCounter is returned for an unsupported counter kind
	ErrUnknownCounter = errors.New("unknown counter")

	// ErrStopped is returned when stopping a stopwatch twice
	ErrStopped = errors.New("stopwatch already stopped")
)

// Counter kinds
const (
	KindAuto  = "auto"
	KindPerf  = "perf"
	KindClock = "clock"
)

// Counter starts stopwatches counting some unit of work
type Counter interface {
	Name() string
	Start() (Stopwatch, error)
}

// Stopwatch reports the units counted since it started.
//
// Stopwatches backed by perf events count for the OS thread that started them:
// callers must lock the goroutine to its thread while the stopwatch runs.
type Stopwatch interface {
	Elapsed() uint64
	Stop() (uint64, error)
}

// New counter of the given kind. The "auto" kind probes perf events
// and falls back to a clock.
func New(kind string) (Counter, error) {
	switch kind {
	case KindPerf:
		if err := probePerf(); err != nil {
			return nil, err
		}
		return PerfCounter{}, nil
	case KindClock:
		return ClockCounter{}, nil
	case KindAuto, "":
		if probePerf() == nil {
			return PerfCounter{}, nil
		}
		return ClockCounter{}, nil
	default:
		return nil, ErrUnknownCounter.Wrapf("%q", kind)
	}
}

func probePerf() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	sw, err := PerfCounter{}.Start()
	if err != nil {
		return err
	}
	_, err = sw.Stop()
	return err
}

// Measurement of a benchmark or a scope within a benchmark
type Measurement struct {
	Instructions  uint64 `json:"instructions" yaml:"instructions"`
	HeapIncrease  uint64 `json:"heap_increase" yaml:"heap_increase"`
	StoreIncrease uint64 `json:"stable_memory_increase" yaml:"stable_memory_increase"`

	Scopes map[string]Measurement `json:"scopes,omitempty" yaml:"scopes,omitempty"`
}

// Measure runs fn on a locked OS thread and reports the units counted while it ran,
// as well as the bytes allocated on the heap.
//
// The context passed to fn carries the stopwatch, so that Performance and Scope may be
// used from within.
func Measure(ctx context.Context, c Counter, fn func(context.Context) error) (Measurement, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)

	sw, err := c.Start()
	if err != nil {
		return Measurement{}, err
	}
	p := newProbe(sw)

	fnErr := fn(context.WithValue(ctx, probeKey{}, p))

	total, err := sw.Stop()
	runtime.ReadMemStats(&after)
	if fnErr != nil {
		return Measurement{}, fnErr
	}
	if err != nil {
		return Measurement{}, err
	}

	m := Measurement{
		Instructions: total,
		HeapIncrease: after.TotalAlloc - before.TotalAlloc,
	}
	if scopes := p.snapshot(); len(scopes) > 0 {
		m.Scopes = scopes
	}
	return m, nil
}

type probeKey struct{}

type probe struct {
	sw     Stopwatch
	mx     sync.Mutex
	scopes map[string]Measurement
}

func newProbe(sw Stopwatch) *probe {
	return &probe{sw: sw, scopes: make(map[string]Measurement)}
}

func (p *probe) add(name string, units uint64) {
	p.mx.Lock()
	m := p.scopes[name]
	m.Instructions += units
	p.scopes[name] = m
	p.mx.Unlock()
}

func (p *probe) snapshot() map[string]Measurement {
	p.mx.Lock()
	defer p.mx.Unlock()
	out := make(map[string]Measurement, len(p.scopes))
	for k, v := range p.scopes {
		out[k] = v
	}
	return out
}

// WithStopwatch returns a context carrying a running stopwatch
func WithStopwatch(ctx context.Context, sw Stopwatch) context.Context {
	return context.WithValue(ctx, probeKey{}, newProbe(sw))
}

// Performance returns the units counted so far by the stopwatch carried by the context,
// or 0 when there is none.
func Performance(ctx context.Context) uint64 {
	p, ok := ctx.Value(probeKey{}).(*probe)
	if !ok {
		return 0
	}
	return p.sw.Elapsed()
}

// Scope starts counting a named part of a measurement. The returned function ends the scope.
//
// Scopes with the same name accumulate. Scope is a no-op outside of a measurement.
func Scope(ctx context.Context, name string) func() {
	p, ok := ctx.Value(probeKey{}).(*probe)
	if !ok {
		return func() {}
	}
	start := p.sw.Elapsed()
	return func() {
		p.add(name, p.sw.Elapsed()-start)
	}
}

// Ensure returns a context carrying a stopwatch: ctx itself when it already has one,
// or ctx with a new clock stopwatch.
func Ensure(ctx context.Context) context.Context {
	if _, ok := ctx.Value(probeKey{}).(*probe); ok {
		return ctx
	}
	sw, _ := ClockCounter{}.Start()
	return WithStopwatch(ctx, sw)
}
