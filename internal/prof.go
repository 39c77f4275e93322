// Copyright © 2018 One Concern

package internal

import (
	"context"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/docker/go-units"
	"go.uber.org/zap"
)

// StartCPUProf starts a CPU profile written to path. The returned function stops it.
func StartCPUProf(path string) (func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return func() error {
		pprof.StopCPUProfile()
		return f.Close()
	}, nil
}

// WriteProf writes a named runtime profile (e.g. "heap", "allocs") to path
func WriteProf(path string, name string) error {
	p := pprof.Lookup(name)
	if p == nil {
		return os.ErrNotExist
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	runtime.GC()
	return p.WriteTo(f, 0)
}

// MemPollParams configures MemPoll
type MemPollParams struct {
	Poll   time.Duration
	Logger *zap.Logger
}

func memPollDefaults(params MemPollParams) MemPollParams {
	if params.Poll == 0 {
		params.Poll = 50 * time.Millisecond
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return params
}

// MemPoll logs every growth of the heap until the context is done
func MemPoll(ctx context.Context, params MemPollParams) {
	params = memPollDefaults(params)
	go func() {
		mstats := new(runtime.MemStats)
		var maxHeapThusFar uint64
		ticker := time.NewTicker(params.Poll)
		defer ticker.Stop()
		for {
			runtime.ReadMemStats(mstats)
			if mstats.HeapSys > maxHeapThusFar {
				maxHeapThusFar = mstats.HeapSys
				params.Logger.Info("grew heap",
					zap.String("heap (un-GC)", units.BytesSize(float64(mstats.Alloc))),
					zap.String("heap (max ever)", units.BytesSize(float64(mstats.HeapSys))),
					zap.Int("num go routines", runtime.NumGoroutine()),
				)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}
