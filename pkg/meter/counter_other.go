// Copyright © 2018 One Concern

//go:build !linux

package meter

// PerfCounter is not supported on this platform
type PerfCounter struct{}

// Name of the counter
func (PerfCounter) Name() string { return KindPerf }

// Start always fails on this platform
func (PerfCounter) Start() (Stopwatch, error) {
	return nil, ErrPerfUnavailable
}
