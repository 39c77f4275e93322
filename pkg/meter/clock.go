// Copyright © 2018 One Concern

package meter

import "time"

// ClockCounter counts elapsed nanoseconds on the monotonic clock
type ClockCounter struct{}

// Name of the counter
func (ClockCounter) Name() string { return KindClock }

// Start a clock stopwatch
func (ClockCounter) Start() (Stopwatch, error) {
	return &clockStopwatch{start: time.Now()}, nil
}

type clockStopwatch struct {
	start   time.Time
	stopped bool
	total   uint64
}

func (s *clockStopwatch) Elapsed() uint64 {
	if s.stopped {
		return s.total
	}
	return uint64(time.Since(s.start))
}

func (s *clockStopwatch) Stop() (uint64, error) {
	if s.stopped {
		return s.total, ErrStopped
	}
	s.total = uint64(time.Since(s.start))
	s.stopped = true
	return s.total, nil
}
