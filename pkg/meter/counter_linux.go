// Copyright © 2018 One Concern

//go:build linux

package meter

import (
	"encoding/binary"
	"unsafe"

	"golang.org/x/sys/unix"
)

// PerfCounter counts user-space instructions retired by the calling OS thread
type PerfCounter struct{}

// Name of the counter
func (PerfCounter) Name() string { return KindPerf }

// Start a hardware instruction counter on the current thread
func (PerfCounter) Start() (Stopwatch, error) {
	attr := unix.PerfEventAttr{
		Type:   unix.PERF_TYPE_HARDWARE,
		Config: unix.PERF_COUNT_HW_INSTRUCTIONS,
		Size:   uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
		Bits:   unix.PerfBitDisabled | unix.PerfBitExcludeKernel | unix.PerfBitExcludeHv,
	}

	fd, err := unix.PerfEventOpen(&attr, 0, -1, -1, unix.PERF_FLAG_FD_CLOEXEC)
	if err != nil {
		return nil, ErrPerfUnavailable.Wrap(err)
	}
	if err := unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_RESET, 0); err != nil {
		_ = unix.Close(fd)
		return nil, ErrPerfUnavailable.Wrap(err)
	}
	if err := unix.IoctlSetInt(fd, unix.PERF_EVENT_IOC_ENABLE, 0); err != nil {
		_ = unix.Close(fd)
		return nil, ErrPerfUnavailable.Wrap(err)
	}

	return &perfStopwatch{fd: fd}, nil
}

type perfStopwatch struct {
	fd      int
	stopped bool
	total   uint64
	buf     [8]byte
}

func (s *perfStopwatch) read() (uint64, error) {
	n, err := unix.Read(s.fd, s.buf[:])
	if err != nil {
		return 0, err
	}
	if n != len(s.buf) {
		return 0, ErrPerfUnavailable.Wrapf("short read on perf counter: %d bytes", n)
	}
	return binary.NativeEndian.Uint64(s.buf[:]), nil
}

func (s *perfStopwatch) Elapsed() uint64 {
	if s.stopped {
		return s.total
	}
	v, err := s.read()
	if err != nil {
		return 0
	}
	return v
}

func (s *perfStopwatch) Stop() (uint64, error) {
	if s.stopped {
		return s.total, ErrStopped
	}
	_ = unix.IoctlSetInt(s.fd, unix.PERF_EVENT_IOC_DISABLE, 0)
	v, err := s.read()
	s.stopped = true
	s.total = v
	if cerr := unix.Close(s.fd); err == nil {
		err = cerr
	}
	return v, err
}
