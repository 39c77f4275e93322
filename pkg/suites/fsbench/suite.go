// Copyright © 2018 One Concern

// Package fsbench writes and reads a large in-memory buffer through the file system,
// in one vectored call or in fixed size segments, over one or several files.
package fsbench

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/oneconcern/stablebench/pkg/config"
	"github.com/oneconcern/stablebench/pkg/dlogger"
	"github.com/oneconcern/stablebench/pkg/errors"
	"github.com/oneconcern/stablebench/pkg/meter"
	"github.com/oneconcern/stablebench/pkg/stable"
	"github.com/oneconcern/stablebench/pkg/vfs"

	"go.uber.org/zap"
)

// Name of the suite
const Name = "fsbench"

// FSMemory holds the file system of the suite
const FSMemory stable.MemoryID = 0

var (
	// ErrBufferMismatch is returned when the buffer does not hold the expected text
	ErrBufferMismatch = errors.New("buffer content mismatch")

	// ErrOutOfRange is returned when reading past the end of the buffer
	ErrOutOfRange = errors.New("buffer range out of bounds")
)

// Suite holds a buffer and the file system it is stored to
type Suite struct {
	fs          *vfs.FS
	buffer      []byte
	segmentSize int
	filesCount  int
	l           *zap.Logger
}

// New suite over the file system memory of an environment
func New(_ context.Context, env *stable.Env, cfg config.Config, logger *zap.Logger) (*Suite, error) {
	fs, err := env.Fs(FSMemory)
	if err != nil {
		return nil, err
	}
	return &Suite{
		fs:          vfs.New(fs),
		segmentSize: cfg.FS.SegmentSize,
		filesCount:  cfg.FS.FilesCount,
		l:           dlogger.Component(logger, Name),
	}, nil
}

// Name of the suite
func (s *Suite) Name() string { return Name }

// FS of the suite
func (s *Suite) FS() *vfs.FS { return s.fs }

// AppendBuffer appends text times times to the buffer and returns the buffer length
func (s *Suite) AppendBuffer(text string, times int) int {
	if need := len(s.buffer) + len(text)*times; cap(s.buffer) < need {
		grown := make([]byte, len(s.buffer), need)
		copy(grown, s.buffer)
		s.buffer = grown
	}
	for i := 0; i < times; i++ {
		s.buffer = append(s.buffer, text...)
	}
	return len(s.buffer)
}

// CheckBuffer verifies the buffer is exactly text repeated times times, and returns its length
func (s *Suite) CheckBuffer(text string, times int) (int, error) {
	if len(s.buffer) != len(text)*times {
		return 0, ErrBufferMismatch.Wrapf("expected %d bytes, got %d", len(text)*times, len(s.buffer))
	}
	chunk := []byte(text)
	for p := 0; p < len(s.buffer); p += len(chunk) {
		if !bytes.Equal(s.buffer[p:p+len(chunk)], chunk) {
			return 0, ErrBufferMismatch.Wrapf("at offset %d", p)
		}
	}
	return len(s.buffer), nil
}

// ClearBuffer zeroes the buffer then empties it, keeping its capacity
func (s *Suite) ClearBuffer() {
	for i := range s.buffer {
		s.buffer[i] = 0
	}
	s.buffer = s.buffer[:0]
}

// ReadBuffer returns size bytes of the buffer from offset
func (s *Suite) ReadBuffer(offset, size int) (string, error) {
	if offset < 0 || size < 0 || offset+size > len(s.buffer) {
		return "", ErrOutOfRange.Wrapf("[%d:%d] of %d bytes", offset, offset+size, len(s.buffer))
	}
	return string(s.buffer[offset : offset+size]), nil
}

// Buffer currently held
func (s *Suite) Buffer() []byte { return s.buffer }

func (s *Suite) open(name string) (vfs.Fd, error) {
	return s.fs.OpenOrCreate(s.fs.RootFd(), name, vfs.Create)
}

func (s *Suite) openAll(name string) ([]vfs.Fd, error) {
	fds := make([]vfs.Fd, 0, s.filesCount)
	for i := 0; i < s.filesCount; i++ {
		fd, err := s.open(fmt.Sprintf("%s%d", name, i))
		if err != nil {
			s.closeAll(fds)
			return nil, err
		}
		if _, err := s.fs.Seek(fd, 0, io.SeekStart); err != nil {
			s.closeAll(append(fds, fd))
			return nil, err
		}
		fds = append(fds, fd)
	}
	return fds, nil
}

func (s *Suite) closeAll(fds []vfs.Fd) {
	for _, fd := range fds {
		_ = s.fs.Close(fd)
	}
}

// FileSize returns the size of a file, created empty when missing
func (s *Suite) FileSize(name string) (int64, error) {
	fd, err := s.open(name)
	if err != nil {
		return 0, err
	}
	defer func() { _ = s.fs.Close(fd) }()
	meta, err := s.fs.Metadata(fd)
	if err != nil {
		return 0, err
	}
	return meta.Size, nil
}

// StoreBuffer writes the buffer to a file in a single vectored write
func (s *Suite) StoreBuffer(name string) (int, error) {
	fd, err := s.open(name)
	if err != nil {
		return 0, err
	}
	n, err := s.fs.WriteVec(fd, [][]byte{s.buffer})
	if cerr := s.fs.Close(fd); err == nil {
		err = cerr
	}
	return n, err
}

// StoreBufferInSegments writes the buffer to a file by segments.
// It reports the units counted by the calling message and the bytes written.
func (s *Suite) StoreBufferInSegments(ctx context.Context, name string) (uint64, int, error) {
	start := meter.Performance(ctx)
	fd, err := s.open(name)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = s.fs.Close(fd) }()
	if _, err := s.fs.Seek(fd, 0, io.SeekStart); err != nil {
		return 0, 0, err
	}

	var written int
	for p := 0; p < len(s.buffer); {
		end := min(p+s.segmentSize, len(s.buffer))
		n, err := s.fs.WriteVec(fd, [][]byte{s.buffer[p:end]})
		written += n
		if err != nil {
			return 0, written, err
		}
		p = end
	}
	return meter.Performance(ctx) - start, written, nil
}

// StoreBufferInSegments10Files writes the buffer by segments, distributed round-robin
// over the files name0, name1, ...
func (s *Suite) StoreBufferInSegments10Files(ctx context.Context, name string) (uint64, int, error) {
	start := meter.Performance(ctx)
	fds, err := s.openAll(name)
	if err != nil {
		return 0, 0, err
	}
	defer s.closeAll(fds)

	var written int
	for p, idx := 0, 0; p < len(s.buffer); idx++ {
		end := min(p+s.segmentSize, len(s.buffer))
		n, err := s.fs.WriteVec(fds[idx%len(fds)], [][]byte{s.buffer[p:end]})
		written += n
		if err != nil {
			return 0, written, err
		}
		p = end
	}
	return meter.Performance(ctx) - start, written, nil
}

// resize sets the buffer length, reusing its capacity when possible
func (s *Suite) resize(size int) {
	if cap(s.buffer) < size {
		s.buffer = make([]byte, size)
		return
	}
	s.buffer = s.buffer[:size]
}

// LoadBuffer reads a whole file into the buffer in a single vectored read
func (s *Suite) LoadBuffer(ctx context.Context, name string) (uint64, int, error) {
	start := meter.Performance(ctx)
	fd, err := s.open(name)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = s.fs.Close(fd) }()

	meta, err := s.fs.Metadata(fd)
	if err != nil {
		return 0, 0, err
	}
	if _, err := s.fs.Seek(fd, 0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	s.resize(int(meta.Size))
	n, err := s.fs.ReadVec(fd, [][]byte{s.buffer})
	if err != nil {
		return 0, n, err
	}
	return meter.Performance(ctx) - start, n, nil
}

// LoadBufferInSegments reads a whole file into the buffer by segments
func (s *Suite) LoadBufferInSegments(ctx context.Context, name string) (uint64, int, error) {
	start := meter.Performance(ctx)
	fd, err := s.open(name)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = s.fs.Close(fd) }()

	meta, err := s.fs.Metadata(fd)
	if err != nil {
		return 0, 0, err
	}
	if _, err := s.fs.Seek(fd, 0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	s.resize(int(meta.Size))

	var read int
	for p := 0; p < len(s.buffer); {
		end := min(p+s.segmentSize, len(s.buffer))
		n, err := s.fs.ReadVec(fd, [][]byte{s.buffer[p:end]})
		read += n
		if err != nil {
			return 0, read, err
		}
		if n == 0 {
			return 0, read, io.ErrUnexpectedEOF
		}
		p += n
	}
	return meter.Performance(ctx) - start, read, nil
}

// LoadBufferInSegments10Files reads back segments written round-robin over name0, name1, ...
// The total length is the size of the first file times the number of files.
func (s *Suite) LoadBufferInSegments10Files(ctx context.Context, name string) (uint64, int, error) {
	start := meter.Performance(ctx)
	fds, err := s.openAll(name)
	if err != nil {
		return 0, 0, err
	}
	defer s.closeAll(fds)

	meta, err := s.fs.Metadata(fds[0])
	if err != nil {
		return 0, 0, err
	}
	s.resize(int(meta.Size) * len(fds))

	var read int
	for p, idx := 0, 0; p < len(s.buffer); idx++ {
		end := min(p+s.segmentSize, len(s.buffer))
		n, err := s.fs.ReadVec(fds[idx%len(fds)], [][]byte{s.buffer[p:end]})
		read += n
		if err != nil {
			return 0, read, err
		}
		if n == 0 {
			return 0, read, io.ErrUnexpectedEOF
		}
		p += n
	}
	return meter.Performance(ctx) - start, read, nil
}

// Close releases the buffer. Files stay in the environment.
func (s *Suite) Close() error {
	s.buffer = nil
	if open := s.fs.Open(); open > 1 {
		s.l.Warn("descriptors left open", zap.Int("open", open-1))
	}
	return nil
}
