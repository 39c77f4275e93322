// Copyright © 2018 One Concern

package fsbench

import (
	"context"
	"fmt"

	"github.com/oneconcern/stablebench/pkg/bench"
	"github.com/oneconcern/stablebench/pkg/config"
)

const (
	text      = "abc1234567"
	times     = 10000000
	fileName  = "file.txt"
	tempName1 = "temp1.txt"
	tempName2 = "temp2.txt"
)

// Times the text is repeated in the benchmark buffer, scaled down by the configuration.
// The buffer always spans a whole number of segment rounds over all files, so that
// round-robin reads find every segment.
func Times(cfg config.Config) int {
	unit := cfg.FS.SegmentSize * cfg.FS.FilesCount
	unit /= gcd(unit, len(text))
	n := cfg.Scaled(times)
	if n -= n % unit; n == 0 {
		n = unit
	}
	return n
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func withSuite(fn func(*bench.B, *Suite, int) error) bench.Func {
	return func(b *bench.B) error {
		s, err := New(b.Context(), b.Env(), b.Config(), b.Logger())
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		return fn(b, s, Times(b.Config()))
	}
}

func (s *Suite) store(names ...string) error {
	for _, name := range names {
		if _, err := s.StoreBuffer(name); err != nil {
			return err
		}
	}
	return nil
}

func (s *Suite) clear() error {
	s.ClearBuffer()
	_, err := s.CheckBuffer(text, 0)
	return err
}

func expectBytes(n, expected int) error {
	if n != expected {
		return fmt.Errorf("expected %d bytes, got %d", expected, n)
	}
	return nil
}

func (s *Suite) checked(op func(context.Context, string) (uint64, int, error)) func(context.Context) error {
	return func(ctx context.Context) error {
		expected := len(s.buffer)
		_, n, err := op(ctx, fileName)
		if err != nil {
			return err
		}
		return expectBytes(n, expected)
	}
}

// Register the benchmarks of the suite
func Register(r *bench.Registry) {
	r.MustRegister(Name, "write_100mb", withSuite(func(b *bench.B, s *Suite, n int) error {
		if _, err := s.CheckBuffer(text, 0); err != nil {
			return err
		}
		s.AppendBuffer(text, n)
		if _, err := s.CheckBuffer(text, n); err != nil {
			return err
		}
		if err := s.store(tempName2); err != nil {
			return err
		}
		return b.Run(func(context.Context) error {
			return s.store(fileName)
		})
	}))

	r.MustRegister(Name, "write_100mb_over_existing", withSuite(func(b *bench.B, s *Suite, n int) error {
		s.AppendBuffer(text, n)
		if err := s.store(fileName, tempName2); err != nil {
			return err
		}
		return b.Run(func(context.Context) error {
			return s.store(fileName)
		})
	}))

	r.MustRegister(Name, "read_100mb", withSuite(func(b *bench.B, s *Suite, n int) error {
		s.AppendBuffer(text, n)
		if err := s.store(fileName, tempName2); err != nil {
			return err
		}
		if _, err := s.CheckBuffer(text, n); err != nil {
			return err
		}
		if err := s.clear(); err != nil {
			return err
		}
		if err := b.Run(func(ctx context.Context) error {
			_, _, err := s.LoadBuffer(ctx, fileName)
			return err
		}); err != nil {
			return err
		}
		_, err := s.CheckBuffer(text, n)
		return err
	}))

	r.MustRegister(Name, "write_100mb_in_segments", withSuite(func(b *bench.B, s *Suite, n int) error {
		s.AppendBuffer(text, n)
		if err := s.store(tempName1); err != nil {
			return err
		}
		if err := b.Run(s.checked(s.StoreBufferInSegments)); err != nil {
			return err
		}
		size, err := s.FileSize(fileName)
		if err != nil {
			return err
		}
		if err := expectBytes(int(size), len(text)*n); err != nil {
			return err
		}
		s.ClearBuffer()
		if _, _, err := s.LoadBuffer(b.Context(), fileName); err != nil {
			return err
		}
		_, err = s.CheckBuffer(text, n)
		return err
	}))

	r.MustRegister(Name, "write_100mb_in_segments_over_existing", withSuite(func(b *bench.B, s *Suite, n int) error {
		s.AppendBuffer(text, n)
		if err := s.store(tempName1, fileName, tempName2); err != nil {
			return err
		}
		return b.Run(s.checked(s.StoreBufferInSegments))
	}))

	r.MustRegister(Name, "read_100mb_in_segments", withSuite(func(b *bench.B, s *Suite, n int) error {
		s.AppendBuffer(text, n)
		if err := s.store(tempName1, fileName, tempName2); err != nil {
			return err
		}
		if err := s.clear(); err != nil {
			return err
		}
		if err := b.Run(func(ctx context.Context) error {
			_, _, err := s.LoadBufferInSegments(ctx, fileName)
			return err
		}); err != nil {
			return err
		}
		_, err := s.CheckBuffer(text, n)
		return err
	}))

	r.MustRegister(Name, "write_100mb_in_segments_10_files", withSuite(func(b *bench.B, s *Suite, n int) error {
		s.AppendBuffer(text, n)
		if err := b.Run(s.checked(s.StoreBufferInSegments10Files)); err != nil {
			return err
		}
		s.ClearBuffer()
		if _, _, err := s.LoadBufferInSegments10Files(b.Context(), fileName); err != nil {
			return err
		}
		_, err := s.CheckBuffer(text, n)
		return err
	}))

	r.MustRegister(Name, "write_100mb_in_segments_over_existing_10_files", withSuite(func(b *bench.B, s *Suite, n int) error {
		s.AppendBuffer(text, n)
		if _, _, err := s.StoreBufferInSegments10Files(b.Context(), fileName); err != nil {
			return err
		}
		if err := s.store(tempName2); err != nil {
			return err
		}
		return b.Run(s.checked(s.StoreBufferInSegments10Files))
	}))

	r.MustRegister(Name, "read_100mb_in_segments_from_10_files", withSuite(func(b *bench.B, s *Suite, n int) error {
		s.AppendBuffer(text, n)
		if _, _, err := s.StoreBufferInSegments10Files(b.Context(), fileName); err != nil {
			return err
		}
		s.ClearBuffer()
		if err := b.Run(func(ctx context.Context) error {
			_, _, err := s.LoadBufferInSegments10Files(ctx, fileName)
			return err
		}); err != nil {
			return err
		}
		_, err := s.CheckBuffer(text, n)
		return err
	}))
}
