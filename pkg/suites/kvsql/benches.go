// Copyright © 2018 One Concern

package kvsql

import (
	"context"
	"fmt"

	"github.com/oneconcern/stablebench/pkg/bench"
	"github.com/oneconcern/stablebench/pkg/config"
)

const (
	initialCount = 100000
	count        = 1000
	payloadSize  = 1000
	step         = 10
)

// Sizes of the benchmarks
type Sizes struct {
	Initial uint64
	Offset  uint64
	Count   uint64
	Payload int
}

// SizesFor returns benchmark sizes, scaled down by the configuration.
// The offset never collides with the ids of the initial users.
func SizesFor(cfg config.Config) Sizes {
	initial := uint64(cfg.Scaled(initialCount))
	return Sizes{
		Initial: initial,
		Offset:  initial/2/step*step + step/2,
		Count:   uint64(cfg.Scaled(count)),
		Payload: payloadSize,
	}
}

func withSuite(fn func(*bench.B, *Suite, Sizes) error) bench.Func {
	return func(b *bench.B) error {
		s, err := New(b.Context(), b.Env(), b.Config(), b.Logger())
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		s.InitPayload(payloadSize)
		return fn(b, s, SizesFor(b.Config()))
	}
}

// Register the benchmarks of the suite
func Register(r *bench.Registry) {
	add := func(name string, prepare, measured func(*Suite) func(context.Context, uint64, uint64, uint64) error) {
		r.MustRegister(Name, name, withSuite(func(b *bench.B, s *Suite, z Sizes) error {
			if err := prepare(s)(b.Context(), 0, step, z.Initial); err != nil {
				return err
			}
			return b.Run(func(ctx context.Context) error {
				return measured(s)(ctx, z.Offset, step, z.Count)
			})
		}))
	}
	btree := func(s *Suite) func(context.Context, uint64, uint64, uint64) error { return s.AddUsersBTree }
	naive := func(s *Suite) func(context.Context, uint64, uint64, uint64) error { return s.AddUsersNaive }
	stored := func(s *Suite) func(context.Context, uint64, uint64, uint64) error { return s.AddUsersStored }
	bulk := func(s *Suite) func(context.Context, uint64, uint64, uint64) error { return s.AddUsersBulk }

	add("bench_add_users_btree", btree, btree)
	add("bench_add_users_naive", bulk, naive)
	add("bench_add_users_stored", bulk, stored)
	add("bench_add_users_bulk", bulk, bulk)

	r.MustRegister(Name, "bench_read_users_btree", withSuite(func(b *bench.B, s *Suite, z Sizes) error {
		if err := s.AddUsersBTree(b.Context(), z.Offset, step, z.Count); err != nil {
			return err
		}
		if err := s.AddUsersBTree(b.Context(), 0, step, z.Initial); err != nil {
			return err
		}
		return b.Run(func(ctx context.Context) error {
			found, err := s.ReadUsersBTree(ctx, z.Offset, step, z.Count)
			if err != nil {
				return err
			}
			return expectFound(found, z)
		})
	}))

	r.MustRegister(Name, "bench_read_users_bulk", withSuite(func(b *bench.B, s *Suite, z Sizes) error {
		if err := s.AddUsersBulk(b.Context(), z.Offset, step, z.Count); err != nil {
			return err
		}
		if err := s.AddUsersBulk(b.Context(), 0, step, z.Initial); err != nil {
			return err
		}
		return b.Run(func(ctx context.Context) error {
			found, err := s.ReadUsersBulk(ctx, z.Offset, step, z.Count)
			if err != nil {
				return err
			}
			return expectFound(found, z)
		})
	}))
}

func expectFound(found uint64, z Sizes) error {
	expected := (z.Count + step - 1) / step
	if found != expected {
		return fmt.Errorf("expected to read %d users, got %d", expected, found)
	}
	return nil
}
