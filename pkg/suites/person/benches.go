// Copyright © 2018 One Concern

package person

import (
	"context"

	"github.com/oneconcern/stablebench/pkg/bench"
	"github.com/oneconcern/stablebench/pkg/config"
)

const (
	initialCount = 10000
	batchCount   = 1000
	pageSize     = 100
)

// Sizes of the benchmarks
type Sizes struct {
	Initial uint64
	Batch   uint64
	Page    uint64
	Target  uint64
}

// SizesFor returns benchmark sizes, scaled down by the configuration.
// Target is the offset of the row single row operations work on.
func SizesFor(cfg config.Config) Sizes {
	initial := uint64(cfg.Scaled(initialCount))
	return Sizes{
		Initial: initial,
		Batch:   uint64(cfg.Scaled(batchCount)),
		Page:    uint64(cfg.Scaled(pageSize)),
		Target:  initial / 2,
	}
}

func withSuite(t Table, fn func(*bench.B, *Suite, Sizes) error) bench.Func {
	return func(b *bench.B) error {
		s, err := New(b.Context(), b.Env(), b.Config(), b.Logger())
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		z := SizesFor(b.Config())
		if _, err := s.Insert(b.Context(), t, 0, z.Initial); err != nil {
			return err
		}
		return fn(b, s, z)
	}
}

func discard(op func(context.Context) (string, error)) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := op(ctx)
		return err
	}
}

func registerTable(r *bench.Registry, t Table) {
	add := func(name string, measured func(*Suite, Sizes) func(context.Context) (string, error)) {
		r.MustRegister(Name, t.Prefix+"_"+name, withSuite(t, func(b *bench.B, s *Suite, z Sizes) error {
			return b.Run(discard(measured(s, z)))
		}))
	}
	at := func(op func(*Suite) byOffset) func(*Suite, Sizes) func(context.Context) (string, error) {
		return func(s *Suite, z Sizes) func(context.Context) (string, error) {
			return func(ctx context.Context) (string, error) {
				return op(s)(ctx, t, z.Target)
			}
		}
	}

	add("insert_"+t.Name, func(s *Suite, z Sizes) func(context.Context) (string, error) {
		return func(ctx context.Context) (string, error) {
			return s.Insert(ctx, t, z.Initial, z.Batch)
		}
	})
	add("insert_"+t.Name+"_one", func(s *Suite, z Sizes) func(context.Context) (string, error) {
		return func(ctx context.Context) (string, error) {
			return s.InsertOne(ctx, t, z.Initial)
		}
	})
	add("query_"+t.Name+"_by_id", at(func(s *Suite) byOffset { return s.QueryByID }))
	add("query_"+t.Name+"_by_name", at(func(s *Suite) byOffset { return s.QueryByName }))
	add("query_"+t.Name+"_by_like_name", at(func(s *Suite) byOffset { return s.QueryByLikeName }))
	add("query_"+t.Name+"_by_limit_offset", func(s *Suite, z Sizes) func(context.Context) (string, error) {
		return func(ctx context.Context) (string, error) {
			return s.QueryByLimitOffset(ctx, t, z.Page, z.Target)
		}
	})
	add("update_"+t.Name+"_by_id", at(func(s *Suite) byOffset { return s.UpdateByID }))
	add("update_"+t.Name+"_by_name", at(func(s *Suite) byOffset { return s.UpdateByName }))
	add("delete_"+t.Name+"_by_id", at(func(s *Suite) byOffset { return s.DeleteByID }))
}

// Register the benchmarks of the suite
func Register(r *bench.Registry) {
	registerTable(r, Persons)
	registerTable(r, Persons2)
}
