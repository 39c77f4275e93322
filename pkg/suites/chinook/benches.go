// Copyright © 2018 One Concern

package chinook

import (
	"context"

	"github.com/oneconcern/stablebench/pkg/bench"
	"github.com/oneconcern/stablebench/pkg/errors"
)

// ErrNoCustomers is returned when a customer batch inserted nothing
var ErrNoCustomers = errors.New("no customer added")

const selectCustomersByName = "SELECT CustomerId, FirstName, LastName FROM customers WHERE FirstName LIKE '1%' ORDER BY LastName LIMIT 100"

func withSuite(fn func(*bench.B, *Suite) error) bench.Func {
	return func(b *bench.B) error {
		s, err := New(b.Context(), b.Env(), b.Config(), b.Logger())
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		if err := s.CreateCustomers(b.Context()); err != nil {
			return err
		}
		return fn(b, s)
	}
}

func (s *Suite) addCustomers(ctx context.Context) error {
	_, added, err := s.AddCustomers(ctx, 0)
	if err != nil {
		return err
	}
	if added == 0 {
		return ErrNoCustomers
	}
	return nil
}

// Register the benchmarks of the suite
func Register(r *bench.Registry) {
	r.MustRegister(Name, "bench_add_customers", withSuite(func(b *bench.B, s *Suite) error {
		return b.Run(s.addCustomers)
	}))

	r.MustRegister(Name, "bench_create_chinook_indices", withSuite(func(b *bench.B, s *Suite) error {
		if err := s.addCustomers(b.Context()); err != nil {
			return err
		}
		return b.Run(s.CreateChinookIndices)
	}))

	r.MustRegister(Name, "bench_select_customers_by_name", withSuite(func(b *bench.B, s *Suite) error {
		if err := s.addCustomers(b.Context()); err != nil {
			return err
		}
		if err := s.CreateChinookIndices(b.Context()); err != nil {
			return err
		}
		return b.Run(func(ctx context.Context) error {
			_, err := s.Query(ctx, selectCustomersByName)
			return err
		})
	}))
}
