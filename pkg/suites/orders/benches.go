// Copyright © 2018 One Concern

package orders

import (
	"context"

	"github.com/oneconcern/stablebench/pkg/bench"
	"github.com/oneconcern/stablebench/pkg/config"
)

const orderCount = 1000000

const (
	selectWithJoin = `SELECT u.user_id, u.username, o.order_id, o.amount
FROM users u
JOIN orders o ON u.user_id = o.user_id
WHERE u.user_id < 1000
ORDER BY o.created_at DESC;`
	selectLikeEmail        = "SELECT * FROM users WHERE email LIKE 'user%';"
	deleteFirstUsersOrders = "DELETE FROM orders WHERE user_id <= 100"
)

// Sizes of the benchmarks
type Sizes struct {
	Orders uint64
	Users  uint64
}

// SizesFor returns benchmark sizes, scaled down by the configuration
func SizesFor(cfg config.Config) Sizes {
	orders := uint64(cfg.Scaled(orderCount))
	users := orders / 10
	if users == 0 {
		users = 1
	}
	return Sizes{Orders: orders, Users: users}
}

func withSuite(fn func(*bench.B, *Suite, Sizes) error) bench.Func {
	return func(b *bench.B) error {
		s, err := New(b.Context(), b.Env(), b.Config(), b.Logger())
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		return fn(b, s, SizesFor(b.Config()))
	}
}

// populate inserts users, their orders, and indexes both tables
func (s *Suite) populate(ctx context.Context, z Sizes) error {
	if err := s.AddUsers(ctx, 0, z.Users); err != nil {
		return err
	}
	if err := s.AddOrders(ctx, 0, z.Orders, z.Users); err != nil {
		return err
	}
	return s.CreateIndices(ctx)
}

func (s *Suite) query(query string) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.Query(ctx, query)
		return err
	}
}

// Register the benchmarks of the suite
func Register(r *bench.Registry) {
	r.MustRegister(Name, "bench_add_users", withSuite(func(b *bench.B, s *Suite, z Sizes) error {
		return b.Run(func(ctx context.Context) error {
			return s.AddUsers(ctx, 0, z.Users)
		})
	}))

	r.MustRegister(Name, "bench_add_orders", withSuite(func(b *bench.B, s *Suite, z Sizes) error {
		if err := s.AddUsers(b.Context(), 0, z.Users); err != nil {
			return err
		}
		return b.Run(func(ctx context.Context) error {
			return s.AddOrders(ctx, 0, z.Orders, z.Users)
		})
	}))

	r.MustRegister(Name, "bench_add_indices", withSuite(func(b *bench.B, s *Suite, z Sizes) error {
		if err := s.AddUsers(b.Context(), 0, z.Users); err != nil {
			return err
		}
		if err := s.AddOrders(b.Context(), 0, z.Orders, z.Users); err != nil {
			return err
		}
		return b.Run(s.CreateIndices)
	}))

	r.MustRegister(Name, "bench_select_with_join", withSuite(func(b *bench.B, s *Suite, z Sizes) error {
		if err := s.populate(b.Context(), z); err != nil {
			return err
		}
		return b.Run(s.query(selectWithJoin))
	}))

	r.MustRegister(Name, "bench_select_like_on_indexed_field", withSuite(func(b *bench.B, s *Suite, z Sizes) error {
		if err := s.populate(b.Context(), z); err != nil {
			return err
		}
		return b.Run(s.query(selectLikeEmail))
	}))

	r.MustRegister(Name, "bench_add_100_indexed_orders", withSuite(func(b *bench.B, s *Suite, z Sizes) error {
		if err := s.populate(b.Context(), z); err != nil {
			return err
		}
		return b.Run(func(ctx context.Context) error {
			return s.AddOrders(ctx, 0, 100, z.Users)
		})
	}))

	r.MustRegister(Name, "bench_remove_1000_indexed_orders", withSuite(func(b *bench.B, s *Suite, z Sizes) error {
		if err := s.populate(b.Context(), z); err != nil {
			return err
		}
		return b.Run(func(ctx context.Context) error {
			return s.Execute(ctx, deleteFirstUsersOrders)
		})
	}))

	r.MustRegister(Name, "bench_create_1000000_indexed_orders", withSuite(func(b *bench.B, s *Suite, z Sizes) error {
		if err := s.populate(b.Context(), z); err != nil {
			return err
		}
		if err := s.Execute(b.Context(), "DELETE FROM orders"); err != nil {
			return err
		}
		return b.Run(func(ctx context.Context) error {
			return s.AddOrders(ctx, 0, z.Orders, z.Users)
		})
	}))

	r.MustRegister(Name, "bench_delete_100000_indexed_orders_and_rollback", withSuite(func(b *bench.B, s *Suite, z Sizes) error {
		if err := s.populate(b.Context(), z); err != nil {
			return err
		}
		total := int64(z.Orders)
		if err := s.ExpectOrders(b.Context(), total); err != nil {
			return err
		}
		kept := z.Orders * 9 / 10
		if err := b.Run(func(ctx context.Context) error {
			inside, err := s.DeleteAndRollback(ctx, kept)
			if err != nil {
				return err
			}
			if inside != int64(kept) {
				return ErrBadCount.Wrapf("orders in transaction: expected %d, got %d", kept, inside)
			}
			return nil
		}); err != nil {
			return err
		}
		return s.ExpectOrders(b.Context(), total)
	}))
}
