// Copyright © 2018 One Concern

package orders

import (
	"context"

	"github.com/oneconcern/stablebench/pkg/rpc"
)

// Service exposes the suite as RPC methods
func (s *Suite) Service(opts ...rpc.Option) *rpc.Service {
	return rpc.NewService(Name, opts...).MustRegister(
		rpc.Method{Name: "query", Kind: rpc.Query, Handler: func(ctx context.Context, args rpc.Args) (interface{}, error) {
			var query string
			if err := args.Decode(&query); err != nil {
				return nil, err
			}
			return s.Query(ctx, query)
		}},
		rpc.Method{Name: "execute", Kind: rpc.Update, Handler: func(ctx context.Context, args rpc.Args) (interface{}, error) {
			var stmt string
			if err := args.Decode(&stmt); err != nil {
				return nil, err
			}
			return nil, s.Execute(ctx, stmt)
		}},
		rpc.Method{Name: "create_tables", Kind: rpc.Update, Handler: func(ctx context.Context, _ rpc.Args) (interface{}, error) {
			return nil, s.CreateTables(ctx)
		}},
		rpc.Method{Name: "create_indices", Kind: rpc.Update, Handler: func(ctx context.Context, _ rpc.Args) (interface{}, error) {
			return nil, s.CreateIndices(ctx)
		}},
		rpc.Method{Name: "add_users", Kind: rpc.Update, Handler: func(ctx context.Context, args rpc.Args) (interface{}, error) {
			var offset, count uint64
			if err := args.Decode(&offset, &count); err != nil {
				return nil, err
			}
			if err := s.AddUsers(ctx, offset, count); err != nil {
				return nil, err
			}
			return "add_users OK", nil
		}},
		rpc.Method{Name: "add_orders", Kind: rpc.Update, Handler: func(ctx context.Context, args rpc.Args) (interface{}, error) {
			var offset, count, idMod uint64
			if err := args.Decode(&offset, &count, &idMod); err != nil {
				return nil, err
			}
			if err := s.AddOrders(ctx, offset, count, idMod); err != nil {
				return nil, err
			}
			return "add_orders OK", nil
		}},
	)
}
