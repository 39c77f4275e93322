// Copyright © 2018 One Concern

package chinook

import (
	"context"

	"github.com/oneconcern/stablebench/pkg/rpc"
)

func (s *Suite) withSQL(fn func(context.Context, string) (interface{}, error)) rpc.Handler {
	return func(ctx context.Context, args rpc.Args) (interface{}, error) {
		var query string
		if err := args.Decode(&query); err != nil {
			return nil, err
		}
		return fn(ctx, query)
	}
}

// Service exposes the suite as RPC methods
func (s *Suite) Service(opts ...rpc.Option) *rpc.Service {
	return rpc.NewService(Name, opts...).MustRegister(
		rpc.Method{Name: "query", Kind: rpc.Update, Handler: s.withSQL(func(ctx context.Context, query string) (interface{}, error) {
			return s.Query(ctx, query)
		})},
		rpc.Method{Name: "execute_batch", Kind: rpc.Update, Handler: s.withSQL(func(ctx context.Context, batch string) (interface{}, error) {
			return nil, s.ExecuteBatch(ctx, batch)
		})},
		rpc.Method{Name: "upload_database", Kind: rpc.Update, Handler: func(_ context.Context, args rpc.Args) (interface{}, error) {
			var content []byte
			if err := args.Decode(&content); err != nil {
				return nil, err
			}
			return nil, s.UploadDatabase(content)
		}},
		rpc.Method{Name: "download_database", Kind: rpc.Query, Handler: func(context.Context, rpc.Args) (interface{}, error) {
			return s.DownloadDatabase()
		}},
		rpc.Method{Name: "close_database", Kind: rpc.Update, Handler: func(context.Context, rpc.Args) (interface{}, error) {
			return nil, s.CloseDatabase()
		}},
		rpc.Method{Name: "get_db_size", Kind: rpc.Update, Handler: func(context.Context, rpc.Args) (interface{}, error) {
			return s.GetDBSize()
		}},
		rpc.Method{Name: "first_bytes", Kind: rpc.Query, Handler: func(context.Context, rpc.Args) (interface{}, error) {
			return s.FirstBytes()
		}},
		rpc.Method{Name: "get_tables", Kind: rpc.Update, Handler: func(ctx context.Context, _ rpc.Args) (interface{}, error) {
			return s.GetTables(ctx)
		}},
		rpc.Method{Name: "create_chinook_indices", Kind: rpc.Update, Handler: func(ctx context.Context, _ rpc.Args) (interface{}, error) {
			return nil, s.CreateChinookIndices(ctx)
		}},
		rpc.Method{Name: "create_customers", Kind: rpc.Update, Handler: func(ctx context.Context, _ rpc.Args) (interface{}, error) {
			return nil, s.CreateCustomers(ctx)
		}},
		rpc.Method{Name: "add_customers", Kind: rpc.Update, Handler: func(ctx context.Context, args rpc.Args) (interface{}, error) {
			var offset uint64
			if err := args.Decode(&offset); err != nil {
				return nil, err
			}
			spent, _, err := s.AddCustomers(ctx, offset)
			return spent, err
		}},
	)
}
