// Copyright © 2018 One Concern

package person

import (
	"context"

	"github.com/oneconcern/stablebench/pkg/rpc"
)

type byOffset func(context.Context, Table, uint64) (string, error)

func (t Table) method(name string, kind rpc.Kind, op byOffset) rpc.Method {
	return rpc.Method{Name: t.Prefix + "_" + name, Kind: kind, Handler: func(ctx context.Context, args rpc.Args) (interface{}, error) {
		var offset uint64
		if err := args.Decode(&offset); err != nil {
			return nil, err
		}
		return op(ctx, t, offset)
	}}
}

func (s *Suite) tableMethods(t Table) []rpc.Method {
	return []rpc.Method{
		{Name: t.Prefix + "_insert_" + t.Name, Kind: rpc.Update, Handler: func(ctx context.Context, args rpc.Args) (interface{}, error) {
			var offset, count uint64
			if err := args.Decode(&offset, &count); err != nil {
				return nil, err
			}
			return s.Insert(ctx, t, offset, count)
		}},
		t.method("insert_"+t.Name+"_one", rpc.Update, s.InsertOne),
		t.method("query_"+t.Name+"_by_id", rpc.Query, s.QueryByID),
		t.method("query_"+t.Name+"_by_name", rpc.Query, s.QueryByName),
		t.method("query_"+t.Name+"_by_like_name", rpc.Query, s.QueryByLikeName),
		{Name: t.Prefix + "_query_" + t.Name + "_by_limit_offset", Kind: rpc.Query, Handler: func(ctx context.Context, args rpc.Args) (interface{}, error) {
			var limit, offset uint64
			if err := args.Decode(&limit, &offset); err != nil {
				return nil, err
			}
			return s.QueryByLimitOffset(ctx, t, limit, offset)
		}},
		t.method("update_"+t.Name+"_by_id", rpc.Update, s.UpdateByID),
		t.method("update_"+t.Name+"_by_name", rpc.Update, s.UpdateByName),
		t.method("delete_"+t.Name+"_by_id", rpc.Update, s.DeleteByID),
	}
}

// Service exposes the suite as RPC methods
func (s *Suite) Service(opts ...rpc.Option) *rpc.Service {
	methods := []rpc.Method{
		{Name: "execute", Kind: rpc.Update, Handler: func(ctx context.Context, args rpc.Args) (interface{}, error) {
			var stmt string
			if err := args.Decode(&stmt); err != nil {
				return nil, err
			}
			return s.Execute(ctx, stmt)
		}},
		{Name: "count", Kind: rpc.Query, Handler: func(ctx context.Context, args rpc.Args) (interface{}, error) {
			var table string
			if err := args.Decode(&table); err != nil {
				return nil, err
			}
			return s.Count(ctx, table)
		}},
	}
	methods = append(methods, s.tableMethods(Persons)...)
	methods = append(methods, s.tableMethods(Persons2)...)
	return rpc.NewService(Name, opts...).MustRegister(methods...)
}
