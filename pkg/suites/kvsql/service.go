// Copyright © 2018 One Concern

package kvsql

import (
	"context"

	"github.com/oneconcern/stablebench/pkg/rpc"
)

type usersArgs struct {
	offset, increment, count uint64
}

func decodeUsers(args rpc.Args) (usersArgs, error) {
	var a usersArgs
	err := args.Decode(&a.offset, &a.increment, &a.count)
	return a, err
}

func (s *Suite) addUsers(add func(context.Context, uint64, uint64, uint64) error) rpc.Handler {
	return func(ctx context.Context, args rpc.Args) (interface{}, error) {
		a, err := decodeUsers(args)
		if err != nil {
			return nil, err
		}
		return nil, add(ctx, a.offset, a.increment, a.count)
	}
}

func (s *Suite) readUsers(read func(context.Context, uint64, uint64, uint64) (uint64, error)) rpc.Handler {
	return func(ctx context.Context, args rpc.Args) (interface{}, error) {
		a, err := decodeUsers(args)
		if err != nil {
			return nil, err
		}
		return read(ctx, a.offset, a.increment, a.count)
	}
}

// Service exposes the suite as RPC methods
func (s *Suite) Service(opts ...rpc.Option) *rpc.Service {
	return rpc.NewService(Name, opts...).MustRegister(
		rpc.Method{Name: "create_tables", Kind: rpc.Update, Handler: func(ctx context.Context, _ rpc.Args) (interface{}, error) {
			return nil, s.CreateTables(ctx)
		}},
		rpc.Method{Name: "init_payload", Kind: rpc.Update, Handler: func(_ context.Context, args rpc.Args) (interface{}, error) {
			var size int
			if err := args.Decode(&size); err != nil {
				return nil, err
			}
			s.InitPayload(size)
			return nil, nil
		}},
		rpc.Method{Name: "add_users_btree", Kind: rpc.Update, Handler: s.addUsers(s.AddUsersBTree)},
		rpc.Method{Name: "add_users_naive", Kind: rpc.Update, Handler: s.addUsers(s.AddUsersNaive)},
		rpc.Method{Name: "add_users_stored", Kind: rpc.Update, Handler: s.addUsers(s.AddUsersStored)},
		rpc.Method{Name: "add_users_bulk", Kind: rpc.Update, Handler: s.addUsers(s.AddUsersBulk)},
		rpc.Method{Name: "read_users_btree", Kind: rpc.Query, Handler: s.readUsers(s.ReadUsersBTree)},
		rpc.Method{Name: "read_users_bulk", Kind: rpc.Query, Handler: s.readUsers(s.ReadUsersBulk)},
	)
}
