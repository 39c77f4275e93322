// Copyright © 2018 One Concern

package folders

import (
	"context"

	"github.com/oneconcern/stablebench/pkg/rpc"
)

// Service exposes the suite as RPC methods
func (s *Suite) Service(opts ...rpc.Option) *rpc.Service {
	return rpc.NewService(Name, opts...).MustRegister(
		rpc.Method{Name: "greet", Kind: rpc.Query, Handler: func(_ context.Context, args rpc.Args) (interface{}, error) {
			var name string
			if err := args.Decode(&name); err != nil {
				return nil, err
			}
			return s.Greet(name), nil
		}},
		rpc.Method{Name: "create_folders", Kind: rpc.Update, Handler: func(_ context.Context, args rpc.Args) (interface{}, error) {
			var (
				dirname string
				count   int
			)
			if err := args.Decode(&dirname, &count); err != nil {
				return nil, err
			}
			return nil, s.CreateFolders(dirname, count)
		}},
		rpc.Method{Name: "list_folders", Kind: rpc.Query, Handler: func(_ context.Context, args rpc.Args) (interface{}, error) {
			var pth string
			if err := args.Decode(&pth); err != nil {
				return nil, err
			}
			return s.ListFolders(pth), nil
		}},
	)
}
