// Copyright © 2018 One Concern

package fsbench

import (
	"context"

	"github.com/oneconcern/stablebench/pkg/rpc"
)

// transfer results are sent as [units, bytes]
func (s *Suite) transfer(op func(context.Context, string) (uint64, int, error)) rpc.Handler {
	return func(ctx context.Context, args rpc.Args) (interface{}, error) {
		var name string
		if err := args.Decode(&name); err != nil {
			return nil, err
		}
		units, n, err := op(ctx, name)
		if err != nil {
			return nil, err
		}
		return []uint64{units, uint64(n)}, nil
	}
}

// Service exposes the suite as RPC methods
func (s *Suite) Service(opts ...rpc.Option) *rpc.Service {
	return rpc.NewService(Name, opts...).MustRegister(
		rpc.Method{Name: "append_buffer", Kind: rpc.Update, Handler: func(_ context.Context, args rpc.Args) (interface{}, error) {
			var (
				text  string
				times int
			)
			if err := args.Decode(&text, &times); err != nil {
				return nil, err
			}
			return s.AppendBuffer(text, times), nil
		}},
		rpc.Method{Name: "check_buffer", Kind: rpc.Query, Handler: func(_ context.Context, args rpc.Args) (interface{}, error) {
			var (
				text  string
				times int
			)
			if err := args.Decode(&text, &times); err != nil {
				return nil, err
			}
			return s.CheckBuffer(text, times)
		}},
		rpc.Method{Name: "clear_buffer", Kind: rpc.Update, Handler: func(context.Context, rpc.Args) (interface{}, error) {
			s.ClearBuffer()
			return nil, nil
		}},
		rpc.Method{Name: "read_buffer", Kind: rpc.Query, Handler: func(_ context.Context, args rpc.Args) (interface{}, error) {
			var offset, size int
			if err := args.Decode(&offset, &size); err != nil {
				return nil, err
			}
			return s.ReadBuffer(offset, size)
		}},
		rpc.Method{Name: "file_size", Kind: rpc.Query, Handler: func(_ context.Context, args rpc.Args) (interface{}, error) {
			var name string
			if err := args.Decode(&name); err != nil {
				return nil, err
			}
			return s.FileSize(name)
		}},
		rpc.Method{Name: "store_buffer", Kind: rpc.Update, Handler: func(_ context.Context, args rpc.Args) (interface{}, error) {
			var name string
			if err := args.Decode(&name); err != nil {
				return nil, err
			}
			return s.StoreBuffer(name)
		}},
		rpc.Method{Name: "store_buffer_in_segments", Kind: rpc.Update, Handler: s.transfer(s.StoreBufferInSegments)},
		rpc.Method{Name: "store_buffer_in_segments_10_files", Kind: rpc.Update, Handler: s.transfer(s.StoreBufferInSegments10Files)},
		rpc.Method{Name: "load_buffer", Kind: rpc.Update, Handler: s.transfer(s.LoadBuffer)},
		rpc.Method{Name: "load_buffer_in_segments", Kind: rpc.Update, Handler: s.transfer(s.LoadBufferInSegments)},
		rpc.Method{Name: "load_buffer_in_segments_10_files", Kind: rpc.Update, Handler: s.transfer(s.LoadBufferInSegments10Files)},
	)
}
