// Copyright © 2018 One Concern

package cmd

import (
	"context"
	"path/filepath"

	"github.com/oneconcern/stablebench/pkg/bench"
	"github.com/oneconcern/stablebench/pkg/config"
	"github.com/oneconcern/stablebench/pkg/rpc"
	"github.com/oneconcern/stablebench/pkg/stable"
	"github.com/oneconcern/stablebench/pkg/suites/chinook"
	"github.com/oneconcern/stablebench/pkg/suites/folders"
	"github.com/oneconcern/stablebench/pkg/suites/fsbench"
	"github.com/oneconcern/stablebench/pkg/suites/kvsql"
	"github.com/oneconcern/stablebench/pkg/suites/orders"
	"github.com/oneconcern/stablebench/pkg/suites/person"

	"go.uber.org/zap"
)

// suite is an open workload, exposed as a service
type suite interface {
	Service(opts ...rpc.Option) *rpc.Service
	Close() error
}

type suiteDef struct {
	name     string
	open     func(context.Context, *stable.Env, config.Config, *zap.Logger) (suite, error)
	register func(*bench.Registry)
}

var suites = []suiteDef{
	{
		name: kvsql.Name,
		open: func(ctx context.Context, env *stable.Env, c config.Config, l *zap.Logger) (suite, error) {
			return kvsql.New(ctx, env, c, l)
		},
		register: kvsql.Register,
	},
	{
		name: fsbench.Name,
		open: func(ctx context.Context, env *stable.Env, c config.Config, l *zap.Logger) (suite, error) {
			return fsbench.New(ctx, env, c, l)
		},
		register: fsbench.Register,
	},
	{
		name: orders.Name,
		open: func(ctx context.Context, env *stable.Env, c config.Config, l *zap.Logger) (suite, error) {
			return orders.New(ctx, env, c, l)
		},
		register: orders.Register,
	},
	{
		name: chinook.Name,
		open: func(ctx context.Context, env *stable.Env, c config.Config, l *zap.Logger) (suite, error) {
			return chinook.New(ctx, env, c, l)
		},
		register: chinook.Register,
	},
	{
		name: person.Name,
		open: func(ctx context.Context, env *stable.Env, c config.Config, l *zap.Logger) (suite, error) {
			return person.New(ctx, env, c, l)
		},
		register: person.Register,
	},
	{
		name: folders.Name,
		open: func(ctx context.Context, env *stable.Env, c config.Config, l *zap.Logger) (suite, error) {
			return folders.New(ctx, env, c, l)
		},
		register: folders.Register,
	},
}

// registry of the benchmarks of all suites
func registry() *bench.Registry {
	r := bench.NewRegistry()
	for _, s := range suites {
		s.register(r)
	}
	return r
}

func findSuites(names ...string) []suiteDef {
	if len(names) == 0 {
		return suites
	}
	found := make([]suiteDef, 0, len(names))
	for _, s := range suites {
		for _, name := range names {
			if s.name == name {
				found = append(found, s)
				break
			}
		}
	}
	return found
}

type openSuite struct {
	suite suite
	env   *stable.Env
}

// services opens suites, each in its own environment under the data directory,
// and routes calls to their services. The returned function closes them all.
func services(ctx context.Context, c config.Config, l *zap.Logger, defs []suiteDef, opts ...rpc.Option) (*rpc.Router, func() error, error) {
	router := rpc.NewRouter(l)
	opened := make([]openSuite, 0, len(defs))
	closeAll := func() error {
		var first error
		for i := len(opened) - 1; i >= 0; i-- {
			if err := opened[i].suite.Close(); err != nil && first == nil {
				first = err
			}
			if err := opened[i].env.Close(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	for _, def := range defs {
		env, err := stable.Open(filepath.Join(c.DataDir, def.name), c.Memory, l)
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		s, err := def.open(ctx, env, c, l)
		if err != nil {
			_ = env.Close()
			_ = closeAll()
			return nil, nil, err
		}
		opened = append(opened, openSuite{suite: s, env: env})
		router.Add(s.Service(opts...))
	}
	return router, closeAll, nil
}
