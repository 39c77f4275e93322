// Copyright © 2018 One Concern

package folders

import (
	"context"
	"strconv"

	"github.com/oneconcern/stablebench/pkg/bench"
	"github.com/oneconcern/stablebench/pkg/errors"
)

const (
	dirname = "dir"
	folders = 1000
)

// ErrMissingFolders is returned when a listing does not hold the created folders
var ErrMissingFolders = errors.New("folders missing from listing")

func withSuite(fn func(*bench.B, *Suite, int) error) bench.Func {
	return func(b *bench.B) error {
		s, err := New(b.Context(), b.Env(), b.Config(), b.Logger())
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()
		return fn(b, s, b.Config().Scaled(folders))
	}
}

// Register the benchmarks of the suite
func Register(r *bench.Registry) {
	r.MustRegister(Name, "create_1000_folders", withSuite(func(b *bench.B, s *Suite, n int) error {
		return b.Run(func(context.Context) error {
			return s.CreateFolders(dirname, n)
		})
	}))

	r.MustRegister(Name, "create_1000_folders_1000_subfolders", withSuite(func(b *bench.B, s *Suite, n int) error {
		if err := s.CreateFolders(dirname, n); err != nil {
			return err
		}
		// subfolders of the last folder
		last := dirname + strconv.Itoa(n-1) + "/" + dirname
		return b.Run(func(context.Context) error {
			return s.CreateFolders(last, n)
		})
	}))

	r.MustRegister(Name, "list_1000_folders", withSuite(func(b *bench.B, s *Suite, n int) error {
		if err := s.CreateFolders(dirname, n); err != nil {
			return err
		}
		var names []string
		if err := b.Run(func(context.Context) error {
			names = s.ListFolders(".")
			return nil
		}); err != nil {
			return err
		}
		if len(names) < n {
			return ErrMissingFolders.Wrapf("listed %d of %d", len(names), n)
		}
		return nil
	}))
}
