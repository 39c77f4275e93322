// Copyright © 2018 One Concern

// Package folders creates and lists directories through the file system.
package folders

import (
	"context"
	"fmt"

	"github.com/oneconcern/stablebench/pkg/config"
	"github.com/oneconcern/stablebench/pkg/dlogger"
	"github.com/oneconcern/stablebench/pkg/stable"
	"github.com/oneconcern/stablebench/pkg/vfs"

	"go.uber.org/zap"
)

// Name of the suite
const Name = "folders"

// FSMemory holds the file system of the suite
const FSMemory stable.MemoryID = 0

// Suite holds a file system
type Suite struct {
	fs *vfs.FS
	l  *zap.Logger
}

// New suite over the file system memory of an environment
func New(_ context.Context, env *stable.Env, _ config.Config, logger *zap.Logger) (*Suite, error) {
	fs, err := env.Fs(FSMemory)
	if err != nil {
		return nil, err
	}
	return &Suite{
		fs: vfs.New(fs),
		l:  dlogger.Component(logger, Name),
	}, nil
}

// Name of the suite
func (s *Suite) Name() string { return Name }

// FS of the suite
func (s *Suite) FS() *vfs.FS { return s.fs }

// Greet returns a greeting for name
func (s *Suite) Greet(name string) string {
	msg := fmt.Sprintf("Hello from WASI: %s", name)
	s.l.Info(msg)
	return msg
}

// CreateFolders creates the directories dirname0 to dirname{count-1}, parents included
func (s *Suite) CreateFolders(dirname string, count int) error {
	for i := 0; i < count; i++ {
		if err := s.fs.CreateDirAll(fmt.Sprintf("%s%d", dirname, i)); err != nil {
			return err
		}
	}
	return nil
}

// ListFolders returns the names of the entries of a directory.
// A directory which cannot be read has no entries.
func (s *Suite) ListFolders(pth string) []string {
	names, err := s.fs.ReadDir(pth)
	if err != nil {
		s.l.Debug("cannot list directory", zap.String("path", pth), zap.Error(err))
		return []string{}
	}
	return names
}

// Close the suite. Directories stay in the environment.
func (s *Suite) Close() error { return nil }
