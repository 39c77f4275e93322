// Copyright © 2018 One Concern

// Package stable manages the persistent memory of a benchmark environment.
//
// An environment owns a data directory, split into numbered memories.
// Storage libraries which work with OS files (SQLite, bolt, badger, pebble) get
// a real directory per memory, while the virtual file system gets an afero view,
// either on disk or in memory.
package stable

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oneconcern/stablebench/pkg/dlogger"
	"github.com/oneconcern/stablebench/pkg/errors"

	"github.com/karrick/godirwalk"
	"github.com/nightlyone/lockfile"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Memory kinds
const (
	KindMem  = "mem"
	KindDisk = "disk"
)

const lockName = ".lock"

// held tracks the roots owned by this process, which the lock file does not tell apart
var held sync.Map

var (
	// ErrLocked means that another process owns the data directory
	ErrLocked = errors.New("data directory is used by another process")

	// ErrUnknownKind is returned for an unsupported memory kind
	ErrUnknownKind = errors.New("unknown memory kind")
)

// MemoryID identifies a memory within an environment
type MemoryID uint8

func (id MemoryID) String() string {
	return fmt.Sprintf("mem-%d", id)
}

func (id MemoryID) path() string {
	return string(filepath.Separator) + id.String()
}

// Env is a persistent memory environment
type Env struct {
	root   string
	kind   string
	fs     afero.Fs
	lock   lockfile.Lockfile
	l      *zap.Logger
	closed bool
}

// Open an environment rooted in dir, taking ownership of it
func Open(dir, kind string, logger *zap.Logger) (*Env, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0700); err != nil {
		return nil, err
	}

	var fs afero.Fs
	switch kind {
	case KindMem:
		fs = afero.NewMemMapFs()
	case KindDisk, "":
		kind = KindDisk
		fs = afero.NewBasePathFs(afero.NewOsFs(), root)
	default:
		return nil, ErrUnknownKind.Wrapf("%q", kind)
	}

	if _, loaded := held.LoadOrStore(root, struct{}{}); loaded {
		return nil, ErrLocked
	}
	lock, err := lockfile.New(filepath.Join(root, lockName))
	if err != nil {
		held.Delete(root)
		return nil, err
	}
	if err := lock.TryLock(); err != nil {
		held.Delete(root)
		return nil, ErrLocked.Wrap(err)
	}

	e := &Env{
		root: root,
		kind: kind,
		fs:   fs,
		lock: lock,
		l:    dlogger.Component(logger, "stable").With(zap.String("root", root), zap.String("kind", kind)),
	}
	e.l.Debug("opened environment")
	return e, nil
}

// Fresh creates a new environment with a unique name under parent
func Fresh(parent, kind string, logger *zap.Logger) (*Env, error) {
	return Open(filepath.Join(parent, "run-"+ksuid.New().String()), kind, logger)
}

// Root directory of the environment
func (e *Env) Root() string { return e.root }

// Kind of memory backing the virtual file system
func (e *Env) Kind() string { return e.kind }

// Logger for the environment
func (e *Env) Logger() *zap.Logger { return e.l }

// Fs returns the virtual file system view of a memory
func (e *Env) Fs(id MemoryID) (afero.Fs, error) {
	if err := e.fs.MkdirAll(id.path(), 0700); err != nil {
		return nil, err
	}
	return afero.NewBasePathFs(e.fs, id.path()), nil
}

// Dir returns the OS directory of a memory, for libraries managing their own files
func (e *Env) Dir(id MemoryID) (string, error) {
	pth := filepath.Join(e.root, id.String())
	if err := os.MkdirAll(pth, 0700); err != nil {
		return "", err
	}
	return pth, nil
}

// Usage reports the bytes used by all memories
func (e *Env) Usage() (uint64, error) {
	return e.usage(e.root, string(filepath.Separator))
}

// UsageOf reports the bytes used by one memory
func (e *Env) UsageOf(id MemoryID) (uint64, error) {
	return e.usage(filepath.Join(e.root, id.String()), id.path())
}

func (e *Env) usage(dir, memDir string) (uint64, error) {
	var total uint64

	if _, err := os.Stat(dir); err == nil {
		err = godirwalk.Walk(dir, &godirwalk.Options{
			Unsorted: true,
			Callback: func(pth string, de *godirwalk.Dirent) error {
				if !de.IsRegular() || de.Name() == lockName {
					return nil
				}
				fi, err := os.Lstat(pth)
				if err != nil {
					if os.IsNotExist(err) {
						return nil
					}
					return err
				}
				total += uint64(fi.Size())
				return nil
			},
		})
		if err != nil {
			return 0, err
		}
	}

	if e.kind != KindMem {
		return total, nil
	}

	if ok, _ := afero.DirExists(e.fs, memDir); !ok {
		return total, nil
	}
	err := afero.Walk(e.fs, memDir, func(_ string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.Mode().IsRegular() {
			total += uint64(fi.Size())
		}
		return nil
	})
	return total, err
}

// Close releases the ownership of the data directory
func (e *Env) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.l.Debug("closing environment")
	defer held.Delete(e.root)
	return e.lock.Unlock()
}

// Destroy closes the environment and removes all its data
func (e *Env) Destroy() error {
	if err := e.Close(); err != nil {
		return err
	}
	return os.RemoveAll(e.root)
}
