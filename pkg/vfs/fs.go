// Copyright © 2018 One Concern

// Package vfs exposes a file descriptor based file system over afero.
//
// Descriptors are small integers allocated from a table, the root directory
// being always open as RootFd. Vectored reads and writes move the file cursor
// like their POSIX counterparts.
package vfs

import (
	"io"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/oneconcern/stablebench/pkg/errors"

	"github.com/spf13/afero"
)

// Fd is a file descriptor
type Fd uint32

// RootFd is the descriptor of the root directory
const RootFd Fd = 3

var (
	// ErrBadFd is returned for a descriptor which is not open
	ErrBadFd = errors.New("bad file descriptor")

	// ErrNotDir is returned when a directory descriptor is expected
	ErrNotDir = errors.New("not a directory")
)

// OpenFlags alter the behavior of OpenOrCreate
type OpenFlags uint8

// Open flags
const (
	Create OpenFlags = 1 << iota
	Truncate
	Exclusive
)

// Kind of a file system node
type Kind uint8

// Node kinds
const (
	RegularFile Kind = iota + 1
	Directory
)

// Metadata describes an open node
type Metadata struct {
	Name string
	Kind Kind
	Size int64
}

type node struct {
	name string
	file afero.File
	dir  bool
}

// FS is a file system with a descriptor table. It is safe for concurrent use.
type FS struct {
	fs     afero.Fs
	mx     sync.Mutex
	nodes  map[Fd]*node
	nextFd Fd
}

// New file system over an afero.Fs
func New(fs afero.Fs) *FS {
	return &FS{
		fs:     fs,
		nodes:  map[Fd]*node{RootFd: {name: "/", dir: true}},
		nextFd: RootFd + 1,
	}
}

// Fs returns the underlying afero file system
func (f *FS) Fs() afero.Fs { return f.fs }

// RootFd returns the descriptor of the root directory
func (f *FS) RootFd() Fd { return RootFd }

func (f *FS) get(fd Fd) (*node, error) {
	n, ok := f.nodes[fd]
	if !ok {
		return nil, ErrBadFd.Wrapf("fd %d", fd)
	}
	return n, nil
}

// OpenOrCreate opens a file relative to a directory descriptor
func (f *FS) OpenOrCreate(dir Fd, name string, flags OpenFlags) (Fd, error) {
	f.mx.Lock()
	defer f.mx.Unlock()

	parent, err := f.get(dir)
	if err != nil {
		return 0, err
	}
	if !parent.dir {
		return 0, ErrNotDir.Wrapf("fd %d", dir)
	}

	pth := path.Join(parent.name, name)
	fi, err := f.fs.Stat(pth)
	switch {
	case err == nil && fi.IsDir():
		f.nodes[f.nextFd] = &node{name: pth, dir: true}
		f.nextFd++
		return f.nextFd - 1, nil
	case err != nil && !os.IsNotExist(err):
		return 0, err
	}

	mode := os.O_RDWR
	if flags&Create != 0 {
		mode |= os.O_CREATE
	}
	if flags&Truncate != 0 {
		mode |= os.O_TRUNC
	}
	if flags&Exclusive != 0 {
		mode |= os.O_EXCL
	}
	file, err := f.fs.OpenFile(pth, mode, 0600)
	if err != nil {
		return 0, err
	}

	fd := f.nextFd
	f.nodes[fd] = &node{name: pth, file: file}
	f.nextFd++
	return fd, nil
}

// Seek sets the cursor of an open file
func (f *FS) Seek(fd Fd, offset int64, whence int) (int64, error) {
	file, err := f.file(fd)
	if err != nil {
		return 0, err
	}
	return file.Seek(offset, whence)
}

// WriteVec writes all buffers at the cursor position
func (f *FS) WriteVec(fd Fd, bufs [][]byte) (int, error) {
	file, err := f.file(fd)
	if err != nil {
		return 0, err
	}
	var total int
	for _, buf := range bufs {
		n, err := file.Write(buf)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadVec fills buffers from the cursor position. A short count means end of file.
func (f *FS) ReadVec(fd Fd, bufs [][]byte) (int, error) {
	file, err := f.file(fd)
	if err != nil {
		return 0, err
	}
	var total int
	for _, buf := range bufs {
		n, err := io.ReadFull(file, buf)
		total += n
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Metadata of an open node
func (f *FS) Metadata(fd Fd) (Metadata, error) {
	f.mx.Lock()
	n, err := f.get(fd)
	f.mx.Unlock()
	if err != nil {
		return Metadata{}, err
	}
	if n.dir {
		return Metadata{Name: n.name, Kind: Directory}, nil
	}
	fi, err := n.file.Stat()
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{Name: n.name, Kind: RegularFile, Size: fi.Size()}, nil
}

// Close a descriptor. The root descriptor cannot be closed.
func (f *FS) Close(fd Fd) error {
	f.mx.Lock()
	defer f.mx.Unlock()
	if fd == RootFd {
		return nil
	}
	n, err := f.get(fd)
	if err != nil {
		return err
	}
	delete(f.nodes, fd)
	if n.file != nil {
		return n.file.Close()
	}
	return nil
}

// CreateDirAll creates a directory with all missing parents
func (f *FS) CreateDirAll(pth string) error {
	return f.fs.MkdirAll(path.Join("/", pth), 0700)
}

// ReadDir lists the names of the entries of a directory, sorted
func (f *FS) ReadDir(pth string) ([]string, error) {
	infos, err := afero.ReadDir(f.fs, path.Join("/", pth))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Remove a file or an empty directory
func (f *FS) Remove(pth string) error {
	return f.fs.Remove(path.Join("/", pth))
}

// Open descriptors, the root included
func (f *FS) Open() int {
	f.mx.Lock()
	defer f.mx.Unlock()
	return len(f.nodes)
}

func (f *FS) file(fd Fd) (afero.File, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	n, err := f.get(fd)
	if err != nil {
		return nil, err
	}
	if n.dir {
		return nil, ErrBadFd.Wrapf("fd %d is a directory", fd)
	}
	return n.file, nil
}
