// Package fsutil writes output files so that a failed run never leaves a
// half-written target behind.
package fsutil

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/gusttools/go-elixir"
)

// Function variables for testing injection.
var (
	rename   = os.Rename
	syncFile = func(f *os.File) error { return f.Sync() }
)

// AtomicFile is a temporary file in the target's directory that replaces
// the target on Commit.
type AtomicFile struct {
	*os.File
	path string
	done bool
}

// Create opens a temporary file for path. Callers must call Commit or
// Abort; Abort after Commit is a no-op, so it can be deferred.
func Create(path string, perm os.FileMode) (*AtomicFile, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, elixir.NewIOError("create", path, err)
	}
	if err := f.Chmod(perm); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, elixir.NewIOError("chmod", f.Name(), err)
	}
	return &AtomicFile{File: f, path: path}, nil
}

// Commit flushes the temporary file and renames it onto the target.
func (a *AtomicFile) Commit() error {
	if a.done {
		return nil
	}
	tmp := a.File.Name()
	if err := syncFile(a.File); err != nil {
		return a.fail(elixir.NewIOError("sync", tmp, err))
	}
	if err := a.File.Close(); err != nil {
		return a.fail(elixir.NewIOError("close", tmp, err))
	}
	if err := rename(tmp, a.path); err != nil {
		return a.fail(elixir.NewIOError("rename", a.path, err))
	}
	a.done = true
	return nil
}

// Abort discards the temporary file.
func (a *AtomicFile) Abort() error {
	if a.done {
		return nil
	}
	a.done = true
	var result error
	if err := a.File.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		result = multierror.Append(result, elixir.NewIOError("close", a.File.Name(), err))
	}
	if err := os.Remove(a.File.Name()); err != nil && !os.IsNotExist(err) {
		result = multierror.Append(result, elixir.NewIOError("remove", a.File.Name(), err))
	}
	return result
}

func (a *AtomicFile) fail(err error) error {
	if aerr := a.Abort(); aerr != nil {
		return multierror.Append(err, aerr)
	}
	return err
}
