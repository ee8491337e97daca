// Package fileutil provides the filesystem glue between the OS and the
// pure pkg/ccscript codec: an os.* backed FileSystem implementation.
package fileutil

import (
	"os"

	"github.com/aikika/ccpatch/internal/patch/interfaces"
)

// OSFileSystem implements interfaces.FileSystem directly against the os
// package. It carries no state.
type OSFileSystem struct{}

func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (OSFileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFileSystem) ReadDir(path string) ([]interfaces.DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	out := make([]interfaces.DirEntry, len(entries))
	for i, e := range entries {
		out[i] = osDirEntry{e}
	}
	return out, nil
}

func (OSFileSystem) Stat(path string) (interfaces.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return osFileInfo{info}, nil
}

type osDirEntry struct{ e os.DirEntry }

func (d osDirEntry) Name() string { return d.e.Name() }
func (d osDirEntry) IsDir() bool  { return d.e.IsDir() }

type osFileInfo struct{ i os.FileInfo }

func (f osFileInfo) Name() string { return f.i.Name() }
func (f osFileInfo) Size() int64  { return f.i.Size() }
func (f osFileInfo) IsDir() bool  { return f.i.IsDir() }
