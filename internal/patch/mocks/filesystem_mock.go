// Package mocks provides in-memory fakes for interfaces.FileSystem and
// interfaces.ImageWriter so app.App can be exercised without touching a
// real filesystem or disk image.
package mocks

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/aikika/ccpatch/internal/patch/interfaces"
)

// FileSystem is an in-memory interfaces.FileSystem backed by a flat map of
// path to contents, plus a set of directory paths.
type FileSystem struct {
	Files map[string][]byte
	Dirs  map[string]bool
	Error error // if set, every method returns this error
}

func NewFileSystem() *FileSystem {
	return &FileSystem{Files: map[string][]byte{}, Dirs: map[string]bool{}}
}

func (fs *FileSystem) ReadFile(path string) ([]byte, error) {
	if fs.Error != nil {
		return nil, fs.Error
	}
	data, ok := fs.Files[path]
	if !ok {
		return nil, fmt.Errorf("mocks: %s: %w", path, os.ErrNotExist)
	}
	return data, nil
}

func (fs *FileSystem) WriteFile(path string, data []byte, _ os.FileMode) error {
	if fs.Error != nil {
		return fs.Error
	}
	fs.Files[path] = append([]byte(nil), data...)
	return nil
}

func (fs *FileSystem) MkdirAll(path string, _ os.FileMode) error {
	if fs.Error != nil {
		return fs.Error
	}
	fs.Dirs[path] = true
	return nil
}

func (fs *FileSystem) ReadDir(path string) ([]interfaces.DirEntry, error) {
	if fs.Error != nil {
		return nil, fs.Error
	}
	prefix := strings.TrimSuffix(path, "/") + "/"
	seen := map[string]bool{}
	var names []string
	for p := range fs.Files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		rest := strings.TrimPrefix(p, prefix)
		if strings.Contains(rest, "/") {
			continue
		}
		if !seen[rest] {
			seen[rest] = true
			names = append(names, rest)
		}
	}
	sort.Strings(names)
	out := make([]interfaces.DirEntry, len(names))
	for i, n := range names {
		out[i] = mockDirEntry{name: n}
	}
	return out, nil
}

func (fs *FileSystem) Stat(path string) (interfaces.FileInfo, error) {
	if fs.Error != nil {
		return nil, fs.Error
	}
	data, ok := fs.Files[path]
	if !ok {
		return nil, fmt.Errorf("mocks: %s: %w", path, os.ErrNotExist)
	}
	return mockFileInfo{name: path, size: int64(len(data))}, nil
}

type mockDirEntry struct{ name string }

func (d mockDirEntry) Name() string { return d.name }
func (d mockDirEntry) IsDir() bool  { return false }

type mockFileInfo struct {
	name string
	size int64
}

func (f mockFileInfo) Name() string { return f.name }
func (f mockFileInfo) Size() int64  { return f.size }
func (f mockFileInfo) IsDir() bool  { return false }
