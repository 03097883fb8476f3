package shell

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DiskFileSystem is the local file system.
type DiskFileSystem struct{}

func NewDiskFileSystem() *DiskFileSystem {
	return &DiskFileSystem{}
}

func (this *DiskFileSystem) Create(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

func (this *DiskFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (this *DiskFileSystem) WriteFile(path string, content []byte) error {
	return os.WriteFile(path, content, 0644)
}

func (this *DiskFileSystem) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

func (this *DiskFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (this *DiskFileSystem) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
