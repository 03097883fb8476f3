package shell

import (
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// InMemoryFileSystem keeps files and directories in maps. Paths are compared
// after cleaning and converting to forward slashes.
type InMemoryFileSystem struct {
	files       map[string]*file
	directories map[string]struct{}
	errCreate   map[string]error
}

func NewInMemoryFileSystem() *InMemoryFileSystem {
	return &InMemoryFileSystem{
		files:       make(map[string]*file),
		directories: make(map[string]struct{}),
		errCreate:   make(map[string]error),
	}
}

// FailCreate makes every later Create of path return err.
func (this *InMemoryFileSystem) FailCreate(path string, err error) {
	this.errCreate[normalize(path)] = err
}

func (this *InMemoryFileSystem) Create(path string) (io.WriteCloser, error) {
	path = normalize(path)
	if err := this.errCreate[path]; err != nil {
		return nil, err
	}
	if _, found := this.directories[path]; found {
		return nil, &fs.PathError{Op: "create", Path: path, Err: fs.ErrExist}
	}
	this.mkdirAll(parent(path))
	created := &file{}
	this.files[path] = created
	return created, nil
}

func (this *InMemoryFileSystem) ReadFile(path string) ([]byte, error) {
	found, ok := this.files[normalize(path)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), found.contents...), nil
}

func (this *InMemoryFileSystem) WriteFile(path string, content []byte) error {
	path = normalize(path)
	if _, found := this.directories[parent(path)]; !found && parent(path) != "." && parent(path) != "/" {
		return &fs.PathError{Op: "write", Path: path, Err: fs.ErrNotExist}
	}
	this.files[path] = &file{contents: append([]byte(nil), content...)}
	return nil
}

func (this *InMemoryFileSystem) MkdirAll(path string) error {
	this.mkdirAll(normalize(path))
	return nil
}

func (this *InMemoryFileSystem) mkdirAll(path string) {
	for ; path != "." && path != "/"; path = parent(path) {
		this.directories[path] = struct{}{}
	}
}

func (this *InMemoryFileSystem) RemoveAll(path string) error {
	path = normalize(path)
	for name := range this.files {
		if name == path || strings.HasPrefix(name, path+"/") {
			delete(this.files, name)
		}
	}
	for name := range this.directories {
		if name == path || strings.HasPrefix(name, path+"/") {
			delete(this.directories, name)
		}
	}
	return nil
}

func (this *InMemoryFileSystem) Exists(path string) (bool, error) {
	path = normalize(path)
	_, isFile := this.files[path]
	_, isDirectory := this.directories[path]
	return isFile || isDirectory, nil
}

// Listing returns every file path in order.
func (this *InMemoryFileSystem) Listing() (paths []string) {
	for name := range this.files {
		paths = append(paths, name)
	}
	sort.Strings(paths)
	return paths
}

func normalize(name string) string {
	return path.Clean(filepath.ToSlash(name))
}

func parent(name string) string {
	return path.Dir(name)
}

/////////////////////////////////////////////////

type file struct {
	contents []byte
}

func (this *file) Write(p []byte) (n int, err error) {
	this.contents = append(this.contents, p...)
	return len(p), nil
}

func (this *file) Close() error {
	return nil
}
