package contracts

import "io"

type FileCreator interface {
	// Create truncates or creates the file, creating missing parent directories.
	Create(path string) (io.WriteCloser, error)
}

type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

type FileWriter interface {
	WriteFile(path string, content []byte) error
}

type DirectoryMaker interface {
	MkdirAll(path string) error
}

type TreeDeleter interface {
	// RemoveAll deletes path and everything below it; a missing path is not an error.
	RemoveAll(path string) error
}

type FileChecker interface {
	Exists(path string) (bool, error)
}

type FileSystem interface {
	FileCreator
	FileReader
	FileWriter
	DirectoryMaker
	TreeDeleter
	FileChecker
}
