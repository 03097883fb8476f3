package contracts

import "path/filepath"

// Installation locates one product line's SDK on the local disk.
type Installation struct {
	Line ProductLine
	Root string
}

func NewInstallation(dataDirectory string, line ProductLine) Installation {
	return Installation{Line: line, Root: filepath.Join(dataDirectory, line.FolderName)}
}

func (this Installation) RecordPath() string {
	return filepath.Join(this.Root, InstallRecordFile)
}

// WASISysroot is the sysroot handed to the compiler toolchain.
func (this Installation) WASISysroot() string {
	return filepath.Join(this.Root, filepath.FromSlash(WASISysrootDirectory))
}

type ProgressReporter interface {
	OnProgress(downloaded, total int64)
}

type ProgressFunc func(downloaded, total int64)

func (this ProgressFunc) OnProgress(downloaded, total int64) { this(downloaded, total) }
