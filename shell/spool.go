package shell

import (
	"bytes"
	"os"
)

// TempFileSpool buffers a download in a temporary file that is deleted on Close.
type TempFileSpool struct {
	*os.File
}

func NewTempFileSpool() (*TempFileSpool, error) {
	file, err := os.CreateTemp("", "sdkfetch-*.download")
	if err != nil {
		return nil, err
	}
	return &TempFileSpool{File: file}, nil
}

func (this *TempFileSpool) Close() error {
	closeErr := this.File.Close()
	removeErr := os.Remove(this.File.Name())
	if closeErr != nil {
		return closeErr
	}
	return removeErr
}

// MemorySpool buffers a download in memory.
type MemorySpool struct {
	buffer bytes.Buffer
}

func NewMemorySpool() *MemorySpool {
	return &MemorySpool{}
}

func (this *MemorySpool) Write(p []byte) (int, error) {
	return this.buffer.Write(p)
}

func (this *MemorySpool) ReadAt(p []byte, offset int64) (int, error) {
	return bytes.NewReader(this.buffer.Bytes()).ReadAt(p, offset)
}

func (this *MemorySpool) Close() error {
	this.buffer.Reset()
	return nil
}
