package msi

import (
	"bytes"
	"io"

	"github.com/richardlehane/mscfb"
)

// streamSource exposes the raw (still encoded) streams of a database.
type streamSource interface {
	names() []string
	open(name string) (io.ReaderAt, int64, error)
}

// compoundSource serves streams straight out of a compound file. The
// directory is parsed once; stream content is only read when asked for.
type compoundSource struct {
	entries []string
	streams map[string]*streamReader
}

func newCompoundSource(reader io.ReaderAt) (*compoundSource, error) {
	document, err := mscfb.New(reader)
	if err != nil {
		return nil, err
	}
	this := &compoundSource{streams: make(map[string]*streamReader)}
	for {
		entry, err := document.Next()
		if err == io.EOF {
			return this, nil
		}
		if err != nil {
			return nil, err
		}
		if len(entry.Path) > 0 || entry.FileInfo().IsDir() {
			continue // streams nested in sub-storages belong to embedded documents
		}
		this.entries = append(this.entries, entry.Name)
		this.streams[entry.Name] = &streamReader{entry: entry}
	}
}

func (this *compoundSource) names() []string { return this.entries }

func (this *compoundSource) open(name string) (io.ReaderAt, int64, error) {
	stream, found := this.streams[name]
	if !found {
		return nil, 0, notFoundf("stream %q", name)
	}
	return stream, stream.entry.Size, nil
}

// streamReader adapts a container stream to io.ReaderAt. Reads that pick up
// where the previous one stopped continue along the sector chain instead of
// walking it again from the start. Not safe for concurrent use.
type streamReader struct {
	entry    *mscfb.File
	position int64
}

func (this *streamReader) ReadAt(buffer []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, formatf("read stream %q at negative offset %d", this.entry.Name, offset)
	}
	if offset >= this.entry.Size {
		return 0, io.EOF
	}
	if offset != this.position {
		if _, err := this.entry.Seek(offset, io.SeekStart); err != nil {
			this.position = -1
			return 0, formatf("seek stream %q: %w", this.entry.Name, err)
		}
		this.position = offset
	}
	count, err := this.entry.Read(buffer)
	this.position += int64(count)
	if err != nil && err != io.EOF {
		this.position = -1
		return count, formatf("read stream %q: %w", this.entry.Name, err)
	}
	return count, err
}

type memorySource map[string][]byte

func (this memorySource) names() (names []string) {
	for name := range this {
		names = append(names, name)
	}
	return names
}

func (this memorySource) open(name string) (io.ReaderAt, int64, error) {
	content, found := this[name]
	if !found {
		return nil, 0, notFoundf("stream %q", name)
	}
	return bytes.NewReader(content), int64(len(content)), nil
}

// readAll loads a whole stream. Only table streams, which stay small, are read
// this way.
func readAll(source streamSource, name string) ([]byte, error) {
	reader, size, err := source.open(name)
	if err != nil {
		return nil, err
	}
	content := make([]byte, size)
	if _, err := io.ReadFull(io.NewSectionReader(reader, 0, size), content); err != nil {
		return nil, formatf("read stream %q: %w", name, err)
	}
	return content, nil
}
