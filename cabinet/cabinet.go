// Package cabinet reads Microsoft cabinet archives held in memory or on disk.
// Stored and MSZIP folders are supported. Members of a cabinet set can be
// listed, but folders continued across volumes cannot be decoded.
package cabinet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/msfs-tools/sdkfetch/contracts"
)

const stage = "cabinet"

// ErrNotCabinet reports that the content does not start with a cabinet signature.
var ErrNotCabinet = errors.New("not a cabinet")

const (
	headerSize         = 36
	folderEntrySize    = 8
	fileEntrySize      = 16
	dataHeaderSize     = 8
	maxNameLength      = 256
	flagPrevCabinet    = 0x0001
	flagNextCabinet    = 0x0002
	flagReservePresent = 0x0004
	attributeUTF8Name  = 0x80
	continuedFromPrev  = 0xfffd
	continuedToNext    = 0xfffe
	continuedPrevNext  = 0xffff
)

type Compression uint16

const (
	Stored  Compression = 0
	MSZIP   Compression = 1
	Quantum Compression = 2
	LZX     Compression = 3
)

func (this Compression) String() string {
	switch this {
	case Stored:
		return "stored"
	case MSZIP:
		return "mszip"
	case Quantum:
		return "quantum"
	case LZX:
		return "lzx"
	default:
		return "unknown"
	}
}

// File is one member of the cabinet. Offset is the position of its first byte
// within the uncompressed data of its folder.
type File struct {
	Name   string
	Size   int64
	Folder int
	Offset int64
}

type folder struct {
	start       int64
	blocks      int
	compression Compression
	spans       bool // data continues in a neighboring volume
}

type Cabinet struct {
	reader      io.ReaderAt
	size        int64
	folders     []folder
	files       []File
	dataReserve int
}

// Open parses the cabinet header along with its folder and file tables.
func Open(reader io.ReaderAt, size int64) (*Cabinet, error) {
	header := make([]byte, headerSize)
	if size < headerSize {
		return nil, ErrNotCabinet
	}
	if _, err := reader.ReadAt(header, 0); err != nil {
		return nil, contracts.NewError(contracts.Filesystem, stage, err)
	}
	if string(header[:4]) != "MSCF" {
		return nil, ErrNotCabinet
	}

	declared := int64(binary.LittleEndian.Uint32(header[8:]))
	filesOffset := int64(binary.LittleEndian.Uint32(header[16:]))
	folderCount := int(binary.LittleEndian.Uint16(header[26:]))
	fileCount := int(binary.LittleEndian.Uint16(header[28:]))
	flags := binary.LittleEndian.Uint16(header[30:])
	if declared > size {
		return nil, corruptf("cabinet truncated: declares %d bytes, holds %d", declared, size)
	}

	this := &Cabinet{reader: reader, size: size}
	cursor := &cursor{reader: reader, size: size, offset: headerSize}
	folderReserve := 0
	if flags&flagReservePresent != 0 {
		reserve, err := cursor.next(4)
		if err != nil {
			return nil, err
		}
		folderReserve = int(reserve[2])
		this.dataReserve = int(reserve[3])
		cursor.offset += int64(binary.LittleEndian.Uint16(reserve))
	}
	for _, flag := range []uint16{flagPrevCabinet, flagNextCabinet} {
		if flags&flag == 0 {
			continue
		}
		// neighboring cabinet and disk names
		for i := 0; i < 2; i++ {
			if _, err := cursor.terminated(); err != nil {
				return nil, err
			}
		}
	}

	for i := 0; i < folderCount; i++ {
		entry, err := cursor.next(folderEntrySize)
		if err != nil {
			return nil, err
		}
		this.folders = append(this.folders, folder{
			start:       int64(binary.LittleEndian.Uint32(entry)),
			blocks:      int(binary.LittleEndian.Uint16(entry[4:])),
			compression: Compression(binary.LittleEndian.Uint16(entry[6:]) & 0x000f),
		})
		cursor.offset += int64(folderReserve)
	}
	if count := len(this.folders); count > 0 {
		this.folders[0].spans = flags&flagPrevCabinet != 0
		this.folders[count-1].spans = this.folders[count-1].spans || flags&flagNextCabinet != 0
	}

	cursor.offset = filesOffset
	for i := 0; i < fileCount; i++ {
		file, err := this.readFile(cursor)
		if err != nil {
			return nil, err
		}
		this.files = append(this.files, file)
	}
	return this, nil
}

func (this *Cabinet) readFile(cursor *cursor) (File, error) {
	entry, err := cursor.next(fileEntrySize)
	if err != nil {
		return File{}, err
	}
	marker := binary.LittleEndian.Uint16(entry[8:])
	index := int(marker)
	switch marker {
	case continuedFromPrev, continuedPrevNext:
		index = 0
	case continuedToNext:
		index = len(this.folders) - 1
	}
	if index < 0 || index >= len(this.folders) {
		return File{}, corruptf("file refers to folder %d of %d", index, len(this.folders))
	}
	if marker >= continuedFromPrev {
		this.folders[index].spans = true
	}
	raw, err := cursor.terminated()
	if err != nil {
		return File{}, err
	}
	name, err := decodeName(raw, binary.LittleEndian.Uint16(entry[14:])&attributeUTF8Name != 0)
	if err != nil {
		return File{}, err
	}
	return File{
		Name:   name,
		Size:   int64(binary.LittleEndian.Uint32(entry)),
		Folder: index,
		Offset: int64(binary.LittleEndian.Uint32(entry[4:])),
	}, nil
}

func decodeName(raw []byte, utf8Flag bool) (string, error) {
	if utf8Flag || utf8.Valid(raw) {
		if !utf8.Valid(raw) {
			return "", contracts.Errorf(contracts.Encoding, stage, "file name %q is not utf-8", raw)
		}
		return string(raw), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", contracts.Errorf(contracts.Encoding, stage, "file name %q: %w", raw, err)
	}
	return string(decoded), nil
}

// Files lists the members in the order the cabinet declares them.
func (this *Cabinet) Files() []File {
	return append([]File(nil), this.files...)
}

// Walk decompresses every folder holding a wanted file and hands each wanted
// file's content to visit. Folders with nothing wanted are never decoded.
func (this *Cabinet) Walk(wanted func(File) bool, visit func(File, io.Reader) error) error {
	byFolder := make(map[int][]File)
	for _, file := range this.files {
		if wanted(file) {
			byFolder[file.Folder] = append(byFolder[file.Folder], file)
		}
	}
	for index := range this.folders {
		files := byFolder[index]
		if len(files) == 0 {
			continue
		}
		if err := this.walkFolder(index, files, visit); err != nil {
			return err
		}
	}
	return nil
}

func (this *Cabinet) walkFolder(index int, files []File, visit func(File, io.Reader) error) error {
	sort.SliceStable(files, func(i, j int) bool { return files[i].Offset < files[j].Offset })

	var stream *folderReader
	var position int64
	for _, file := range files {
		if stream == nil || file.Offset < position {
			var err error
			if stream, err = this.openFolder(index); err != nil {
				return err
			}
			position = 0
		}
		if err := skip(stream, file.Offset-position); err != nil {
			return err
		}
		content := &io.LimitedReader{R: stream, N: file.Size}
		if err := visit(file, content); err != nil {
			return err
		}
		if _, err := io.Copy(io.Discard, content); err != nil {
			return err
		}
		if content.N > 0 {
			return corruptf("folder data ends %d bytes into %s", file.Size-content.N, file.Name)
		}
		position = file.Offset + file.Size
	}
	return nil
}

// skip discards up to count bytes. Reaching the end of the folder early means
// the cabinet is corrupt.
func skip(reader io.Reader, count int64) error {
	if count <= 0 {
		return nil
	}
	_, err := io.CopyN(io.Discard, reader, count)
	if err == io.EOF {
		return corruptf("folder data ends before declared file content")
	}
	return err
}

func (this *Cabinet) openFolder(index int) (*folderReader, error) {
	folder := this.folders[index]
	if folder.spans {
		return nil, formatf("folder %d continues in another cabinet", index)
	}
	if folder.compression != Stored && folder.compression != MSZIP {
		return nil, formatf("folder %d uses unsupported %s compression", index, folder.compression)
	}
	return &folderReader{cabinet: this, folder: folder, next: folder.start, remaining: folder.blocks}, nil
}

type cursor struct {
	reader io.ReaderAt
	size   int64
	offset int64
}

func (this *cursor) next(count int) ([]byte, error) {
	if this.offset+int64(count) > this.size {
		return nil, corruptf("header truncated at offset %d", this.offset)
	}
	buffer := make([]byte, count)
	if _, err := this.reader.ReadAt(buffer, this.offset); err != nil {
		return nil, contracts.NewError(contracts.Filesystem, stage, err)
	}
	this.offset += int64(count)
	return buffer, nil
}

func (this *cursor) terminated() ([]byte, error) {
	length := int64(maxNameLength)
	if remaining := this.size - this.offset; remaining < length {
		length = remaining
	}
	buffer := make([]byte, length)
	if _, err := this.reader.ReadAt(buffer, this.offset); err != nil && err != io.EOF {
		return nil, contracts.NewError(contracts.Filesystem, stage, err)
	}
	end := bytes.IndexByte(buffer, 0)
	if end < 0 {
		return nil, corruptf("unterminated name at offset %d", this.offset)
	}
	this.offset += int64(end) + 1
	return buffer[:end], nil
}

func corruptf(format string, args ...interface{}) error {
	return contracts.Errorf(contracts.Corrupt, stage, format, args...)
}

func formatf(format string, args ...interface{}) error {
	return contracts.Errorf(contracts.ArchiveFormat, stage, format, args...)
}
