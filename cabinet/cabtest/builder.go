// Package cabtest writes small cabinets for tests. Cabinets can claim to be
// part of a set, but every folder's data is written to the one cabinet.
package cabtest

import (
	"bytes"
	"encoding/binary"

	"github.com/klauspost/compress/flate"
)

const (
	Stored = 0
	MSZIP  = 1
	LZX    = 3
)

type Entry struct {
	Name    string
	Content []byte

	// Continued marks the entry as starting in the previous cabinet.
	Continued bool
}

type Folder struct {
	Compression uint16
	BlockSize   int // defaults to 32K
	Entries     []Entry
}

type Cabinet struct {
	Folders []Folder

	// Non-zero reserve sizes set the reserve-present header flag.
	HeaderReserve int
	FolderReserve int
	DataReserve   int

	// Non-empty names set the previous/next cabinet header flags.
	PreviousCabinet string
	NextCabinet     string
}

// Build lays a cabinet out as header, folder table, file table, data blocks.
func Build(folders ...Folder) []byte {
	return Cabinet{Folders: folders}.Build()
}

func (this Cabinet) Build() []byte {
	reserved := this.HeaderReserve > 0 || this.FolderReserve > 0 || this.DataReserve > 0

	var blocks [][][]byte
	for _, folder := range this.Folders {
		blocks = append(blocks, folder.blocks())
	}

	headerLength := 36
	if reserved {
		headerLength += 4 + this.HeaderReserve
	}
	var neighbors []byte
	if this.PreviousCabinet != "" {
		neighbors = append(append(neighbors, this.PreviousCabinet...), 0, 'd', 0)
	}
	if this.NextCabinet != "" {
		neighbors = append(append(neighbors, this.NextCabinet...), 0, 'd', 0)
	}
	headerLength += len(neighbors)
	filesOffset := headerLength + len(this.Folders)*(8+this.FolderReserve)
	dataOffset := filesOffset
	fileCount := 0
	for _, folder := range this.Folders {
		for _, entry := range folder.Entries {
			dataOffset += 16 + len(entry.Name) + 1
			fileCount++
		}
	}

	var folderTable, fileTable, data []byte
	for f, folder := range this.Folders {
		folderTable = le32(folderTable, uint32(dataOffset+len(data)))
		folderTable = le16(folderTable, uint16(len(blocks[f])))
		folderTable = le16(folderTable, folder.Compression)
		folderTable = append(folderTable, make([]byte, this.FolderReserve)...)

		offset := 0
		for _, entry := range folder.Entries {
			fileTable = le32(fileTable, uint32(len(entry.Content)))
			fileTable = le32(fileTable, uint32(offset))
			if entry.Continued {
				fileTable = le16(fileTable, 0xfffd)
			} else {
				fileTable = le16(fileTable, uint16(f))
			}
			fileTable = le16(fileTable, 0x5a21) // date
			fileTable = le16(fileTable, 0x6000) // time
			fileTable = le16(fileTable, 0x20)   // archive
			fileTable = append(append(fileTable, entry.Name...), 0)
			offset += len(entry.Content)
		}
		for b, block := range blocks[f] {
			data = le32(data, 0) // checksum unused
			data = le16(data, uint16(len(block)))
			data = le16(data, uint16(folder.uncompressedSize(b)))
			data = append(data, make([]byte, this.DataReserve)...)
			data = append(data, block...)
		}
	}

	var flags uint16
	if reserved {
		flags |= 0x0004
	}
	if this.PreviousCabinet != "" {
		flags |= 0x0001
	}
	if this.NextCabinet != "" {
		flags |= 0x0002
	}
	total := dataOffset + len(data)
	header := []byte("MSCF")
	header = le32(header, 0)
	header = le32(header, uint32(total))
	header = le32(header, 0)
	header = le32(header, uint32(filesOffset))
	header = le32(header, 0)
	header = append(header, 3, 1)
	header = le16(header, uint16(len(this.Folders)))
	header = le16(header, uint16(fileCount))
	header = le16(header, flags)
	header = le16(header, 0x1234) // set id
	header = le16(header, 0)
	if reserved {
		header = le16(header, uint16(this.HeaderReserve))
		header = append(header, byte(this.FolderReserve), byte(this.DataReserve))
		header = append(header, make([]byte, this.HeaderReserve)...)
	}
	header = append(header, neighbors...)

	cabinet := append(header, folderTable...)
	cabinet = append(cabinet, fileTable...)
	return append(cabinet, data...)
}

func (this Folder) content() []byte {
	var joined []byte
	for _, entry := range this.Entries {
		joined = append(joined, entry.Content...)
	}
	return joined
}

func (this Folder) blockSize() int {
	if this.BlockSize <= 0 || this.BlockSize > 32*1024 {
		return 32 * 1024
	}
	return this.BlockSize
}

func (this Folder) chunks() (chunks [][]byte) {
	content := this.content()
	for size := this.blockSize(); len(content) > 0; content = content[min(size, len(content)):] {
		chunks = append(chunks, content[:min(size, len(content))])
	}
	return chunks
}

func (this Folder) uncompressedSize(block int) int {
	return len(this.chunks()[block])
}

func (this Folder) blocks() (blocks [][]byte) {
	var window []byte
	for _, chunk := range this.chunks() {
		switch this.Compression {
		case MSZIP:
			blocks = append(blocks, deflate(chunk, window))
			window = append(window, chunk...)
			if len(window) > 32*1024 {
				window = window[len(window)-32*1024:]
			}
		default:
			blocks = append(blocks, chunk)
		}
	}
	return blocks
}

func deflate(chunk, window []byte) []byte {
	buffer := bytes.NewBufferString("CK")
	writer, err := flate.NewWriterDict(buffer, flate.DefaultCompression, window)
	if err != nil {
		panic(err)
	}
	_, _ = writer.Write(chunk)
	_ = writer.Close()
	return buffer.Bytes()
}

func le16(buffer []byte, value uint16) []byte { return binary.LittleEndian.AppendUint16(buffer, value) }
func le32(buffer []byte, value uint32) []byte { return binary.LittleEndian.AppendUint32(buffer, value) }
