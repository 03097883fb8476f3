package cabinet

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/msfs-tools/sdkfetch/contracts"
)

const (
	mszipSignature = "CK"
	mszipWindow    = 32 * 1024
)

// folderReader streams the uncompressed content of one folder, decoding one
// data block at a time.
type folderReader struct {
	cabinet   *Cabinet
	folder    folder
	next      int64
	remaining int
	pending   []byte
	window    []byte
}

func (this *folderReader) Read(buffer []byte) (int, error) {
	for len(this.pending) == 0 {
		if this.remaining == 0 {
			return 0, io.EOF
		}
		if err := this.nextBlock(); err != nil {
			return 0, err
		}
	}
	count := copy(buffer, this.pending)
	this.pending = this.pending[count:]
	return count, nil
}

func (this *folderReader) nextBlock() error {
	header := make([]byte, dataHeaderSize)
	if err := this.readAt(header, this.next); err != nil {
		return err
	}
	compressed := int(binary.LittleEndian.Uint16(header[4:]))
	uncompressed := int(binary.LittleEndian.Uint16(header[6:]))
	if uncompressed == 0 {
		return formatf("data block continued in the next cabinet")
	}

	data := make([]byte, compressed)
	if err := this.readAt(data, this.next+dataHeaderSize+int64(this.cabinet.dataReserve)); err != nil {
		return err
	}
	this.next += dataHeaderSize + int64(this.cabinet.dataReserve) + int64(compressed)
	this.remaining--

	switch this.folder.compression {
	case MSZIP:
		block, err := this.inflate(data, uncompressed)
		if err != nil {
			return err
		}
		this.pending = block
	default:
		if compressed != uncompressed {
			return corruptf("stored block of %d bytes claims %d uncompressed", compressed, uncompressed)
		}
		this.pending = data
	}
	return nil
}

// inflate decodes one MSZIP block. Each block is a complete deflate stream
// whose history is the output of the blocks before it.
func (this *folderReader) inflate(data []byte, size int) ([]byte, error) {
	if !bytes.HasPrefix(data, []byte(mszipSignature)) {
		return nil, corruptf("mszip block missing signature")
	}
	reader := flate.NewReaderDict(bytes.NewReader(data[len(mszipSignature):]), this.window)
	defer func() { _ = reader.Close() }()

	block := make([]byte, size)
	if _, err := io.ReadFull(reader, block); err != nil {
		return nil, corruptf("mszip block: %w", err)
	}

	this.window = append(this.window, block...)
	if len(this.window) > mszipWindow {
		this.window = append([]byte(nil), this.window[len(this.window)-mszipWindow:]...)
	}
	return block, nil
}

func (this *folderReader) readAt(buffer []byte, offset int64) error {
	if offset+int64(len(buffer)) > this.cabinet.size {
		return corruptf("data block at offset %d runs past end of cabinet", offset)
	}
	if _, err := this.cabinet.reader.ReadAt(buffer, offset); err != nil && err != io.EOF {
		return contracts.NewError(contracts.Filesystem, stage, err)
	}
	return nil
}
