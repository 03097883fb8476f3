package msi

import (
	"encoding/binary"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/msfs-tools/sdkfetch/contracts"
)

const (
	stringPoolStream = "_StringPool"
	stringDataStream = "_StringData"
	longRefsFlag     = 0x80000000
	utf8Codepage     = 65001
)

// stringPool holds the database's interned strings. Index 0 is the null string.
type stringPool struct {
	values   []string
	codepage int
	longRefs bool
}

func loadStringPool(pool, data []byte) (*stringPool, error) {
	if len(pool) < 4 {
		return nil, corruptf("string pool header truncated (%d bytes)", len(pool))
	}
	header := binary.LittleEndian.Uint32(pool)
	this := &stringPool{
		values:   []string{""},
		codepage: int(header &^ longRefsFlag),
		longRefs: header&longRefsFlag != 0,
	}
	decode, err := textDecoder(this.codepage)
	if err != nil {
		return nil, err
	}

	entries := pool[4:]
	offset := 0
	for i := 0; i+4 <= len(entries); i += 4 {
		length := int(binary.LittleEndian.Uint16(entries[i:]))
		references := binary.LittleEndian.Uint16(entries[i+2:])
		if length == 0 && references > 0 {
			// Strings over 64K borrow the next entry for the low half of their length.
			if i+8 > len(entries) {
				return nil, corruptf("string pool entry %d truncated", len(this.values))
			}
			length = int(references)<<16 | int(binary.LittleEndian.Uint16(entries[i+4:]))
			i += 4
		}
		if offset+length > len(data) {
			return nil, corruptf("string %d overruns string data (%d > %d)", len(this.values), offset+length, len(data))
		}
		value, err := decode(data[offset : offset+length])
		if err != nil {
			return nil, contracts.Errorf(contracts.Encoding, stage, "string %d: %w", len(this.values), err)
		}
		this.values = append(this.values, value)
		offset += length
	}
	return this, nil
}

// refSize is the width in bytes of a string reference stored in a table.
func (this *stringPool) refSize() int {
	if this.longRefs {
		return 3
	}
	return 2
}

func (this *stringPool) lookup(reference uint32) (string, error) {
	if int(reference) >= len(this.values) {
		return "", corruptf("string reference %d outside pool of %d", reference, len(this.values)-1)
	}
	return this.values[reference], nil
}

func textDecoder(codepage int) (func([]byte) (string, error), error) {
	if codepage == utf8Codepage {
		return decodeUTF8, nil
	}
	mapping, found := codepages[codepage]
	if !found {
		return nil, contracts.Errorf(contracts.Encoding, stage, "unsupported codepage %d", codepage)
	}
	return func(raw []byte) (string, error) {
		if isASCII(raw) {
			return string(raw), nil
		}
		decoded, err := mapping.NewDecoder().Bytes(raw)
		return string(decoded), err
	}, nil
}

func decodeUTF8(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", contracts.Errorf(contracts.Encoding, stage, "invalid utf-8 text %q", raw)
	}
	return string(raw), nil
}

func isASCII(raw []byte) bool {
	for _, b := range raw {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Codepage 0 is the neutral codepage; its strings are expected to be Windows-1252.
var codepages = map[int]encoding.Encoding{
	0:    charmap.Windows1252,
	437:  charmap.CodePage437,
	850:  charmap.CodePage850,
	866:  charmap.CodePage866,
	874:  charmap.Windows874,
	1250: charmap.Windows1250,
	1251: charmap.Windows1251,
	1252: charmap.Windows1252,
	1253: charmap.Windows1253,
	1254: charmap.Windows1254,
	1255: charmap.Windows1255,
	1256: charmap.Windows1256,
	1257: charmap.Windows1257,
	1258: charmap.Windows1258,
}
