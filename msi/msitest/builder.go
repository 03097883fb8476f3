// Package msitest assembles the raw streams of small installer databases for
// tests. Feed the result to msi.FromStreams.
package msitest

import (
	"encoding/binary"
	"fmt"
)

type ColumnKind int

const (
	Text ColumnKind = iota
	Int16
	Int32
)

type Column struct {
	Name     string
	Kind     ColumnKind
	Key      bool
	Nullable bool
}

// Table rows hold string, int or nil (null) values in column order.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]interface{}
}

type Database struct {
	Codepage int // 0 selects UTF-8
	Tables   []Table
	Streams  map[string][]byte
}

func (this Database) Build() map[string][]byte {
	pool := newStringPool()
	for _, table := range this.Tables {
		pool.intern(table.Name)
		for _, column := range table.Columns {
			pool.intern(column.Name)
		}
		for _, row := range table.Rows {
			for _, value := range row {
				if text, ok := value.(string); ok {
					pool.intern(text)
				}
			}
		}
	}

	codepage := this.Codepage
	if codepage == 0 {
		codepage = 65001
	}
	streams := map[string][]byte{}
	streams[EncodeName("_StringPool", true)], streams[EncodeName("_StringData", true)] = pool.encode(codepage)
	streams[EncodeName("_Tables", true)] = this.tablesStream(pool)
	streams[EncodeName("_Columns", true)] = this.columnsStream(pool)
	for _, table := range this.Tables {
		if len(table.Rows) > 0 {
			streams[EncodeName(table.Name, true)] = tableStream(table, pool)
		}
	}
	for name, content := range this.Streams {
		streams[EncodeName(name, false)] = content
	}
	return streams
}

func (this Database) tablesStream(pool *stringPool) (data []byte) {
	for _, table := range this.Tables {
		data = appendUint16(data, uint16(pool.index(table.Name)))
	}
	return data
}

func (this Database) columnsStream(pool *stringPool) []byte {
	var tables, numbers, names, types []byte
	for _, table := range this.Tables {
		for i, column := range table.Columns {
			tables = appendUint16(tables, uint16(pool.index(table.Name)))
			numbers = appendUint16(numbers, uint16(i+1+0x8000))
			names = appendUint16(names, uint16(pool.index(column.Name)))
			types = appendUint16(types, uint16(column.bits()+0x8000))
		}
	}
	return concat(tables, numbers, names, types)
}

func tableStream(table Table, pool *stringPool) []byte {
	var data []byte
	for c, column := range table.Columns {
		for _, row := range table.Rows {
			data = column.appendValue(data, row[c], pool)
		}
	}
	return data
}

func (this Column) bits() int {
	bits := 0x0100
	switch this.Kind {
	case Text:
		bits |= 0x0800 | 255
	case Int16:
		bits |= 2
	case Int32:
		bits |= 4
	}
	if this.Nullable {
		bits |= 0x1000
	}
	if this.Key {
		bits |= 0x2000
	}
	return bits
}

func (this Column) appendValue(data []byte, value interface{}, pool *stringPool) []byte {
	switch this.Kind {
	case Text:
		if value == nil {
			return appendUint16(data, 0)
		}
		return appendUint16(data, uint16(pool.index(value.(string))))
	case Int32:
		if value == nil {
			return binary.LittleEndian.AppendUint32(data, 0)
		}
		return binary.LittleEndian.AppendUint32(data, uint32(int32(value.(int)))^0x80000000)
	default:
		if value == nil {
			return appendUint16(data, 0)
		}
		return appendUint16(data, uint16(value.(int)+0x8000))
	}
}

type stringPool struct {
	indices map[string]int
	values  []string
}

func newStringPool() *stringPool {
	return &stringPool{indices: map[string]int{}}
}

func (this *stringPool) intern(value string) {
	if _, found := this.indices[value]; found {
		return
	}
	this.values = append(this.values, value)
	this.indices[value] = len(this.values)
}

func (this *stringPool) index(value string) int {
	index, found := this.indices[value]
	if !found {
		panic(fmt.Sprintf("string %q was never interned", value))
	}
	return index
}

func (this *stringPool) encode(codepage int) (pool, data []byte) {
	pool = binary.LittleEndian.AppendUint32(nil, uint32(codepage))
	for _, value := range this.values {
		pool = appendUint16(pool, uint16(len(value)))
		pool = appendUint16(pool, 1)
		data = append(data, value...)
	}
	return pool, data
}

// EncodeName packs a stream name the way installer databases store it.
func EncodeName(name string, table bool) string {
	var encoded []rune
	if table {
		encoded = append(encoded, 0x4840)
	}
	runes := []rune(name)
	for i := 0; i < len(runes); i++ {
		first := symbol(runes[i])
		if first < 0 {
			encoded = append(encoded, runes[i])
			continue
		}
		if i+1 < len(runes) {
			if second := symbol(runes[i+1]); second >= 0 {
				encoded = append(encoded, rune(0x3800+second<<6+first))
				i++
				continue
			}
		}
		encoded = append(encoded, rune(0x4800+first))
	}
	return string(encoded)
}

func symbol(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'A' && r <= 'Z':
		return int(r-'A') + 10
	case r >= 'a' && r <= 'z':
		return int(r-'a') + 36
	case r == '.':
		return 62
	case r == '_':
		return 63
	default:
		return -1
	}
}

func appendUint16(data []byte, value uint16) []byte {
	return binary.LittleEndian.AppendUint16(data, value)
}

func concat(parts ...[]byte) (joined []byte) {
	for _, part := range parts {
		joined = append(joined, part...)
	}
	return joined
}
