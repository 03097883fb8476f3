package msi

import (
	"encoding/binary"
	"sort"
)

const (
	tablesTable  = "_Tables"
	columnsTable = "_Columns"
)

const (
	columnSizeMask    = 0x00ff
	columnValid       = 0x0100
	columnLocalizable = 0x0200
	columnString      = 0x0800
	columnNullable    = 0x1000
	columnPrimaryKey  = 0x2000
)

type column struct {
	name   string
	number int
	bits   int
}

func (this column) isBinary() bool {
	return this.bits&^columnNullable == columnString|columnValid
}

func (this column) isString() bool {
	return this.bits&columnString != 0 && !this.isBinary()
}

func (this column) width(refSize int) int {
	switch {
	case this.isBinary():
		return 2
	case this.isString():
		return refSize
	case this.bits&columnSizeMask == 4:
		return 4
	default:
		return 2
	}
}

type table struct {
	name    string
	columns []column
}

func (this *table) index(name string) int {
	for i, column := range this.columns {
		if column.name == name {
			return i
		}
	}
	return -1
}

var (
	tablesSchema = &table{name: tablesTable, columns: []column{
		{name: "Name", number: 1, bits: columnValid | columnString | columnPrimaryKey | 64},
	}}
	columnsSchema = &table{name: columnsTable, columns: []column{
		{name: "Table", number: 1, bits: columnValid | columnString | columnPrimaryKey | 64},
		{name: "Number", number: 2, bits: columnValid | columnPrimaryKey | 2},
		{name: "Name", number: 3, bits: columnValid | columnString | 64},
		{name: "Type", number: 4, bits: columnValid | 2},
	}}
)

// decodeRows reads a table stream. Values are stored column by column, so the
// row count falls out of the stream length and the row width.
func decodeRows(schema *table, data []byte, pool *stringPool) ([]Row, error) {
	refSize := pool.refSize()
	rowSize := 0
	for _, column := range schema.columns {
		rowSize += column.width(refSize)
	}
	if rowSize == 0 || len(data) == 0 {
		return nil, nil
	}
	if len(data)%rowSize != 0 {
		return nil, corruptf("table %s: stream length %d is not a multiple of row size %d", schema.name, len(data), rowSize)
	}

	count := len(data) / rowSize
	rows := make([]Row, count)
	for i := range rows {
		rows[i] = make(Row, len(schema.columns))
	}
	offset := 0
	for c, column := range schema.columns {
		width := column.width(refSize)
		for r := 0; r < count; r++ {
			start := offset + r*width
			value, err := decodeValue(column, data[start:start+width], pool)
			if err != nil {
				return nil, err
			}
			rows[r][c] = value
		}
		offset += count * width
	}
	return rows, nil
}

func decodeValue(column column, raw []byte, pool *stringPool) (Value, error) {
	switch {
	case column.isBinary():
		reference := binary.LittleEndian.Uint16(raw)
		if reference == 0 {
			return NullValue(), nil
		}
		return IntValue(int32(reference)), nil
	case column.isString():
		reference := uint32(raw[0]) | uint32(raw[1])<<8
		if len(raw) == 3 {
			reference |= uint32(raw[2]) << 16
		}
		if reference == 0 {
			return NullValue(), nil
		}
		text, err := pool.lookup(reference)
		if err != nil {
			return Value{}, err
		}
		return TextValue(text), nil
	case len(raw) == 4:
		stored := binary.LittleEndian.Uint32(raw)
		if stored == 0 {
			return NullValue(), nil
		}
		return IntValue(int32(stored ^ 0x80000000)), nil
	default:
		stored := binary.LittleEndian.Uint16(raw)
		if stored == 0 {
			return NullValue(), nil
		}
		return IntValue(int32(stored) - 0x8000), nil
	}
}

// buildSchema assembles every user table's column layout from the system tables.
func buildSchema(tableRows, columnRows []Row) (map[string]*table, error) {
	schema := make(map[string]*table, len(tableRows))
	for _, row := range tableRows {
		name, ok := row[0].Text()
		if !ok {
			return nil, corruptf("%s row without a name", tablesTable)
		}
		schema[name] = &table{name: name}
	}
	for _, row := range columnRows {
		tableName, ok1 := row[0].Text()
		number, ok2 := row[1].Int()
		name, ok3 := row[2].Text()
		bits, ok4 := row[3].Int()
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return nil, corruptf("incomplete %s row %v", columnsTable, row)
		}
		owner, found := schema[tableName]
		if !found {
			owner = &table{name: tableName}
			schema[tableName] = owner
		}
		owner.columns = append(owner.columns, column{name: name, number: int(number), bits: int(bits)})
	}
	for _, owner := range schema {
		sort.Slice(owner.columns, func(i, j int) bool { return owner.columns[i].number < owner.columns[j].number })
	}
	return schema, nil
}
