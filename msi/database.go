// Package msi reads Windows Installer databases: their tables and their named
// binary streams. Writing databases is not supported; extra streams are
// attached by reference and never written back.
package msi

import (
	"io"
	"sort"
)

// Database is an opened installer database plus any streams attached to it
// after opening.
type Database struct {
	source   streamSource
	streams  map[string]string // decoded name -> raw name
	tables   map[string]string // decoded table name -> raw stream name
	attached map[string]attachedStream
	pool     *stringPool
	schema   map[string]*table
}

// Open reads the compound file container and the database's system tables.
func Open(reader io.ReaderAt) (*Database, error) {
	source, err := newCompoundSource(reader)
	if err != nil {
		return nil, formatf("open installer database: %w", err)
	}
	return newDatabase(source)
}

// FromStreams builds a database from raw, still encoded, stream names and
// contents as they would appear inside the container.
func FromStreams(streams map[string][]byte) (*Database, error) {
	return newDatabase(memorySource(streams))
}

func newDatabase(source streamSource) (*Database, error) {
	this := &Database{
		source:   source,
		streams:  make(map[string]string),
		tables:   make(map[string]string),
		attached: make(map[string]attachedStream),
	}
	for _, raw := range source.names() {
		name, isTable := decodeStreamName(raw)
		if isTable {
			this.tables[name] = raw
		} else {
			this.streams[name] = raw
		}
	}
	if err := this.loadStrings(); err != nil {
		return nil, err
	}
	if err := this.loadSchema(); err != nil {
		return nil, err
	}
	return this, nil
}

func (this *Database) loadStrings() error {
	pool, err := this.systemStream(stringPoolStream)
	if err != nil {
		return err
	}
	data, err := this.systemStream(stringDataStream)
	if err != nil {
		return err
	}
	this.pool, err = loadStringPool(pool, data)
	return err
}

func (this *Database) loadSchema() error {
	tableRows, err := this.systemRows(tablesSchema)
	if err != nil {
		return err
	}
	columnRows, err := this.systemRows(columnsSchema)
	if err != nil {
		return err
	}
	this.schema, err = buildSchema(tableRows, columnRows)
	return err
}

func (this *Database) systemStream(name string) ([]byte, error) {
	raw, found := this.tables[name]
	if !found {
		return nil, formatf("not an installer database: missing %s", name)
	}
	return readAll(this.source, raw)
}

func (this *Database) systemRows(schema *table) ([]Row, error) {
	data, err := this.systemStream(schema.name)
	if err != nil {
		return nil, err
	}
	return decodeRows(schema, data, this.pool)
}

// Tables lists the user tables declared by the database.
func (this *Database) Tables() (names []string) {
	for name := range this.schema {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select projects the named columns (all columns when none are named) of
// every row in the table.
func (this *Database) Select(tableName string, columns ...string) ([]Row, error) {
	schema, found := this.schema[tableName]
	if !found {
		return nil, notFoundf("table %s", tableName)
	}
	indices := make([]int, 0, len(columns))
	for _, name := range columns {
		index := schema.index(name)
		if index < 0 {
			return nil, notFoundf("column %s.%s", tableName, name)
		}
		indices = append(indices, index)
	}

	var data []byte
	if raw, found := this.tables[tableName]; found {
		var err error
		if data, err = readAll(this.source, raw); err != nil {
			return nil, err
		}
	}
	rows, err := decodeRows(schema, data, this.pool)
	if err != nil || len(columns) == 0 {
		return rows, err
	}
	projected := make([]Row, len(rows))
	for r, row := range rows {
		projected[r] = make(Row, len(indices))
		for c, index := range indices {
			projected[r][c] = row[index]
		}
	}
	return projected, nil
}

// StreamNames lists every non-table stream, including attached ones, in name order.
func (this *Database) StreamNames() (names []string) {
	for name := range this.streams {
		names = append(names, name)
	}
	for name := range this.attached {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenStream gives random access to a named stream without loading it.
func (this *Database) OpenStream(name string) (io.ReaderAt, int64, error) {
	if stream, found := this.attached[name]; found {
		return stream.reader, stream.size, nil
	}
	raw, found := this.streams[name]
	if !found {
		return nil, 0, notFoundf("stream %q", name)
	}
	return this.source.open(raw)
}

type attachedStream struct {
	reader io.ReaderAt
	size   int64
}

// AttachStream adds a named stream served from outside the container.
func (this *Database) AttachStream(name string, content io.ReaderAt, size int64) error {
	if name == "" {
		return formatf("attached stream needs a name")
	}
	if _, found := this.streams[name]; found {
		return formatf("stream %q already present in database", name)
	}
	if _, found := this.attached[name]; found {
		return formatf("stream %q attached twice", name)
	}
	this.attached[name] = attachedStream{reader: content, size: size}
	return nil
}
