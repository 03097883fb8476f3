package core

import (
	"bytes"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/smartystreets/logging"

	"github.com/msfs-tools/sdkfetch/contracts"
	"github.com/msfs-tools/sdkfetch/msi"
)

const (
	normalizeStage    = "normalize"
	bundleExtension   = ".zip"
	databaseExtension = ".msi"
	cabinetExtension  = ".cab"
)

// Normalizer turns either download shape into one database whose streams
// include every cabinet, embedded or not.
type Normalizer struct {
	logger *logging.Logger
	open   func(io.ReaderAt) (*msi.Database, error)
}

func NewNormalizer() *Normalizer {
	return &Normalizer{open: msi.Open}
}

// Normalize opens content fetched from address. A .zip address is treated as
// a bundle holding the database and its external cabinets.
func (this *Normalizer) Normalize(address url.URL, content io.ReaderAt, size int64) (*msi.Database, error) {
	if strings.EqualFold(path.Ext(address.Path), bundleExtension) {
		return this.openBundle(content, size)
	}
	return this.openDatabase(content)
}

func (this *Normalizer) openDatabase(content io.ReaderAt) (*msi.Database, error) {
	database, err := this.open(content)
	if err != nil {
		return nil, contracts.Classify(contracts.ArchiveFormat, normalizeStage, err)
	}
	return database, nil
}

func (this *Normalizer) openBundle(content io.ReaderAt, size int64) (*msi.Database, error) {
	bundle, err := zip.NewReader(content, size)
	if err != nil {
		return nil, contracts.Errorf(contracts.ArchiveFormat, normalizeStage, "open bundle: %w", err)
	}

	var databases, cabinets []*zip.File
	for _, entry := range bundle.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		switch strings.ToLower(path.Ext(entry.Name)) {
		case databaseExtension:
			databases = append(databases, entry)
		case cabinetExtension:
			cabinets = append(cabinets, entry)
		}
	}
	if len(databases) == 0 {
		return nil, contracts.Errorf(contracts.ArchiveFormat, normalizeStage, "bundle holds no installer database")
	}
	if len(databases) > 1 {
		return nil, contracts.Errorf(contracts.ArchiveFormat, normalizeStage, "bundle holds %d installer databases", len(databases))
	}

	reader, _, err := openEntry(content, databases[0])
	if err != nil {
		return nil, err
	}
	database, err := this.openDatabase(reader)
	if err != nil {
		return nil, err
	}
	for _, entry := range cabinets {
		reader, size, err := openEntry(content, entry)
		if err != nil {
			return nil, err
		}
		name := baseName(entry.Name)
		if err := database.AttachStream(name, reader, size); err != nil {
			return nil, contracts.Classify(contracts.ArchiveFormat, normalizeStage, err)
		}
		this.logger.Printf("[INFO] Attached external cabinet %s (%d bytes)", name, size)
	}
	return database, nil
}

// openEntry gives random access to a bundle entry. Stored entries are read in
// place from the bundle; compressed ones have to be inflated into memory.
func openEntry(bundle io.ReaderAt, entry *zip.File) (io.ReaderAt, int64, error) {
	if entry.Method == zip.Store {
		offset, err := entry.DataOffset()
		if err != nil {
			return nil, 0, contracts.Errorf(contracts.ArchiveFormat, normalizeStage, "locate %s: %w", entry.Name, err)
		}
		size := int64(entry.UncompressedSize64)
		return io.NewSectionReader(bundle, offset, size), size, nil
	}
	reader, err := entry.Open()
	if err != nil {
		return nil, 0, contracts.Errorf(contracts.ArchiveFormat, normalizeStage, "open %s: %w", entry.Name, err)
	}
	defer func() { _ = reader.Close() }()
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, 0, contracts.Errorf(contracts.ArchiveFormat, normalizeStage, "read %s: %w", entry.Name, err)
	}
	return bytes.NewReader(raw), int64(len(raw)), nil
}

// baseName strips any folders from a bundle entry name, whichever separator it uses.
func baseName(name string) string {
	return path.Base(strings.ReplaceAll(name, `\`, "/"))
}
