package core

import (
	"errors"
	"io"
	"path/filepath"

	"github.com/smartystreets/logging"

	"github.com/msfs-tools/sdkfetch/cabinet"
	"github.com/msfs-tools/sdkfetch/contracts"
)

const extractStage = "extract"

// StreamSource lists and opens the named streams of a normalized package.
type StreamSource interface {
	StreamNames() []string
	OpenStream(name string) (io.ReaderAt, int64, error)
}

// Extractor writes the cabinet members that fall below a package subtree.
type Extractor struct {
	logger *logging.Logger
	files  contracts.FileCreator
}

func NewExtractor(files contracts.FileCreator) *Extractor {
	return &Extractor{files: files}
}

// Extract writes every cabinet member whose resolved path lies below prefix to
// root joined with the rest of that path. Streams that are not readable
// cabinets are skipped. It returns the number of files written.
func (this *Extractor) Extract(source StreamSource, files contracts.FileMap, prefix, root string) (written int, err error) {
	for _, name := range source.StreamNames() {
		stream, size, err := source.OpenStream(name)
		if err != nil {
			return written, contracts.Classify(contracts.ArchiveFormat, extractStage, err)
		}
		archive, err := cabinet.Open(stream, size)
		if errors.Is(err, cabinet.ErrNotCabinet) {
			continue
		}
		if err != nil {
			this.logger.Printf("[WARN] Skipping stream %s: %s", name, err)
			continue
		}
		count, err := this.extractCabinet(name, archive, files, prefix, root)
		written += count
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

func (this *Extractor) extractCabinet(name string, archive *cabinet.Cabinet, files contracts.FileMap, prefix, root string) (written int, err error) {
	targets := make(map[string]string)
	for _, member := range archive.Files() {
		resolved, found := files[member.Name]
		if !found {
			return 0, contracts.Errorf(contracts.NotFound, extractStage, "cabinet %s member %s has no resolved path", name, member.Name)
		}
		if relative, below := contracts.Relative(resolved, prefix); below {
			targets[member.Name] = relative
		}
	}
	this.logger.Printf("[INFO] Cabinet %s: extracting %d of %d files", name, len(targets), len(archive.Files()))

	err = archive.Walk(
		func(member cabinet.File) bool {
			_, wanted := targets[member.Name]
			return wanted
		},
		func(member cabinet.File, content io.Reader) error {
			if err := this.write(root, targets[member.Name], content); err != nil {
				return err
			}
			written++
			return nil
		},
	)
	return written, err
}

func (this *Extractor) write(root, relative string, content io.Reader) error {
	local := filepath.FromSlash(relative)
	if !filepath.IsLocal(local) {
		return contracts.Errorf(contracts.Encoding, extractStage, "path %q escapes the installation root", relative)
	}
	writer, err := this.files.Create(filepath.Join(root, local))
	if err != nil {
		return contracts.NewError(contracts.Filesystem, extractStage, err)
	}
	_, err = io.Copy(writer, content)
	closeErr := writer.Close()
	if err == nil {
		err = closeErr
	}
	return contracts.Classify(contracts.Filesystem, extractStage, err)
}
