package core

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/msfs-tools/sdkfetch/contracts"
	"github.com/msfs-tools/sdkfetch/msi"
)

const (
	resolveStage       = "resolve"
	maxDirectoryDepth  = 64
	currentDirectory   = "."
	shortLongSeparator = "|"
	targetSeparator    = ":"
)

// TableSource is the query side of an installer database.
type TableSource interface {
	Select(table string, columns ...string) ([]msi.Row, error)
}

// PathResolver reconstructs each packaged file's path from the File,
// Component and Directory tables.
type PathResolver struct {
	source TableSource
}

func NewPathResolver(source TableSource) *PathResolver {
	return &PathResolver{source: source}
}

// Resolve maps every file identifier to its slash separated path.
func (this *PathResolver) Resolve() (contracts.FileMap, error) {
	tree, err := this.loadDirectories()
	if err != nil {
		return nil, err
	}
	components, err := this.loadComponents()
	if err != nil {
		return nil, err
	}
	rows, err := this.source.Select("File", "File", "FileName", "Component_")
	if err != nil {
		return nil, err
	}

	files := make(contracts.FileMap, len(rows))
	for _, row := range rows {
		id, name, component := row[0].String(), row[1], row[2].String()
		directory, found := components[component]
		if !found {
			return nil, contracts.Errorf(contracts.NotFound, resolveStage, "file %s refers to missing component %s", id, component)
		}
		folder, err := tree.resolve(directory)
		if err != nil {
			return nil, err
		}
		text, _ := name.Text()
		leaf := LongName(text)
		if err := checkSegment(leaf); err != nil {
			return nil, contracts.Errorf(contracts.Encoding, resolveStage, "file %s: %w", id, err)
		}
		files[id] = joinSegments(folder, leaf)
	}
	return files, nil
}

// loadComponents returns each component's directory identifier.
func (this *PathResolver) loadComponents() (map[string]string, error) {
	rows, err := this.source.Select("Component", "Component", "Directory_")
	if err != nil {
		return nil, err
	}
	components := make(map[string]string, len(rows))
	for _, row := range rows {
		directory, ok := row[1].Text()
		if !ok {
			return nil, contracts.Errorf(contracts.NotFound, resolveStage, "component %s has no directory", row[0])
		}
		components[row[0].String()] = directory
	}
	return components, nil
}

func (this *PathResolver) loadDirectories() (*directoryTree, error) {
	rows, err := this.source.Select("Directory", "Directory", "Directory_Parent", "DefaultDir")
	if err != nil {
		return nil, err
	}
	tree := newDirectoryTree()
	for _, row := range rows {
		parent, _ := row[1].Text()
		name, _ := row[2].Text()
		tree.add(row[0].String(), parent, name)
	}
	return tree, nil
}

// LongName drops the short (8.3) half of a "short|long" name.
func LongName(raw string) string {
	if index := strings.LastIndex(raw, shortLongSeparator); index >= 0 {
		return raw[index+1:]
	}
	return raw
}

// directorySegment picks the installed name out of a DefaultDir value. The
// "." name stands for the parent directory itself and contributes nothing.
func directorySegment(raw string) string {
	if index := strings.Index(raw, targetSeparator); index >= 0 {
		raw = raw[:index]
	}
	name := LongName(raw)
	if name == currentDirectory {
		return ""
	}
	return name
}

func checkSegment(segment string) error {
	switch {
	case segment == "":
		return errEmptySegment
	case segment == "..":
		return errParentSegment
	case !utf8.ValidString(segment):
		return errInvalidText
	}
	for _, r := range segment {
		if r == '/' || r == '\\' || r == ':' || unicode.IsControl(r) {
			return errUnsafeCharacter
		}
	}
	return nil
}

func joinSegments(parent, child string) string {
	switch {
	case parent == "":
		return child
	case child == "":
		return parent
	default:
		return parent + "/" + child
	}
}

///////////////////////////////////////////////////////////////

type directoryRow struct {
	parent string
	name   string
}

// directoryTree resolves directory identifiers to paths, remembering every
// path it has already worked out.
type directoryTree struct {
	rows     map[string]directoryRow
	resolved map[string]string
	visiting map[string]bool
}

func newDirectoryTree() *directoryTree {
	return &directoryTree{
		rows:     make(map[string]directoryRow),
		resolved: make(map[string]string),
		visiting: make(map[string]bool),
	}
}

func (this *directoryTree) add(id, parent, name string) {
	this.rows[id] = directoryRow{parent: parent, name: name}
}

func (this *directoryTree) resolve(id string) (string, error) {
	return this.ascend(id, 0)
}

func (this *directoryTree) ascend(id string, depth int) (string, error) {
	if resolved, found := this.resolved[id]; found {
		return resolved, nil
	}
	if depth > maxDirectoryDepth {
		return "", contracts.Errorf(contracts.Corrupt, resolveStage, "directory %s nested deeper than %d levels", id, maxDirectoryDepth)
	}
	if this.visiting[id] {
		return "", contracts.Errorf(contracts.Corrupt, resolveStage, "directory %s is its own ancestor", id)
	}
	row, found := this.rows[id]
	if !found {
		return "", contracts.Errorf(contracts.NotFound, resolveStage, "directory %s", id)
	}

	// A root has no parent or names itself as parent.
	path := ""
	if row.parent != "" && row.parent != id {
		this.visiting[id] = true
		parent, err := this.ascend(row.parent, depth+1)
		delete(this.visiting, id)
		if err != nil {
			return "", err
		}
		segment := directorySegment(row.name)
		if segment != "" {
			if err := checkSegment(segment); err != nil {
				return "", contracts.Errorf(contracts.Encoding, resolveStage, "directory %s: %w", id, err)
			}
		}
		path = joinSegments(parent, segment)
	}
	this.resolved[id] = path
	return path, nil
}

var (
	errEmptySegment    = segmentError("empty name")
	errParentSegment   = segmentError("name refers to parent directory")
	errInvalidText     = segmentError("name is not valid text")
	errUnsafeCharacter = segmentError("name contains a separator or control character")
)

type segmentError string

func (this segmentError) Error() string { return string(this) }
